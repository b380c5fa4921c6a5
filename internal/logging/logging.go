// File: internal/logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Component-scoped loggers on top of containerd/log.

package logging

import (
	"context"
	"fmt"

	"github.com/containerd/log"
)

// For returns the process logger tagged with the given component name.
func For(component string) *log.Entry {
	return log.L.WithField("module", component)
}

// FromContext returns the logger carried by ctx, tagged with component.
func FromContext(ctx context.Context, component string) *log.Entry {
	return log.G(ctx).WithField("module", component)
}

// SetLevel sets the process-wide log level ("trace", "debug", "info", ...).
// An empty level leaves the current one untouched.
func SetLevel(level string) error {
	if level == "" {
		return nil
	}
	if err := log.SetLevel(level); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	return nil
}
