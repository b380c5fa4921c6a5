// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"github.com/alubinski/webnet/control"
	"github.com/alubinski/webnet/internal/logging"
	"github.com/containerd/log"
)

// Option configures a Connection or Acceptor.
type Option func(*options)

type options struct {
	config  *control.Config
	metrics *control.Metrics
	logger  *log.Entry
}

// WithConfig applies socket settings (TCP_NODELAY, inheritance, backlog).
func WithConfig(cfg *control.Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithMetrics records activity into m.
func WithMetrics(m *control.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(e *log.Entry) Option {
	return func(o *options) { o.logger = e }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.config == nil {
		o.config = control.DefaultConfig()
	}
	if o.logger == nil {
		o.logger = logging.For("transport/tcp")
	}
	return o
}

func (o options) asOptions() []Option {
	return []Option{WithConfig(o.config), WithMetrics(o.metrics), WithLogger(o.logger)}
}
