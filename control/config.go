// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Library configuration: defaults, TOML file loading and a thread-safe store
// with reload propagation.

package control

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alubinski/webnet/internal/logging"
	"github.com/alubinski/webnet/socket"
	"github.com/alubinski/webnet/task"
	"github.com/containerd/errdefs"
	"github.com/pelletier/go-toml"
)

// Config holds tunables shared by acceptors and connections.
type Config struct {
	Backlog          int           // listen queue length, 0 selects the platform default
	NoDelay          bool          // set TCP_NODELAY on accepted and dialed sockets
	Inheritable      bool          // let child processes inherit socket handles
	ReadBufferSize   int           // buffer size used by read loops
	DriveBackoffBase time.Duration // first re-poll delay of Task.Get
	DriveBackoffMax  time.Duration // re-poll delay ceiling of Task.Get
	LogLevel         string
	MetricsNamespace string
}

// DefaultConfig returns baseline settings.
func DefaultConfig() *Config {
	return &Config{
		Backlog:          0,
		NoDelay:          true,
		Inheritable:      false,
		ReadBufferSize:   4096,
		DriveBackoffBase: 50 * time.Microsecond,
		DriveBackoffMax:  10 * time.Millisecond,
		LogLevel:         "info",
		MetricsNamespace: "webnet",
	}
}

// InheritMode maps Inheritable to the socket flag.
func (c *Config) InheritMode() socket.InheritMode {
	if c.Inheritable {
		return socket.Inheritable
	}
	return socket.NonInheritable
}

// Validate rejects settings no component can honour.
func (c *Config) Validate() error {
	switch {
	case c.Backlog < 0:
		return fmt.Errorf("backlog %d: %w", c.Backlog, errdefs.ErrInvalidArgument)
	case c.ReadBufferSize <= 0:
		return fmt.Errorf("read buffer size %d: %w", c.ReadBufferSize, errdefs.ErrInvalidArgument)
	case c.DriveBackoffBase <= 0 || c.DriveBackoffMax < c.DriveBackoffBase:
		return fmt.Errorf("drive backoff %s..%s: %w", c.DriveBackoffBase, c.DriveBackoffMax, errdefs.ErrInvalidArgument)
	}
	return nil
}

// Apply installs the process-wide parts of c: log level and drive backoff.
func (c *Config) Apply() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := logging.SetLevel(c.LogLevel); err != nil {
		return err
	}
	task.SetDriveBackoff(c.DriveBackoffBase, c.DriveBackoffMax)
	return nil
}

// LoadConfig reads a TOML file over DefaultConfig. Recognised keys:
//
//	[socket]  backlog, no_delay, inheritable, read_buffer_size
//	[task]    drive_backoff_base, drive_backoff_max (duration strings)
//	[log]     level
//	[metrics] namespace
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML data over DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %v: %w", err, errdefs.ErrInvalidArgument)
	}
	cfg := DefaultConfig()
	fields := []struct {
		key string
		set func(v any) error
	}{
		{"socket.backlog", intField(&cfg.Backlog)},
		{"socket.no_delay", boolField(&cfg.NoDelay)},
		{"socket.inheritable", boolField(&cfg.Inheritable)},
		{"socket.read_buffer_size", intField(&cfg.ReadBufferSize)},
		{"task.drive_backoff_base", durationField(&cfg.DriveBackoffBase)},
		{"task.drive_backoff_max", durationField(&cfg.DriveBackoffMax)},
		{"log.level", stringField(&cfg.LogLevel)},
		{"metrics.namespace", stringField(&cfg.MetricsNamespace)},
	}
	for _, f := range fields {
		if !tree.Has(f.key) {
			continue
		}
		if err := f.set(tree.Get(f.key)); err != nil {
			return nil, fmt.Errorf("config key %s: %w", f.key, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func typeError(v any, want string) error {
	return fmt.Errorf("got %T, want %s: %w", v, want, errdefs.ErrInvalidArgument)
}

func intField(dst *int) func(any) error {
	return func(v any) error {
		n, ok := v.(int64)
		if !ok {
			return typeError(v, "integer")
		}
		*dst = int(n)
		return nil
	}
}

func boolField(dst *bool) func(any) error {
	return func(v any) error {
		b, ok := v.(bool)
		if !ok {
			return typeError(v, "boolean")
		}
		*dst = b
		return nil
	}
}

func stringField(dst *string) func(any) error {
	return func(v any) error {
		s, ok := v.(string)
		if !ok {
			return typeError(v, "string")
		}
		*dst = s
		return nil
	}
}

func durationField(dst *time.Duration) func(any) error {
	return func(v any) error {
		s, ok := v.(string)
		if !ok {
			return typeError(v, "duration string")
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%v: %w", err, errdefs.ErrInvalidArgument)
		}
		*dst = d
		return nil
	}
}

// Store holds the active Config and notifies listeners on change.
type Store struct {
	mu        sync.RWMutex
	config    Config
	listeners []func(Config)
}

// NewStore initializes a store with cfg, or DefaultConfig when cfg is nil.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Store{config: *cfg}
}

// Snapshot returns a copy of the active config.
func (s *Store) Snapshot() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.config
	return &c
}

// Update validates cfg, makes it active and calls every listener with it.
func (s *Store) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.config = *cfg
	listeners := append([]func(Config){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(*cfg)
	}
	return nil
}

// Reload loads path and makes it the active config.
func (s *Store) Reload(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	return s.Update(cfg)
}

// OnReload registers a listener hook called on config changes.
func (s *Store) OnReload(fn func(Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
