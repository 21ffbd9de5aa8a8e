package ldapguard

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/rs/zerolog"
)

// Option customizes a guard.
type Option func(*options)

type options struct {
	logger  zerolog.Logger
	metrics Collector
	factory Factory
}

// WithLogger attaches a structured logger. The default discards
// everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics attaches a lifecycle event collector.
func WithMetrics(metrics Collector) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithFactory overrides the connection factory. Intended for tests and
// custom transports; the dial factory is used otherwise.
func WithFactory(factory Factory) Option {
	return func(o *options) {
		o.factory = factory
	}
}

// New builds a guarded connection from a typed configuration. The
// first handle is established eagerly, so credential and connectivity
// problems surface here rather than on the first operation.
//
// The returned Conn is safe for use by a single logical consumer; the
// holder serializes handle access internally.
func New(cfg *Config, opts ...Option) (Conn, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration defaults: %w", err)
	}

	o := &options{
		logger:  zerolog.Nop(),
		metrics: NoopCollector(),
	}
	for _, opt := range opts {
		opt(o)
	}

	factory := o.factory
	if factory == nil {
		if err := validateConfig(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		dial, err := newDialFactory(cfg, o.logger)
		if err != nil {
			return nil, err
		}
		factory = dial
	}

	h, err := newHolder(factory, cfg.IdleTimeout, cfg.IdleRefresh, o.logger, o.metrics)
	if err != nil {
		return nil, err
	}

	return &guardedConn{holder: h}, nil
}

// NewFromProperties builds a guarded connection from a flat property
// table. The guard's control keys are consumed here: the idle knobs
// parameterize the holder, and the sanitized remainder of the table is
// what the connection factory sees.
func NewFromProperties(props Properties, opts ...Option) (Conn, error) {
	idleTimeout := props.idleTimeout()
	idleRefresh := props.idleRefresh()

	cfg := props.sanitize().toConfig()
	cfg.IdleTimeout = idleTimeout
	cfg.IdleRefresh = idleRefresh

	return New(cfg, opts...)
}
