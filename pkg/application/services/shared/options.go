package shared

import (
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

// Option configures the ambient dependencies of a planning service
type Option func(*Options)

// Options holds the logger, event publisher and clock shared by every service
type Options struct {
	Logger    *zap.Logger
	Publisher events.Publisher
	Now       func() time.Time
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithPublisher sets the observer hook for emitted events. Defaults to discarding them.
func WithPublisher(publisher events.Publisher) Option {
	return func(o *Options) {
		if publisher != nil {
			o.Publisher = publisher
		}
	}
}

// WithClock overrides time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// Apply resolves opts over the defaults
func Apply(opts ...Option) Options {
	o := Options{
		Logger:    zap.NewNop(),
		Publisher: events.NopPublisher{},
		Now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
