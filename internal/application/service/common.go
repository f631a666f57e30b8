package service

import (
	"context"
	"time"

	"github.com/garyjia/procurement-engine/internal/application/dispatcher"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// options are shared by every service constructor
type options struct {
	dispatcher dispatcher.Dispatcher
	now        func() time.Time
}

// Option configures a service
type Option func(*options)

// WithDispatcher sets the event dispatcher used after a unit of work commits
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// WithClock overrides the time source used for history and order timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish dispatches committed events asynchronously
func (o *options) publish(ctx context.Context, events ...*event.Event) {
	if o.dispatcher == nil {
		return
	}
	for _, evt := range events {
		if evt != nil {
			o.dispatcher.DispatchAsync(ctx, evt)
		}
	}
}

// logFailure logs user-correctable errors at info and operational faults at error level
func logFailure(logger Logger, msg string, err error, keysAndValues ...interface{}) {
	kind := entity.KindOf(err)
	kv := append(keysAndValues, "error", err, "error_kind", kind)
	if kind == entity.KindConfiguration || kind == entity.KindInternal {
		logger.Error(msg, kv...)
		return
	}
	logger.Info(msg, kv...)
}
