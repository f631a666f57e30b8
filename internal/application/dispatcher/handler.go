package dispatcher

import (
	"context"
	"fmt"

	"github.com/garyjia/procurement-engine/internal/domain/event"
)

// Handler reacts to one procurement event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// Event groups for routes that follow a whole lifecycle
var (
	ApprovalEvents = []event.Type{
		event.TypeApprovalSubmitted,
		event.TypeApprovalApproved,
		event.TypeApprovalRejected,
	}
	PurchasingEvents = []event.Type{
		event.TypeQuoteLineConfirmed,
		event.TypeOrderConfirmed,
		event.TypeVendorSubscribed,
	}
)

// Route binds a named handler to the events it follows
type Route struct {
	Name        string
	Description string
	Types       []event.Type
	Handle      Handler
}

func (r Route) validate() error {
	if r.Name == "" {
		return fmt.Errorf("route name is required")
	}
	if r.Handle == nil {
		return fmt.Errorf("route %s has no handler", r.Name)
	}
	if len(r.Types) == 0 {
		return fmt.Errorf("route %s follows no events", r.Name)
	}
	for _, t := range r.Types {
		if !t.IsValid() {
			return fmt.Errorf("route %s: unknown event type %q", r.Name, t)
		}
	}
	return nil
}

// Unless wraps h so events matching skip are acknowledged without running it
func Unless(skip func(evt *event.Event) bool, h Handler) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		if skip(evt) {
			return nil
		}
		return h(ctx, evt)
	}
}

// Register validates every route before subscribing any, so a bad table
// leaves the dispatcher unchanged.
func (d *eventDispatcher) Register(routes ...Route) error {
	for _, r := range routes {
		if err := r.validate(); err != nil {
			return err
		}
	}

	d.mu.Lock()
	for _, r := range routes {
		for _, t := range r.Types {
			d.handlers[t] = append(d.handlers[t], HandlerInfo{
				Name:        r.Name,
				EventType:   t,
				Handler:     r.Handle,
				Description: r.Description,
			})
		}
	}
	d.mu.Unlock()

	for _, r := range routes {
		d.logInfo("Route registered", "handler_name", r.Name, "event_types", r.Types)
	}
	return nil
}
