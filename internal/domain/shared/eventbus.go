package shared

import "context"

// EventHandler reacts to domain events after the change that raised them has committed
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types the handler wants by default
	EventTypes() []string
}

// EventPublisher delivers committed events. A publish failure never rolls back
// billing or settlement state; callers log it and move on.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is the in-process fan-out wiring publishers to handlers
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
