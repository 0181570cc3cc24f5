package notifications

import (
	"context"
	"errors"
	"time"
)

// EventKind names what happened to a notification.
type EventKind string

const (
	// EventCreated is emitted after a notification is inserted.
	EventCreated EventKind = "notification.created"
	// EventRemoved is emitted after a notification is deleted.
	EventRemoved EventKind = "notification.removed"
)

// Event describes one committed change to the notification collection.
type Event struct {
	Kind         EventKind    `json:"kind"`
	Notification Notification `json:"notification"`
	OccurredAt   time.Time    `json:"occurred_at"`
}

// Publisher delivers committed notification events to an outside sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Publishers fans an event out to every sink and joins their errors.
type Publishers []Publisher

// Publish implements Publisher.
func (p Publishers) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, publisher := range p {
		if publisher == nil {
			continue
		}
		if err := publisher.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
