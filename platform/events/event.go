package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every event published on a Bus. EventName is the
// subscription key, for example "message.received".
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded in events to stamp them once at creation.
type BaseEvent struct {
	EventID   uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a new event with an id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{EventID: uuid.New(), Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe to a Bus.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus fans events out to the handlers subscribed to their name. Publish does
// not wait for handlers; PublishSync does and joins their errors. Wait blocks
// until every handler started by Publish has returned, for shutdown.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
	Wait()
}
