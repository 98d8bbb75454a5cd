package metrics

import (
	"context"
	"strconv"

	"quote_assistant_backend/internal/events"
)

// Subscribe feeds the counters from domain events published on bus.
func Subscribe(bus *events.InMemoryBus) {
	bus.Subscribe(events.InboundMessageReceived{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.InboundMessageReceived); ok {
			InboundMessagesTotal.WithLabelValues(e.MessageType).Inc()
		}
		return nil
	}))

	bus.Subscribe(events.DuplicateMessageSkipped{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		DuplicateMessagesTotal.Inc()
		return nil
	}))

	bus.Subscribe(events.ResponseDelivered{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.ResponseDelivered); ok {
			ResponsesTotal.WithLabelValues("sent", e.Kind).Inc()
		}
		return nil
	}))

	bus.Subscribe(events.ResponseFailed{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.ResponseFailed); ok {
			ResponsesTotal.WithLabelValues("failed", e.Kind).Inc()
		}
		return nil
	}))

	bus.Subscribe(events.ConversationStepChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.ConversationStepChanged); ok {
			StepTransitionsTotal.WithLabelValues(e.From, e.To).Inc()
		}
		return nil
	}))

	bus.Subscribe(events.ConversationCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.ConversationCompleted); ok {
			ConversationsCompletedTotal.WithLabelValues(strconv.FormatBool(e.Priced)).Inc()
		}
		return nil
	}))

	bus.Subscribe(events.ConversationReset{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.ConversationReset); ok {
			ConversationsResetTotal.WithLabelValues(e.Reason).Inc()
		}
		return nil
	}))
}
