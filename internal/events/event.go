// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"quote_assistant_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ConversationStepChanged is published whenever a turn moves a conversation to another step.
type ConversationStepChanged struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	Identity       string    `json:"identity"`
	From           string    `json:"from"`
	To             string    `json:"to"`
}

func (e ConversationStepChanged) EventName() string { return "conversation.step.changed" }

// ConversationCompleted is published when a conversation reaches the completed step.
type ConversationCompleted struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	Identity       string    `json:"identity"`
	Priced         bool      `json:"priced"`
	DocumentSent   bool      `json:"documentSent"`
}

func (e ConversationCompleted) EventName() string { return "conversation.completed" }

// ConversationReset is published when a conversation is discarded before completion.
type ConversationReset struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	Identity       string    `json:"identity"`
	Reason         string    `json:"reason"`
}

func (e ConversationReset) EventName() string { return "conversation.reset" }

// QuotePriced is published after the pricing API returned tiers for a conversation.
type QuotePriced struct {
	BaseEvent
	ConversationID uuid.UUID     `json:"conversationId"`
	Tiers          int           `json:"tiers"`
	Latency        time.Duration `json:"latency"`
}

func (e QuotePriced) EventName() string { return "quote.priced" }

// QuotePricingFailed is published when the pricing API could not produce a quote.
type QuotePricingFailed struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	Reason         string    `json:"reason"`
}

func (e QuotePricingFailed) EventName() string { return "quote.pricing_failed" }

// =============================================================================
// Messaging Events
// =============================================================================

// InboundMessageReceived is published once per first-seen inbound message.
type InboundMessageReceived struct {
	BaseEvent
	MessageID   string `json:"messageId"`
	MessageType string `json:"messageType"`
}

func (e InboundMessageReceived) EventName() string { return "message.received" }

// DuplicateMessageSkipped is published when a redelivered message is ignored.
type DuplicateMessageSkipped struct {
	BaseEvent
	MessageID string `json:"messageId"`
}

func (e DuplicateMessageSkipped) EventName() string { return "message.duplicate" }

// ResponseDelivered is published after the single reply for a message was sent.
type ResponseDelivered struct {
	BaseEvent
	MessageID string `json:"messageId"`
	Kind      string `json:"kind"`
}

func (e ResponseDelivered) EventName() string { return "message.response_sent" }

// ResponseFailed is published when sending the reply for a message failed.
type ResponseFailed struct {
	BaseEvent
	MessageID string `json:"messageId"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

func (e ResponseFailed) EventName() string { return "message.response_failed" }
