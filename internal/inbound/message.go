// Package inbound runs one received WhatsApp message through the delivery
// ledger, text resolution and the conversation flow.
package inbound

import (
	"context"
	"time"
)

// Message types as reported by the Cloud API.
const (
	TypeText        = "text"
	TypeInteractive = "interactive"
	TypeButton      = "button"
	TypeAudio       = "audio"
	TypeImage       = "image"
	TypeDocument    = "document"
)

// Message is one inbound customer message, normalized from the webhook
// envelope. It is also the asynq task payload.
type Message struct {
	ID        string    `json:"id" validate:"required,msgid"`
	From      string    `json:"from" validate:"required"`
	Name      string    `json:"name,omitempty"`
	Type      string    `json:"type" validate:"required"`
	Text      string    `json:"text,omitempty"`
	ReplyID   string    `json:"replyId,omitempty"`
	MediaID   string    `json:"mediaId,omitempty"`
	MimeType  string    `json:"mimeType,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Dispatcher hands a message to whatever processes it.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}
