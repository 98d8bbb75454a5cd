// Package ledger records every inbound WhatsApp message id and the state of
// its single reply, so redelivered webhooks are processed and answered at
// most once.
package ledger

import (
	"context"
	"errors"
	"time"
)

// ProcessingStatus tracks work on the inbound message.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingDone       ProcessingStatus = "processed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// ResponseStatus tracks the reply. It only moves
// not_sent|failed -> sending -> sent|failed.
type ResponseStatus string

const (
	ResponseNotSent ResponseStatus = "not_sent"
	ResponseSending ResponseStatus = "sending"
	ResponseSent    ResponseStatus = "sent"
	ResponseFailed  ResponseStatus = "failed"
)

// Sendable reports whether a reply may be attempted from s.
func (s ResponseStatus) Sendable() bool {
	return s == ResponseNotSent || s == ResponseFailed
}

// ErrAlreadyClaimed is returned when a conditional transition finds the entry
// in a state it may not move from.
var ErrAlreadyClaimed = errors.New("ledger entry already claimed")

// Entry is one inbound message.
type Entry struct {
	MessageID         string           `json:"messageId"`
	Identity          string           `json:"identity"`
	MessageType       string           `json:"messageType"`
	ProcessingStatus  ProcessingStatus `json:"processingStatus"`
	ResponseStatus    ResponseStatus   `json:"responseStatus"`
	ResponseMessageID string           `json:"responseMessageId,omitempty"`
	Attempts          int              `json:"attempts"`
	LastError         string           `json:"lastError,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	ExpiresAt         time.Time        `json:"expiresAt"`
}

// Store is the delivery ledger.
type Store interface {
	// Begin records messageID on first sight. The bool reports whether this
	// call created the entry.
	Begin(ctx context.Context, messageID, identity, messageType string) (Entry, bool, error)
	Get(ctx context.Context, messageID string) (Entry, error)

	// ClaimProcessing moves pending|failed to processing, or reclaims an
	// abandoned processing entry. Otherwise it returns ErrAlreadyClaimed.
	ClaimProcessing(ctx context.Context, messageID string) error
	MarkProcessed(ctx context.Context, messageID string) error
	MarkProcessingFailed(ctx context.Context, messageID string, cause error) error

	// CanSend reports whether a response may still be attempted. It is a
	// read-only pre-check; ClaimSend is the gate.
	CanSend(ctx context.Context, messageID string) (bool, error)
	// ClaimSend moves not_sent|failed to sending or returns ErrAlreadyClaimed.
	ClaimSend(ctx context.Context, messageID string) error
	MarkSent(ctx context.Context, messageID, providerMessageID string) error
	MarkSendFailed(ctx context.Context, messageID string, cause error) error

	// PurgeExpired deletes entries past their retention window.
	PurgeExpired(ctx context.Context) (int64, error)
}

// maxErrorLength bounds the stored error text.
const maxErrorLength = 1000

func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}
	return msg
}
