package transport

import (
	"time"

	"github.com/google/uuid"

	"quote_assistant_backend/internal/conversation/domain"
)

type ListConversationsRequest struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

type ConversationPathRequest struct {
	ID string `uri:"id" validate:"required,uuid"`
}

type ConversationResponse struct {
	ID                uuid.UUID        `json:"id"`
	Identity          string           `json:"identity"`
	CurrentStep       string           `json:"currentStep"`
	OrderData         domain.OrderData `json:"orderData"`
	IsActive          bool             `json:"isActive"`
	Version           int64            `json:"version"`
	DeactivatedReason string           `json:"deactivatedReason,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	LastMessageAt     time.Time        `json:"lastMessageAt"`
	CompletedAt       *time.Time       `json:"completedAt,omitempty"`
}

type ConversationListResponse struct {
	Items  []ConversationResponse `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

type ResetConversationResponse struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}
