package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"quote_assistant_backend/internal/conversation/domain"
)

// ErrStaleVersion is returned by Save when another writer updated the
// conversation since it was loaded.
var ErrStaleVersion = errors.New("conversation was modified concurrently")

// Deactivation reasons.
const (
	ReasonCompleted  = "completed"
	ReasonReset      = "reset"
	ReasonStale      = "stale"
	ReasonAdminReset = "admin_reset"
)

// ListParams pages through active conversations.
type ListParams struct {
	Limit  int
	Offset int
}

// Repository persists conversations. At most one conversation per identity
// is active at any time.
type Repository interface {
	// FindActive returns the active conversation of identity or apperr.NotFound.
	FindActive(ctx context.Context, identity string) (domain.ConversationState, error)
	// FindOrCreateActive returns the active conversation, creating one when
	// none exists. The bool reports whether it was created.
	FindOrCreateActive(ctx context.Context, identity string) (domain.ConversationState, bool, error)
	// Save writes state if its version is current and bumps the version.
	Save(ctx context.Context, state *domain.ConversationState) error
	Deactivate(ctx context.Context, id uuid.UUID, reason string) error
	Get(ctx context.Context, id uuid.UUID) (domain.ConversationState, error)
	ListActive(ctx context.Context, params ListParams) ([]domain.ConversationState, int, error)
	DeactivateStale(ctx context.Context, lastMessageBefore time.Time) (int64, error)
}
