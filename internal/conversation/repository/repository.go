package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/platform/apperr"
)

const (
	conversationNotFoundMessage = "conversation not found"

	conversationColumns = `id, identity, current_step, order_data, is_active, version,
		COALESCE(deactivated_reason, ''), created_at, updated_at, last_message_at, completed_at`
)

// Repo implements the conversation repository on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new conversation repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func (r *Repo) FindActive(ctx context.Context, identity string) (domain.ConversationState, error) {
	query := `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE identity = $1 AND is_active`

	state, err := scanConversation(r.pool.QueryRow(ctx, query, identity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConversationState{}, apperr.NotFound(conversationNotFoundMessage)
		}
		return domain.ConversationState{}, err
	}
	return state, nil
}

func (r *Repo) FindOrCreateActive(ctx context.Context, identity string) (domain.ConversationState, bool, error) {
	state, err := r.FindActive(ctx, identity)
	if err == nil {
		return state, false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return domain.ConversationState{}, false, err
	}

	orderData, err := json.Marshal(domain.OrderData{})
	if err != nil {
		return domain.ConversationState{}, false, fmt.Errorf("marshal order data: %w", err)
	}

	query := `
		INSERT INTO conversations (identity, current_step, order_data)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity) WHERE is_active DO NOTHING
		RETURNING ` + conversationColumns

	state, err = scanConversation(r.pool.QueryRow(ctx, query, identity, string(domain.StepStart), orderData))
	if err == nil {
		return state, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.ConversationState{}, false, fmt.Errorf("create conversation: %w", err)
	}

	// A concurrent writer created it first.
	state, err = r.FindActive(ctx, identity)
	if err != nil {
		return domain.ConversationState{}, false, err
	}
	return state, false, nil
}

func (r *Repo) Save(ctx context.Context, state *domain.ConversationState) error {
	orderData, err := json.Marshal(state.OrderData)
	if err != nil {
		return fmt.Errorf("marshal order data: %w", err)
	}

	var reason *string
	if state.DeactivatedReason != "" {
		reason = &state.DeactivatedReason
	}

	query := `
		UPDATE conversations
		SET current_step = $3,
			order_data = $4,
			is_active = $5,
			deactivated_reason = $6,
			last_message_at = $7,
			completed_at = $8,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`

	err = r.pool.QueryRow(ctx, query,
		state.ID, state.Version, string(state.CurrentStep), orderData, state.IsActive,
		reason, state.LastMessageAt, state.CompletedAt,
	).Scan(&state.Version, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaleVersion
		}
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (r *Repo) Deactivate(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE conversations
		SET is_active = false,
			deactivated_reason = $2,
			completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE completed_at END,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND is_active`

	tag, err := r.pool.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("deactivate conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(conversationNotFoundMessage)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (domain.ConversationState, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	state, err := scanConversation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConversationState{}, apperr.NotFound(conversationNotFoundMessage)
		}
		return domain.ConversationState{}, err
	}
	return state, nil
}

func (r *Repo) ListActive(ctx context.Context, params ListParams) ([]domain.ConversationState, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE is_active`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	query := `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE is_active
		ORDER BY last_message_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]domain.ConversationState, 0)
	for rows.Next() {
		state, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, state)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate conversations: %w", err)
	}
	return items, total, nil
}

func (r *Repo) DeactivateStale(ctx context.Context, lastMessageBefore time.Time) (int64, error) {
	query := `
		UPDATE conversations
		SET is_active = false,
			deactivated_reason = $2,
			version = version + 1,
			updated_at = now()
		WHERE is_active AND last_message_at < $1`

	tag, err := r.pool.Exec(ctx, query, lastMessageBefore, ReasonStale)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanConversation(row pgx.Row) (domain.ConversationState, error) {
	var (
		state     domain.ConversationState
		step      string
		orderData []byte
	)
	if err := row.Scan(
		&state.ID, &state.Identity, &step, &orderData, &state.IsActive, &state.Version,
		&state.DeactivatedReason, &state.CreatedAt, &state.UpdatedAt, &state.LastMessageAt, &state.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConversationState{}, err
		}
		return domain.ConversationState{}, fmt.Errorf("scan conversation: %w", err)
	}
	state.CurrentStep = domain.Step(step)
	if len(orderData) > 0 {
		if err := json.Unmarshal(orderData, &state.OrderData); err != nil {
			return domain.ConversationState{}, fmt.Errorf("decode order data: %w", err)
		}
	}
	return state, nil
}
