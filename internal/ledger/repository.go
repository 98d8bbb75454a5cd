package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quote_assistant_backend/platform/apperr"
)

const (
	// DefaultRetention keeps entries long enough to absorb provider redelivery.
	DefaultRetention = 7 * 24 * time.Hour

	// DefaultClaimTimeout after which a processing claim is considered abandoned.
	DefaultClaimTimeout = 5 * time.Minute

	entryColumns = `message_id, identity, message_type, processing_status, response_status,
		COALESCE(response_message_id, ''), attempts, COALESCE(last_error, ''),
		created_at, updated_at, expires_at`
)

// Repository implements Store on PostgreSQL. Every transition is a single
// conditional UPDATE, so concurrent workers race on the row, not in Go.
type Repository struct {
	pool         *pgxpool.Pool
	retention    time.Duration
	claimTimeout time.Duration
}

// NewRepository creates a new ledger repository.
func NewRepository(pool *pgxpool.Pool, retention time.Duration) *Repository {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Repository{pool: pool, retention: retention, claimTimeout: DefaultClaimTimeout}
}

// Compile-time check that Repository implements Store.
var _ Store = (*Repository)(nil)

func (r *Repository) Begin(ctx context.Context, messageID, identity, messageType string) (Entry, bool, error) {
	expiresAt := time.Now().UTC().Add(r.retention)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO delivery_ledger (message_id, identity, message_type, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id) DO NOTHING
		RETURNING `+entryColumns,
		messageID, identity, messageType, expiresAt,
	)
	entry, err := scanEntry(row)
	if err == nil {
		return entry, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, fmt.Errorf("begin ledger entry: %w", err)
	}

	existing, err := r.Get(ctx, messageID)
	if err != nil {
		return Entry{}, false, err
	}
	return existing, false, nil
}

func (r *Repository) Get(ctx context.Context, messageID string) (Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM delivery_ledger WHERE message_id = $1`, messageID)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, apperr.NotFound("ledger entry not found")
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get ledger entry: %w", err)
	}
	return entry, nil
}

func (r *Repository) ClaimProcessing(ctx context.Context, messageID string) error {
	abandonedBefore := time.Now().UTC().Add(-r.claimTimeout)
	return r.transition(ctx, "claim processing", `
		UPDATE delivery_ledger
		SET processing_status = 'processing', attempts = attempts + 1, updated_at = now()
		WHERE message_id = $1
		  AND (processing_status IN ('pending', 'failed')
		       OR (processing_status = 'processing' AND updated_at < $2))`,
		messageID, abandonedBefore,
	)
}

func (r *Repository) MarkProcessed(ctx context.Context, messageID string) error {
	return r.transition(ctx, "mark processed", `
		UPDATE delivery_ledger
		SET processing_status = 'processed', last_error = NULL, updated_at = now()
		WHERE message_id = $1 AND processing_status = 'processing'`,
		messageID,
	)
}

func (r *Repository) MarkProcessingFailed(ctx context.Context, messageID string, cause error) error {
	return r.transition(ctx, "mark processing failed", `
		UPDATE delivery_ledger
		SET processing_status = 'failed', last_error = $2, updated_at = now()
		WHERE message_id = $1 AND processing_status = 'processing'`,
		messageID, errorText(cause),
	)
}

func (r *Repository) CanSend(ctx context.Context, messageID string) (bool, error) {
	entry, err := r.Get(ctx, messageID)
	if err != nil {
		return false, err
	}
	return entry.ResponseStatus.Sendable(), nil
}

func (r *Repository) ClaimSend(ctx context.Context, messageID string) error {
	return r.transition(ctx, "claim send", `
		UPDATE delivery_ledger
		SET response_status = 'sending', updated_at = now()
		WHERE message_id = $1 AND response_status IN ('not_sent', 'failed')`,
		messageID,
	)
}

func (r *Repository) MarkSent(ctx context.Context, messageID, providerMessageID string) error {
	return r.transition(ctx, "mark sent", `
		UPDATE delivery_ledger
		SET response_status = 'sent', response_message_id = NULLIF($2, ''), last_error = NULL, updated_at = now()
		WHERE message_id = $1 AND response_status = 'sending'`,
		messageID, providerMessageID,
	)
}

func (r *Repository) MarkSendFailed(ctx context.Context, messageID string, cause error) error {
	return r.transition(ctx, "mark send failed", `
		UPDATE delivery_ledger
		SET response_status = 'failed', last_error = $2, updated_at = now()
		WHERE message_id = $1 AND response_status = 'sending'`,
		messageID, errorText(cause),
	)
}

func (r *Repository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM delivery_ledger WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("purge ledger: %w", err)
	}
	return tag.RowsAffected(), nil
}

// transition runs a conditional update. Zero affected rows means the entry is
// missing (NotFound) or not in a state the transition may leave (ErrAlreadyClaimed).
func (r *Repository) transition(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM delivery_ledger WHERE message_id = $1)`, args[0]).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return apperr.NotFound("ledger entry not found")
	}
	return fmt.Errorf("%s: %w", op, ErrAlreadyClaimed)
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var processing, response string
	err := row.Scan(
		&e.MessageID, &e.Identity, &e.MessageType, &processing, &response,
		&e.ResponseMessageID, &e.Attempts, &e.LastError,
		&e.CreatedAt, &e.UpdatedAt, &e.ExpiresAt,
	)
	if err != nil {
		return Entry{}, err
	}
	e.ProcessingStatus = ProcessingStatus(processing)
	e.ResponseStatus = ResponseStatus(response)
	return e, nil
}
