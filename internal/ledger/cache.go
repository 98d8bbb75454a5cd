package ledger

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"quote_assistant_backend/platform/logger"
)

// DefaultCacheSize is used when no cache size is configured.
const DefaultCacheSize = 10000

// terminal is what the cache remembers about a message id. Only states that
// can never be left are cached, so a hit is always safe to trust.
type terminal struct {
	processed bool
	sent      bool
}

// CachedStore answers repeat lookups for finished messages from a bounded
// LRU. The wrapped store stays the source of truth for every transition.
type CachedStore struct {
	Store
	cache *lru.Cache
	log   *logger.Logger
}

// NewCachedStore wraps store with an LRU of size entries.
func NewCachedStore(store Store, size int, log *logger.Logger) (*CachedStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create ledger cache: %w", err)
	}
	return &CachedStore{Store: store, cache: cache, log: log}, nil
}

// Compile-time check that CachedStore implements Store.
var _ Store = (*CachedStore)(nil)

func (c *CachedStore) lookup(messageID string) terminal {
	if v, ok := c.cache.Get(messageID); ok {
		return v.(terminal)
	}
	return terminal{}
}

func (c *CachedStore) remember(messageID string, update func(*terminal)) {
	t := c.lookup(messageID)
	update(&t)
	c.cache.Add(messageID, t)
}

func (c *CachedStore) Begin(ctx context.Context, messageID, identity, messageType string) (Entry, bool, error) {
	entry, created, err := c.Store.Begin(ctx, messageID, identity, messageType)
	if err != nil {
		return entry, created, err
	}
	if entry.ProcessingStatus == ProcessingDone || entry.ResponseStatus == ResponseSent {
		c.remember(messageID, func(t *terminal) {
			t.processed = t.processed || entry.ProcessingStatus == ProcessingDone
			t.sent = t.sent || entry.ResponseStatus == ResponseSent
		})
	}
	return entry, created, nil
}

func (c *CachedStore) ClaimProcessing(ctx context.Context, messageID string) error {
	if c.lookup(messageID).processed {
		return fmt.Errorf("claim processing: %w", ErrAlreadyClaimed)
	}
	return c.Store.ClaimProcessing(ctx, messageID)
}

func (c *CachedStore) MarkProcessed(ctx context.Context, messageID string) error {
	if err := c.Store.MarkProcessed(ctx, messageID); err != nil {
		return err
	}
	c.remember(messageID, func(t *terminal) { t.processed = true })
	return nil
}

func (c *CachedStore) CanSend(ctx context.Context, messageID string) (bool, error) {
	if c.lookup(messageID).sent {
		return false, nil
	}
	return c.Store.CanSend(ctx, messageID)
}

func (c *CachedStore) ClaimSend(ctx context.Context, messageID string) error {
	if c.lookup(messageID).sent {
		return fmt.Errorf("claim send: %w", ErrAlreadyClaimed)
	}
	return c.Store.ClaimSend(ctx, messageID)
}

func (c *CachedStore) MarkSent(ctx context.Context, messageID, providerMessageID string) error {
	if err := c.Store.MarkSent(ctx, messageID, providerMessageID); err != nil {
		return err
	}
	c.remember(messageID, func(t *terminal) { t.sent = true })
	return nil
}

func (c *CachedStore) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := c.Store.PurgeExpired(ctx)
	if err != nil {
		return n, err
	}
	if n > 0 {
		// Purged ids may come back as new messages.
		c.cache.Purge()
		c.log.Info("ledger cache purged", "expiredEntries", n)
	}
	return n, nil
}

// IsAlreadyClaimed reports whether err is a refused ledger transition.
func IsAlreadyClaimed(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed)
}
