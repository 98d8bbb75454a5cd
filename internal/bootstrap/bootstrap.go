// Package bootstrap wires the modules shared by the api and scheduler
// processes: catalog, NLU, conversation, pricing, quote documents, the
// delivery ledger and the inbound pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quote_assistant_backend/internal/adapters"
	"quote_assistant_backend/internal/adapters/storage"
	"quote_assistant_backend/internal/catalog"
	"quote_assistant_backend/internal/conversation"
	"quote_assistant_backend/internal/conversation/ports"
	convservice "quote_assistant_backend/internal/conversation/service"
	"quote_assistant_backend/internal/events"
	"quote_assistant_backend/internal/inbound"
	"quote_assistant_backend/internal/ledger"
	"quote_assistant_backend/internal/nlu"
	"quote_assistant_backend/internal/pricing"
	"quote_assistant_backend/internal/scheduler"
	"quote_assistant_backend/internal/transcription"
	"quote_assistant_backend/internal/whatsapp"
	"quote_assistant_backend/platform/config"
	"quote_assistant_backend/platform/logger"
	"quote_assistant_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pipeline holds the wired domain modules.
type Pipeline struct {
	Catalog      *catalog.Module
	Conversation *conversation.Module
	Ledger       *ledger.CachedStore
	LedgerModule *ledger.Module
	// Processor is nil when WhatsApp is not configured.
	Processor *inbound.Processor

	closers []func()
}

// Build wires every module against pool. With Redis configured, turns are
// serialized per identity across processes; otherwise within this process.
func Build(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) (*Pipeline, error) {
	p := &Pipeline{}

	p.Catalog = catalog.NewModule(pool, val, log)
	catalogLookup := adapters.NewCatalogLookup(p.Catalog.Service())

	extractor, err := nlu.New(ctx, cfg, adapters.NewCatalogVocabulary(p.Catalog.Service()), log)
	if err != nil {
		return nil, fmt.Errorf("init nlu: %w", err)
	}
	log.Info("nlu extractor initialized", "provider", cfg.GetNLUProvider())

	pricingClient := pricing.NewClient(cfg, log)
	if pricingClient == nil {
		return nil, errors.New("pricing api url not configured")
	}

	p.Conversation = conversation.NewModule(
		pool,
		catalogLookup,
		extractor,
		adapters.NewPricingClient(pricingClient, cfg.GetQuoteCurrency()),
		convservice.Config{CompanyName: cfg.GetCompanyName(), Currency: cfg.GetQuoteCurrency()},
		val,
		log,
	)
	convSvc := p.Conversation.Service()
	convSvc.SetEventBus(bus)
	convSvc.SetDocuments(quoteDocuments(ctx, cfg, log))

	locker, closeLocker := identityLocker(cfg, log)
	convSvc.SetLocker(locker)
	if closeLocker != nil {
		p.closers = append(p.closers, closeLocker)
	}

	cached, err := ledger.NewCachedStore(ledger.NewRepository(pool, cfg.GetLedgerRetention()), cfg.GetLedgerCacheSize(), log)
	if err != nil {
		return nil, err
	}
	p.Ledger = cached
	p.LedgerModule = ledger.NewModule(cached)

	waClient := whatsapp.NewClient(cfg, log)
	if waClient == nil {
		log.Warn("WhatsApp not configured; inbound messages will not be processed")
		return p, nil
	}

	p.Processor = inbound.NewProcessor(cached, convSvc, waClient, log)
	p.Processor.SetEventBus(bus)
	if tc := transcription.NewClient(cfg, log); tc != nil {
		p.Processor.SetTranscriber(tc)
		log.Info("voice note transcription enabled", "model", cfg.GetTranscriptionModel())
	}

	return p, nil
}

// Close releases connections opened by Build.
func (p *Pipeline) Close() {
	for _, c := range p.closers {
		c()
	}
}

func quoteDocuments(ctx context.Context, cfg *config.Config, log *logger.Logger) *adapters.QuoteDocuments {
	docs := adapters.NewQuoteDocuments(cfg.GetCompanyName(), log)
	if !cfg.IsMinIOEnabled() {
		log.Warn("MinIO not configured; quote PDFs are uploaded to WhatsApp directly")
		return docs
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		return docs
	}
	bucket := cfg.GetMinioBucketQuotePDFs()
	if err := WithRetry(ctx, log, "ensure quote-pdfs bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "bucket", bucket, "error", err)
		return docs
	}

	docs.SetStorage(storageSvc, bucket, cfg.GetQuotePDFLinkTTL())
	log.Info("storage service initialized", "quotePDFsBucket", bucket)
	return docs
}

func identityLocker(cfg *config.Config, log *logger.Logger) (ports.IdentityLocker, func()) {
	if cfg.GetRedisURL() == "" {
		return convservice.NewLocalLocker(), nil
	}

	lock, err := scheduler.NewIdentityLock(cfg, cfg.GetIdentityLockTTL(), log)
	if err != nil {
		log.Error("failed to initialize redis identity lock, using in-process lock", "error", err)
		return convservice.NewLocalLocker(), nil
	}
	return lock, func() { _ = lock.Close() }
}

// WithRetry runs fn up to attempts times with quadratic backoff.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
