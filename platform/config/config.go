// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides the Redis connection used by the queue and identity locks.
type RedisConfig interface {
	GetRedisURL() string
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	RedisConfig
	GetInboundQueueConcurrency() int
}

// WhatsAppConfig provides settings for the WhatsApp Cloud API transport.
type WhatsAppConfig interface {
	GetWhatsAppAPIURL() string
	GetWhatsAppPhoneNumberID() string
	GetWhatsAppAccessToken() string
	GetWhatsAppSendRate() float64
	IsWhatsAppEnabled() bool
}

// WebhookConfig provides the secrets used by the inbound webhook.
type WebhookConfig interface {
	GetWhatsAppVerifyToken() string
	GetWhatsAppAppSecret() string
	GetDefaultRegion() string
}

// NLUConfig provides settings for entity extraction.
type NLUConfig interface {
	GetNLUProvider() string
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetNLUTimeout() time.Duration
	GetNLULexiconPath() string
}

// TranscriptionConfig provides settings for voice-note transcription.
type TranscriptionConfig interface {
	GetOpenAIAPIKey() string
	GetTranscriptionModel() string
	IsTranscriptionEnabled() bool
}

// PricingConfig provides settings for the external pricing API.
type PricingConfig interface {
	GetPricingAPIURL() string
	GetPricingAPIKey() string
	GetPricingTimeout() time.Duration
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketQuotePDFs() string
	GetQuotePDFLinkTTL() time.Duration
	IsMinIOEnabled() bool
}

// LedgerConfig provides settings for the delivery ledger.
type LedgerConfig interface {
	GetLedgerRetention() time.Duration
	GetLedgerCacheSize() int
}

// ConversationConfig provides settings for conversation lifecycle.
type ConversationConfig interface {
	GetConversationStaleAfter() time.Duration
	GetConversationSweepInterval() time.Duration
	GetIdentityLockTTL() time.Duration
}

// QuoteDocumentConfig provides branding for generated quote documents.
type QuoteDocumentConfig interface {
	GetCompanyName() string
	GetQuoteCurrency() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	RedisURL                  string
	JWTAccessSecret           string
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	InboundQueueConcurrency   int
	WhatsAppAPIURL            string
	WhatsAppPhoneNumberID     string
	WhatsAppAccessToken       string
	WhatsAppVerifyToken       string
	WhatsAppAppSecret         string
	WhatsAppSendRate          float64
	DefaultRegion             string
	NLUProvider               string
	GeminiAPIKey              string
	GeminiModel               string
	NLUTimeout                time.Duration
	NLULexiconPath            string
	OpenAIAPIKey              string
	TranscriptionModel        string
	PricingAPIURL             string
	PricingAPIKey             string
	PricingTimeout            time.Duration
	MinIOEndpoint             string
	MinIOAccessKey            string
	MinIOSecretKey            string
	MinIOUseSSL               bool
	MinioBucketQuotePDFs      string
	QuotePDFLinkTTL           time.Duration
	LedgerRetention           time.Duration
	LedgerCacheSize           int
	ConversationStaleAfter    time.Duration
	ConversationSweepInterval time.Duration
	IdentityLockTTL           time.Duration
	CompanyName               string
	QuoteCurrency             string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RedisConfig / SchedulerConfig implementation
func (c *Config) GetRedisURL() string             { return c.RedisURL }
func (c *Config) GetInboundQueueConcurrency() int { return c.InboundQueueConcurrency }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppAPIURL() string        { return c.WhatsAppAPIURL }
func (c *Config) GetWhatsAppPhoneNumberID() string { return c.WhatsAppPhoneNumberID }
func (c *Config) GetWhatsAppAccessToken() string   { return c.WhatsAppAccessToken }
func (c *Config) GetWhatsAppSendRate() float64     { return c.WhatsAppSendRate }
func (c *Config) IsWhatsAppEnabled() bool {
	return c.WhatsAppPhoneNumberID != "" && c.WhatsAppAccessToken != ""
}

// WebhookConfig implementation
func (c *Config) GetWhatsAppVerifyToken() string { return c.WhatsAppVerifyToken }
func (c *Config) GetWhatsAppAppSecret() string   { return c.WhatsAppAppSecret }
func (c *Config) GetDefaultRegion() string       { return c.DefaultRegion }

// NLUConfig implementation
func (c *Config) GetNLUProvider() string       { return c.NLUProvider }
func (c *Config) GetGeminiAPIKey() string      { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string       { return c.GeminiModel }
func (c *Config) GetNLUTimeout() time.Duration { return c.NLUTimeout }
func (c *Config) GetNLULexiconPath() string    { return c.NLULexiconPath }

// TranscriptionConfig implementation
func (c *Config) GetOpenAIAPIKey() string       { return c.OpenAIAPIKey }
func (c *Config) GetTranscriptionModel() string { return c.TranscriptionModel }
func (c *Config) IsTranscriptionEnabled() bool  { return c.OpenAIAPIKey != "" }

// PricingConfig implementation
func (c *Config) GetPricingAPIURL() string         { return c.PricingAPIURL }
func (c *Config) GetPricingAPIKey() string         { return c.PricingAPIKey }
func (c *Config) GetPricingTimeout() time.Duration { return c.PricingTimeout }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketQuotePDFs() string   { return c.MinioBucketQuotePDFs }
func (c *Config) GetQuotePDFLinkTTL() time.Duration { return c.QuotePDFLinkTTL }
func (c *Config) IsMinIOEnabled() bool              { return c.MinIOEndpoint != "" }

// LedgerConfig implementation
func (c *Config) GetLedgerRetention() time.Duration { return c.LedgerRetention }
func (c *Config) GetLedgerCacheSize() int           { return c.LedgerCacheSize }

// ConversationConfig implementation
func (c *Config) GetConversationStaleAfter() time.Duration    { return c.ConversationStaleAfter }
func (c *Config) GetConversationSweepInterval() time.Duration { return c.ConversationSweepInterval }
func (c *Config) GetIdentityLockTTL() time.Duration           { return c.IdentityLockTTL }

// QuoteDocumentConfig implementation
func (c *Config) GetCompanyName() string   { return c.CompanyName }
func (c *Config) GetQuoteCurrency() string { return c.QuoteCurrency }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		RedisURL:                  getEnv("REDIS_URL", ""),
		JWTAccessSecret:           getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		InboundQueueConcurrency:   mustInt(getEnv("INBOUND_QUEUE_CONCURRENCY", "10")),
		WhatsAppAPIURL:            getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v21.0"),
		WhatsAppPhoneNumberID:     getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAccessToken:       getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppVerifyToken:       getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAppSecret:         getEnv("WHATSAPP_APP_SECRET", ""),
		WhatsAppSendRate:          mustFloat(getEnv("WHATSAPP_SEND_RATE", "20")),
		DefaultRegion:             getEnv("DEFAULT_PHONE_REGION", "US"),
		NLUProvider:               strings.ToLower(getEnv("NLU_PROVIDER", "rules")),
		GeminiAPIKey:              getEnv("GEMINI_API_KEY", ""),
		GeminiModel:               getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		NLUTimeout:                mustDuration(getEnv("NLU_TIMEOUT", "8s")),
		NLULexiconPath:            getEnv("NLU_LEXICON_PATH", ""),
		OpenAIAPIKey:              getEnv("OPENAI_API_KEY", ""),
		TranscriptionModel:        getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		PricingAPIURL:             getEnv("PRICING_API_URL", ""),
		PricingAPIKey:             getEnv("PRICING_API_KEY", ""),
		PricingTimeout:            mustDuration(getEnv("PRICING_TIMEOUT", "15s")),
		MinIOEndpoint:             getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:            getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:            getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:               strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketQuotePDFs:      getEnv("MINIO_BUCKET_QUOTE_PDFS", "quote-pdfs"),
		QuotePDFLinkTTL:           mustDuration(getEnv("QUOTE_PDF_LINK_TTL", "24h")),
		LedgerRetention:           mustDuration(getEnv("LEDGER_RETENTION", "168h")),
		LedgerCacheSize:           mustInt(getEnv("LEDGER_CACHE_SIZE", "4096")),
		ConversationStaleAfter:    mustDuration(getEnv("CONVERSATION_STALE_AFTER", "24h")),
		ConversationSweepInterval: mustDuration(getEnv("CONVERSATION_SWEEP_INTERVAL", "15m")),
		IdentityLockTTL:           mustDuration(getEnv("IDENTITY_LOCK_TTL", "45s")),
		CompanyName:               getEnv("COMPANY_NAME", "Packaging Co."),
		QuoteCurrency:             getEnv("QUOTE_CURRENCY", "USD"),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTAccessSecret == "" {
		missing = append(missing, "JWT_ACCESS_SECRET")
	}
	if cfg.WhatsAppVerifyToken == "" {
		missing = append(missing, "WHATSAPP_VERIFY_TOKEN")
	}
	if cfg.PricingAPIURL == "" {
		missing = append(missing, "PRICING_API_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if cfg.NLUProvider == "gemini" && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when NLU_PROVIDER is gemini")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.LedgerRetention <= 0 {
		return nil, fmt.Errorf("LEDGER_RETENTION must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
