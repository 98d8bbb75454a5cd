package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quote_assistant_backend/internal/metrics"
	"quote_assistant_backend/platform/config"
	"quote_assistant_backend/platform/logger"
)

const (
	defaultTimeout   = 15 * time.Second
	apiKeyHeader     = "X-API-Key"
	maxErrorBodySize = 512
)

// Client is the HTTP client for the pricing API.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	log        *logger.Logger
}

// NewClient creates a pricing client. It returns nil when no URL is configured.
func NewClient(cfg config.PricingConfig, log *logger.Logger) *Client {
	url := strings.TrimSpace(cfg.GetPricingAPIURL())
	if url == "" {
		return nil
	}
	timeout := cfg.GetPricingTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		apiKey:     cfg.GetPricingAPIKey(),
		log:        log,
	}
}

// Quote prices req. Failures are returned as-is; the caller decides how to
// tell the customer. The call is never retried here.
func (c *Client) Quote(ctx context.Context, req Request) (*Quote, error) {
	if err := req.Validate(); err != nil {
		metrics.RecordPricing(metrics.OutcomeInvalid, 0)
		return nil, err
	}

	start := time.Now()
	quote, outcome, err := c.do(ctx, req)
	metrics.RecordPricing(outcome, time.Since(start).Seconds())
	return quote, err
}

func (c *Client) do(ctx context.Context, payload Request) (*Quote, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, metrics.OutcomeInvalid, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, metrics.OutcomeTransport, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("pricing request failed", "error", err)
		return nil, metrics.OutcomeTransport, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		c.log.Error("pricing upstream error",
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(snippet)),
			"productExternalId", payload.ProductExternalID)
		return nil, metrics.OutcomeUpstream, fmt.Errorf("upstream error: status %d", resp.StatusCode)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.log.Error("pricing decode failed", "error", err)
		return nil, metrics.OutcomeMalformed, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	quote, err := decoded.toQuote()
	if err != nil {
		c.log.Error("pricing response rejected", "error", err)
		return nil, metrics.OutcomeMalformed, err
	}
	return quote, metrics.OutcomeSuccess, nil
}

// IsMalformed reports whether err is a malformed pricing response.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}
