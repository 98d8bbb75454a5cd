// Package whatsapp is the WhatsApp Cloud API transport: outbound messages,
// read receipts and media.
package whatsapp

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

	"golang.org/x/time/rate"

	"quote_assistant_backend/platform/config"
	"quote_assistant_backend/platform/logger"
	"quote_assistant_backend/platform/phone"
)

const (
	defaultAPIURL   = "https://graph.facebook.com/v21.0"
	defaultSendRate = 20
	maxErrorBody    = 1024
)

// ErrInvalidMessage is returned before any request when a message cannot be
// expressed within Cloud API limits.
var ErrInvalidMessage = errors.New("whatsapp: invalid message")

// APIError is a non-2xx answer from the Cloud API.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("whatsapp api returned %d (code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("whatsapp api returned %d: %s", e.Status, e.Message)
}

// Client sends messages through the Cloud API. Sends are paced by a shared
// limiter; retries are left to the caller.
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	http          *http.Client
	limiter       *rate.Limiter
	log           *logger.Logger
}

// NewClient returns nil when WhatsApp is not configured.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if !cfg.IsWhatsAppEnabled() {
		return nil
	}

	baseURL := strings.TrimRight(cfg.GetWhatsAppAPIURL(), "/")
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	sendRate := cfg.GetWhatsAppSendRate()
	if sendRate <= 0 {
		sendRate = defaultSendRate
	}

	return &Client{
		baseURL:       baseURL,
		phoneNumberID: cfg.GetWhatsAppPhoneNumberID(),
		token:         cfg.GetWhatsAppAccessToken(),
		http:          &http.Client{Timeout: 15 * time.Second},
		limiter:       rate.NewLimiter(rate.Limit(sendRate), max(1, int(sendRate))),
		log:           log,
	}
}

// SendText sends a plain text message and returns the provider message id.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: empty text", ErrInvalidMessage)
	}
	return c.send(ctx, messageRequest{
		To:   to,
		Type: "text",
		Text: &textPayload{Body: truncate(body, MaxTextBody)},
	})
}

// SendButtons sends up to three quick-reply buttons.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []Button) (string, error) {
	if len(buttons) == 0 || len(buttons) > MaxButtons {
		return "", fmt.Errorf("%w: %d buttons", ErrInvalidMessage, len(buttons))
	}

	replies := make([]replyButton, 0, len(buttons))
	for _, b := range buttons {
		replies = append(replies, replyButton{
			Type:  "reply",
			Reply: replyTitle{ID: b.ID, Title: truncate(b.Title, MaxButtonTitleLen)},
		})
	}
	return c.send(ctx, messageRequest{
		To:   to,
		Type: "interactive",
		Interactive: &interactive{
			Type:   "button",
			Body:   interactiveBody{Text: truncate(body, MaxInteractiveBody)},
			Action: interactiveAction{Buttons: replies},
		},
	})
}

// SendList sends an interactive list. At most ten rows are allowed across
// all sections.
func (c *Client) SendList(ctx context.Context, to, body, buttonLabel string, sections []Section) (string, error) {
	total := 0
	out := make([]listSection, 0, len(sections))
	for _, s := range sections {
		rows := make([]listRow, 0, len(s.Rows))
		for _, r := range s.Rows {
			rows = append(rows, listRow{
				ID:          r.ID,
				Title:       truncate(r.Title, MaxRowTitleLen),
				Description: truncate(r.Description, MaxRowDescLen),
			})
		}
		total += len(rows)
		if len(rows) > 0 {
			out = append(out, listSection{Title: truncate(s.Title, MaxSectionTitleLen), Rows: rows})
		}
	}
	if total == 0 || total > MaxListRows {
		return "", fmt.Errorf("%w: %d list rows", ErrInvalidMessage, total)
	}

	return c.send(ctx, messageRequest{
		To:   to,
		Type: "interactive",
		Interactive: &interactive{
			Type:   "list",
			Body:   interactiveBody{Text: truncate(body, MaxInteractiveBody)},
			Action: interactiveAction{Button: truncate(buttonLabel, MaxListButtonLen), Sections: out},
		},
	})
}

// SendDocument sends a document by link or uploaded media id.
func (c *Client) SendDocument(ctx context.Context, to string, doc Document) (string, error) {
	if doc.Link == "" && doc.MediaID == "" {
		return "", fmt.Errorf("%w: document needs a link or media id", ErrInvalidMessage)
	}
	return c.send(ctx, messageRequest{
		To:   to,
		Type: "document",
		Document: &documentPayload{
			ID:       doc.MediaID,
			Link:     doc.Link,
			Filename: doc.Filename,
			Caption:  truncate(doc.Caption, MaxDocumentCaption),
		},
	})
}

// MarkRead marks an inbound message as read.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	payload := readReceipt{MessagingProduct: messagingProduct, Status: "read", MessageID: messageID}
	return c.postJSON(ctx, c.messagesURL(), payload, nil)
}

func (c *Client) send(ctx context.Context, msg messageRequest) (string, error) {
	to := phone.ToWhatsAppID(phone.NormalizeE164(msg.To, ""))
	if to == "" {
		return "", fmt.Errorf("%w: missing recipient", ErrInvalidMessage)
	}
	msg.To = to
	msg.MessagingProduct = messagingProduct
	msg.RecipientType = recipientIndividual

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("whatsapp send rate: %w", err)
	}

	var resp messageResponse
	if err := c.postJSON(ctx, c.messagesURL(), msg, &resp); err != nil {
		c.log.Error("whatsapp send failed", "type", msg.Type, "error", err)
		return "", err
	}
	if len(resp.Messages) == 0 || resp.Messages[0].ID == "" {
		return "", fmt.Errorf("whatsapp send: response carried no message id")
	}

	c.log.Info("whatsapp message sent", "type", msg.Type, "providerMessageId", resp.Messages[0].ID)
	return resp.Messages[0].ID, nil
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
}

func (c *Client) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode whatsapp response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}

	var parsed errorResponse
	if json.Unmarshal(data, &parsed) == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
		apiErr.Code = parsed.Error.Code
	}
	return apiErr
}
