// Package ports defines what the conversation domain needs from the rest of
// the system. Implementations live in internal/adapters and are wired by the
// composition root, so conversation never imports catalog, pricing or the
// WhatsApp transport directly.
package ports

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"quote_assistant_backend/internal/conversation/domain"
)

// CatalogLookup resolves customer text against the active catalog. Find
// methods return nil without error when nothing matches.
type CatalogLookup interface {
	FindCategory(ctx context.Context, text string) (*domain.CategoryRef, error)
	FindProduct(ctx context.Context, text string, categoryID *uuid.UUID) (*domain.ProductRef, error)
	FindMaterial(ctx context.Context, text string, categoryID *uuid.UUID) (*domain.OptionRef, error)
	FindFinish(ctx context.Context, text string, categoryID *uuid.UUID) (*domain.OptionRef, error)

	GetCategory(ctx context.Context, id uuid.UUID) (*domain.CategoryRef, error)
	ListCategories(ctx context.Context) ([]domain.CategoryRef, error)
	ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]domain.ProductRef, error)
	ListMaterials(ctx context.Context, categoryID *uuid.UUID) ([]domain.OptionRef, error)
	ListFinishes(ctx context.Context, categoryID *uuid.UUID) ([]domain.OptionRef, error)
}

// Reply ids carried by interactive list rows. CatalogLookup resolves them
// without fuzzy matching.
const (
	CategoryReplyPrefix = "category:"
	ProductReplyPrefix  = "product:"
	MaterialReplyPrefix = "material:"
	FinishReplyPrefix   = "finish:"
)

// Button is a quick-reply button.
type Button struct {
	ID    string
	Title string
}

// ListRow is one selectable row of an interactive list.
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups list rows under a title.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// Document is an outbound file. Either URL or Content is set.
type Document struct {
	Filename string
	Caption  string
	MimeType string
	URL      string
	Content  []byte
}

// ErrResponseAlreadySent is returned by a Responder asked to send a second
// response for the same inbound message.
var ErrResponseAlreadySent = errors.New("response already sent for this message")

// Responder sends the single reply to one inbound message.
type Responder interface {
	SendText(ctx context.Context, body string) error
	SendButtons(ctx context.Context, body string, buttons []Button) error
	SendList(ctx context.Context, body, buttonLabel string, sections []ListSection) error
	SendDocument(ctx context.Context, doc Document) error
	// Sent reports whether a response went out (or is in flight).
	Sent() bool
}

// PricingFinish is one finish line of a pricing request.
type PricingFinish struct {
	ID    int64
	Value string
}

// PricingRequest carries external ids and measurements for a quote.
type PricingRequest struct {
	CategoryExternalID int64
	ProductExternalID  int64
	MaterialExternalID int64
	Finishes           []PricingFinish
	Quantities         []int
	Dimensions         []float64
}

// PricingInputError is returned by PricingClient when the pricing side
// rejects the order's inputs before pricing it. Fields uses the domain field
// names reported by domain.Validate.
type PricingInputError struct {
	Fields []string
}

func (e *PricingInputError) Error() string {
	return "pricing inputs rejected: " + strings.Join(e.Fields, ", ")
}

// PricingClient prices an order.
type PricingClient interface {
	Quote(ctx context.Context, req PricingRequest) (*domain.PricingData, error)
}

// QuoteDocuments renders the priced quote as a document ready to send.
type QuoteDocuments interface {
	BuildQuoteDocument(ctx context.Context, state domain.ConversationState) (Document, error)
}

// IdentityLocker serializes work for one identity across workers.
type IdentityLocker interface {
	Lock(ctx context.Context, identity string) (unlock func(), err error)
}
