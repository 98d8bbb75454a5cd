package adapters

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"quote_assistant_backend/internal/adapters/storage"
	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/pdf"
	"quote_assistant_backend/platform/logger"
)

const (
	quotePDFFolder   = "quotes"
	quotePDFMimeType = "application/pdf"
	quoteValidity    = 30 * 24 * time.Hour
)

// QuoteDocuments renders priced conversations as PDFs. When storage is
// configured the file is archived and sent by presigned link, otherwise the
// bytes are uploaded with the message.
type QuoteDocuments struct {
	companyName string
	storage     storage.StorageService
	bucket      string
	linkTTL     time.Duration
	log         *logger.Logger
}

// NewQuoteDocuments creates a new quote document adapter.
func NewQuoteDocuments(companyName string, log *logger.Logger) *QuoteDocuments {
	return &QuoteDocuments{companyName: companyName, log: log}
}

// SetStorage enables archiving to bucket with links valid for linkTTL.
func (a *QuoteDocuments) SetStorage(svc storage.StorageService, bucket string, linkTTL time.Duration) {
	a.storage = svc
	a.bucket = bucket
	a.linkTTL = linkTTL
}

// Compile-time check that QuoteDocuments implements ports.QuoteDocuments.
var _ ports.QuoteDocuments = (*QuoteDocuments)(nil)

func (a *QuoteDocuments) BuildQuoteDocument(ctx context.Context, state domain.ConversationState) (ports.Document, error) {
	data, err := a.toQuoteData(state)
	if err != nil {
		return ports.Document{}, err
	}

	content, err := pdf.GenerateQuotePDF(data)
	if err != nil {
		return ports.Document{}, fmt.Errorf("render quote pdf: %w", err)
	}

	doc := ports.Document{
		Filename: strings.ToLower(data.QuoteNumber) + ".pdf",
		MimeType: quotePDFMimeType,
		Content:  content,
	}
	if a.storage == nil {
		return doc, nil
	}

	key, err := a.storage.UploadFile(ctx, a.bucket, quotePDFFolder+"/"+state.ID.String(), doc.Filename, quotePDFMimeType, bytes.NewReader(content), int64(len(content)))
	if err != nil {
		a.log.Warn("quote pdf archive failed, sending inline", "conversationId", state.ID, "error", err)
		return doc, nil
	}
	link, err := a.storage.GenerateDownloadURL(ctx, a.bucket, key, a.linkTTL)
	if err != nil {
		a.log.Warn("quote pdf presign failed, sending inline", "conversationId", state.ID, "fileKey", key, "error", err)
		return doc, nil
	}

	doc.URL = link.URL
	doc.Content = nil
	return doc, nil
}

func (a *QuoteDocuments) toQuoteData(state domain.ConversationState) (pdf.QuoteData, error) {
	od := state.OrderData
	if od.PricingData == nil || len(od.PricingData.Tiers) == 0 {
		return pdf.QuoteData{}, fmt.Errorf("conversation %s has no pricing", state.ID)
	}
	if od.SelectedProduct == nil || od.SelectedMaterial == nil {
		return pdf.QuoteData{}, fmt.Errorf("conversation %s has an incomplete order", state.ID)
	}

	createdAt := od.PricingData.PricedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	validUntil := createdAt.Add(quoteValidity)

	data := pdf.QuoteData{
		QuoteNumber:   "Q-" + strings.ToUpper(state.ID.String()[:8]),
		CreatedAt:     createdAt,
		ValidUntil:    &validUntil,
		Currency:      od.PricingData.Currency,
		CompanyName:   a.companyName,
		CustomerPhone: state.Identity,
		Product:       od.SelectedProduct.Name,
		Material:      od.SelectedMaterial.Name,
	}
	if od.SelectedCategory != nil {
		data.Category = od.SelectedCategory.Name
	}
	for _, f := range od.SelectedFinishes {
		data.Finishes = append(data.Finishes, f.Name)
	}

	units := make(map[string]string, len(od.SelectedProduct.Dimensions))
	for _, spec := range od.SelectedProduct.Dimensions {
		units[strings.ToUpper(spec.Name)] = spec.Unit
	}
	for _, d := range od.Dimensions {
		data.Dimensions = append(data.Dimensions, pdf.Dimension{Name: d.Name, Value: d.Value, Unit: units[strings.ToUpper(d.Name)]})
	}
	for _, t := range od.PricingData.Tiers {
		data.Tiers = append(data.Tiers, pdf.Tier{Quantity: t.Quantity, UnitCost: t.UnitCost, Total: t.Total})
	}
	return data, nil
}
