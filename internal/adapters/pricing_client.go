package adapters

import (
	"context"
	"time"

	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/pricing"
)

// PricingClient adapts the pricing API client to the conversation port.
type PricingClient struct {
	client   *pricing.Client
	currency string
}

// NewPricingClient creates a new pricing adapter. currency labels the tiers
// returned by the API, which does not report one itself.
func NewPricingClient(client *pricing.Client, currency string) *PricingClient {
	return &PricingClient{client: client, currency: currency}
}

// Compile-time check that PricingClient implements ports.PricingClient.
var _ ports.PricingClient = (*PricingClient)(nil)

func (a *PricingClient) Quote(ctx context.Context, req ports.PricingRequest) (*domain.PricingData, error) {
	finishes := make([]pricing.Finish, 0, len(req.Finishes))
	for _, f := range req.Finishes {
		finishes = append(finishes, pricing.Finish{ID: f.ID, Value: f.Value})
	}

	quote, err := a.client.Quote(ctx, pricing.Request{
		CategoryExternalID: req.CategoryExternalID,
		ProductExternalID:  req.ProductExternalID,
		MaterialExternalID: req.MaterialExternalID,
		Finishes:           finishes,
		Quantities:         req.Quantities,
		Dimensions:         req.Dimensions,
	})
	if err != nil {
		if pricing.IsMissingInputs(err) {
			return nil, &ports.PricingInputError{Fields: orderFields(pricing.MissingInputs(err))}
		}
		return nil, err
	}

	tiers := make([]domain.PricingTier, 0, len(quote.Tiers))
	for _, t := range quote.Tiers {
		tiers = append(tiers, domain.PricingTier{Quantity: t.Quantity, UnitCost: t.UnitCost, Total: t.Total})
	}
	return &domain.PricingData{
		Tiers:    tiers,
		Currency: a.currency,
		PricedAt: time.Now().UTC(),
	}, nil
}

var pricingInputFields = map[string]string{
	pricing.InputCategory:   domain.FieldCategory,
	pricing.InputProduct:    domain.FieldProduct,
	pricing.InputMaterial:   domain.FieldMaterial,
	pricing.InputFinishes:   domain.FieldFinish,
	pricing.InputQuantities: domain.FieldQuantity,
	pricing.InputDimensions: domain.FieldDimensions,
}

// orderFields maps pricing input names onto order fields.
func orderFields(missing []string) []string {
	fields := make([]string, 0, len(missing))
	for _, m := range missing {
		if f, ok := pricingInputFields[m]; ok {
			fields = append(fields, f)
		}
	}
	return fields
}
