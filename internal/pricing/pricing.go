// Package pricing calls the external pricing API that turns an order into
// per-quantity price tiers.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"quote_assistant_backend/platform/apperr"
)

// ErrMalformedResponse is returned when the pricing API answers 2xx with a
// body that cannot be turned into tiers.
var ErrMalformedResponse = errors.New("pricing: malformed response")

// Finish is one selected finish sent to the pricing API.
type Finish struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

// Request is the pricing API payload. All ids are ERP external ids.
type Request struct {
	CategoryExternalID int64     `json:"categoryExternalId"`
	ProductExternalID  int64     `json:"productExternalId"`
	MaterialExternalID int64     `json:"materialExternalId"`
	Finishes           []Finish  `json:"finishes"`
	Quantities         []int     `json:"quantities"`
	Dimensions         []float64 `json:"dimensions"`
}

// Inputs named by a validation error.
const (
	InputCategory   = "category"
	InputProduct    = "product"
	InputMaterial   = "material"
	InputFinishes   = "finishes"
	InputQuantities = "quantities"
	InputDimensions = "dimensions"
)

// Validate reports every missing input at once. There are no fallback ids:
// an incomplete request is never sent. Dimensions are optional because some
// products declare none; any that are sent must be positive.
func (r Request) Validate() error {
	var missing []string
	if r.CategoryExternalID <= 0 {
		missing = append(missing, InputCategory)
	}
	if r.ProductExternalID <= 0 {
		missing = append(missing, InputProduct)
	}
	if r.MaterialExternalID <= 0 {
		missing = append(missing, InputMaterial)
	}
	if len(r.Finishes) == 0 || !allFinishIDs(r.Finishes) {
		missing = append(missing, InputFinishes)
	}
	if len(r.Quantities) == 0 || !allPositive(r.Quantities) {
		missing = append(missing, InputQuantities)
	}
	for _, d := range r.Dimensions {
		if d <= 0 {
			missing = append(missing, InputDimensions)
			break
		}
	}

	if len(missing) > 0 {
		return apperr.Validation("pricing request is missing " + strings.Join(missing, ", ")).
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func allFinishIDs(finishes []Finish) bool {
	for _, f := range finishes {
		if f.ID <= 0 {
			return false
		}
	}
	return true
}

func allPositive(quantities []int) bool {
	for _, q := range quantities {
		if q <= 0 {
			return false
		}
	}
	return true
}

// IsMissingInputs reports whether err came from Request.Validate.
func IsMissingInputs(err error) bool {
	return apperr.Is(err, apperr.KindValidation)
}

// MissingInputs returns the inputs named by a Request.Validate error.
func MissingInputs(err error) []string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		return nil
	}
	details, ok := appErr.Details.(map[string]any)
	if !ok {
		return nil
	}
	missing, _ := details["missing"].([]string)
	return missing
}

// Tier is one quantity break of a priced quote.
type Tier struct {
	Quantity int
	UnitCost float64
	Total    float64
}

// Quote is the priced result for one request.
type Quote struct {
	Tiers []Tier
}

// response mirrors the API body: two parallel arrays, one entry per tier.
type response struct {
	Qty      []int     `json:"qty"`
	UnitCost []float64 `json:"unit_cost"`
}

func (r response) toQuote() (*Quote, error) {
	if len(r.Qty) == 0 {
		return nil, fmt.Errorf("%w: no tiers", ErrMalformedResponse)
	}
	if len(r.Qty) != len(r.UnitCost) {
		return nil, fmt.Errorf("%w: %d quantities but %d unit costs", ErrMalformedResponse, len(r.Qty), len(r.UnitCost))
	}

	tiers := make([]Tier, 0, len(r.Qty))
	for i, qty := range r.Qty {
		cost := r.UnitCost[i]
		if qty <= 0 || cost < 0 {
			return nil, fmt.Errorf("%w: tier %d has quantity %d and unit cost %v", ErrMalformedResponse, i, qty, cost)
		}
		tiers = append(tiers, Tier{
			Quantity: qty,
			UnitCost: cost,
			Total:    roundCents(float64(qty) * cost),
		})
	}
	return &Quote{Tiers: tiers}, nil
}

func roundCents(v float64) float64 {
	cents := v * 100
	if cents < 0 {
		return float64(int64(cents-0.5)) / 100
	}
	return float64(int64(cents+0.5)) / 100
}
