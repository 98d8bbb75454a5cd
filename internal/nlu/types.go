// Package nlu turns free-text customer messages into typed entities and
// intents. Backends are interchangeable behind Extractor.
package nlu

import "context"

// EntityKind names one slot of an order that a message may mention.
type EntityKind string

const (
	EntityCategory   EntityKind = "category"
	EntityProduct    EntityKind = "product"
	EntityDimensions EntityKind = "dimensions"
	EntityMaterial   EntityKind = "material"
	EntityFinishes   EntityKind = "finishes"
	EntityQuantities EntityKind = "quantities"
)

// Kinds lists every entity kind in reconciliation order.
var Kinds = []EntityKind{
	EntityCategory,
	EntityProduct,
	EntityDimensions,
	EntityMaterial,
	EntityFinishes,
	EntityQuantities,
}

// Valid reports whether k is a known kind.
func (k EntityKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IntentName classifies what the customer is trying to do.
type IntentName string

const (
	IntentGreeting     IntentName = "greeting"
	IntentRequestQuote IntentName = "request_quote"
	IntentAffirm       IntentName = "affirm"
	IntentDeny         IntentName = "deny"
	IntentReset        IntentName = "reset"
)

// Valid reports whether n is a known intent.
func (n IntentName) Valid() bool {
	switch n {
	case IntentGreeting, IntentRequestQuote, IntentAffirm, IntentDeny, IntentReset:
		return true
	}
	return false
}

// Entity is one extracted candidate.
type Entity struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	RawText    string  `json:"rawText"`
}

// Intent is one classified intent.
type Intent struct {
	Name       IntentName `json:"name"`
	Confidence float64    `json:"confidence"`
}

// Result is the typed output of an extractor. An empty Result is valid and
// means nothing was recognised.
type Result struct {
	Entities map[EntityKind][]Entity `json:"entities"`
	Intents  []Intent                `json:"intents"`
}

// NewResult returns an empty, writable result.
func NewResult() Result {
	return Result{Entities: make(map[EntityKind][]Entity)}
}

// Add appends an entity candidate under kind.
func (r *Result) Add(kind EntityKind, e Entity) {
	if r.Entities == nil {
		r.Entities = make(map[EntityKind][]Entity)
	}
	r.Entities[kind] = append(r.Entities[kind], e)
}

// AddIntent records an intent once, keeping the highest confidence seen.
func (r *Result) AddIntent(in Intent) {
	for i := range r.Intents {
		if r.Intents[i].Name == in.Name {
			if in.Confidence > r.Intents[i].Confidence {
				r.Intents[i].Confidence = in.Confidence
			}
			return
		}
	}
	r.Intents = append(r.Intents, in)
}

// HasIntent reports whether name was detected with confidence above min.
func (r Result) HasIntent(name IntentName, min float64) bool {
	for _, in := range r.Intents {
		if in.Name == name && in.Confidence > min {
			return true
		}
	}
	return false
}

// Empty reports whether the result carries no entities and no intents.
func (r Result) Empty() bool {
	for _, list := range r.Entities {
		if len(list) > 0 {
			return false
		}
	}
	return len(r.Intents) == 0
}

// Extractor is implemented by every NLU backend. Finding nothing is not an
// error; errors are reserved for transport failures.
type Extractor interface {
	Extract(ctx context.Context, text string) (Result, error)
}
