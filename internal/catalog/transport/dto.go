package transport

import "github.com/google/uuid"

// TermKind tags a vocabulary entry with the entity kind it identifies.
type TermKind string

const (
	TermCategory TermKind = "category"
	TermProduct  TermKind = "product"
	TermMaterial TermKind = "material"
	TermFinish   TermKind = "finish"
)

// Term is one catalog name or alias.
type Term struct {
	Kind TermKind
	Text string
}

// Categories

type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	ExternalID  int64     `json:"externalId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Aliases     []string  `json:"aliases"`
}

type CategoryListResponse struct {
	Items []CategoryResponse `json:"items"`
}

// Products

type DimensionResponse struct {
	Name     string   `json:"name"`
	Unit     string   `json:"unit,omitempty"`
	Required bool     `json:"required"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

type ProductResponse struct {
	ID          uuid.UUID           `json:"id"`
	ExternalID  int64               `json:"externalId"`
	CategoryID  uuid.UUID           `json:"categoryId"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Dimensions  []DimensionResponse `json:"dimensions"`
}

type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
}

// Materials and finishes

type OptionResponse struct {
	ID          uuid.UUID `json:"id"`
	ExternalID  int64     `json:"externalId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

type OptionListResponse struct {
	Kind  string           `json:"kind"`
	Items []OptionResponse `json:"items"`
}

type CategoryPathRequest struct {
	ID string `uri:"id" validate:"required,uuid"`
}
