package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"quote_assistant_backend/platform/config"
	"quote_assistant_backend/platform/logger"
)

const geminiSystemInstruction = `You extract order details from WhatsApp messages sent to a printed packaging supplier.
Return only entities that are explicitly mentioned. Entity kinds:
- category: a product family such as "mylar bags" or "folding cartons"
- product: a specific product such as "stand up pouch"
- dimensions: one size group, digits joined with "x" (e.g. "4x6x2")
- material: a substrate such as "PET" or "kraft paper"
- finishes: one entry per finish such as "matte" or "spot uv"
- quantities: one entry per requested quantity, digits only (e.g. "5000")
Intents: greeting, request_quote, affirm (yes), deny (no), reset (start over).
Confidence is between 0 and 1. rawText is the exact span from the message.`

// contentGenerator is the slice of the genai client the extractor needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor asks a Gemini model for entities in JSON mode.
type GeminiExtractor struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	log     *logger.Logger
}

// NewGeminiExtractor creates a Gemini-backed extractor.
func NewGeminiExtractor(ctx context.Context, cfg config.NLUConfig, log *logger.Logger) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiExtractor{
		models:  client.Models,
		model:   cfg.GetGeminiModel(),
		timeout: cfg.GetNLUTimeout(),
		log:     log,
	}, nil
}

// Compile-time check that GeminiExtractor implements Extractor.
var _ Extractor = (*GeminiExtractor)(nil)

type geminiEntity struct {
	Kind       string  `json:"kind"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	RawText    string  `json:"rawText"`
}

type geminiIntent struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type geminiPayload struct {
	Entities []geminiEntity `json:"entities"`
	Intents  []geminiIntent `json:"intents"`
}

// Extract sends text to the model and decodes its JSON answer.
func (g *GeminiExtractor) Extract(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return NewResult(), nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(text), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(geminiSystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    geminiResponseSchema(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil {
		return Result{}, errors.New("gemini returned no response")
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return NewResult(), nil
	}

	var payload geminiPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Result{}, fmt.Errorf("decode gemini response: %w", err)
	}

	result := NewResult()
	for _, e := range payload.Entities {
		kind := EntityKind(strings.ToLower(strings.TrimSpace(e.Kind)))
		value := strings.TrimSpace(e.Value)
		if !kind.Valid() || value == "" {
			continue
		}
		rawText := e.RawText
		if rawText == "" {
			rawText = value
		}
		result.Add(kind, Entity{Value: value, Confidence: clampConfidence(e.Confidence), RawText: rawText})
	}
	for _, in := range payload.Intents {
		name := IntentName(strings.ToLower(strings.TrimSpace(in.Name)))
		if !name.Valid() {
			continue
		}
		result.AddIntent(Intent{Name: name, Confidence: clampConfidence(in.Confidence)})
	}

	g.log.WithContext(ctx).Debug("gemini extraction finished",
		"model", g.model,
		"entities", len(payload.Entities),
		"intents", len(result.Intents),
		"durationMs", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func geminiResponseSchema() *genai.Schema {
	kinds := make([]string, len(Kinds))
	for i, k := range Kinds {
		kinds[i] = string(k)
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"entities": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"kind":       {Type: genai.TypeString, Enum: kinds},
						"value":      {Type: genai.TypeString},
						"confidence": {Type: genai.TypeNumber},
						"rawText":    {Type: genai.TypeString},
					},
					Required: []string{"kind", "value", "confidence"},
				},
			},
			"intents": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {
							Type: genai.TypeString,
							Enum: []string{
								string(IntentGreeting), string(IntentRequestQuote),
								string(IntentAffirm), string(IntentDeny), string(IntentReset),
							},
						},
						"confidence": {Type: genai.TypeNumber},
					},
					Required: []string{"name", "confidence"},
				},
			},
		},
		Required: []string{"entities", "intents"},
	}
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
