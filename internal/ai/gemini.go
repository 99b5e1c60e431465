package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/pauljones0/smart-deals-bot/internal/catalog"
	"github.com/pauljones0/smart-deals-bot/internal/models"
)

// maxPerRequest bounds the prompt size of a single classification call.
const maxPerRequest = 50

// Categorizer asks Gemini to fill in categories that a catalog left blank or
// reported as the default category, so uncategorized listings can still pass
// the priority gate.
type Categorizer struct {
	categories []string
	generate   func(ctx context.Context, prompt string) (string, error)
}

type categoryResult struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
}

// NewCategorizer returns nil when apiKey is empty. A nil Categorizer leaves
// records unchanged.
func NewCategorizer(ctx context.Context, apiKey, modelID string, categories []string) (*Categorizer, error) {
	if apiKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1), // Low temperature for deterministic output
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"index": {
						Type:        genai.TypeInteger,
						Description: "The number of the product in the list.",
					},
					"category": {
						Type:        genai.TypeString,
						Description: "The best matching category from the allowed list, or \"Other\".",
					},
				},
				Required: []string{"index", "category"},
			},
		},
	}

	return &Categorizer{
		categories: categories,
		generate: func(ctx context.Context, prompt string) (string, error) {
			resp, err := client.Models.GenerateContent(ctx, modelID, genai.Text(prompt), config)
			if err != nil {
				return "", fmt.Errorf("gemini generation failed: %w", err)
			}
			return resp.Text(), nil
		},
	}, nil
}

// Enrich returns a copy of records with missing categories filled in. Any
// failure is logged and the affected records keep their original category.
func (c *Categorizer) Enrich(ctx context.Context, records []catalog.Record) []catalog.Record {
	if c == nil || c.generate == nil {
		return records
	}

	out := append([]catalog.Record(nil), records...)
	var pending []int
	for i, rec := range out {
		if needsCategory(rec.Category) {
			pending = append(pending, i)
		}
	}

	for start := 0; start < len(pending); start += maxPerRequest {
		chunk := pending[start:min(start+maxPerRequest, len(pending))]
		assigned, err := c.classify(ctx, out, chunk)
		if err != nil {
			slog.Warn("Category enrichment failed", "count", len(chunk), "error", err)
			continue
		}
		for idx, category := range assigned {
			out[idx].Category = category
		}
		slog.Info("Enriched deal categories", "requested", len(chunk), "assigned", len(assigned))
	}
	return out
}

func (c *Categorizer) classify(ctx context.Context, records []catalog.Record, indexes []int) (map[int]string, error) {
	var list strings.Builder
	for n, idx := range indexes {
		fmt.Fprintf(&list, "%d. %s\n", n+1, records[idx].Title)
	}

	prompt := fmt.Sprintf(`
Classify each product into exactly one of these categories: %s.
Use "Other" if none fits.

Products:
%s
Output JSON adhering to the schema.
`, strings.Join(c.categories, ", "), list.String())

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	// Clean up potential markdown formatting just in case
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var results []categoryResult
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}

	assigned := make(map[int]string, len(results))
	for _, r := range results {
		if r.Index < 1 || r.Index > len(indexes) {
			continue
		}
		category := c.canonical(r.Category)
		if category == "" || category == models.DefaultCategory {
			continue
		}
		assigned[indexes[r.Index-1]] = category
	}
	return assigned, nil
}

// canonical maps a model answer onto the configured spelling, rejecting
// anything outside the allowed list.
func (c *Categorizer) canonical(answer string) string {
	answer = strings.TrimSpace(answer)
	for _, cat := range c.categories {
		if strings.EqualFold(cat, answer) {
			return cat
		}
	}
	return ""
}

func needsCategory(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || strings.EqualFold(category, models.DefaultCategory)
}
