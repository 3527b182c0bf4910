package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"receiptbook/internal/core"
)

// extractionPrompt instructs the model to return a single JSON object
// matching core.RawExtraction. Zero-amount items are dropped at the
// model level and again during finalization.
const extractionPrompt = `You are a top-tier receipt analyst.
Analyze this image directly and parse its content into a single JSON object.
The JSON object must contain two keys: 'invoice_date' and 'items'.
1. 'invoice_date': the date on the receipt, strictly formatted 'YYYY-MM-DD'. Return null when no date is visible.
2. 'items': a JSON array of all purchased line items.
   - Each item is a JSON object with exactly four keys: 'name', 'quantity', 'category', 'amount'.
   - 'quantity' must be an integer; default to 1 when the image shows no explicit quantity.
   - Infer the 'category' from the item name, for example: Food, Household, Electronics, Transport, Other.
   - When an item name spans multiple lines, join them into one string.
   - Skip any item whose amount is 0.
Return only this single JSON object, with no other text.
Example: {"invoice_date": "2023-03-18", "items": [{"name": "example item", "quantity": 1, "category": "example category", "amount": 100}]}`

// Gemini extracts line items from receipt images using the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini extractor. An empty apiKey falls back to
// the SDK's environment-based configuration.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	var cfg *genai.ClientConfig
	if apiKey != "" {
		cfg = &genai.ClientConfig{APIKey: apiKey}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Extract sends the receipt image to the model and parses the response.
// All failures, transport and malformed output alike, wrap
// core.ErrExtractionFailed so callers can treat them uniformly.
func (g *Gemini) Extract(ctx context.Context, image []byte, mimeType string) (*core.RawExtraction, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{Text: extractionPrompt},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
		},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %v", core.ErrExtractionFailed, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	raw, err := ParseExtraction(text)
	if err != nil {
		slog.WarnContext(ctx, "Model returned unparseable extraction",
			"model", g.model,
			"error", err)
		return nil, err
	}

	return raw, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty model response", core.ErrExtractionFailed)
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty model response", core.ErrExtractionFailed)
	}
	return text, nil
}

// ParseExtraction parses model output into a RawExtraction. Markdown
// code fences around the JSON are tolerated and stripped.
func ParseExtraction(text string) (*core.RawExtraction, error) {
	cleaned := stripFences(text)

	var raw core.RawExtraction
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: parse model output: %v", core.ErrExtractionFailed, err)
	}

	return &raw, nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
