package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

// FieldExtractor is the capability-assisted extraction strategy. Unlike
// the pattern fallback it fails on malformed completions, which is what
// triggers the selector's degradation path.
type FieldExtractor struct {
	client *Client
}

func NewFieldExtractor(client *Client) *FieldExtractor {
	return &FieldExtractor{client: client}
}

func (e *FieldExtractor) Extract(ctx context.Context, rawText string) (domain.FieldMap, error) {
	payload, err := e.client.ExtractJSON(ctx, buildExtractionPrompt(rawText), extractionSystemPrompt, extractionSchemaHint)
	if err != nil {
		return domain.FieldMap{}, err
	}

	var fields domain.FieldMap
	if err := json.Unmarshal(payload, &fields); err != nil {
		return domain.FieldMap{}, fmt.Errorf("parse extraction json: %w", err)
	}
	return fields, nil
}
