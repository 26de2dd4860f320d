package usecase

import (
	"context"
	"fmt"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
)

// ExtractionSelector is the single strategy-selection point for field
// extraction. It tries the capability-assisted strategy when one is
// configured and available, and falls back to the pattern strategy on any
// failure. The fallback never fails, so neither does Extract.
type ExtractionSelector struct {
	capability ports.FieldExtractor // nil when no completion backend exists
	available  func() bool
	fallback   ports.FieldExtractor
}

func NewExtractionSelector(capability ports.FieldExtractor, available func() bool, fallback ports.FieldExtractor) *ExtractionSelector {
	if available == nil {
		available = func() bool { return false }
	}
	return &ExtractionSelector{
		capability: capability,
		available:  available,
		fallback:   fallback,
	}
}

// Extract returns the field map, the path that produced it, and a note for
// the audit trail when the capability path was attempted but degraded.
func (s *ExtractionSelector) Extract(ctx context.Context, rawText string) (domain.FieldMap, domain.ExtractionPath, string) {
	if s.capability != nil && s.available() {
		fields, err := s.capability.Extract(ctx, rawText)
		if err == nil {
			return fields, domain.PathCapability, ""
		}
		fields, _ = s.fallback.Extract(ctx, rawText)
		return fields, domain.PathPattern, fmt.Sprintf("capability extraction failed, degraded to pattern fallback: %v", err)
	}

	fields, _ := s.fallback.Extract(ctx, rawText)
	return fields, domain.PathPattern, ""
}
