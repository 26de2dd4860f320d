package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

type fakeFieldExtractor struct {
	fields domain.FieldMap
	err    error
	calls  int
}

func (f *fakeFieldExtractor) Extract(_ context.Context, _ string) (domain.FieldMap, error) {
	f.calls++
	return f.fields, f.err
}

func TestExtractUsesCapabilityWhenAvailable(t *testing.T) {
	capability := &fakeFieldExtractor{fields: domain.FieldMap{InvoiceNumber: "LLM-1"}}
	fallback := &fakeFieldExtractor{fields: domain.FieldMap{InvoiceNumber: "PAT-1"}}
	sel := NewExtractionSelector(capability, func() bool { return true }, fallback)

	fields, path, note := sel.Extract(context.Background(), "text")
	if fields.InvoiceNumber != "LLM-1" {
		t.Fatalf("expected capability fields, got %+v", fields)
	}
	if path != domain.PathCapability {
		t.Fatalf("expected capability path, got %s", path)
	}
	if note != "" {
		t.Fatalf("expected no degradation note, got %q", note)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback must not run, ran %d times", fallback.calls)
	}
}

func TestExtractDegradesOnCapabilityFailure(t *testing.T) {
	capability := &fakeFieldExtractor{err: errors.New("malformed json")}
	fallback := &fakeFieldExtractor{fields: domain.FieldMap{InvoiceNumber: "PAT-1"}}
	sel := NewExtractionSelector(capability, func() bool { return true }, fallback)

	fields, path, note := sel.Extract(context.Background(), "text")
	if fields.InvoiceNumber != "PAT-1" {
		t.Fatalf("expected fallback fields, got %+v", fields)
	}
	if path != domain.PathPattern {
		t.Fatalf("expected pattern path, got %s", path)
	}
	if note == "" {
		t.Fatal("degradation must be noted for the trail")
	}
}

func TestExtractSkipsUnavailableCapability(t *testing.T) {
	capability := &fakeFieldExtractor{fields: domain.FieldMap{InvoiceNumber: "LLM-1"}}
	fallback := &fakeFieldExtractor{fields: domain.FieldMap{InvoiceNumber: "PAT-1"}}
	sel := NewExtractionSelector(capability, func() bool { return false }, fallback)

	_, path, note := sel.Extract(context.Background(), "text")
	if path != domain.PathPattern {
		t.Fatalf("expected pattern path, got %s", path)
	}
	if note != "" {
		t.Fatalf("unavailable capability is not a degradation, got note %q", note)
	}
	if capability.calls != 0 {
		t.Fatalf("capability must not be called when unavailable")
	}
}

func TestExtractNilCapability(t *testing.T) {
	fallback := &fakeFieldExtractor{fields: domain.FieldMap{InvoiceNumber: "PAT-1"}}
	sel := NewExtractionSelector(nil, func() bool { return true }, fallback)

	fields, path, _ := sel.Extract(context.Background(), "text")
	if path != domain.PathPattern || fields.InvoiceNumber != "PAT-1" {
		t.Fatalf("expected fallback, got path=%s fields=%+v", path, fields)
	}
}
