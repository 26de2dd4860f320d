package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

const cleanInvoiceText = `Invoice No: INV-2024-001
Date: 2024-12-01
From: ABC Suppliers Pvt Ltd
GSTIN: 27AAAAA0000A1Z5
Subtotal: 10000
Total Tax: 1800
Grand Total: 11800`

func cleanFieldMap() domain.FieldMap {
	return domain.FieldMap{
		InvoiceNumber: "INV-2024-001",
		InvoiceDate:   "2024-12-01",
		VendorName:    "ABC Suppliers Pvt Ltd",
		VendorGSTIN:   "27AAAAA0000A1Z5",
		Subtotal:      10000,
		TotalTax:      1800,
		TotalAmount:   11800,
	}
}

type processFixture struct {
	uc      *ProcessInvoiceUseCase
	repo    *fakeInvoiceRepo
	drafts  *fakeDraftRepo
	storage *fakeStorage
	drafter *fakeDrafter
}

func newProcessFixture(capability *fakeFieldExtractor, available bool, fallback *fakeFieldExtractor) *processFixture {
	repo := newFakeInvoiceRepo()
	drafts := &fakeDraftRepo{}
	storage := newFakeStorage()
	drafter := &fakeDrafter{}
	selector := NewExtractionSelector(capability, func() bool { return available }, fallback)
	cashflow := NewCashflowAnalyzer(&fakeCompletion{}, discardLogger(), 100000, nil)

	uc := NewProcessInvoiceUseCase(
		repo, drafts, storage, &fakeTextExtractor{},
		selector, cashflow, drafter, "Accounts Team", discardLogger(),
	)
	return &processFixture{uc: uc, repo: repo, drafts: drafts, storage: storage, drafter: drafter}
}

func TestProcessCleanInvoiceEndsProcessed(t *testing.T) {
	fx := newProcessFixture(&fakeFieldExtractor{fields: cleanFieldMap()}, true, &fakeFieldExtractor{})

	outcome, err := fx.uc.Process(context.Background(), domain.ProcessRequest{RawText: cleanInvoiceText})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome.Invoice.Status != domain.StatusProcessed {
		t.Fatalf("expected processed, got %s", outcome.Invoice.Status)
	}
	if outcome.ExtractionPath != domain.PathCapability {
		t.Fatalf("expected capability path, got %s", outcome.ExtractionPath)
	}
	if outcome.EmailDrafted {
		t.Fatal("clean invoice must not draft email")
	}
	if outcome.Invoice.ProcessedAt == nil {
		t.Fatal("processed_at must be set")
	}
	if fx.repo.saves != 1 {
		t.Fatalf("expected 1 save, got %d", fx.repo.saves)
	}
	if len(outcome.Trail) == 0 {
		t.Fatal("trail must be populated on success")
	}
}

func TestProcessFlaggedInvoiceDraftsEmail(t *testing.T) {
	fields := cleanFieldMap()
	fields.VendorGSTIN = ""
	fx := newProcessFixture(&fakeFieldExtractor{fields: fields}, true, &fakeFieldExtractor{})

	outcome, err := fx.uc.Process(context.Background(), domain.ProcessRequest{RawText: cleanInvoiceText})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome.Invoice.Status != domain.StatusNeedsReview {
		t.Fatalf("expected needs_review, got %s", outcome.Invoice.Status)
	}
	if !outcome.EmailDrafted || outcome.EmailDraftID == "" {
		t.Fatalf("expected drafted email, got %+v", outcome)
	}
	if len(fx.drafts.drafts) != 1 {
		t.Fatalf("draft must be persisted, got %d", len(fx.drafts.drafts))
	}
	if fx.drafts.drafts[0].InvoiceID != outcome.Invoice.ID {
		t.Fatalf("draft linked to %s, invoice is %s", fx.drafts.drafts[0].InvoiceID, outcome.Invoice.ID)
	}
}

func TestProcessUsesConfiguredSenderForDrafts(t *testing.T) {
	fields := cleanFieldMap()
	fields.VendorGSTIN = ""
	fx := newProcessFixture(&fakeFieldExtractor{fields: fields}, true, &fakeFieldExtractor{})

	if _, err := fx.uc.Process(context.Background(), domain.ProcessRequest{RawText: cleanInvoiceText}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if fx.drafter.lastSender != "Accounts Team" {
		t.Fatalf("expected configured sender, got %q", fx.drafter.lastSender)
	}

	// A per-request sender overrides the configured one.
	if _, err := fx.uc.Process(context.Background(), domain.ProcessRequest{RawText: cleanInvoiceText, SenderName: "Priya"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if fx.drafter.lastSender != "Priya" {
		t.Fatalf("expected request sender, got %q", fx.drafter.lastSender)
	}
}

func TestProcessDegradesToPatternPath(t *testing.T) {
	capability := &fakeFieldExtractor{err: errors.New("bad json")}
	fallback := &fakeFieldExtractor{fields: cleanFieldMap()}
	fx := newProcessFixture(capability, true, fallback)

	outcome, err := fx.uc.Process(context.Background(), domain.ProcessRequest{RawText: cleanInvoiceText})
	if err != nil {
		t.Fatalf("degraded extraction must not abort the run: %v", err)
	}
	if outcome.ExtractionPath != domain.PathPattern {
		t.Fatalf("expected pattern path, got %s", outcome.ExtractionPath)
	}

	var degraded bool
	for _, entry := range outcome.Trail {
		if entry.Stage == "extract" && entry.Severity == "warning" {
			degraded = true
		}
	}
	if !degraded {
		t.Fatalf("degradation must appear in the trail: %+v", outcome.Trail)
	}
}

func TestProcessNoInputAborts(t *testing.T) {
	fx := newProcessFixture(&fakeFieldExtractor{}, false, &fakeFieldExtractor{})

	outcome, err := fx.uc.Process(context.Background(), domain.ProcessRequest{})
	if err == nil {
		t.Fatal("expected abort with no inputs")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
	if outcome == nil || len(outcome.Trail) == 0 {
		t.Fatal("aborted run must still return its trail")
	}
	last := outcome.Trail[len(outcome.Trail)-1]
	if last.Severity != "error" {
		t.Fatalf("last trail entry should be the failure, got %+v", last)
	}
	if fx.repo.saves != 0 {
		t.Fatal("aborted run must not persist")
	}
}

func TestProcessPersistFailureAborts(t *testing.T) {
	fx := newProcessFixture(&fakeFieldExtractor{fields: cleanFieldMap()}, true, &fakeFieldExtractor{})
	fx.repo.saveErr = errors.New("db down")

	outcome, err := fx.uc.Process(context.Background(), domain.ProcessRequest{RawText: cleanInvoiceText})
	if err == nil {
		t.Fatal("expected abort on persist failure")
	}
	if !strings.Contains(err.Error(), "persist") {
		t.Fatalf("error should name the stage: %v", err)
	}
	if outcome == nil || len(outcome.Trail) == 0 {
		t.Fatal("trail must survive the abort")
	}
}

func TestProcessDraftFailureAborts(t *testing.T) {
	fields := cleanFieldMap()
	fields.VendorGSTIN = ""
	fx := newProcessFixture(&fakeFieldExtractor{fields: fields}, true, &fakeFieldExtractor{})
	fx.drafter.err = errors.New("drafting broke")

	_, err := fx.uc.Process(context.Background(), domain.ProcessRequest{RawText: cleanInvoiceText})
	if err == nil {
		t.Fatal("expected abort on draft failure")
	}
	if fx.repo.saves != 0 {
		t.Fatal("record must not persist after draft failure")
	}
}

func TestProcessHonorsSuppliedID(t *testing.T) {
	fx := newProcessFixture(&fakeFieldExtractor{fields: cleanFieldMap()}, true, &fakeFieldExtractor{})

	outcome, err := fx.uc.Process(context.Background(), domain.ProcessRequest{InvoiceID: "fixed-id", RawText: cleanInvoiceText})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome.Invoice.ID != "fixed-id" {
		t.Fatalf("expected fixed-id, got %s", outcome.Invoice.ID)
	}
}

func TestProcessByIDLoadsStoredDocument(t *testing.T) {
	fx := newProcessFixture(&fakeFieldExtractor{fields: cleanFieldMap()}, true, &fakeFieldExtractor{})
	fx.storage.files["abc_inv.txt"] = []byte(cleanInvoiceText)
	fx.repo.invoices["abc"] = &domain.Invoice{
		ID:        "abc",
		Status:    domain.StatusPending,
		SourceRef: "abc_inv.txt",
	}

	outcome, err := fx.uc.ProcessByID(context.Background(), "abc")
	if err != nil {
		t.Fatalf("process by id: %v", err)
	}
	if outcome.Invoice.ID != "abc" {
		t.Fatalf("expected id abc, got %s", outcome.Invoice.ID)
	}
	if got := fx.repo.invoices["abc"].Status; got != domain.StatusProcessed {
		t.Fatalf("stored record should be overwritten as processed, got %s", got)
	}
}

func TestProcessByIDUnknownInvoice(t *testing.T) {
	fx := newProcessFixture(&fakeFieldExtractor{}, false, &fakeFieldExtractor{})

	_, err := fx.uc.ProcessByID(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if !domain.IsKind(err, domain.ErrInvoiceNotFound) {
		t.Fatalf("expected invoice not found kind, got %v", err)
	}
}
