package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

type stubCompletion struct {
	available bool
	payload   []byte
	err       error
	calls     int
}

func (s *stubCompletion) Available() bool { return s.available }

func (s *stubCompletion) Complete(context.Context, string, string, float32, int) (string, error) {
	return "", errors.New("not used")
}

func (s *stubCompletion) ExtractJSON(context.Context, string, string, string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func (s *stubCompletion) Classify(context.Context, string, []string, string) (string, error) {
	return "", errors.New("not used")
}

func testDrafter(completion *stubCompletion) *Drafter {
	var d *Drafter
	if completion == nil {
		d = NewDrafter(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	} else {
		d = NewDrafter(completion, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}
	d.now = func() time.Time { return time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC) }
	return d
}

func testInvoice(issues ...domain.Issue) *domain.Invoice {
	return &domain.Invoice{
		ID:            "inv-1",
		InvoiceNumber: "INV-2024-001",
		VendorName:    "ABC Suppliers",
		InvoiceDate:   time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC),
		Subtotal:      10000,
		TotalTax:      1500,
		TotalAmount:   11500,
		Issues:        issues,
	}
}

func TestDraftForIssueGSTINTemplate(t *testing.T) {
	inv := testInvoice()
	issue := domain.Issue{Field: "vendor_gstin", Kind: "missing_field", Message: "Vendor GSTIN is missing"}

	draft, err := testDrafter(nil).DraftForIssue(context.Background(), inv, issue, "")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft.Subject != "Request for GSTIN - Invoice INV-2024-001" {
		t.Fatalf("subject: %q", draft.Subject)
	}
	if !strings.Contains(draft.Body, "Input Tax Credit") {
		t.Fatal("GSTIN template should explain the ITC requirement")
	}
	if !strings.Contains(draft.Body, "Best regards,\nAccounts Team") {
		t.Fatal("default sender name expected when none given")
	}
	if draft.InvoiceID != "inv-1" || draft.Status != domain.DraftPending {
		t.Fatalf("draft metadata: %+v", draft)
	}
	if draft.ID == "" {
		t.Fatal("draft must get an id")
	}
}

func TestDraftForIssueTaxTemplate(t *testing.T) {
	inv := testInvoice()
	issue := domain.Issue{Field: "total_tax", Kind: "calculation_mismatch", Message: "Tax does not match 18% of subtotal"}

	draft, err := testDrafter(nil).DraftForIssue(context.Background(), inv, issue, "Priya")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft.Subject != "Tax Calculation Discrepancy - Invoice INV-2024-001" {
		t.Fatalf("subject: %q", draft.Subject)
	}
	// 18% of the 10000 subtotal.
	if !strings.Contains(draft.Body, "Expected Tax (18%): ₹1800.00") {
		t.Fatalf("expected tax line missing:\n%s", draft.Body)
	}
	if !strings.Contains(draft.Body, "Best regards,\nPriya") {
		t.Fatal("sender name not applied")
	}
}

func TestDraftForIssueGeneralTemplate(t *testing.T) {
	inv := testInvoice()
	issue := domain.Issue{Field: "invoice_number", Kind: "missing_field", Message: "Invoice number could not be determined"}

	draft, err := testDrafter(nil).DraftForIssue(context.Background(), inv, issue, "")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft.Subject != "Invoice Correction Required - Invoice INV-2024-001" {
		t.Fatalf("subject: %q", draft.Subject)
	}
	if !strings.Contains(draft.Body, "invoice_number: Invoice number could not be determined") {
		t.Fatalf("issue line missing:\n%s", draft.Body)
	}
}

func TestDraftForIssueUsesCompletion(t *testing.T) {
	completion := &stubCompletion{
		available: true,
		payload:   []byte(`{"subject": "Please fix INV-2024-001", "body": "Kindly correct the GSTIN."}`),
	}
	inv := testInvoice()
	issue := domain.Issue{Field: "vendor_gstin", Message: "missing"}

	draft, err := testDrafter(completion).DraftForIssue(context.Background(), inv, issue, "")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if completion.calls != 1 {
		t.Fatalf("completion calls: %d", completion.calls)
	}
	if draft.Subject != "Please fix INV-2024-001" || draft.Body != "Kindly correct the GSTIN." {
		t.Fatalf("draft: %+v", draft)
	}
}

func TestDraftForIssueFallsBackOnCompletionError(t *testing.T) {
	completion := &stubCompletion{available: true, err: errors.New("model unavailable")}
	inv := testInvoice()
	issue := domain.Issue{Field: "vendor_gstin", Message: "missing"}

	draft, err := testDrafter(completion).DraftForIssue(context.Background(), inv, issue, "")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if !strings.Contains(draft.Subject, "Request for GSTIN") {
		t.Fatalf("expected template fallback, got %q", draft.Subject)
	}
}

func TestDraftForIssueFallsBackOnEmptyBody(t *testing.T) {
	completion := &stubCompletion{available: true, payload: []byte(`{"subject": "x", "body": ""}`)}
	inv := testInvoice()
	issue := domain.Issue{Field: "total_tax", Message: "mismatch"}

	draft, err := testDrafter(completion).DraftForIssue(context.Background(), inv, issue, "")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if !strings.Contains(draft.Subject, "Tax Calculation Discrepancy") {
		t.Fatalf("expected template fallback, got %q", draft.Subject)
	}
}

func TestDraftBatchMultipleIssues(t *testing.T) {
	inv := testInvoice(
		domain.Issue{Field: "vendor_gstin", Message: "GSTIN missing"},
		domain.Issue{Field: "total_tax", Message: "Tax mismatch"},
	)

	draft, err := testDrafter(nil).DraftBatch(context.Background(), inv, "")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft.Subject != "Invoice Correction Required - INV-2024-001 (2 issues)" {
		t.Fatalf("subject: %q", draft.Subject)
	}
	if !strings.Contains(draft.Body, "- vendor_gstin: GSTIN missing") ||
		!strings.Contains(draft.Body, "- total_tax: Tax mismatch") {
		t.Fatalf("issue list incomplete:\n%s", draft.Body)
	}
}

func TestDraftBatchSingleIssueUsesSpecificTemplate(t *testing.T) {
	inv := testInvoice(domain.Issue{Field: "vendor_gstin", Message: "GSTIN missing"})

	draft, err := testDrafter(nil).DraftBatch(context.Background(), inv, "")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if !strings.Contains(draft.Subject, "Request for GSTIN") {
		t.Fatalf("subject: %q", draft.Subject)
	}
}

func TestDraftBatchNoIssues(t *testing.T) {
	if _, err := testDrafter(nil).DraftBatch(context.Background(), testInvoice(), ""); err == nil {
		t.Fatal("expected error for an issue-free invoice")
	}
}
