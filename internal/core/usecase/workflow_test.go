package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

var workflowNow = time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)

func invoicesWithStatuses(processed, review, pending int) []domain.Invoice {
	var out []domain.Invoice
	n := 0
	add := func(count int, status domain.InvoiceStatus) {
		for i := 0; i < count; i++ {
			out = append(out, domain.Invoice{
				ID:            fmt.Sprintf("%d", n),
				InvoiceNumber: fmt.Sprintf("INV-%d", n),
				VendorGSTIN:   "27AAAAA0000A1Z5",
				Status:        status,
			})
			n++
		}
	}
	add(processed, domain.StatusProcessed)
	add(review, domain.StatusNeedsReview)
	add(pending, domain.StatusPending)
	return out
}

func TestPhaseForThresholds(t *testing.T) {
	cases := []struct {
		name      string
		processed int
		review    int
		pending   int
		wantPhase domain.Phase
		wantProg  int
	}{
		{"no records", 0, 0, 0, domain.PhaseNotStarted, 0},
		{"all processed", 20, 0, 0, domain.PhaseFilingReady, 100},
		{"high ratio but review pending", 19, 1, 0, domain.PhaseReview, 99},
		{"review band", 8, 0, 2, domain.PhaseReview, 96},
		{"reconciliation band", 5, 0, 5, domain.PhaseReconciliation, 65},
		{"data collection band", 2, 0, 8, domain.PhaseDataCollection, 10},
		{"records but none processed", 0, 0, 10, domain.PhaseDataCollection, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			phase, progress := PhaseFor(invoicesWithStatuses(tc.processed, tc.review, tc.pending))
			if phase != tc.wantPhase || progress != tc.wantProg {
				t.Fatalf("got %s/%d, want %s/%d", phase, progress, tc.wantPhase, tc.wantProg)
			}
		})
	}
}

func TestClientStatusFor(t *testing.T) {
	invoices := []domain.Invoice{
		{InvoiceNumber: "A", Status: domain.StatusNeedsReview, Issues: []domain.Issue{{Field: "total_tax"}}},
		{InvoiceNumber: "B", Status: domain.StatusProcessed, VendorGSTIN: "27AAAAA0000A1Z5"},
	}

	status := ClientStatusFor("Sharma Traders", invoices, workflowNow)
	if status.ClientID != "sharma_traders" {
		t.Fatalf("client id: %s", status.ClientID)
	}
	if status.ClientName != "Sharma Traders" {
		t.Fatalf("client name: %s", status.ClientName)
	}
	if status.Phase != domain.PhaseReconciliation {
		t.Fatalf("phase: %s", status.Phase)
	}
	// Record A contributes review, issue and GSTIN follow-ups.
	want := []string{
		"Review invoice A",
		"Fix issues on invoice A",
		"Get GSTIN for A",
	}
	if len(status.PendingItems) != len(want) {
		t.Fatalf("pending items: %v", status.PendingItems)
	}
	for i, item := range want {
		if status.PendingItems[i] != item {
			t.Fatalf("pending item %d: got %q, want %q", i, status.PendingItems[i], item)
		}
	}
	if status.Notes != "2 invoices this period" {
		t.Fatalf("notes: %s", status.Notes)
	}
}

func TestPendingItemsCappedAtFive(t *testing.T) {
	var invoices []domain.Invoice
	for i := 0; i < 4; i++ {
		invoices = append(invoices, domain.Invoice{
			InvoiceNumber: fmt.Sprintf("INV-%d", i),
			Status:        domain.StatusNeedsReview,
		})
	}

	items := pendingItems(invoices)
	if len(items) != maxPendingItems {
		t.Fatalf("expected cap at %d, got %d", maxPendingItems, len(items))
	}
}

func newWorkflowService(repo *fakeInvoiceRepo, now time.Time) *WorkflowService {
	return NewWorkflowService(repo, discardLogger(), func() time.Time { return now })
}

func TestMonthEndStatusesOrdering(t *testing.T) {
	var invoices []domain.Invoice
	// Risky Co: missing GSTINs and issues push it to critical.
	for i := 0; i < 4; i++ {
		invoices = append(invoices, domain.Invoice{
			ID:            fmt.Sprintf("r%d", i),
			InvoiceNumber: fmt.Sprintf("R%d", i),
			VendorName:    "Risky Co",
			Status:        domain.StatusNeedsReview,
			Issues:        []domain.Issue{{Field: "vendor_gstin"}},
		})
	}
	// Two clean clients at different progress.
	invoices = append(invoices,
		domain.Invoice{ID: "s1", InvoiceNumber: "S1", VendorName: "Slow Ltd", VendorGSTIN: "27AAAAA0000A1Z5", Status: domain.StatusPending},
		domain.Invoice{ID: "s2", InvoiceNumber: "S2", VendorName: "Slow Ltd", VendorGSTIN: "27AAAAA0000A1Z5", Status: domain.StatusProcessed},
		domain.Invoice{ID: "d1", InvoiceNumber: "D1", VendorName: "Done Ltd", VendorGSTIN: "27AAAAA0000A1Z5", Status: domain.StatusProcessed},
	)
	svc := newWorkflowService(newFakeInvoiceRepo(invoices...), workflowNow)

	statuses, err := svc.MonthEndStatuses(context.Background())
	if err != nil {
		t.Fatalf("month-end statuses: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 clients, got %d", len(statuses))
	}
	if statuses[0].ClientName != "Risky Co" {
		t.Fatalf("highest risk first, got %s", statuses[0].ClientName)
	}
	// Within equal risk, lower progress sorts first.
	if statuses[1].ClientName != "Slow Ltd" || statuses[2].ClientName != "Done Ltd" {
		t.Fatalf("progress tiebreak: %s, %s", statuses[1].ClientName, statuses[2].ClientName)
	}
}

func TestWorkQueueDelegatesToStatuses(t *testing.T) {
	invoices := []domain.Invoice{
		{ID: "1", InvoiceNumber: "A", VendorName: "Client A", Status: domain.StatusPending, VendorGSTIN: "27AAAAA0000A1Z5"},
	}
	svc := newWorkflowService(newFakeInvoiceRepo(invoices...), workflowNow)

	queue, err := svc.WorkQueue(context.Background())
	if err != nil {
		t.Fatalf("work queue: %v", err)
	}
	if len(queue) == 0 {
		t.Fatal("expected at least one queue item")
	}
	if queue[0].Client != "Client A" {
		t.Fatalf("client: %s", queue[0].Client)
	}
}
