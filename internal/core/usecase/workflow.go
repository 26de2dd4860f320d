package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
)

const maxPendingItems = 5

// PhaseFor derives a client's month-end phase and progress from its record
// set by thresholding the processed ratio.
func PhaseFor(invoices []domain.Invoice) (domain.Phase, int) {
	total := len(invoices)
	if total == 0 {
		return domain.PhaseNotStarted, 0
	}

	processed := 0
	needsReview := 0
	for _, inv := range invoices {
		switch inv.Status {
		case domain.StatusProcessed:
			processed++
		case domain.StatusNeedsReview:
			needsReview++
		}
	}

	ratio := float64(processed) / float64(total)
	switch {
	case ratio >= 0.95 && needsReview == 0:
		return domain.PhaseFilingReady, 100
	case ratio >= 0.8:
		return domain.PhaseReview, 80 + int(math.Round(ratio*20))
	case ratio >= 0.5:
		return domain.PhaseReconciliation, 50 + int(math.Round(ratio*30))
	case ratio > 0:
		return domain.PhaseDataCollection, int(math.Round(ratio * 50))
	default:
		// Records exist but nothing is processed yet.
		return domain.PhaseDataCollection, 10
	}
}

// pendingItems lists actionable follow-ups per record in first-found
// order, capped at five.
func pendingItems(invoices []domain.Invoice) []string {
	var pending []string
	for _, inv := range invoices {
		if inv.Status == domain.StatusNeedsReview {
			pending = append(pending, fmt.Sprintf("Review invoice %s", inv.InvoiceNumber))
		}
		if len(inv.Issues) > 0 {
			pending = append(pending, fmt.Sprintf("Fix issues on invoice %s", inv.InvoiceNumber))
		}
		if inv.VendorGSTIN == "" {
			pending = append(pending, fmt.Sprintf("Get GSTIN for %s", inv.InvoiceNumber))
		}
	}
	if len(pending) > maxPendingItems {
		pending = pending[:maxPendingItems]
	}
	return pending
}

// ClientStatusFor computes the full workflow status for one client from
// its record set and the current date. Pure.
func ClientStatusFor(clientName string, invoices []domain.Invoice, now time.Time) domain.ClientWorkflowStatus {
	phase, progress := PhaseFor(invoices)

	return domain.ClientWorkflowStatus{
		ClientID:     clientID(clientName),
		ClientName:   clientName,
		Phase:        phase,
		Progress:     progress,
		Risk:         ScoreClientRisk(invoices, now),
		PendingItems: pendingItems(invoices),
		Notes:        fmt.Sprintf("%d invoices this period", len(invoices)),
	}
}

func clientID(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// WorkflowService derives month-end status, the prioritized work queue and
// bottleneck diagnostics from the persisted record set. Everything is
// recomputed per call.
type WorkflowService struct {
	repo   ports.InvoiceRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewWorkflowService(repo ports.InvoiceRepository, logger *slog.Logger, now func() time.Time) *WorkflowService {
	if now == nil {
		now = time.Now
	}
	return &WorkflowService{repo: repo, logger: logger, now: now}
}

// MonthEndStatuses returns one status per client, highest risk first, then
// lowest progress first.
func (s *WorkflowService) MonthEndStatuses(ctx context.Context) ([]domain.ClientWorkflowStatus, error) {
	invoices, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	now := s.now()
	byClient := groupByClient(invoices)

	statuses := make([]domain.ClientWorkflowStatus, 0, len(byClient))
	for client, clientInvoices := range byClient {
		statuses = append(statuses, ClientStatusFor(client, clientInvoices, now))
	}

	riskOrder := map[domain.RiskLevel]int{
		domain.RiskCritical: 0,
		domain.RiskHigh:     1,
		domain.RiskMedium:   2,
		domain.RiskLow:      3,
	}
	sort.SliceStable(statuses, func(i, j int) bool {
		if riskOrder[statuses[i].Risk.Level] != riskOrder[statuses[j].Risk.Level] {
			return riskOrder[statuses[i].Risk.Level] < riskOrder[statuses[j].Risk.Level]
		}
		return statuses[i].Progress < statuses[j].Progress
	})

	s.logger.Info("month-end statuses computed", "clients", len(statuses))
	return statuses, nil
}

func (s *WorkflowService) WorkQueue(ctx context.Context) ([]domain.WorkQueueItem, error) {
	statuses, err := s.MonthEndStatuses(ctx)
	if err != nil {
		return nil, err
	}
	return BuildWorkQueue(statuses), nil
}

func (s *WorkflowService) Bottlenecks(ctx context.Context) ([]domain.Bottleneck, error) {
	statuses, err := s.MonthEndStatuses(ctx)
	if err != nil {
		return nil, err
	}
	return DetectBottlenecks(statuses, s.now()), nil
}
