package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
)

// GSTR filing deadlines, day of month.
const (
	gstr1Deadline  = 11
	gstr3bDeadline = 20

	deadlineWindowDays = 3
)

var gstSlabs = []float64{0, 5, 12, 18, 28}

const (
	maxRiskReasons  = 5
	maxRiskActions  = 5
	maxRiskAffected = 10
)

// RiskLevelFor maps a 0-100 score to a level.
func RiskLevelFor(score int) domain.RiskLevel {
	switch {
	case score >= 70:
		return domain.RiskCritical
	case score >= 50:
		return domain.RiskHigh
	case score >= 25:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// ScoreClientRisk accumulates per-record contributions into a client-level
// risk: +15 per record missing a GSTIN, +10 per issue on a record, +20 per
// overdue record. Capped at 100. Pure over the record set and the clock.
func ScoreClientRisk(invoices []domain.Invoice, now time.Time) domain.ComplianceRisk {
	var (
		score    int
		reasons  []string
		actions  []string
		affected []string
	)

	for _, inv := range invoices {
		if inv.VendorGSTIN == "" {
			reasons = append(reasons, "Missing GSTIN on invoices")
			actions = append(actions, "Collect vendor GSTIN")
			score += 15
			affected = append(affected, inv.InvoiceNumber)
		}
		if len(inv.Issues) > 0 {
			reasons = append(reasons, "Validation issues on invoices")
			actions = append(actions, "Review and correct validation issues")
			score += 10 * len(inv.Issues)
			affected = append(affected, inv.InvoiceNumber)
		}
		if inv.DueDate != nil && inv.DueDate.Before(now) {
			reasons = append(reasons, "Overdue invoices")
			actions = append(actions, "Process overdue items immediately")
			score += 20
			affected = append(affected, inv.InvoiceNumber)
		}
	}

	score = min(score, 100)

	return domain.ComplianceRisk{
		Level:            RiskLevelFor(score),
		Score:            score,
		Reasons:          dedupeCapped(reasons, maxRiskReasons),
		SuggestedActions: dedupeCapped(actions, maxRiskActions),
		AffectedInvoices: dedupeCapped(affected, maxRiskAffected),
	}
}

// ScoreInvoiceRisk is the invoice-granularity variant: +20 missing GSTIN,
// +15 per error-severity issue, +10 for a non-standard effective tax rate,
// +25 per filing deadline inside the 3-day window.
func ScoreInvoiceRisk(inv *domain.Invoice, now time.Time) domain.ComplianceRisk {
	var (
		score    int
		reasons  []string
		actions  []string
		affected []string
	)

	if inv.VendorGSTIN == "" {
		reasons = append(reasons, "Missing vendor GSTIN - ITC cannot be claimed")
		actions = append(actions, "Request GSTIN from vendor")
		score += 20
	}

	errorCount := 0
	for _, is := range inv.Issues {
		if is.Severity == domain.SeverityError {
			errorCount++
		}
	}
	if errorCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d validation errors on invoice", errorCount))
		actions = append(actions, "Review and correct invoice errors")
		score += 15 * errorCount
	}

	if rate, ok := effectiveTaxRate(inv); ok && !standardSlab(rate) {
		reasons = append(reasons, fmt.Sprintf("Non-standard tax rate detected (%.1f%%)", rate))
		actions = append(actions, "Verify tax rate matches GST slab")
		score += 10
	}

	for _, deadline := range []int{gstr1Deadline, gstr3bDeadline} {
		if withinDeadlineWindow(now, deadline) {
			reasons = append(reasons, fmt.Sprintf("GSTR filing deadline in %d days", deadline-now.Day()))
			actions = append(actions, "Finalize filing data before the deadline")
			score += 25
		}
	}

	score = min(score, 100)
	if len(reasons) > 0 {
		affected = append(affected, inv.InvoiceNumber)
	}

	deadline := NextFilingDeadline(now)
	return domain.ComplianceRisk{
		Level:            RiskLevelFor(score),
		Score:            score,
		Reasons:          dedupeCapped(reasons, maxRiskReasons),
		SuggestedActions: dedupeCapped(actions, maxRiskActions),
		AffectedInvoices: affected,
		Deadline:         &deadline,
	}
}

func effectiveTaxRate(inv *domain.Invoice) (float64, bool) {
	if inv.Subtotal <= 0 || inv.TotalTax <= 0 {
		return 0, false
	}
	return inv.TotalTax / inv.Subtotal * 100, true
}

// standardSlab reports whether the rate lies within 1 point of a GST slab.
func standardSlab(rate float64) bool {
	for _, slab := range gstSlabs {
		if math.Abs(rate-slab) <= 1 {
			return true
		}
	}
	return false
}

func withinDeadlineWindow(now time.Time, deadlineDay int) bool {
	day := now.Day()
	return day >= deadlineDay-deadlineWindowDays && day <= deadlineDay
}

// NextFilingDeadline returns the next of day 11 (GSTR-1) / day 20
// (GSTR-3B), rolling into the next month after the 20th.
func NextFilingDeadline(now time.Time) time.Time {
	year, month, day := now.Date()
	switch {
	case day < gstr1Deadline:
		return time.Date(year, month, gstr1Deadline, 0, 0, 0, 0, now.Location())
	case day < gstr3bDeadline:
		return time.Date(year, month, gstr3bDeadline, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(year, month, gstr1Deadline, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	}
}

func dedupeCapped(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

// RiskService derives compliance risk views from persisted records. All
// views are recomputed on demand; nothing is cached or diffed.
type RiskService struct {
	repo   ports.InvoiceRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewRiskService(repo ports.InvoiceRepository, logger *slog.Logger, now func() time.Time) *RiskService {
	if now == nil {
		now = time.Now
	}
	return &RiskService{repo: repo, logger: logger, now: now}
}

func (s *RiskService) ClientRisk(ctx context.Context, clientName string) (domain.ComplianceRisk, error) {
	invoices, err := s.repo.ListAll(ctx)
	if err != nil {
		return domain.ComplianceRisk{}, fmt.Errorf("list invoices: %w", err)
	}

	var clientInvoices []domain.Invoice
	for _, inv := range invoices {
		if inv.VendorName == clientName || inv.BuyerName == clientName {
			clientInvoices = append(clientInvoices, inv)
		}
	}

	risk := ScoreClientRisk(clientInvoices, s.now())
	deadline := NextFilingDeadline(s.now())
	risk.Deadline = &deadline
	s.logger.Info("client risk assessed", "client", clientName, "level", risk.Level, "score", risk.Score)
	return risk, nil
}

// FirmDashboard aggregates per-client risk into the firm-wide health view.
func (s *RiskService) FirmDashboard(ctx context.Context) (*domain.FirmRiskDashboard, error) {
	invoices, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	now := s.now()
	byClient := groupByClient(invoices)

	var high, medium, low int
	for _, clientInvoices := range byClient {
		risk := ScoreClientRisk(clientInvoices, now)
		switch risk.Level {
		case domain.RiskCritical, domain.RiskHigh:
			high++
		case domain.RiskMedium:
			medium++
		default:
			low++
		}
	}

	total := len(byClient)
	health := 100
	if total > 0 {
		// The penalty is averaged in float before truncation, so a
		// fractional penalty still costs a point.
		health = int(100 - float64(high*30+medium*15)/float64(total))
	}
	health = max(0, min(100, health))

	// Strict comparisons, preserved from the scoring rules: worsening
	// above 30% high-risk, improving below 10%.
	trend := "stable"
	switch {
	case float64(high) > float64(total)*0.3:
		trend = "worsening"
	case float64(high) < float64(total)*0.1:
		trend = "improving"
	}

	urgent, err := s.UrgentItems(ctx, 7)
	if err != nil {
		return nil, err
	}

	dashboard := &domain.FirmRiskDashboard{
		TotalClients:       total,
		HighRiskClients:    high,
		MediumRiskClients:  medium,
		LowRiskClients:     low,
		UrgentItemsCount:   len(urgent),
		UpcomingDeadlines:  countUpcomingDeadlines(now, 7),
		OverallHealthScore: health,
		RiskTrend:          trend,
		GeneratedAt:        now,
	}
	s.logger.Info("firm risk summary generated", "health_score", health, "trend", trend)
	return dashboard, nil
}

// UrgentItems scans the record set for work needing immediate attention:
// records with issues, missing GSTINs, payments due inside the window, and
// firm-wide GSTR deadline warnings. Sorted by priority, top 20.
func (s *RiskService) UrgentItems(ctx context.Context, withinDays int) ([]domain.UrgentWorkItem, error) {
	if withinDays <= 0 {
		withinDays = 7
	}
	invoices, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := today.AddDate(0, 0, withinDays)

	var items []domain.UrgentWorkItem
	for _, inv := range invoices {
		if len(inv.Issues) > 0 {
			items = append(items, domain.UrgentWorkItem{
				ID:              "tax-" + inv.InvoiceNumber,
				Type:            domain.WorkTaxMismatch,
				ClientName:      inv.VendorName,
				Title:           fmt.Sprintf("Tax validation issue on invoice %s", inv.InvoiceNumber),
				Description:     fmt.Sprintf("Invoice has %d validation issues that need resolution", len(inv.Issues)),
				Reason:          "Tax mismatches will cause GSTR filing rejection",
				PriorityScore:   70,
				SuggestedAction: "Review and correct tax calculations or contact vendor for revised invoice",
				InvoiceIDs:      []string{inv.InvoiceNumber},
				CreatedAt:       now,
			})
		}

		if inv.VendorGSTIN == "" {
			items = append(items, domain.UrgentWorkItem{
				ID:              "gstin-" + inv.InvoiceNumber,
				Type:            domain.WorkMissingData,
				ClientName:      inv.VendorName,
				Title:           fmt.Sprintf("Missing GSTIN on invoice %s", inv.InvoiceNumber),
				Description:     "Invoice is missing vendor GSTIN, cannot claim ITC",
				Reason:          "ITC claim will be rejected without valid GSTIN",
				PriorityScore:   80,
				SuggestedAction: "Request vendor to provide valid GSTIN or obtain corrected invoice",
				InvoiceIDs:      []string{inv.InvoiceNumber},
				CreatedAt:       now,
			})
		}

		if inv.DueDate != nil && !inv.DueDate.Before(today) && !inv.DueDate.After(cutoff) {
			daysUntil := int(inv.DueDate.Sub(today).Hours() / 24)
			due := *inv.DueDate
			items = append(items, domain.UrgentWorkItem{
				ID:              "due-" + inv.InvoiceNumber,
				Type:            domain.WorkDeadlineRisk,
				ClientName:      inv.VendorName,
				Title:           fmt.Sprintf("Payment due in %d days", daysUntil),
				Description:     fmt.Sprintf("Invoice %s for %.2f due on %s", inv.InvoiceNumber, inv.TotalAmount, due.Format("2006-01-02")),
				Reason:          "Late payment may affect vendor relationships and credit terms",
				PriorityScore:   60 + (7-daysUntil)*5,
				Deadline:        &due,
				SuggestedAction: "Schedule payment or communicate delay to vendor",
				InvoiceIDs:      []string{inv.InvoiceNumber},
				CreatedAt:       now,
			})
		}
	}

	items = append(items, gstrDeadlineItems(now)...)

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PriorityScore > items[j].PriorityScore
	})
	if len(items) > 20 {
		items = items[:20]
	}
	return items, nil
}

func gstrDeadlineItems(now time.Time) []domain.UrgentWorkItem {
	var items []domain.UrgentWorkItem
	day := now.Day()

	if day >= gstr1Deadline-deadlineWindowDays && day < gstr1Deadline {
		deadline := time.Date(now.Year(), now.Month(), gstr1Deadline, 0, 0, 0, 0, now.Location())
		items = append(items, domain.UrgentWorkItem{
			ID:              "gstr1-deadline",
			Type:            domain.WorkDeadlineRisk,
			ClientName:      "All Clients",
			Title:           fmt.Sprintf("GSTR-1 deadline in %d days", gstr1Deadline-day),
			Description:     "GSTR-1 filing deadline is approaching for all clients",
			Reason:          "Late filing attracts penalties and affects client compliance rating",
			PriorityScore:   90,
			Deadline:        &deadline,
			SuggestedAction: "Verify all sales invoices are recorded and reconciled",
			CreatedAt:       now,
		})
	}

	if day >= gstr3bDeadline-deadlineWindowDays && day < gstr3bDeadline {
		deadline := time.Date(now.Year(), now.Month(), gstr3bDeadline, 0, 0, 0, 0, now.Location())
		items = append(items, domain.UrgentWorkItem{
			ID:              "gstr3b-deadline",
			Type:            domain.WorkDeadlineRisk,
			ClientName:      "All Clients",
			Title:           fmt.Sprintf("GSTR-3B deadline in %d days", gstr3bDeadline-day),
			Description:     "GSTR-3B filing deadline is approaching for all clients",
			Reason:          "Late GSTR-3B filing blocks ITC claims and attracts penalties",
			PriorityScore:   95,
			Deadline:        &deadline,
			SuggestedAction: "Complete ITC reconciliation and tax liability calculation",
			CreatedAt:       now,
		})
	}

	return items
}

// PredictFilingIssues inspects the current filing period for systemic
// problems before the deadline hits.
func (s *RiskService) PredictFilingIssues(ctx context.Context) ([]domain.FilingIssue, error) {
	invoices, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	now := s.now()
	var monthly []domain.Invoice
	for _, inv := range invoices {
		if inv.InvoiceDate.Month() == now.Month() && inv.InvoiceDate.Year() == now.Year() {
			monthly = append(monthly, inv)
		}
	}

	var issues []domain.FilingIssue

	missingGSTIN := 0
	withIssues := 0
	for _, inv := range monthly {
		if inv.VendorGSTIN == "" {
			missingGSTIN++
		}
		if len(inv.Issues) > 0 {
			withIssues++
		}
	}

	if missingGSTIN > 0 {
		severity := "medium"
		if missingGSTIN > 5 {
			severity = "high"
		}
		issues = append(issues, domain.FilingIssue{
			Type:          "missing_gstin",
			Severity:      severity,
			Message:       fmt.Sprintf("%d invoices missing GSTIN - ITC claim at risk", missingGSTIN),
			AffectedCount: missingGSTIN,
		})
	}

	if withIssues > 0 {
		issues = append(issues, domain.FilingIssue{
			Type:          "tax_mismatch",
			Severity:      "high",
			Message:       fmt.Sprintf("%d invoices with tax calculation issues", withIssues),
			AffectedCount: withIssues,
		})
	}

	if len(monthly) < 10 {
		issues = append(issues, domain.FilingIssue{
			Type:          "low_volume",
			Severity:      "info",
			Message:       fmt.Sprintf("Only %d invoices for current period - verify completeness", len(monthly)),
			AffectedCount: len(monthly),
		})
	}

	return issues, nil
}

func countUpcomingDeadlines(now time.Time, days int) int {
	count := 0
	for d := 1; d <= days; d++ {
		day := now.AddDate(0, 0, d).Day()
		if day == gstr1Deadline || day == gstr3bDeadline {
			count++
		}
	}
	return count
}

func groupByClient(invoices []domain.Invoice) map[string][]domain.Invoice {
	byClient := make(map[string][]domain.Invoice)
	for _, inv := range invoices {
		name := inv.VendorName
		if name == "" {
			name = "Unknown"
		}
		byClient[name] = append(byClient[name], inv)
	}
	return byClient
}
