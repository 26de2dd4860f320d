package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
)

const forecastGrowthFactor = 1.05

// Keyword table for rule-based categorization when the completion
// capability is unavailable. First matching category wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"IT & Software", []string{"software", "cloud", "aws", "azure", "hosting", "domain", "tech", "computer"}},
	{"Office Supplies", []string{"stationery", "paper", "printer", "ink", "office", "desk"}},
	{"Travel & Transport", []string{"travel", "flight", "hotel", "cab", "uber", "ola", "fuel", "petrol"}},
	{"Marketing & Advertising", []string{"marketing", "ads", "advertising", "promotion", "media"}},
	{"Professional Services", []string{"consulting", "legal", "audit", "accountant", "lawyer"}},
	{"Utilities", []string{"electricity", "water", "phone", "internet", "broadband"}},
	{"Rent & Lease", []string{"rent", "lease", "property"}},
	{"Equipment", []string{"machine", "equipment", "hardware"}},
	{"Raw Materials", []string{"raw", "material", "component", "part"}},
}

type vendorStats struct {
	count int
	total float64
}

// CashflowAnalyzer categorizes expenses and keeps running spend
// aggregates. All mutation funnels through Track under one mutex, so
// concurrent pipeline runs cannot lose updates to a month or category
// bucket.
type CashflowAnalyzer struct {
	completion ports.CompletionClient // may be nil
	logger     *slog.Logger
	now        func() time.Time

	largeTransactionLimit float64

	mu             sync.Mutex
	monthlyTotals  map[string]float64
	categoryTotals map[string]float64
	vendorTotals   map[string]vendorStats
	budgetLimits   map[string]float64
	invoiceCount   int
}

func NewCashflowAnalyzer(completion ports.CompletionClient, logger *slog.Logger, largeTransactionLimit float64, now func() time.Time) *CashflowAnalyzer {
	if now == nil {
		now = time.Now
	}
	return &CashflowAnalyzer{
		completion:            completion,
		logger:                logger,
		now:                   now,
		largeTransactionLimit: largeTransactionLimit,
		monthlyTotals:         make(map[string]float64),
		categoryTotals:        make(map[string]float64),
		vendorTotals:          make(map[string]vendorStats),
		budgetLimits:          make(map[string]float64),
	}
}

// Categorize classifies the invoice into the closed category set, via the
// completion capability when available, otherwise by keyword rules.
func (a *CashflowAnalyzer) Categorize(ctx context.Context, inv *domain.Invoice) string {
	if a.completion != nil && a.completion.Available() {
		text := categorizationContext(inv)
		category, err := a.completion.Classify(ctx, text, domain.ExpenseCategories, "Categorize this business expense for accounting")
		if err == nil {
			return category
		}
		a.logger.Warn("llm categorization failed, using keyword rules", "error", err)
	}
	return categorizeByRules(inv)
}

func categorizationContext(inv *domain.Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vendor: %s\n", inv.VendorName)
	if len(inv.Items) > 0 {
		descriptions := make([]string, len(inv.Items))
		for i, item := range inv.Items {
			descriptions[i] = item.Description
		}
		fmt.Fprintf(&b, "Items: %s\n", strings.Join(descriptions, ", "))
	}
	return b.String()
}

func categorizeByRules(inv *domain.Invoice) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(inv.VendorName))
	for _, item := range inv.Items {
		b.WriteString(" ")
		b.WriteString(strings.ToLower(item.Description))
	}
	combined := b.String()

	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(combined, kw) {
				return entry.category
			}
		}
	}
	return domain.DefaultExpenseCategory
}

// Track folds the invoice into the month, category and vendor running
// totals. Never removes data.
func (a *CashflowAnalyzer) Track(inv *domain.Invoice) {
	month := inv.InvoiceDate.Format("2006-01")
	category := inv.ExpenseCategory
	if category == "" {
		category = domain.DefaultExpenseCategory
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.monthlyTotals[month] += inv.TotalAmount
	a.categoryTotals[category] += inv.TotalAmount
	vs := a.vendorTotals[inv.VendorName]
	vs.count++
	vs.total += inv.TotalAmount
	a.vendorTotals[inv.VendorName] = vs
	a.invoiceCount++
}

// SetBudget sets the operator budget limit for a category.
func (a *CashflowAnalyzer) SetBudget(category string, limit float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.budgetLimits[category] = limit
}

// Forecast predicts next month's spend as the historical monthly mean
// with a 5% growth assumption.
func (a *CashflowAnalyzer) Forecast() domain.CashflowForecast {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.forecastLocked()
}

func (a *CashflowAnalyzer) forecastLocked() domain.CashflowForecast {
	months := len(a.monthlyTotals)
	if months == 0 {
		return domain.CashflowForecast{
			Confidence: "low",
			Note:       "Insufficient data for prediction",
		}
	}

	var sum float64
	for _, total := range a.monthlyTotals {
		sum += total
	}
	avg := sum / float64(months)

	confidence := "low"
	if months >= 3 {
		confidence = "medium"
	}

	return domain.CashflowForecast{
		NextMonthEstimate: avg * forecastGrowthFactor,
		Confidence:        confidence,
		BasedOnMonths:     months,
		MonthlyAverage:    avg,
	}
}

// Alerts flags unusual spend for the given invoice against the current
// aggregates.
func (a *CashflowAnalyzer) Alerts(inv *domain.Invoice) []domain.SpendAlert {
	a.mu.Lock()
	defer a.mu.Unlock()

	var alerts []domain.SpendAlert

	if inv.TotalAmount > a.largeTransactionLimit {
		alerts = append(alerts, domain.SpendAlert{
			Type:     "large_transaction",
			Severity: "info",
			Message:  fmt.Sprintf("Large transaction: %.2f from %s", inv.TotalAmount, inv.VendorName),
		})
	}

	category := inv.ExpenseCategory
	if category == "" {
		category = domain.DefaultExpenseCategory
	}
	if limit, ok := a.budgetLimits[category]; ok && a.categoryTotals[category] > limit {
		alerts = append(alerts, domain.SpendAlert{
			Type:     "budget_exceeded",
			Severity: "warning",
			Message:  fmt.Sprintf("Budget exceeded for %s: %.2f / %.2f", category, a.categoryTotals[category], limit),
		})
	}

	if len(a.categoryTotals) > 0 {
		var sum float64
		for _, total := range a.categoryTotals {
			sum += total
		}
		avg := sum / float64(len(a.categoryTotals))
		if inv.TotalAmount > avg*3 {
			alerts = append(alerts, domain.SpendAlert{
				Type:     "unusual_spending",
				Severity: "info",
				Message:  "This transaction is 3x higher than the category average",
			})
		}
	}

	return alerts
}

// Insights produces human-readable observations about the invoice in the
// context of the running aggregates.
func (a *CashflowAnalyzer) Insights(inv *domain.Invoice) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var insights []string

	category := inv.ExpenseCategory
	if category == "" {
		category = domain.DefaultExpenseCategory
	}
	var totalSpend float64
	for _, total := range a.categoryTotals {
		totalSpend += total
	}
	if totalSpend > 0 {
		pct := a.categoryTotals[category] / totalSpend * 100
		insights = append(insights, fmt.Sprintf("%s accounts for %.1f%% of total spending", category, pct))
	}

	if vs := a.vendorTotals[inv.VendorName]; vs.count > 1 {
		insights = append(insights, fmt.Sprintf("Total spent with %s: %.2f across %d invoices", inv.VendorName, vs.total, vs.count))
	}

	if a.monthTrendLocked() == "up" {
		insights = append(insights, "Monthly spending is trending upward")
	} else {
		insights = append(insights, "Monthly spending is stable or decreasing")
	}

	return insights
}

// monthTrendLocked reports "up" iff the current month's total exceeds the
// trailing-3-month average.
func (a *CashflowAnalyzer) monthTrendLocked() string {
	currentMonth := a.now().Format("2006-01")
	current := a.monthlyTotals[currentMonth]

	months := make([]string, 0, len(a.monthlyTotals))
	for m := range a.monthlyTotals {
		months = append(months, m)
	}
	sort.Strings(months)
	if len(months) > 3 {
		months = months[len(months)-3:]
	}
	if len(months) == 0 {
		return "down"
	}
	var sum float64
	for _, m := range months {
		sum += a.monthlyTotals[m]
	}
	avg := sum / float64(len(months))
	if current > avg {
		return "up"
	}
	return "down"
}

// MonthlySummary reports the current month against the trailing average.
func (a *CashflowAnalyzer) MonthlySummary() domain.MonthlySummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.monthlySummaryLocked()
}

func (a *CashflowAnalyzer) monthlySummaryLocked() domain.MonthlySummary {
	currentMonth := a.now().Format("2006-01")

	months := make([]string, 0, len(a.monthlyTotals))
	for m := range a.monthlyTotals {
		months = append(months, m)
	}
	sort.Strings(months)
	if len(months) > 3 {
		months = months[len(months)-3:]
	}
	var avg float64
	if len(months) > 0 {
		var sum float64
		for _, m := range months {
			sum += a.monthlyTotals[m]
		}
		avg = sum / float64(len(months))
	}

	all := make(map[string]float64, len(a.monthlyTotals))
	for m, total := range a.monthlyTotals {
		all[m] = total
	}

	return domain.MonthlySummary{
		CurrentMonth:   currentMonth,
		CurrentTotal:   a.monthlyTotals[currentMonth],
		AverageMonthly: avg,
		Trend:          a.monthTrendLocked(),
		AllMonths:      all,
	}
}

// Breakdown reports spend share per category.
func (a *CashflowAnalyzer) Breakdown() domain.CategoryBreakdown {
	a.mu.Lock()
	defer a.mu.Unlock()

	var total float64
	for _, amount := range a.categoryTotals {
		total += amount
	}

	categories := make(map[string]domain.CategoryShare, len(a.categoryTotals))
	top := ""
	topAmount := 0.0
	for category, amount := range a.categoryTotals {
		share := domain.CategoryShare{Amount: amount}
		if total > 0 {
			share.Percentage = amount / total * 100
		}
		categories[category] = share
		if amount > topAmount {
			top, topAmount = category, amount
		}
	}

	return domain.CategoryBreakdown{
		Total:       total,
		Categories:  categories,
		TopCategory: top,
	}
}

// Dashboard aggregates everything the operator view needs.
func (a *CashflowAnalyzer) Dashboard() domain.CashflowDashboard {
	breakdown := a.Breakdown()

	a.mu.Lock()
	summary := a.monthlySummaryLocked()
	forecast := a.forecastLocked()
	budget := make(map[string]domain.BudgetStatus, len(a.budgetLimits))
	for category, limit := range a.budgetLimits {
		spent := a.categoryTotals[category]
		budget[category] = domain.BudgetStatus{
			Spent:     spent,
			Limit:     limit,
			Remaining: limit - spent,
		}
	}
	count := a.invoiceCount
	a.mu.Unlock()

	return domain.CashflowDashboard{
		MonthlySummary:    summary,
		CategoryBreakdown: breakdown,
		Forecast:          forecast,
		TotalInvoices:     count,
		BudgetStatus:      budget,
	}
}

// Analyze runs the full per-invoice cashflow pass: categorize, track,
// then compute alerts and insights against the updated aggregates.
func (a *CashflowAnalyzer) Analyze(ctx context.Context, inv *domain.Invoice) domain.CashflowAnalysis {
	category := a.Categorize(ctx, inv)
	inv.ExpenseCategory = category
	a.Track(inv)

	return domain.CashflowAnalysis{
		Category:       category,
		Amount:         inv.TotalAmount,
		Month:          inv.InvoiceDate.Format("2006-01"),
		MonthlySummary: a.MonthlySummary(),
		Forecast:       a.Forecast(),
		Alerts:         a.Alerts(inv),
		Insights:       a.Insights(inv),
	}
}
