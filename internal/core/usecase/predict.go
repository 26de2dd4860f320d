package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
)

const (
	defaultForecastDays = 30
	dailyForecastDays   = 14
	upcomingDueLimit    = 10
	netPaymentTermDays  = 30
)

// CashflowPredictor projects spend over a caller-chosen horizon from the
// persisted record set, anchored on real due dates where they exist.
type CashflowPredictor struct {
	repo   ports.InvoiceRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewCashflowPredictor(repo ports.InvoiceRepository, logger *slog.Logger, now func() time.Time) *CashflowPredictor {
	if now == nil {
		now = time.Now
	}
	return &CashflowPredictor{repo: repo, logger: logger, now: now}
}

// PredictiveForecast projects daily spend daysAhead days out. The daily
// estimate is the monthly average spread over 30 days with the historical
// trend applied progressively.
func (p *CashflowPredictor) PredictiveForecast(ctx context.Context, daysAhead int) (*domain.PredictiveForecast, error) {
	if daysAhead <= 0 {
		daysAhead = defaultForecastDays
	}
	invoices, err := p.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	monthly := make(map[string]float64)
	for _, inv := range invoices {
		if inv.InvoiceDate.IsZero() {
			continue
		}
		monthly[inv.InvoiceDate.Format("2006-01")] += inv.TotalAmount
	}

	var avgMonthly float64
	if len(monthly) > 0 {
		var sum float64
		for _, amount := range monthly {
			sum += amount
		}
		avgMonthly = sum / float64(len(monthly))
	}
	trend := monthlyTrend(monthly)

	now := p.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	daily := make([]domain.DailyEstimate, 0, daysAhead)
	var cumulative float64
	for i := 0; i < daysAhead; i++ {
		date := today.AddDate(0, 0, i)
		estimate := avgMonthly / 30 * (1 + trend*float64(i)/30)
		cumulative += estimate
		daily = append(daily, domain.DailyEstimate{
			Date:             date.Format("2006-01-02"),
			Day:              date.Format("Mon"),
			EstimatedExpense: round2(estimate),
			Cumulative:       round2(cumulative),
		})
	}

	dues := upcomingDues(invoices, today, daysAhead)

	confidence := "low"
	switch {
	case len(monthly) >= 6:
		confidence = "high"
	case len(monthly) >= 3:
		confidence = "medium"
	}

	direction := "stable"
	switch {
	case trend > 0.02:
		direction = "increasing"
	case trend < -0.02:
		direction = "decreasing"
	}

	forecast := &domain.PredictiveForecast{
		Period: domain.ForecastPeriod{
			Start: today.Format("2006-01-02"),
			End:   today.AddDate(0, 0, daysAhead).Format("2006-01-02"),
			Days:  daysAhead,
		},
		Predictions: domain.ForecastPredictions{
			TotalExpected:   round2(cumulative),
			DailyAverage:    round2(avgMonthly / 30),
			MonthlyAverage:  round2(avgMonthly),
			TrendPercentage: round2(trend * 100),
			TrendDirection:  direction,
		},
		Confidence: confidence,
		ConfidenceInterval: domain.ConfidenceInterval{
			Low:  round2(cumulative * 0.85),
			High: round2(cumulative * 1.15),
		},
		DailyForecast:  daily[:min(len(daily), dailyForecastDays)],
		WeeklySummary:  weeklySummary(daily),
		UpcomingDues:   dues,
		Alerts:         cashAlerts(avgMonthly, dues, cumulative),
		MonthsAnalyzed: len(monthly),
	}

	p.logger.Info("predictive forecast generated",
		"days_ahead", daysAhead,
		"months_analyzed", len(monthly),
		"total_expected", forecast.Predictions.TotalExpected,
	)
	return forecast, nil
}

// monthlyTrend compares the average of the later half of months against
// the earlier half.
func monthlyTrend(monthly map[string]float64) float64 {
	if len(monthly) < 2 {
		return 0
	}
	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Strings(months)

	half := len(months) / 2
	var firstSum, secondSum float64
	for _, m := range months[:half] {
		firstSum += monthly[m]
	}
	for _, m := range months[half:] {
		secondSum += monthly[m]
	}
	firstAvg := firstSum / float64(half)
	secondAvg := secondSum / float64(len(months)-half)
	if firstAvg == 0 {
		return 0
	}
	return (secondAvg - firstAvg) / firstAvg
}

// upcomingDues collects payments falling between today and the horizon.
// Records without a stored due date are assumed Net 30 from the invoice
// date.
func upcomingDues(invoices []domain.Invoice, today time.Time, daysAhead int) []domain.UpcomingDue {
	end := today.AddDate(0, 0, daysAhead)

	var dues []domain.UpcomingDue
	for _, inv := range invoices {
		var due time.Time
		switch {
		case inv.DueDate != nil:
			due = *inv.DueDate
		case !inv.InvoiceDate.IsZero():
			due = inv.InvoiceDate.AddDate(0, 0, netPaymentTermDays)
		default:
			continue
		}
		if due.Before(today) || due.After(end) {
			continue
		}

		daysUntil := int(due.Sub(today).Hours() / 24)
		urgency := "normal"
		switch {
		case daysUntil <= 3:
			urgency = "critical"
		case daysUntil <= 7:
			urgency = "high"
		}
		dues = append(dues, domain.UpcomingDue{
			InvoiceNumber: inv.InvoiceNumber,
			Vendor:        inv.VendorName,
			Amount:        inv.TotalAmount,
			DueDate:       due,
			DaysUntilDue:  daysUntil,
			Urgency:       urgency,
		})
	}

	sort.SliceStable(dues, func(i, j int) bool {
		return dues[i].DaysUntilDue < dues[j].DaysUntilDue
	})
	if len(dues) > upcomingDueLimit {
		dues = dues[:upcomingDueLimit]
	}
	return dues
}

func weeklySummary(daily []domain.DailyEstimate) []domain.WeeklyEstimate {
	var weeks []domain.WeeklyEstimate
	for start := 0; start < len(daily); start += 7 {
		end := min(start+7, len(daily))
		week := daily[start:end]
		var total float64
		for _, d := range week {
			total += d.EstimatedExpense
		}
		weeks = append(weeks, domain.WeeklyEstimate{
			WeekStart:    week[0].Date,
			WeekEnd:      week[len(week)-1].Date,
			Total:        round2(total),
			DailyAverage: round2(total / float64(len(week))),
		})
	}
	return weeks
}

func cashAlerts(avgMonthly float64, dues []domain.UpcomingDue, forecastTotal float64) []domain.CashAlert {
	var alerts []domain.CashAlert

	var dueSoon float64
	critical := 0
	for _, d := range dues {
		if d.DaysUntilDue <= 7 {
			dueSoon += d.Amount
		}
		if d.Urgency == "critical" {
			critical++
		}
	}

	if dueSoon > avgMonthly*0.5 {
		alerts = append(alerts, domain.CashAlert{
			Type:           "high_payments_due",
			Severity:       "warning",
			Message:        fmt.Sprintf("₹%.0f due in the next 7 days", dueSoon),
			Recommendation: "Ensure sufficient funds are available",
		})
	}
	if critical > 0 {
		alerts = append(alerts, domain.CashAlert{
			Type:           "critical_due_dates",
			Severity:       "critical",
			Message:        fmt.Sprintf("%d invoice(s) due within 3 days", critical),
			Recommendation: "Prioritize these payments to avoid late fees",
		})
	}
	if forecastTotal > avgMonthly*1.2 {
		alerts = append(alerts, domain.CashAlert{
			Type:           "spending_increase",
			Severity:       "info",
			Message:        "Projected spending is 20% above average",
			Recommendation: "Review upcoming expenses for optimization opportunities",
		})
	}
	return alerts
}

// CashRequirements condenses the 30-day forecast into the quick operator
// summary.
func (p *CashflowPredictor) CashRequirements(ctx context.Context) (*domain.CashRequirementSummary, error) {
	forecast, err := p.PredictiveForecast(ctx, defaultForecastDays)
	if err != nil {
		return nil, err
	}

	critical := 0
	for _, alert := range forecast.Alerts {
		if alert.Severity == "critical" {
			critical++
		}
	}

	return &domain.CashRequirementSummary{
		Next7Days:        round2(forecast.Predictions.DailyAverage * 7),
		Next14Days:       round2(forecast.Predictions.DailyAverage * 14),
		Next30Days:       forecast.Predictions.TotalExpected,
		CriticalPayments: critical,
		Trend:            forecast.Predictions.TrendDirection,
		Confidence:       forecast.Confidence,
	}, nil
}
