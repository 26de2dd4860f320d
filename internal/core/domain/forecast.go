package domain

import "time"

// DailyEstimate is one day of the projected spend curve.
type DailyEstimate struct {
	Date             string  `json:"date"`
	Day              string  `json:"day"`
	EstimatedExpense float64 `json:"estimated_expense"`
	Cumulative       float64 `json:"cumulative"`
}

// WeeklyEstimate rolls the daily curve up into week buckets.
type WeeklyEstimate struct {
	WeekStart    string  `json:"week_start"`
	WeekEnd      string  `json:"week_end"`
	Total        float64 `json:"total"`
	DailyAverage float64 `json:"daily_avg"`
}

// UpcomingDue is a payment falling inside the forecast horizon.
type UpcomingDue struct {
	InvoiceNumber string    `json:"invoice_number"`
	Vendor        string    `json:"vendor"`
	Amount        float64   `json:"amount"`
	DueDate       time.Time `json:"due_date"`
	DaysUntilDue  int       `json:"days_until_due"`
	Urgency       string    `json:"urgency"`
}

type ForecastPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

type ForecastPredictions struct {
	TotalExpected   float64 `json:"total_expected"`
	DailyAverage    float64 `json:"daily_average"`
	MonthlyAverage  float64 `json:"monthly_average"`
	TrendPercentage float64 `json:"trend_percentage"`
	TrendDirection  string  `json:"trend_direction"`
}

type ConfidenceInterval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// CashAlert is a forward-looking cash warning with a recommended action.
type CashAlert struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

// PredictiveForecast is the due-date-aware spend projection over a
// caller-chosen horizon.
type PredictiveForecast struct {
	Period             ForecastPeriod      `json:"forecast_period"`
	Predictions        ForecastPredictions `json:"predictions"`
	Confidence         string              `json:"confidence"`
	ConfidenceInterval ConfidenceInterval  `json:"confidence_interval"`
	DailyForecast      []DailyEstimate     `json:"daily_forecast"`
	WeeklySummary      []WeeklyEstimate    `json:"weekly_summary"`
	UpcomingDues       []UpcomingDue       `json:"upcoming_dues"`
	Alerts             []CashAlert         `json:"alerts"`
	MonthsAnalyzed     int                 `json:"months_analyzed"`
}

// CashRequirementSummary is the condensed operator view of near-term cash
// needs.
type CashRequirementSummary struct {
	Next7Days        float64 `json:"next_7_days"`
	Next14Days       float64 `json:"next_14_days"`
	Next30Days       float64 `json:"next_30_days"`
	CriticalPayments int     `json:"critical_payments"`
	Trend            string  `json:"trend"`
	Confidence       string  `json:"confidence"`
}
