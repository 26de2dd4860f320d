package domain

// ExpenseCategories is the closed set used for expense classification.
var ExpenseCategories = []string{
	"Office Supplies",
	"IT & Software",
	"Travel & Transport",
	"Marketing & Advertising",
	"Professional Services",
	"Utilities",
	"Rent & Lease",
	"Equipment",
	"Raw Materials",
	"Inventory",
	"Salaries & Wages",
	"Other",
}

const DefaultExpenseCategory = "Other"

// CashflowForecast is a near-term spend prediction derived from the
// monthly running totals.
type CashflowForecast struct {
	NextMonthEstimate float64 `json:"next_month_estimate"`
	Confidence        string  `json:"confidence"`
	BasedOnMonths     int     `json:"based_on_months"`
	MonthlyAverage    float64 `json:"monthly_average"`
	Note              string  `json:"note,omitempty"`
}

type SpendAlert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type MonthlySummary struct {
	CurrentMonth   string             `json:"current_month"`
	CurrentTotal   float64            `json:"current_total"`
	AverageMonthly float64            `json:"average_monthly"`
	Trend          string             `json:"trend"`
	AllMonths      map[string]float64 `json:"all_months"`
}

type CategoryShare struct {
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

type CategoryBreakdown struct {
	Total       float64                  `json:"total"`
	Categories  map[string]CategoryShare `json:"categories"`
	TopCategory string                   `json:"top_category,omitempty"`
}

type BudgetStatus struct {
	Spent     float64 `json:"spent"`
	Limit     float64 `json:"limit"`
	Remaining float64 `json:"remaining"`
}

// CashflowDashboard is the aggregate view surfaced to operators.
type CashflowDashboard struct {
	MonthlySummary    MonthlySummary          `json:"monthly_summary"`
	CategoryBreakdown CategoryBreakdown       `json:"category_breakdown"`
	Forecast          CashflowForecast        `json:"predictions"`
	TotalInvoices     int                     `json:"total_invoices"`
	BudgetStatus      map[string]BudgetStatus `json:"budget_status"`
}

// CashflowAnalysis is the per-invoice output of the categorization and
// forecast engine, returned with each pipeline run.
type CashflowAnalysis struct {
	Category       string           `json:"category"`
	Amount         float64          `json:"amount"`
	Month          string           `json:"month"`
	MonthlySummary MonthlySummary   `json:"monthly_summary"`
	Forecast       CashflowForecast `json:"predictions"`
	Alerts         []SpendAlert     `json:"alerts"`
	Insights       []string         `json:"insights"`
}
