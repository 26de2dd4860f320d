package domain

import "time"

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type Phase string

const (
	PhaseNotStarted     Phase = "not_started"
	PhaseDataCollection Phase = "data_collection"
	PhaseReconciliation Phase = "reconciliation"
	PhaseReview         Phase = "review"
	PhaseFilingReady    Phase = "filing_ready"
	PhaseComplete       Phase = "complete"
)

type WorkItemType string

const (
	WorkInvoiceIssue      WorkItemType = "invoice_issue"
	WorkGSTReconciliation WorkItemType = "gst_reconciliation"
	WorkMissingData       WorkItemType = "missing_data"
	WorkDeadlineRisk      WorkItemType = "deadline_risk"
	WorkTaxMismatch       WorkItemType = "tax_mismatch"
	WorkVendorFollowup    WorkItemType = "vendor_followup"
)

// ComplianceRisk is a derived assessment for a client or a single invoice.
// It is recomputed on demand from the current record set and never stored.
type ComplianceRisk struct {
	Level            RiskLevel  `json:"risk_level"`
	Score            int        `json:"risk_score"`
	Reasons          []string   `json:"reasons"`
	SuggestedActions []string   `json:"suggested_actions"`
	AffectedInvoices []string   `json:"affected_invoices"`
	Deadline         *time.Time `json:"deadline,omitempty"`
}

// ClientWorkflowStatus is the month-end close position of one client,
// recomputed on every call.
type ClientWorkflowStatus struct {
	ClientID     string         `json:"client_id"`
	ClientName   string         `json:"client_name"`
	Phase        Phase          `json:"phase"`
	Progress     int            `json:"progress_percent"`
	Risk         ComplianceRisk `json:"risk"`
	PendingItems []string       `json:"pending_items"`
	Notes        string         `json:"notes,omitempty"`
}

// UrgentWorkItem is an actionable, priority-ranked task for an operator.
type UrgentWorkItem struct {
	ID              string       `json:"id"`
	Type            WorkItemType `json:"type"`
	ClientName      string       `json:"client_name"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Reason          string       `json:"reason"`
	PriorityScore   int          `json:"priority_score"`
	Deadline        *time.Time   `json:"deadline,omitempty"`
	SuggestedAction string       `json:"suggested_action"`
	InvoiceIDs      []string     `json:"invoice_ids"`
	CreatedAt       time.Time    `json:"created_at"`
}

// WorkQueueItem is one entry in the prioritized cross-client work queue.
type WorkQueueItem struct {
	Client   string `json:"client"`
	Task     string `json:"task"`
	Priority int    `json:"priority"`
	Phase    Phase  `json:"phase"`
	Reason   string `json:"reason"`
}

// Bottleneck is one systemic congestion finding across the firm.
type Bottleneck struct {
	Type       string `json:"type"`
	Phase      Phase  `json:"phase,omitempty"`
	Client     string `json:"client,omitempty"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// FirmRiskDashboard aggregates per-client risk into a firm-wide view.
type FirmRiskDashboard struct {
	TotalClients       int       `json:"total_clients"`
	HighRiskClients    int       `json:"high_risk_clients"`
	MediumRiskClients  int       `json:"medium_risk_clients"`
	LowRiskClients     int       `json:"low_risk_clients"`
	UrgentItemsCount   int       `json:"urgent_items_count"`
	UpcomingDeadlines  int       `json:"upcoming_deadlines"`
	OverallHealthScore int       `json:"overall_health_score"`
	RiskTrend          string    `json:"risk_trend"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// FilingIssue is a predicted problem with the upcoming GSTR filing period.
type FilingIssue struct {
	Type          string `json:"type"`
	Severity      string `json:"severity"`
	Message       string `json:"message"`
	AffectedCount int    `json:"affected_count"`
}
