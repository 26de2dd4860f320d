package ports

import (
	"context"
	"io"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

// InvoiceIngestor is the inbound contract for document upload orchestration.
type InvoiceIngestor interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.Invoice, error)
}

// InvoiceProcessor is the inbound contract for running the pipeline.
type InvoiceProcessor interface {
	Process(ctx context.Context, req domain.ProcessRequest) (*domain.ProcessOutcome, error)
	ProcessByID(ctx context.Context, invoiceID string) (*domain.ProcessOutcome, error)
}

// WorkflowReporter derives month-end state, the work queue and bottlenecks
// from the persisted record set.
type WorkflowReporter interface {
	MonthEndStatuses(ctx context.Context) ([]domain.ClientWorkflowStatus, error)
	WorkQueue(ctx context.Context) ([]domain.WorkQueueItem, error)
	Bottlenecks(ctx context.Context) ([]domain.Bottleneck, error)
}

// VendorAnalyst derives per-vendor spend views from the persisted record
// set.
type VendorAnalyst interface {
	SpendAnalysis(ctx context.Context) (*domain.VendorSpendAnalysis, error)
	NegotiationOpportunities(ctx context.Context) ([]domain.NegotiationOpportunity, error)
}

// CashflowForecaster projects spend over a caller-chosen horizon.
type CashflowForecaster interface {
	PredictiveForecast(ctx context.Context, daysAhead int) (*domain.PredictiveForecast, error)
	CashRequirements(ctx context.Context) (*domain.CashRequirementSummary, error)
}

// RiskReporter derives compliance risk views from the persisted record set.
type RiskReporter interface {
	ClientRisk(ctx context.Context, clientName string) (domain.ComplianceRisk, error)
	FirmDashboard(ctx context.Context) (*domain.FirmRiskDashboard, error)
	UrgentItems(ctx context.Context, withinDays int) ([]domain.UrgentWorkItem, error)
	PredictFilingIssues(ctx context.Context) ([]domain.FilingIssue, error)
}
