package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
	"github.com/finvoy/invoice-autopilot/internal/core/usecase"
	"github.com/finvoy/invoice-autopilot/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	ingestor   ports.InvoiceIngestor
	processor  ports.InvoiceProcessor
	workflow   ports.WorkflowReporter
	risk       ports.RiskReporter
	cashflow   *usecase.CashflowAnalyzer
	vendors    ports.VendorAnalyst
	forecaster ports.CashflowForecaster
	repo       ports.InvoiceRepository
	drafts     ports.EmailDraftRepository
	metrics    *metrics.HTTPServerMetrics
}

func NewRouter(
	ingestor ports.InvoiceIngestor,
	processor ports.InvoiceProcessor,
	workflow ports.WorkflowReporter,
	risk ports.RiskReporter,
	cashflow *usecase.CashflowAnalyzer,
	vendors ports.VendorAnalyst,
	forecaster ports.CashflowForecaster,
	repo ports.InvoiceRepository,
	drafts ports.EmailDraftRepository,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		ingestor:   ingestor,
		processor:  processor,
		workflow:   workflow,
		risk:       risk,
		cashflow:   cashflow,
		vendors:    vendors,
		forecaster: forecaster,
		repo:       repo,
		drafts:     drafts,
		metrics:    m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
	}))
	mux.Use(requestIDMiddleware)
	mux.Use(accessLogMiddleware)
	if rt.metrics != nil {
		mux.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(serviceName, next)
		})
		mux.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	mux.Get("/healthz", rt.healthz)

	mux.Route("/v1", func(r chi.Router) {
		r.Post("/invoices", rt.uploadInvoice)
		r.Post("/invoices/process", rt.processInvoice)
		r.Get("/invoices", rt.listInvoices)
		r.Get("/invoices/{invoiceID}", rt.getInvoice)
		r.Get("/invoices/{invoiceID}/emails", rt.listInvoiceEmails)
		r.Post("/invoices/{invoiceID}/process", rt.processInvoiceByID)

		r.Get("/workflow/month-end", rt.monthEndStatuses)
		r.Get("/workflow/queue", rt.workQueue)
		r.Get("/workflow/bottlenecks", rt.bottlenecks)

		r.Get("/risk/dashboard", rt.riskDashboard)
		r.Get("/risk/urgent", rt.urgentItems)
		r.Get("/risk/filing-issues", rt.filingIssues)
		r.Get("/risk/clients/{clientName}", rt.clientRisk)

		r.Get("/cashflow/dashboard", rt.cashflowDashboard)
		r.Get("/cashflow/forecast", rt.cashflowForecast)
		r.Get("/cashflow/predict", rt.predictiveForecast)
		r.Get("/cashflow/requirements", rt.cashRequirements)
		r.Post("/cashflow/budgets", rt.setBudget)

		r.Get("/vendors/spend", rt.vendorSpend)
		r.Get("/vendors/negotiations", rt.negotiationOpportunities)
	})

	return mux
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadInvoice(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	inv, err := rt.ingestor.Upload(r.Context(), fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, inv)
}

func (rt *Router) processInvoice(w http.ResponseWriter, r *http.Request) {
	var req domain.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.RawText) == "" && strings.TrimSpace(req.FilePath) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "raw_text or file_path is required"})
		return
	}

	start := time.Now()
	outcome, err := rt.processor.Process(r.Context(), req)
	rt.recordPipelineRun(outcome, time.Since(start), err)
	if err != nil {
		// The outcome still carries the trail so callers can see where
		// the run stopped.
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]any{
			"error":   err.Error(),
			"outcome": outcome,
		})
		return
	}
	if rt.metrics != nil && outcome.EmailDrafted {
		rt.metrics.RecordEmailDraft(serviceName)
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) processInvoiceByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "invoiceID")
	start := time.Now()
	outcome, err := rt.processor.ProcessByID(r.Context(), id)
	rt.recordPipelineRun(outcome, time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) listInvoices(w http.ResponseWriter, r *http.Request) {
	if vendor := strings.TrimSpace(r.URL.Query().Get("vendor")); vendor != "" {
		invoices, err := rt.repo.SearchByVendor(r.Context(), vendor)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, invoiceList(invoices))
		return
	}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		invoices, err := rt.repo.ListByStatus(r.Context(), domain.InvoiceStatus(status))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, invoiceList(invoices))
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	invoices, err := rt.repo.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoiceList(invoices))
}

func (rt *Router) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := rt.repo.GetByID(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (rt *Router) listInvoiceEmails(w http.ResponseWriter, r *http.Request) {
	drafts, err := rt.drafts.ListByInvoice(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if drafts == nil {
		drafts = []domain.EmailDraft{}
	}
	writeJSON(w, http.StatusOK, drafts)
}

func (rt *Router) monthEndStatuses(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("month_end")
	statuses, err := rt.workflow.MonthEndStatuses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (rt *Router) workQueue(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("work_queue")
	items, err := rt.workflow.WorkQueue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rt *Router) bottlenecks(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("bottlenecks")
	items, err := rt.workflow.Bottlenecks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rt *Router) riskDashboard(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("risk_dashboard")
	dashboard, err := rt.risk.FirmDashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (rt *Router) urgentItems(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("urgent_items")
	items, err := rt.risk.UrgentItems(r.Context(), queryInt(r, "within_days", 7))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rt *Router) filingIssues(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("filing_issues")
	issues, err := rt.risk.PredictFilingIssues(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (rt *Router) clientRisk(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("client_risk")
	risk, err := rt.risk.ClientRisk(r.Context(), chi.URLParam(r, "clientName"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, risk)
}

func (rt *Router) cashflowDashboard(w http.ResponseWriter, _ *http.Request) {
	rt.recordReport("cashflow_dashboard")
	writeJSON(w, http.StatusOK, rt.cashflow.Dashboard())
}

func (rt *Router) cashflowForecast(w http.ResponseWriter, _ *http.Request) {
	rt.recordReport("cashflow_forecast")
	writeJSON(w, http.StatusOK, rt.cashflow.Forecast())
}

func (rt *Router) predictiveForecast(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("cashflow_predict")
	forecast, err := rt.forecaster.PredictiveForecast(r.Context(), queryInt(r, "days_ahead", 30))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

func (rt *Router) cashRequirements(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("cash_requirements")
	summary, err := rt.forecaster.CashRequirements(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) vendorSpend(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("vendor_spend")
	analysis, err := rt.vendors.SpendAnalysis(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (rt *Router) negotiationOpportunities(w http.ResponseWriter, r *http.Request) {
	rt.recordReport("vendor_negotiations")
	opportunities, err := rt.vendors.NegotiationOpportunities(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if opportunities == nil {
		opportunities = []domain.NegotiationOpportunity{}
	}
	writeJSON(w, http.StatusOK, opportunities)
}

func (rt *Router) setBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string  `json:"category"`
		Limit    float64 `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Category) == "" || req.Limit <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category and positive limit are required"})
		return
	}

	rt.cashflow.SetBudget(req.Category, req.Limit)
	writeJSON(w, http.StatusOK, map[string]any{"category": req.Category, "limit": req.Limit})
}

func (rt *Router) recordPipelineRun(outcome *domain.ProcessOutcome, duration time.Duration, err error) {
	if rt.metrics == nil {
		return
	}
	issueCount := 0
	path := ""
	if outcome != nil {
		path = string(outcome.ExtractionPath)
		if outcome.Invoice != nil {
			issueCount = len(outcome.Invoice.Issues)
		}
	}
	rt.metrics.RecordPipelineRun(serviceName, path, issueCount, duration, err)
}

func (rt *Router) recordReport(report string) {
	if rt.metrics != nil {
		rt.metrics.RecordReportRequest(serviceName, report)
	}
}

func invoiceList(invoices []domain.Invoice) []domain.Invoice {
	if invoices == nil {
		return []domain.Invoice{}
	}
	return invoices
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
