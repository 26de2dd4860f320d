package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
)

// ProcessInvoiceUseCase runs the full intake-to-persist pipeline for one
// document: text intake, field extraction, record assembly, validation,
// expense categorization, optional corrective-email drafting, persistence.
// Extraction degradation is recovered inside the selector; every other
// stage failure aborts the run with the trail accumulated so far.
type ProcessInvoiceUseCase struct {
	repo     ports.InvoiceRepository
	drafts   ports.EmailDraftRepository
	storage  ports.ObjectStorage
	ocr      ports.TextExtractor
	selector *ExtractionSelector
	cashflow *CashflowAnalyzer
	drafter  ports.EmailDrafter
	sender   string
	logger   *slog.Logger
	now      func() time.Time
}

func NewProcessInvoiceUseCase(
	repo ports.InvoiceRepository,
	drafts ports.EmailDraftRepository,
	storage ports.ObjectStorage,
	ocr ports.TextExtractor,
	selector *ExtractionSelector,
	cashflow *CashflowAnalyzer,
	drafter ports.EmailDrafter,
	sender string,
	logger *slog.Logger,
) *ProcessInvoiceUseCase {
	return &ProcessInvoiceUseCase{
		repo:     repo,
		drafts:   drafts,
		storage:  storage,
		ocr:      ocr,
		selector: selector,
		cashflow: cashflow,
		drafter:  drafter,
		sender:   sender,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// pipelineRun accumulates the ordered audit trail of one run.
type pipelineRun struct {
	trail []domain.TrailEntry
	now   func() time.Time
}

func (r *pipelineRun) log(stage, severity, message string) {
	r.trail = append(r.trail, domain.TrailEntry{
		Stage:    stage,
		Message:  message,
		Severity: severity,
		At:       r.now(),
	})
}

func (r *pipelineRun) info(stage, message string) { r.log(stage, "info", message) }
func (r *pipelineRun) warn(stage, message string) { r.log(stage, "warning", message) }
func (r *pipelineRun) fail(stage, message string) { r.log(stage, "error", message) }

// Process executes one pipeline run. The returned outcome is non-nil on
// abort as well so callers always get the trail.
func (uc *ProcessInvoiceUseCase) Process(ctx context.Context, req domain.ProcessRequest) (*domain.ProcessOutcome, error) {
	started := uc.now()
	run := &pipelineRun{now: uc.now}
	outcome := &domain.ProcessOutcome{}

	abort := func(stage string, err error) (*domain.ProcessOutcome, error) {
		run.fail(stage, err.Error())
		outcome.Trail = run.trail
		outcome.DurationMillis = float64(uc.now().Sub(started)) / float64(time.Millisecond)
		uc.logger.Error("pipeline aborted",
			slog.String("stage", stage),
			slog.String("invoice_id", req.InvoiceID),
			slog.String("error", err.Error()),
		)
		return outcome, fmt.Errorf("pipeline aborted at %s: %w", stage, err)
	}

	rawText, err := uc.intake(ctx, req, run)
	if err != nil {
		return abort("intake", err)
	}

	fields, path, note := uc.selector.Extract(ctx, rawText)
	outcome.ExtractionPath = path
	if note != "" {
		run.warn("extract", note)
	}
	run.info("extract", fmt.Sprintf("fields extracted via %s path", path))

	inv, notes := BuildRecord(fields, rawText, req.SourceRefOrFilename(), uc.now())
	for _, n := range notes {
		run.warn("build", n)
	}
	if req.InvoiceID != "" {
		inv.ID = req.InvoiceID
	} else {
		inv.ID = uuid.NewString()
	}
	run.info("build", fmt.Sprintf("record assembled for vendor %q", inv.VendorName))

	inv.Issues = ValidateInvoice(inv)
	processedAt := uc.now()
	inv.ProcessedAt = &processedAt
	if len(inv.Issues) > 0 {
		inv.Status = domain.StatusNeedsReview
		run.warn("validate", fmt.Sprintf("%d issue(s) found", len(inv.Issues)))
	} else {
		inv.Status = domain.StatusProcessed
		run.info("validate", "all checks passed")
	}

	outcome.Cashflow = uc.cashflow.Analyze(ctx, inv)
	run.info("categorize", fmt.Sprintf("expense category %q", inv.ExpenseCategory))

	if len(inv.Issues) > 0 {
		sender := req.SenderName
		if sender == "" {
			sender = uc.sender
		}
		draftID, err := uc.draftFollowup(ctx, inv, sender)
		if err != nil {
			return abort("draft", err)
		}
		outcome.EmailDrafted = true
		outcome.EmailDraftID = draftID
		run.info("draft", "corrective email drafted for vendor")
	}

	if err := uc.repo.Save(ctx, inv); err != nil {
		return abort("persist", fmt.Errorf("save invoice record: %w", err))
	}
	run.info("persist", "record stored")

	outcome.Invoice = inv
	outcome.Trail = run.trail
	outcome.DurationMillis = float64(uc.now().Sub(started)) / float64(time.Millisecond)

	uc.logger.Info("pipeline completed",
		slog.String("invoice_id", inv.ID),
		slog.String("status", string(inv.Status)),
		slog.String("extraction_path", string(path)),
		slog.Int("issues", len(inv.Issues)),
	)
	return outcome, nil
}

// ProcessByID loads a pending record created at upload time, reads its
// stored document back and runs the pipeline against it.
func (uc *ProcessInvoiceUseCase) ProcessByID(ctx context.Context, invoiceID string) (*domain.ProcessOutcome, error) {
	inv, err := uc.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("fetch invoice by id: %w", err)
	}
	if inv.SourceRef == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process by id", errors.New("record has no stored source document"))
	}

	rc, err := uc.storage.Open(ctx, inv.SourceRef)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}

	return uc.Process(ctx, domain.ProcessRequest{
		InvoiceID: invoiceID,
		Content:   content,
		Filename:  inv.SourceRef,
	})
}

// intake resolves the run's input into raw text. Exactly one input form
// must be present.
func (uc *ProcessInvoiceUseCase) intake(ctx context.Context, req domain.ProcessRequest, run *pipelineRun) (string, error) {
	switch {
	case req.RawText != "":
		run.info("intake", "raw text supplied directly")
		return req.RawText, nil
	case len(req.Content) > 0:
		text, err := uc.ocr.ExtractBytes(ctx, req.Content, req.Filename)
		if err != nil {
			return "", fmt.Errorf("extract text from upload: %w", err)
		}
		run.info("intake", fmt.Sprintf("text extracted from upload %q", req.Filename))
		return text, nil
	case req.FilePath != "":
		text, err := uc.ocr.ExtractFile(ctx, req.FilePath)
		if err != nil {
			return "", fmt.Errorf("extract text from file: %w", err)
		}
		run.info("intake", fmt.Sprintf("text extracted from file %q", req.FilePath))
		return text, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "intake", errors.New("no file path, content or raw text supplied"))
	}
}

func (uc *ProcessInvoiceUseCase) draftFollowup(ctx context.Context, inv *domain.Invoice, senderName string) (string, error) {
	draft, err := uc.drafter.DraftBatch(ctx, inv, senderName)
	if err != nil {
		return "", fmt.Errorf("draft corrective email: %w", err)
	}
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	draft.InvoiceID = inv.ID
	if err := uc.drafts.Create(ctx, draft); err != nil {
		return "", fmt.Errorf("store email draft: %w", err)
	}
	return draft.ID, nil
}
