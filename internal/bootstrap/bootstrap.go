package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/config"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
	"github.com/finvoy/invoice-autopilot/internal/core/usecase"
	"github.com/finvoy/invoice-autopilot/internal/infrastructure/email"
	"github.com/finvoy/invoice-autopilot/internal/infrastructure/extraction/pattern"
	"github.com/finvoy/invoice-autopilot/internal/infrastructure/llm/openai"
	"github.com/finvoy/invoice-autopilot/internal/infrastructure/ocr"
	"github.com/finvoy/invoice-autopilot/internal/infrastructure/queue/nats"
	"github.com/finvoy/invoice-autopilot/internal/infrastructure/repository/postgres"
	"github.com/finvoy/invoice-autopilot/internal/infrastructure/resilience"
	"github.com/finvoy/invoice-autopilot/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Repo      ports.InvoiceRepository
	Drafts    ports.EmailDraftRepository
	IngestUC  ports.InvoiceIngestor
	ProcessUC ports.InvoiceProcessor
	Workflow  ports.WorkflowReporter
	Risk      ports.RiskReporter
	Vendors   ports.VendorAnalyst
	Forecast  ports.CashflowForecaster
	Cashflow  *usecase.CashflowAnalyzer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewInvoiceRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	drafts := postgres.NewEmailDraftRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	completion := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, time.Duration(cfg.OpenAITimeoutSeconds)*time.Second, executor)
	capability := openai.NewFieldExtractor(completion)
	fallback := pattern.New()
	selector := usecase.NewExtractionSelector(capability, completion.Available, fallback)

	textExtractor := ocr.New(logger)
	drafter := email.NewDrafter(completion, logger)
	cashflow := usecase.NewCashflowAnalyzer(completion, logger, cfg.LargeTransactionLimit, nil)

	ingestUC := usecase.NewIngestInvoiceUseCase(repo, storage, queue, logger)
	processUC := usecase.NewProcessInvoiceUseCase(repo, drafts, storage, textExtractor, selector, cashflow, drafter, cfg.SenderName, logger)
	workflow := usecase.NewWorkflowService(repo, logger, nil)
	risk := usecase.NewRiskService(repo, logger, nil)
	vendors := usecase.NewVendorService(repo, logger)
	forecast := usecase.NewCashflowPredictor(repo, logger, nil)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Repo:      repo,
		Drafts:    drafts,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		Workflow:  workflow,
		Risk:      risk,
		Vendors:   vendors,
		Forecast:  forecast,
		Cashflow:  cashflow,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
