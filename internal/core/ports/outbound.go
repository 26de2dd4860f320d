package ports

import (
	"context"
	"io"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

// InvoiceRepository is the keyed record store for processed invoices.
// Save upserts by ID so a pipeline run can persist the same record it
// created at intake.
type InvoiceRepository interface {
	Save(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	List(ctx context.Context, limit, offset int) ([]domain.Invoice, error)
	ListAll(ctx context.Context) ([]domain.Invoice, error)
	ListByStatus(ctx context.Context, status domain.InvoiceStatus) ([]domain.Invoice, error)
	SearchByVendor(ctx context.Context, nameSubstring string) ([]domain.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus, processedAt *time.Time) error
}

// EmailDraftRepository stores corrective communications tied to invoices.
type EmailDraftRepository interface {
	Create(ctx context.Context, draft *domain.EmailDraft) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]domain.EmailDraft, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
}

// ObjectStorage stores uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes invoice ingestion events.
type MessageQueue interface {
	PublishInvoiceIngested(ctx context.Context, invoiceID string) error
	SubscribeInvoiceIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor is the document-to-text capability. It degrades to a
// clearly-marked placeholder instead of failing when no backend applies.
type TextExtractor interface {
	ExtractFile(ctx context.Context, path string) (string, error)
	ExtractBytes(ctx context.Context, content []byte, filename string) (string, error)
}

// CompletionClient is the text-completion capability. Available reports
// whether a backend is configured; callers must check it before each use,
// absence is not an error.
type CompletionClient interface {
	Available() bool
	Complete(ctx context.Context, prompt, systemPrompt string, temperature float32, maxTokens int) (string, error)
	ExtractJSON(ctx context.Context, prompt, systemPrompt, schemaHint string) ([]byte, error)
	Classify(ctx context.Context, text string, categories []string, hint string) (string, error)
}

// FieldExtractor turns raw invoice text into the shared field map.
// Implementations are interchangeable strategies: the capability-assisted
// one fails on malformed output, the pattern-based one never fails.
type FieldExtractor interface {
	Extract(ctx context.Context, rawText string) (domain.FieldMap, error)
}

// EmailDrafter generates corrective vendor communications. The pipeline
// only decides whether to call it.
type EmailDrafter interface {
	DraftForIssue(ctx context.Context, inv *domain.Invoice, issue domain.Issue, senderName string) (*domain.EmailDraft, error)
	DraftBatch(ctx context.Context, inv *domain.Invoice, senderName string) (*domain.EmailDraft, error)
}
