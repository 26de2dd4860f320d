package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
)

// IngestInvoiceUseCase accepts an uploaded document, stores it, creates a
// pending invoice record and hands the ID to the queue for asynchronous
// processing.
type IngestInvoiceUseCase struct {
	repo    ports.InvoiceRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	logger  *slog.Logger
	now     func() time.Time
}

func NewIngestInvoiceUseCase(
	repo ports.InvoiceRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	logger *slog.Logger,
) *IngestInvoiceUseCase {
	return &IngestInvoiceUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (uc *IngestInvoiceUseCase) Upload(ctx context.Context, filename string, body io.Reader) (*domain.Invoice, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := uc.now()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	inv := &domain.Invoice{
		ID:            id,
		InvoiceNumber: domain.UnknownInvoiceNumber,
		Status:        domain.StatusPending,
		Currency:      "INR",
		SourceRef:     storageKey,
		CreatedAt:     now,
	}

	if err := uc.repo.Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice record: %w", err)
	}

	if err := uc.queue.PublishInvoiceIngested(ctx, inv.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	uc.logger.Info("invoice uploaded",
		slog.String("invoice_id", inv.ID),
		slog.String("storage_key", storageKey),
	)
	return inv, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "invoice.bin"
	}
	return base
}
