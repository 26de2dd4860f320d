package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeInvoiceRepo struct {
	invoices map[string]*domain.Invoice
	saveErr  error
	saves    int
}

func newFakeInvoiceRepo(invoices ...domain.Invoice) *fakeInvoiceRepo {
	repo := &fakeInvoiceRepo{invoices: make(map[string]*domain.Invoice)}
	for i := range invoices {
		inv := invoices[i]
		repo.invoices[inv.ID] = &inv
	}
	return repo
}

func (r *fakeInvoiceRepo) Save(_ context.Context, inv *domain.Invoice) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*domain.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", fmt.Errorf("id %s", id))
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, limit, offset int) ([]domain.Invoice, error) {
	all, _ := r.ListAll(context.Background())
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeInvoiceRepo) ListAll(_ context.Context) ([]domain.Invoice, error) {
	out := make([]domain.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ListByStatus(_ context.Context, status domain.InvoiceStatus) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for _, inv := range r.invoices {
		if inv.Status == status {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) SearchByVendor(_ context.Context, sub string) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for _, inv := range r.invoices {
		if strings.Contains(strings.ToLower(inv.VendorName), strings.ToLower(sub)) ||
			strings.Contains(strings.ToLower(inv.BuyerName), strings.ToLower(sub)) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) UpdateStatus(_ context.Context, id string, status domain.InvoiceStatus, processedAt *time.Time) error {
	inv, ok := r.invoices[id]
	if !ok {
		return domain.WrapError(domain.ErrInvoiceNotFound, "update status", fmt.Errorf("id %s", id))
	}
	inv.Status = status
	if processedAt != nil {
		inv.ProcessedAt = processedAt
	}
	return nil
}

type fakeDraftRepo struct {
	drafts    []domain.EmailDraft
	createErr error
}

func (r *fakeDraftRepo) Create(_ context.Context, draft *domain.EmailDraft) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.drafts = append(r.drafts, *draft)
	return nil
}

func (r *fakeDraftRepo) ListByInvoice(_ context.Context, invoiceID string) ([]domain.EmailDraft, error) {
	var out []domain.EmailDraft
	for _, d := range r.drafts {
		if d.InvoiceID == invoiceID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDraftRepo) MarkSent(_ context.Context, id string, sentAt time.Time) error {
	for i := range r.drafts {
		if r.drafts[i].ID == id {
			r.drafts[i].Status = domain.DraftSent
			r.drafts[i].SentAt = &sentAt
			return nil
		}
	}
	return fmt.Errorf("draft not found: %s", id)
}

type fakeStorage struct {
	files map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string][]byte)}
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.files[key] = content
	return nil
}

func (s *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("no stored file: %s", key)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

type fakeTextExtractor struct {
	text string
	err  error
}

func (e *fakeTextExtractor) ExtractFile(_ context.Context, _ string) (string, error) {
	return e.text, e.err
}

func (e *fakeTextExtractor) ExtractBytes(_ context.Context, content []byte, _ string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	if e.text != "" {
		return e.text, nil
	}
	return string(content), nil
}

type fakeDrafter struct {
	err        error
	calls      int
	lastSender string
}

func (d *fakeDrafter) DraftForIssue(_ context.Context, inv *domain.Invoice, issue domain.Issue, senderName string) (*domain.EmailDraft, error) {
	return d.DraftBatch(context.Background(), inv, senderName)
}

func (d *fakeDrafter) DraftBatch(_ context.Context, inv *domain.Invoice, senderName string) (*domain.EmailDraft, error) {
	d.lastSender = senderName
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return &domain.EmailDraft{
		ID:         fmt.Sprintf("draft-%d", d.calls),
		InvoiceID:  inv.ID,
		VendorName: inv.VendorName,
		Subject:    "Invoice Correction Required",
		Body:       "please fix",
		Status:     domain.DraftPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

type fakeQueue struct {
	published []string
	err       error
}

func (q *fakeQueue) PublishInvoiceIngested(_ context.Context, invoiceID string) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, invoiceID)
	return nil
}

func (q *fakeQueue) SubscribeInvoiceIngested(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

type fakeCompletion struct {
	available bool
	classify  string
	err       error
}

func (c *fakeCompletion) Available() bool { return c.available }

func (c *fakeCompletion) Complete(_ context.Context, _, _ string, _ float32, _ int) (string, error) {
	return "", c.err
}

func (c *fakeCompletion) ExtractJSON(_ context.Context, _, _, _ string) ([]byte, error) {
	return nil, c.err
}

func (c *fakeCompletion) Classify(_ context.Context, _ string, _ []string, _ string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.classify, nil
}
