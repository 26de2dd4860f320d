package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

type EmailDraftRepository struct {
	db *sql.DB
}

func NewEmailDraftRepository(db *sql.DB) *EmailDraftRepository {
	return &EmailDraftRepository{db: db}
}

func (r *EmailDraftRepository) Create(ctx context.Context, draft *domain.EmailDraft) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO email_drafts (id, invoice_id, vendor_name, subject, body, status, created_at, sent_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		draft.ID, draft.InvoiceID, draft.VendorName, draft.Subject, draft.Body,
		string(draft.Status), draft.CreatedAt, draft.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert email draft: %w", err)
	}
	return nil
}

func (r *EmailDraftRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]domain.EmailDraft, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, invoice_id, vendor_name, subject, body, status, created_at, sent_at
FROM email_drafts
WHERE invoice_id = $1
ORDER BY created_at DESC
`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list email drafts: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailDraft
	for rows.Next() {
		var d domain.EmailDraft
		var status string
		if err := rows.Scan(&d.ID, &d.InvoiceID, &d.VendorName, &d.Subject, &d.Body, &status, &d.CreatedAt, &d.SentAt); err != nil {
			return nil, fmt.Errorf("scan email draft row: %w", err)
		}
		d.Status = domain.EmailDraftStatus(status)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate email draft rows: %w", err)
	}
	return out, nil
}

func (r *EmailDraftRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE email_drafts
SET status = $2, sent_at = $3
WHERE id = $1
`, id, string(domain.DraftSent), sentAt)
	if err != nil {
		return fmt.Errorf("mark email draft sent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("email draft not found: %s", id)
	}
	return nil
}
