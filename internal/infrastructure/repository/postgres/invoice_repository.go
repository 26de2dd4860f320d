package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *InvoiceRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	invoice_number TEXT NOT NULL,
	invoice_date TIMESTAMPTZ NOT NULL,
	due_date TIMESTAMPTZ,
	vendor_name TEXT NOT NULL,
	vendor_gstin TEXT,
	vendor_address TEXT,
	vendor_email TEXT,
	buyer_name TEXT,
	buyer_gstin TEXT,
	items JSONB NOT NULL DEFAULT '[]'::jsonb,
	subtotal DOUBLE PRECISION NOT NULL DEFAULT 0,
	tax_breakdown JSONB NOT NULL DEFAULT '{}'::jsonb,
	total_tax DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'INR',
	status TEXT NOT NULL,
	issues JSONB NOT NULL DEFAULT '[]'::jsonb,
	expense_category TEXT,
	raw_text TEXT,
	source_ref TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);
CREATE INDEX IF NOT EXISTS idx_invoices_vendor_name ON invoices(vendor_name);
CREATE INDEX IF NOT EXISTS idx_invoices_created_at ON invoices(created_at DESC);

CREATE TABLE IF NOT EXISTS email_drafts (
	id TEXT PRIMARY KEY,
	invoice_id TEXT NOT NULL REFERENCES invoices(id),
	vendor_name TEXT NOT NULL,
	subject TEXT NOT NULL,
	body TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	sent_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_email_drafts_invoice_id ON email_drafts(invoice_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const invoiceColumns = `id, invoice_number, invoice_date, due_date, vendor_name, vendor_gstin, vendor_address, vendor_email, buyer_name, buyer_gstin, items, subtotal, tax_breakdown, total_tax, total_amount, currency, status, issues, expense_category, raw_text, source_ref, created_at, processed_at`

// Save upserts by ID: ingestion inserts the pending row, the pipeline
// overwrites it with the finished record.
func (r *InvoiceRepository) Save(ctx context.Context, inv *domain.Invoice) error {
	itemsJSON, err := json.Marshal(orEmptyItems(inv.Items))
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	taxJSON, err := json.Marshal(inv.Tax)
	if err != nil {
		return fmt.Errorf("marshal tax breakdown: %w", err)
	}
	issuesJSON, err := json.Marshal(orEmptyIssues(inv.Issues))
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO invoices (`+invoiceColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
ON CONFLICT (id) DO UPDATE SET
	invoice_number = EXCLUDED.invoice_number,
	invoice_date = EXCLUDED.invoice_date,
	due_date = EXCLUDED.due_date,
	vendor_name = EXCLUDED.vendor_name,
	vendor_gstin = EXCLUDED.vendor_gstin,
	vendor_address = EXCLUDED.vendor_address,
	vendor_email = EXCLUDED.vendor_email,
	buyer_name = EXCLUDED.buyer_name,
	buyer_gstin = EXCLUDED.buyer_gstin,
	items = EXCLUDED.items,
	subtotal = EXCLUDED.subtotal,
	tax_breakdown = EXCLUDED.tax_breakdown,
	total_tax = EXCLUDED.total_tax,
	total_amount = EXCLUDED.total_amount,
	currency = EXCLUDED.currency,
	status = EXCLUDED.status,
	issues = EXCLUDED.issues,
	expense_category = EXCLUDED.expense_category,
	raw_text = EXCLUDED.raw_text,
	source_ref = EXCLUDED.source_ref,
	processed_at = EXCLUDED.processed_at
`,
		inv.ID, inv.InvoiceNumber, inv.InvoiceDate, inv.DueDate, inv.VendorName, inv.VendorGSTIN,
		inv.VendorAddress, inv.VendorEmail, inv.BuyerName, inv.BuyerGSTIN, itemsJSON, inv.Subtotal,
		taxJSON, inv.TotalTax, inv.TotalAmount, inv.Currency, string(inv.Status), issuesJSON,
		inv.ExpenseCategory, inv.RawText, inv.SourceRef, inv.CreatedAt, inv.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE id = $1
`, id)

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepository) List(ctx context.Context, limit, offset int) ([]domain.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func (r *InvoiceRepository) ListAll(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list all invoices: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func (r *InvoiceRepository) ListByStatus(ctx context.Context, status domain.InvoiceStatus) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE status = $1
ORDER BY created_at DESC
`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list invoices by status: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func (r *InvoiceRepository) SearchByVendor(ctx context.Context, nameSubstring string) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE vendor_name ILIKE '%' || $1 || '%' OR buyer_name ILIKE '%' || $1 || '%'
ORDER BY created_at DESC
`, nameSubstring)
	if err != nil {
		return nil, fmt.Errorf("search invoices by vendor: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus, processedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE invoices
SET status = $2, processed_at = COALESCE($3, processed_at)
WHERE id = $1
`, id, string(status), processedAt)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return domain.WrapError(domain.ErrInvoiceNotFound, "update status", fmt.Errorf("id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	var itemsRaw, taxRaw, issuesRaw []byte
	var status string
	var vendorGSTIN, vendorAddress, vendorEmail, buyerName, buyerGSTIN, expenseCategory, rawText, sourceRef sql.NullString

	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.DueDate, &inv.VendorName, &vendorGSTIN,
		&vendorAddress, &vendorEmail, &buyerName, &buyerGSTIN, &itemsRaw, &inv.Subtotal,
		&taxRaw, &inv.TotalTax, &inv.TotalAmount, &inv.Currency, &status, &issuesRaw,
		&expenseCategory, &rawText, &sourceRef, &inv.CreatedAt, &inv.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsRaw, &inv.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(taxRaw, &inv.Tax); err != nil {
		return nil, fmt.Errorf("unmarshal tax breakdown: %w", err)
	}
	if err := json.Unmarshal(issuesRaw, &inv.Issues); err != nil {
		return nil, fmt.Errorf("unmarshal issues: %w", err)
	}

	inv.Status = domain.InvoiceStatus(status)
	inv.VendorGSTIN = vendorGSTIN.String
	inv.VendorAddress = vendorAddress.String
	inv.VendorEmail = vendorEmail.String
	inv.BuyerName = buyerName.String
	inv.BuyerGSTIN = buyerGSTIN.String
	inv.ExpenseCategory = expenseCategory.String
	inv.RawText = rawText.String
	inv.SourceRef = sourceRef.String
	return &inv, nil
}

func collectInvoices(rows *sql.Rows) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice row: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice rows: %w", err)
	}
	return out, nil
}

func orEmptyItems(items []domain.LineItem) []domain.LineItem {
	if items == nil {
		return []domain.LineItem{}
	}
	return items
}

func orEmptyIssues(issues []domain.Issue) []domain.Issue {
	if issues == nil {
		return []domain.Issue{}
	}
	return issues
}
