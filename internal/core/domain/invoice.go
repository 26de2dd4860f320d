package domain

import "time"

type InvoiceStatus string

const (
	StatusPending         InvoiceStatus = "pending"
	StatusProcessing      InvoiceStatus = "processing"
	StatusProcessed       InvoiceStatus = "processed"
	StatusNeedsReview     InvoiceStatus = "needs_review"
	StatusVendorContacted InvoiceStatus = "vendor_contacted"
)

type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
	SeverityInfo    IssueSeverity = "info"
)

// UnknownInvoiceNumber marks a document number the extractor could not find.
const UnknownInvoiceNumber = "UNKNOWN"

// Issue is a single validation finding. Issues are data, never errors:
// they ride on the invoice and are append-only within a validation pass.
type Issue struct {
	Field           string        `json:"field"`
	Kind            string        `json:"kind"`
	Message         string        `json:"message"`
	Severity        IssueSeverity `json:"severity"`
	SuggestedAction string        `json:"suggested_action,omitempty"`
}

type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	HSNCode     string  `json:"hsn_code,omitempty"`
	TaxRate     float64 `json:"tax_rate"`
	TaxAmount   float64 `json:"tax_amount"`
	Total       float64 `json:"total"`
}

// TaxBreakdown carries the GST components of an invoice.
type TaxBreakdown struct {
	CGSTAmount float64 `json:"cgst_amount"`
	SGSTAmount float64 `json:"sgst_amount"`
	IGSTAmount float64 `json:"igst_amount"`
	CessAmount float64 `json:"cess_amount"`
	TotalTax   float64 `json:"total_tax"`
}

// Invoice is the canonical structured record produced by the pipeline.
type Invoice struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	InvoiceDate   time.Time  `json:"invoice_date"`
	DueDate       *time.Time `json:"due_date,omitempty"`

	VendorName    string `json:"vendor_name"`
	VendorGSTIN   string `json:"vendor_gstin,omitempty"`
	VendorAddress string `json:"vendor_address,omitempty"`
	VendorEmail   string `json:"vendor_email,omitempty"`
	BuyerName     string `json:"buyer_name,omitempty"`
	BuyerGSTIN    string `json:"buyer_gstin,omitempty"`

	Items []LineItem `json:"items"`

	Subtotal    float64      `json:"subtotal"`
	Tax         TaxBreakdown `json:"tax_breakdown"`
	TotalTax    float64      `json:"total_tax"`
	TotalAmount float64      `json:"total_amount"`
	Currency    string       `json:"currency"`

	Status          InvoiceStatus `json:"status"`
	Issues          []Issue       `json:"issues"`
	ExpenseCategory string        `json:"expense_category,omitempty"`
	RawText         string        `json:"raw_text,omitempty"`
	SourceRef       string        `json:"source_ref,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// HasErrors reports whether any issue carries error severity.
func (inv *Invoice) HasErrors() bool {
	for _, is := range inv.Issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (inv *Invoice) HasWarnings() bool {
	for _, is := range inv.Issues {
		if is.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ValidGSTIN checks the fixed 15-character GSTIN shape: the first two
// characters must be digits (the state code).
func ValidGSTIN(gstin string) bool {
	if len(gstin) != 15 {
		return false
	}
	for _, r := range gstin[:2] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FieldMap is the raw extraction output shared by both extraction
// strategies. Dates stay as strings until the record builder normalizes
// them; line items stay loosely typed so malformed entries can be skipped
// rather than failing the build.
type FieldMap struct {
	InvoiceNumber string           `json:"invoice_number"`
	InvoiceDate   string           `json:"invoice_date"`
	DueDate       string           `json:"due_date"`
	VendorName    string           `json:"vendor_name"`
	VendorGSTIN   string           `json:"vendor_gstin"`
	VendorAddress string           `json:"vendor_address"`
	VendorEmail   string           `json:"vendor_email"`
	BuyerName     string           `json:"buyer_name"`
	BuyerGSTIN    string           `json:"buyer_gstin"`
	Items         []map[string]any `json:"items"`
	Subtotal      float64          `json:"subtotal"`
	CGSTAmount    float64          `json:"cgst_amount"`
	SGSTAmount    float64          `json:"sgst_amount"`
	IGSTAmount    float64          `json:"igst_amount"`
	CessAmount    float64          `json:"cess_amount"`
	TotalTax      float64          `json:"total_tax"`
	TotalAmount   float64          `json:"total_amount"`
	Currency      string           `json:"currency"`
}

// EmailDraftStatus tracks the lifecycle of a corrective communication.
type EmailDraftStatus string

const (
	DraftPending EmailDraftStatus = "draft"
	DraftSent    EmailDraftStatus = "sent"
)

// EmailDraft is a corrective communication generated for invoice issues.
type EmailDraft struct {
	ID         string           `json:"id"`
	InvoiceID  string           `json:"invoice_id"`
	VendorName string           `json:"vendor_name"`
	Subject    string           `json:"subject"`
	Body       string           `json:"body"`
	Status     EmailDraftStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	SentAt     *time.Time       `json:"sent_at,omitempty"`
}
