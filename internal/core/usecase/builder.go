package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

// Accepted calendar forms for extracted date strings, in match order.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2 Jan 2006",
	"2 January 2006",
}

const defaultItemTaxRate = 18.0

// BuildRecord turns a raw field map into a typed invoice. It never fails:
// unparsable dates fall back per field, line items whose numeric fields
// cannot be coerced are skipped, absent data becomes zero or neutral.
// The second return value carries human-readable notes about anything
// that was skipped or defaulted, for the run's audit trail.
func BuildRecord(fields domain.FieldMap, rawText, sourceRef string, now time.Time) (*domain.Invoice, []string) {
	var notes []string

	issueDate, ok := parseDate(fields.InvoiceDate)
	if !ok {
		if fields.InvoiceDate != "" {
			notes = append(notes, fmt.Sprintf("unparsable invoice date %q, defaulting to today", fields.InvoiceDate))
		}
		issueDate = now.Truncate(24 * time.Hour)
	}

	var dueDate *time.Time
	if d, ok := parseDate(fields.DueDate); ok {
		dueDate = &d
	} else if fields.DueDate != "" {
		notes = append(notes, fmt.Sprintf("unparsable due date %q, dropped", fields.DueDate))
	}

	items := make([]domain.LineItem, 0, len(fields.Items))
	for i, raw := range fields.Items {
		item, err := buildItem(raw)
		if err != nil {
			notes = append(notes, fmt.Sprintf("skipped line item %d: %v", i+1, err))
			continue
		}
		items = append(items, item)
	}

	number := fields.InvoiceNumber
	if number == "" {
		number = domain.UnknownInvoiceNumber
	}
	vendor := fields.VendorName
	if vendor == "" {
		vendor = "Unknown Vendor"
	}
	currency := fields.Currency
	if currency == "" {
		currency = "INR"
	}

	return &domain.Invoice{
		InvoiceNumber: number,
		InvoiceDate:   issueDate,
		DueDate:       dueDate,
		VendorName:    vendor,
		VendorGSTIN:   fields.VendorGSTIN,
		VendorAddress: fields.VendorAddress,
		VendorEmail:   fields.VendorEmail,
		BuyerName:     fields.BuyerName,
		BuyerGSTIN:    fields.BuyerGSTIN,
		Items:         items,
		Subtotal:      fields.Subtotal,
		Tax: domain.TaxBreakdown{
			CGSTAmount: fields.CGSTAmount,
			SGSTAmount: fields.SGSTAmount,
			IGSTAmount: fields.IGSTAmount,
			CessAmount: fields.CessAmount,
			TotalTax:   fields.TotalTax,
		},
		TotalTax:    fields.TotalTax,
		TotalAmount: fields.TotalAmount,
		Currency:    currency,
		Status:      domain.StatusProcessing,
		Issues:      []domain.Issue{},
		RawText:     rawText,
		SourceRef:   sourceRef,
		CreatedAt:   now,
	}, notes
}

func buildItem(raw map[string]any) (domain.LineItem, error) {
	quantity, err := coerceFloat(raw["quantity"], 1)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("quantity: %w", err)
	}
	unitPrice, err := coerceFloat(raw["unit_price"], 0)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("unit_price: %w", err)
	}
	taxRate, err := coerceFloat(raw["tax_rate"], defaultItemTaxRate)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("tax_rate: %w", err)
	}
	taxAmount, err := coerceFloat(raw["tax_amount"], 0)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("tax_amount: %w", err)
	}
	total, err := coerceFloat(raw["total"], 0)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("total: %w", err)
	}

	description, _ := raw["description"].(string)
	if description == "" {
		description = "Unknown Item"
	}
	hsn, _ := raw["hsn_code"].(string)

	return domain.LineItem{
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		HSNCode:     hsn,
		TaxRate:     taxRate,
		TaxAmount:   taxAmount,
		Total:       total,
	}, nil
}

// coerceFloat accepts the loose numeric shapes JSON decoding produces.
// A missing value takes the field default; a present but unparsable value
// is an error so the caller can skip the whole item.
func coerceFloat(v any, def float64) (float64, error) {
	switch n := v.(type) {
	case nil:
		return def, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
