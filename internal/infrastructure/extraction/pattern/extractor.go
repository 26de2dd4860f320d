// Package pattern implements the regex-based extraction fallback. It never
// fails: fields it cannot find stay at their zero value and the record
// builder fills in defaults downstream.
package pattern

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

var (
	gstinRe = regexp.MustCompile(`\d{2}[A-Z]{5}\d{4}[A-Z][A-Z\d]Z[A-Z\d]`)

	invoiceNumberRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)invoice\s*(?:no|number|#)?[:\s]*([A-Z0-9\-/]+)`),
		regexp.MustCompile(`(?i)inv[:\s]*([A-Z0-9\-/]+)`),
		regexp.MustCompile(`(?i)bill\s*(?:no|number)?[:\s]*([A-Z0-9\-/]+)`),
	}

	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
		regexp.MustCompile(`\d{2}-\d{2}-\d{4}`),
		regexp.MustCompile(`(?i)\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{4}`),
	}

	vendorRes = []*regexp.Regexp{
		regexp.MustCompile(`(?im)(?:from|seller|vendor)[:\s]+([A-Za-z\s]+(?:pvt\.?\s*ltd\.?|limited|inc\.?|llp|corp\.?))`),
		regexp.MustCompile(`(?im)^([A-Za-z\s]+(?:pvt\.?\s*ltd\.?|limited|inc\.?|llp|corp\.?))`),
	}
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, rawText string) (domain.FieldMap, error) {
	return domain.FieldMap{
		InvoiceNumber: extractInvoiceNumber(rawText),
		InvoiceDate:   extractDate(rawText, []string{"invoice date", "date:", "dated"}),
		DueDate:       extractDate(rawText, []string{"due date", "payment due"}),
		VendorName:    extractVendorName(rawText),
		VendorGSTIN:   gstinRe.FindString(rawText),
		Subtotal:      extractAmount(rawText, []string{"subtotal", "sub total", "sub-total"}),
		TotalTax:      extractAmount(rawText, []string{"total tax", "tax total", "gst"}),
		TotalAmount:   extractAmount(rawText, []string{"grand total", "total amount", "total:", "amount due"}),
		CGSTAmount:    extractAmount(rawText, []string{"cgst"}),
		SGSTAmount:    extractAmount(rawText, []string{"sgst"}),
		IGSTAmount:    extractAmount(rawText, []string{"igst"}),
	}, nil
}

func extractInvoiceNumber(text string) string {
	for _, re := range invoiceNumberRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return domain.UnknownInvoiceNumber
}

// extractDate looks for dates in a short window after each keyword, so
// unanchored dates elsewhere in the document do not masquerade as the
// invoice or due date.
func extractDate(text string, keywords []string) string {
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		idx := strings.Index(lower, keyword)
		if idx < 0 {
			continue
		}
		window := text[idx+len(keyword):]
		window = strings.TrimLeft(window, ": \t")
		if len(window) > 30 {
			window = window[:30]
		}
		for _, re := range dateRes {
			if m := re.FindString(window); m != "" {
				return normalizeDate(m)
			}
		}
	}
	return ""
}

func normalizeDate(raw string) string {
	formats := []string{"2006-01-02", "02/01/2006", "02-01-2006", "2 Jan 2006", "2 January 2006"}
	for _, f := range formats {
		if t, err := time.Parse(f, strings.TrimSpace(raw)); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

func extractVendorName(text string) string {
	for _, re := range vendorRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func extractAmount(text string, keywords []string) float64 {
	for _, keyword := range keywords {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyword) + `[:\s]*(?:rs\.?|₹|inr)?\s*([\d,]+(?:\.\d{2})?)`)
		if m := re.FindStringSubmatch(text); m != nil {
			raw := strings.ReplaceAll(m[1], ",", "")
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				return v
			}
		}
	}
	return 0
}
