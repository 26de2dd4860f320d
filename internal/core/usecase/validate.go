package usecase

import (
	"fmt"
	"math"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

const (
	standardGSTRate = 0.18
	// Tax mismatch tolerance is 2% of the subtotal; totals get a flat
	// one-rupee tolerance.
	taxTolerGSTRatio = 0.02
	totalTolerance   = 1.0
)

// ValidateInvoice inspects a built record and returns its issue list.
// The rule order is fixed because the UI displays issues in emission order.
// Pure: the same record always yields the same list.
func ValidateInvoice(inv *domain.Invoice) []domain.Issue {
	var issues []domain.Issue

	if inv.VendorGSTIN == "" {
		issues = append(issues, domain.Issue{
			Field:           "vendor_gstin",
			Kind:            "missing_field",
			Message:         "Vendor GSTIN is missing from the invoice",
			Severity:        domain.SeverityError,
			SuggestedAction: "Request vendor to provide GSTIN",
		})
	} else if !domain.ValidGSTIN(inv.VendorGSTIN) {
		issues = append(issues, domain.Issue{
			Field:           "vendor_gstin",
			Kind:            "invalid_format",
			Message:         fmt.Sprintf("Vendor GSTIN %q has invalid format", inv.VendorGSTIN),
			Severity:        domain.SeverityError,
			SuggestedAction: "Verify GSTIN format with vendor",
		})
	}

	if inv.Subtotal > 0 && inv.TotalTax > 0 {
		expectedTax := inv.Subtotal * standardGSTRate
		tolerance := inv.Subtotal * taxTolerGSTRatio
		if math.Abs(inv.TotalTax-expectedTax) > tolerance {
			issues = append(issues, domain.Issue{
				Field:           "total_tax",
				Kind:            "calculation_mismatch",
				Message:         fmt.Sprintf("Tax amount %.2f doesn't match expected 18%% (%.2f)", inv.TotalTax, expectedTax),
				Severity:        domain.SeverityWarning,
				SuggestedAction: "Verify tax rate and calculations",
			})
		}
	}

	if inv.Subtotal > 0 && inv.TotalAmount > 0 {
		expectedTotal := inv.Subtotal + inv.TotalTax
		if math.Abs(inv.TotalAmount-expectedTotal) > totalTolerance {
			issues = append(issues, domain.Issue{
				Field:           "total_amount",
				Kind:            "calculation_mismatch",
				Message:         fmt.Sprintf("Total %.2f doesn't match subtotal + tax (%.2f)", inv.TotalAmount, expectedTotal),
				Severity:        domain.SeverityWarning,
				SuggestedAction: "Verify invoice totals",
			})
		}
	}

	if inv.InvoiceNumber == "" || inv.InvoiceNumber == domain.UnknownInvoiceNumber {
		issues = append(issues, domain.Issue{
			Field:           "invoice_number",
			Kind:            "missing_field",
			Message:         "Invoice number could not be extracted",
			Severity:        domain.SeverityWarning,
			SuggestedAction: "Verify invoice number manually",
		})
	}

	return issues
}
