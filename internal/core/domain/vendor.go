package domain

import "time"

// VendorSpend is one vendor's aggregated position in the spend analysis.
type VendorSpend struct {
	VendorName        string             `json:"vendor_name"`
	GSTIN             string             `json:"gstin,omitempty"`
	TotalSpend        float64            `json:"total_spend"`
	PercentageOfTotal float64            `json:"percentage_of_total"`
	InvoiceCount      int                `json:"invoice_count"`
	AverageInvoice    float64            `json:"average_invoice"`
	FirstInvoice      *time.Time         `json:"first_invoice,omitempty"`
	LastInvoice       *time.Time         `json:"last_invoice,omitempty"`
	PrimaryCategory   string             `json:"primary_category"`
	Categories        map[string]float64 `json:"categories"`
}

// VendorConcentration measures how much of the total spend sits with the
// largest vendors.
type VendorConcentration struct {
	Top5Percentage  float64 `json:"top_5_percentage"`
	Top10Percentage float64 `json:"top_10_percentage"`
	RiskLevel       string  `json:"risk_level,omitempty"`
}

// VendorSpendAnalysis is the firm-wide vendor view.
type VendorSpendAnalysis struct {
	TotalSpend    float64             `json:"total_spend"`
	TotalVendors  int                 `json:"total_vendors"`
	TopVendors    []VendorSpend       `json:"top_vendors"`
	Concentration VendorConcentration `json:"concentration"`
}

// NegotiationOpportunity flags a vendor relationship where volume pricing
// could yield savings.
type NegotiationOpportunity struct {
	VendorName        string   `json:"vendor_name"`
	TotalSpend        float64  `json:"total_spend"`
	InvoiceCount      int      `json:"invoice_count"`
	Tier              string   `json:"tier"`
	DiscountRangeLow  int      `json:"discount_range_low"`
	DiscountRangeHigh int      `json:"discount_range_high"`
	PotentialSavings  float64  `json:"potential_savings"`
	NegotiationPoints []string `json:"negotiation_points"`
	Priority          string   `json:"priority"`
}
