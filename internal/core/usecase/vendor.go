package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
)

const (
	topVendorLimit           = 20
	negotiationLimit         = 10
	negotiationMinSpend      = 50_000
	negotiationSilverSpend   = 100_000
	negotiationGoldSpend     = 500_000
	negotiationPlatinumSpend = 1_000_000
)

// VendorService derives per-vendor spend views from the persisted record
// set. Like the risk views, everything is recomputed on demand.
type VendorService struct {
	repo   ports.InvoiceRepository
	logger *slog.Logger
}

func NewVendorService(repo ports.InvoiceRepository, logger *slog.Logger) *VendorService {
	return &VendorService{repo: repo, logger: logger}
}

type vendorAccumulator struct {
	total      float64
	count      int
	gstin      string
	first      time.Time
	last       time.Time
	categories map[string]float64
}

// SpendAnalysis aggregates all records by vendor and reports the top 20 by
// total spend, plus concentration over the whole vendor population.
func (s *VendorService) SpendAnalysis(ctx context.Context) (*domain.VendorSpendAnalysis, error) {
	invoices, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	byVendor := make(map[string]*vendorAccumulator)
	for _, inv := range invoices {
		name := inv.VendorName
		if name == "" {
			name = "Unknown"
		}
		acc, ok := byVendor[name]
		if !ok {
			acc = &vendorAccumulator{categories: make(map[string]float64)}
			byVendor[name] = acc
		}
		acc.total += inv.TotalAmount
		acc.count++
		if acc.gstin == "" {
			acc.gstin = inv.VendorGSTIN
		}
		category := inv.ExpenseCategory
		if category == "" {
			category = domain.DefaultExpenseCategory
		}
		acc.categories[category] += inv.TotalAmount
		if !inv.InvoiceDate.IsZero() {
			if acc.first.IsZero() || inv.InvoiceDate.Before(acc.first) {
				acc.first = inv.InvoiceDate
			}
			if acc.last.IsZero() || inv.InvoiceDate.After(acc.last) {
				acc.last = inv.InvoiceDate
			}
		}
	}

	names := make([]string, 0, len(byVendor))
	var totalSpend float64
	for name, acc := range byVendor {
		names = append(names, name)
		totalSpend += acc.total
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := byVendor[names[i]], byVendor[names[j]]
		if a.total != b.total {
			return a.total > b.total
		}
		return names[i] < names[j]
	})

	top := make([]domain.VendorSpend, 0, min(len(names), topVendorLimit))
	for _, name := range names {
		if len(top) == topVendorLimit {
			break
		}
		acc := byVendor[name]
		spend := domain.VendorSpend{
			VendorName:      name,
			GSTIN:           acc.gstin,
			TotalSpend:      acc.total,
			InvoiceCount:    acc.count,
			AverageInvoice:  round2(acc.total / float64(acc.count)),
			PrimaryCategory: primaryCategory(acc.categories),
			Categories:      acc.categories,
		}
		if totalSpend > 0 {
			spend.PercentageOfTotal = round2(acc.total / totalSpend * 100)
		}
		if !acc.first.IsZero() {
			first, last := acc.first, acc.last
			spend.FirstInvoice = &first
			spend.LastInvoice = &last
		}
		top = append(top, spend)
	}

	analysis := &domain.VendorSpendAnalysis{
		TotalSpend:    totalSpend,
		TotalVendors:  len(byVendor),
		TopVendors:    top,
		Concentration: concentration(names, byVendor, totalSpend),
	}
	s.logger.Info("vendor spend analysis generated",
		"vendors", analysis.TotalVendors,
		"total_spend", analysis.TotalSpend,
	)
	return analysis, nil
}

func primaryCategory(categories map[string]float64) string {
	top := "Unknown"
	topAmount := math.Inf(-1)
	for category, amount := range categories {
		if amount > topAmount || (amount == topAmount && category < top) {
			top, topAmount = category, amount
		}
	}
	return top
}

// concentration reports the spend share of the 5 and 10 largest vendors.
// Above 70% in the top 5 the supplier base is considered high risk, above
// 50% medium.
func concentration(sortedNames []string, byVendor map[string]*vendorAccumulator, totalSpend float64) domain.VendorConcentration {
	if len(sortedNames) == 0 || totalSpend == 0 {
		return domain.VendorConcentration{}
	}

	sumTop := func(n int) float64 {
		var sum float64
		for i, name := range sortedNames {
			if i == n {
				break
			}
			sum += byVendor[name].total
		}
		return sum
	}

	top5 := sumTop(5)
	riskLevel := "low"
	switch {
	case top5/totalSpend > 0.7:
		riskLevel = "high"
	case top5/totalSpend > 0.5:
		riskLevel = "medium"
	}

	return domain.VendorConcentration{
		Top5Percentage:  round2(top5 / totalSpend * 100),
		Top10Percentage: round2(sumTop(10) / totalSpend * 100),
		RiskLevel:       riskLevel,
	}
}

// NegotiationOpportunities ranks top vendors by the savings a volume
// discount could yield. Vendors under the 50k spend floor are skipped.
func (s *VendorService) NegotiationOpportunities(ctx context.Context) ([]domain.NegotiationOpportunity, error) {
	analysis, err := s.SpendAnalysis(ctx)
	if err != nil {
		return nil, err
	}

	var opportunities []domain.NegotiationOpportunity
	for _, vendor := range analysis.TopVendors {
		if opp, ok := negotiationOpportunity(vendor); ok {
			opportunities = append(opportunities, opp)
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].PotentialSavings > opportunities[j].PotentialSavings
	})
	if len(opportunities) > negotiationLimit {
		opportunities = opportunities[:negotiationLimit]
	}
	return opportunities, nil
}

func negotiationOpportunity(vendor domain.VendorSpend) (domain.NegotiationOpportunity, bool) {
	if vendor.TotalSpend < negotiationMinSpend {
		return domain.NegotiationOpportunity{}, false
	}

	var (
		tier      string
		low, high int
	)
	switch {
	case vendor.TotalSpend >= negotiationPlatinumSpend:
		tier, low, high = "platinum", 8, 15
	case vendor.TotalSpend >= negotiationGoldSpend:
		tier, low, high = "gold", 5, 10
	case vendor.TotalSpend >= negotiationSilverSpend:
		tier, low, high = "silver", 3, 7
	default:
		tier, low, high = "bronze", 2, 5
	}

	avgDiscount := float64(low+high) / 2
	savings := round2(vendor.TotalSpend * avgDiscount / 100)

	var points []string
	if vendor.InvoiceCount >= 10 {
		points = append(points, fmt.Sprintf("Regular customer with %d orders", vendor.InvoiceCount))
	}
	if vendor.TotalSpend >= negotiationGoldSpend {
		points = append(points, fmt.Sprintf("High-value relationship (₹%.1fL annual spend)", vendor.TotalSpend/100_000))
	}
	points = append(points, fmt.Sprintf("Request %d-%d%% volume discount", low, high))
	if vendor.InvoiceCount >= 5 {
		points = append(points, "Propose quarterly payment terms for additional discount")
	}

	priority := "low"
	switch {
	case savings > 50_000:
		priority = "high"
	case savings > 20_000:
		priority = "medium"
	}

	return domain.NegotiationOpportunity{
		VendorName:        vendor.VendorName,
		TotalSpend:        vendor.TotalSpend,
		InvoiceCount:      vendor.InvoiceCount,
		Tier:              tier,
		DiscountRangeLow:  low,
		DiscountRangeHigh: high,
		PotentialSavings:  savings,
		NegotiationPoints: points,
		Priority:          priority,
	}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
