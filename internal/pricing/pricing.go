// Package pricing computes reservation and package prices. Every function is
// pure and stateless; all money math stays in decimals with two fractional
// digits, rounded half-up wherever a percentage is applied.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Stay-length multipliers for lodging, matched longest tier first.
var lodgingTiers = []struct {
	minNights  int
	multiplier decimal.Decimal
}{
	{14, decimal.RequireFromString("0.80")},
	{7, decimal.RequireFromString("0.85")},
	{4, decimal.RequireFromString("0.90")},
}

var (
	serviceBulkThreshold  = 4
	serviceBulkMultiplier = decimal.RequireFromString("0.95")

	hundred = decimal.NewFromInt(100)
)

// SeasonMultiplier is the hook for seasonal lodging pricing. It is fixed at
// 1.00 until seasonal calendars exist.
func SeasonMultiplier() decimal.Decimal {
	return decimal.NewFromInt(1)
}

// LodgingPrice returns nights x unitPrice x season, with the length-of-stay
// multiplier applied on top.
func LodgingPrice(unitPrice decimal.Decimal, nights int) decimal.Decimal {
	if nights <= 0 {
		return decimal.Zero.Round(2)
	}
	price := unitPrice.
		Mul(decimal.NewFromInt(int64(nights))).
		Mul(SeasonMultiplier())
	for _, tier := range lodgingTiers {
		if nights >= tier.minNights {
			price = price.Mul(tier.multiplier)
			break
		}
	}
	return price.Round(2)
}

// ServicePrice returns blocks x unitPricePerBlock, reduced 5% from four
// blocks onward.
func ServicePrice(unitPricePerBlock decimal.Decimal, blocks int) decimal.Decimal {
	if blocks <= 0 {
		return decimal.Zero.Round(2)
	}
	price := unitPricePerBlock.Mul(decimal.NewFromInt(int64(blocks)))
	if blocks >= serviceBulkThreshold {
		price = price.Mul(serviceBulkMultiplier)
	}
	return price.Round(2)
}

// ItemLine is one requested equipment line.
type ItemLine struct {
	Qty       int
	UnitPrice decimal.Decimal
}

// ItemsPrice sums qty x unit price over the lines. Items without a configured
// reservation price carry a zero unit price and contribute nothing.
func ItemsPrice(lines []ItemLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	return total.Round(2)
}

// PackageDiscountPercent returns the discount percentage for a package:
// base 10, raised to 12 with three member services and 15 with four or more,
// plus an additive 5 when the stay spans at least seven days.
func PackageDiscountPercent(serviceCount, stayDays int) decimal.Decimal {
	pct := decimal.NewFromInt(10)
	switch {
	case serviceCount >= 4:
		pct = decimal.NewFromInt(15)
	case serviceCount >= 3:
		pct = decimal.NewFromInt(12)
	}
	if stayDays >= 7 {
		pct = pct.Add(decimal.NewFromInt(5))
	}
	return pct
}

// PackageDiscount converts the percentage into an amount against the summed
// member totals, rounded half-up to two places.
func PackageDiscount(total decimal.Decimal, serviceCount, stayDays int) decimal.Decimal {
	pct := PackageDiscountPercent(serviceCount, stayDays)
	return total.Mul(pct).Div(hundred).Round(2)
}

// PackageFinal returns total minus the computed discount.
func PackageFinal(total decimal.Decimal, serviceCount, stayDays int) decimal.Decimal {
	return total.Sub(PackageDiscount(total, serviceCount, stayDays)).Round(2)
}
