package pricing

import (
	"github.com/ajitpratap0/fxengine/internal/reference"
	"github.com/ajitpratap0/fxengine/internal/rules"
)

// foreignCurrency picks the non-USD leg of a pair for currency-category
// lookup. Both-foreign pairs (a cross) fall back to the target currency.
func foreignCurrency(source, target string) string {
	if target == "USD" {
		return source
	}
	return target
}

// composeMargin implements spec §4.3 steps 2-7: segment base, amount-tier
// adjustment, currency-category factor, and negotiated discount are
// combined and clamped to the segment's bounds; MARGIN_ADJUSTMENT rules
// (in priority order) can override any of those inputs before the clamp
// is (re)applied.
func composeMargin(
	segment reference.PricingSegment,
	tier reference.AmountTier,
	category reference.CurrencyCategory,
	negotiatedDiscountBps float64,
	matches []rules.MarginAdjustmentMatch,
) (totalBps float64, breakdown MarginBreakdown) {
	baseBps := segment.BaseMarginBps
	tierBps := tier.AdjustmentBps
	currencyBps := category.MarkupBpsBySegment[segment.ID]

	discountBps := 0.0
	if segment.NegotiatedRatesAllowed {
		discountBps = negotiatedDiscountBps
	}

	minBps := segment.MinMarginBps
	maxBps := segment.MaxMarginBps
	var additionalBps float64

	for _, m := range matches {
		a := m.Action
		if a.BaseMarginOverride != nil {
			baseBps = *a.BaseMarginOverride
		}
		if a.TierAdjustmentMultiplier != nil {
			tierBps *= *a.TierAdjustmentMultiplier
		}
		additionalBps += a.AdditionalMarginBps
		if a.MinMarginBps != nil {
			minBps = *a.MinMarginBps
		}
		if a.MaxMarginBps != nil {
			maxBps = *a.MaxMarginBps
		}
	}

	raw := baseBps + tierBps + currencyBps - discountBps + additionalBps
	total := clamp(raw, minBps, maxBps)

	breakdown = MarginBreakdown{
		SegmentBase:        baseBps,
		TierAdjustment:     tierBps,
		CurrencyFactor:     currencyBps,
		NegotiatedDiscount: discountBps,
		RuleAdditional:     additionalBps,
	}
	return total, breakdown
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
