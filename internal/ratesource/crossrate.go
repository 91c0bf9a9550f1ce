package ratesource

// ViaUSD computes the rate for base->quote when no direct pair exists,
// by composing baseUSD (base->USD) and usdQuote (USD->quote), per
// Design Notes: "compute via USD... using mids and propagate the worst
// of the two spreads." Cross-rates are never cached; callers derive
// them on demand from two (possibly cached) leg rates.
func ViaUSD(pair string, baseUSD, usdQuote TreasuryRate) TreasuryRate {
	mid := baseUSD.Mid * usdQuote.Mid

	baseSpread := spreadBps(baseUSD)
	quoteSpread := spreadBps(usdQuote)
	worstSpread := baseSpread
	if quoteSpread > worstSpread {
		worstSpread = quoteSpread
	}

	halfSpread := mid * worstSpread / 2 / 10000
	bid := mid - halfSpread
	ask := mid + halfSpread

	position := PositionNeutral
	if baseUSD.Position == usdQuote.Position {
		position = baseUSD.Position
	}

	validUntil := baseUSD.ValidUntil
	if usdQuote.ValidUntil.Before(validUntil) {
		validUntil = usdQuote.ValidUntil
	}

	return TreasuryRate{
		Pair:            pair,
		Bid:             bid,
		Ask:             ask,
		Mid:             mid,
		MinMarginBps:    maxFloat(baseUSD.MinMarginBps, usdQuote.MinMarginBps),
		TargetMarginBps: maxFloat(baseUSD.TargetMarginBps, usdQuote.TargetMarginBps),
		Position:        position,
		ValidUntil:      validUntil,
	}
}

// spreadBps returns a leg's bid/ask spread expressed in bps over mid.
func spreadBps(r TreasuryRate) float64 {
	if r.Mid == 0 {
		return 0
	}
	return (r.Ask - r.Bid) / r.Mid * 10000
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
