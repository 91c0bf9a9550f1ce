package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ajitpratap0/fxengine/internal/fxerrors"
	"github.com/ajitpratap0/fxengine/internal/ratesource"
	"github.com/ajitpratap0/fxengine/internal/reference"
	"github.com/ajitpratap0/fxengine/internal/rules"
	"github.com/google/uuid"
)

// RateFetcher is the capability pricing needs from the rate source: a
// mid/bid/ask snapshot for a pair, with a staleness flag (spec §5).
type RateFetcher interface {
	FetchRate(ctx context.Context, pair string) (ratesource.TreasuryRate, bool, error)
}

// Engine composes quotes per spec §4.3.
type Engine struct {
	rates     RateFetcher
	registry  *reference.Registry
	rules     *rules.Engine
	discounts NegotiatedDiscounts
	validFor  time.Duration
}

// NewEngine wires the collaborators a quote needs. discounts may be nil,
// in which case no customer ever receives a negotiated discount.
func NewEngine(rates RateFetcher, registry *reference.Registry, ruleEngine *rules.Engine, discounts NegotiatedDiscounts, validFor time.Duration) *Engine {
	if discounts == nil {
		discounts = StaticNegotiatedDiscounts{}
	}
	return &Engine{rates: rates, registry: registry, rules: ruleEngine, discounts: discounts, validFor: validFor}
}

// Quote computes a customer-facing rate for req (spec §4.3).
func (e *Engine) Quote(ctx context.Context, req Request) (*Quote, error) {
	if req.Amount <= 0 {
		return nil, fxerrors.NewValidationError("amount", "must be positive")
	}
	if req.Source == "" || req.Target == "" {
		return nil, fxerrors.NewValidationError("pair", "source and target currency are required")
	}

	snap := e.registry.Snapshot()

	segment, ok := snap.PricingSegments[req.Segment]
	if !ok {
		return nil, fxerrors.NewValidationError("segment", fmt.Sprintf("unknown pricing segment %q", req.Segment))
	}

	tier, ok := snap.AmountTierFor(req.Amount)
	if !ok {
		return nil, fxerrors.NewValidationError("amount", "no amount tier configured for this amount")
	}

	category, ok := snap.CategoryFor(foreignCurrency(req.Source, req.Target))
	if !ok {
		category = reference.CurrencyCategory{Name: reference.CategoryRestricted}
	}

	rate, stale, err := e.resolveMid(ctx, req.Source, req.Target)
	if err != nil {
		return nil, err
	}

	ruleCtx := rules.Context{
		"amount":           req.Amount,
		"customer_segment": req.Segment,
		"currency_pair":    req.Source + req.Target,
		"customer_id":      req.CustomerID,
		"time_of_day":      req.Now.Format("15:04"),
	}
	var matches []rules.MarginAdjustmentMatch
	if e.rules != nil {
		matches = e.rules.MatchMarginAdjustment(ruleCtx, req.Now)
	}

	totalBps, breakdown := composeMargin(segment, tier, category, e.discounts.DiscountBps(req.CustomerID), matches)

	customerRate := applyMargin(rate.Mid, totalBps, req.Direction)
	targetAmount := req.Amount * customerRate
	if req.Direction == reference.SideBuy {
		targetAmount = req.Amount / customerRate
	}

	rateType := RateFirm
	if stale {
		rateType = RateIndicative
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("pricing: generate quote id: %w", err)
	}

	validUntil := rate.ValidUntil
	if e.validFor > 0 {
		if ttlBound := req.Now.Add(e.validFor); ttlBound.Before(validUntil) || validUntil.IsZero() {
			validUntil = ttlBound
		}
	}

	return &Quote{
		QuoteID:          id.String(),
		Source:           req.Source,
		Target:           req.Target,
		Amount:           req.Amount,
		Direction:        req.Direction,
		MidRate:          rate.Mid,
		CustomerRate:     customerRate,
		TargetAmount:     targetAmount,
		MarginBps:        totalBps,
		MarginBreakdown:  breakdown,
		Segment:          segment.ID,
		AmountTier:       tier.ID,
		CurrencyCategory: category.Name,
		ValidUntil:       validUntil,
		RateType:         rateType,
	}, nil
}

// applyMargin converts a mid rate into a customer rate: SELL (customer
// sells source, buys target) marks the rate down; BUY marks it up.
func applyMargin(mid, totalBps float64, direction reference.Side) float64 {
	factor := totalBps / 10000
	if direction == reference.SideSell {
		return mid * (1 - factor)
	}
	return mid * (1 + factor)
}

// resolveMid implements spec §4.3 step 1: try the direct pair, then its
// inverse, then a cross-rate composed via USD.
func (e *Engine) resolveMid(ctx context.Context, source, target string) (ratesource.TreasuryRate, bool, error) {
	pair := ratesource.MakePair(source, target)
	if rate, stale, err := e.rates.FetchRate(ctx, pair); err == nil {
		return rate, stale, nil
	} else if !errors.Is(err, fxerrors.ErrRateUnavailable) {
		return ratesource.TreasuryRate{}, false, err
	}

	inversePair := ratesource.MakePair(target, source)
	if rate, stale, err := e.rates.FetchRate(ctx, inversePair); err == nil {
		return rate.Inverse(pair), stale, nil
	} else if !errors.Is(err, fxerrors.ErrRateUnavailable) {
		return ratesource.TreasuryRate{}, false, err
	}

	if source == "USD" || target == "USD" {
		return ratesource.TreasuryRate{}, false, &fxerrors.RateUnavailableError{Pair: pair}
	}

	baseUSD, baseStale, err := e.rates.FetchRate(ctx, ratesource.MakePair(source, "USD"))
	if err != nil {
		return ratesource.TreasuryRate{}, false, &fxerrors.RateUnavailableError{Pair: pair}
	}
	usdQuote, quoteStale, err := e.rates.FetchRate(ctx, ratesource.MakePair("USD", target))
	if err != nil {
		return ratesource.TreasuryRate{}, false, &fxerrors.RateUnavailableError{Pair: pair}
	}

	return ratesource.ViaUSD(pair, baseUSD, usdQuote), baseStale || quoteStale, nil
}
