package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/ajitpratap0/fxengine/internal/fxerrors"
	"github.com/ajitpratap0/fxengine/internal/ratesource"
	"github.com/ajitpratap0/fxengine/internal/reference"
	"github.com/ajitpratap0/fxengine/internal/rules"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRate struct {
	rate  ratesource.TreasuryRate
	stale bool
	err   error
}

type fakeFetcher struct {
	byPair map[string]fakeRate
	calls  []string
}

func (f *fakeFetcher) FetchRate(_ context.Context, pair string) (ratesource.TreasuryRate, bool, error) {
	f.calls = append(f.calls, pair)
	r, ok := f.byPair[pair]
	if !ok {
		return ratesource.TreasuryRate{}, false, &fxerrors.RateUnavailableError{Pair: pair}
	}
	return r.rate, r.stale, r.err
}

func testRegistry(t *testing.T) *reference.Registry {
	t.Helper()
	r, err := reference.NewRegistry(reference.Paths{
		PricingSegments:    "../reference/testdata/pricing_segments.json",
		AmountTiers:        "../reference/testdata/amount_tiers.json",
		CurrencyCategories: "../reference/testdata/currency_categories.json",
	})
	require.NoError(t, err)
	return r
}

func testRuleEngine(t *testing.T) *rules.Engine {
	t.Helper()
	e, err := rules.NewEngine("", "../rules/testdata/margin_adjustment.json", zerolog.Nop())
	require.NoError(t, err)
	return e
}

func mustRate(pair string, mid float64) ratesource.TreasuryRate {
	return ratesource.TreasuryRate{
		Pair:       pair,
		Bid:        mid * 0.999,
		Ask:        mid * 1.001,
		Mid:        mid,
		Position:   ratesource.PositionNeutral,
		ValidUntil: time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC),
	}
}

func TestQuote_DirectPair_InstitutionalLargeAmount(t *testing.T) {
	fetcher := &fakeFetcher{byPair: map[string]fakeRate{
		"USDINR": {rate: mustRate("USDINR", 83.0)},
	}}
	e := NewEngine(fetcher, testRegistry(t), testRuleEngine(t), nil, 0)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q, err := e.Quote(context.Background(), Request{
		Source: "USD", Target: "INR", Amount: 2_000_000,
		Segment: "INSTITUTIONAL", Direction: reference.SideSell, Now: now,
	})
	require.NoError(t, err)

	// base=15, tier=-40*0.5(MA-001 multiplier)=-20, currency=25, additional=-5 -> raw=15, clamp[2,80]
	assert.InDelta(t, 15, q.MarginBps, 0.0001)
	assert.Equal(t, float64(15), q.MarginBreakdown.SegmentBase)
	assert.InDelta(t, -20, q.MarginBreakdown.TierAdjustment, 0.0001)
	assert.Equal(t, float64(25), q.MarginBreakdown.CurrencyFactor)
	assert.Equal(t, float64(-5), q.MarginBreakdown.RuleAdditional)

	wantRate := 83.0 * (1 - 15.0/10000)
	assert.InDelta(t, wantRate, q.CustomerRate, 0.0001)
	assert.InDelta(t, 2_000_000*wantRate, q.TargetAmount, 0.01)
	assert.Equal(t, RateFirm, q.RateType)
	assert.Equal(t, "TIER_6", q.AmountTier)
	assert.Equal(t, reference.CategoryRestricted, q.CurrencyCategory)
	assert.NotEmpty(t, q.QuoteID)
}

func TestQuote_OutsideHoursSurcharge(t *testing.T) {
	fetcher := &fakeFetcher{byPair: map[string]fakeRate{
		"USDINR": {rate: mustRate("USDINR", 83.0)},
	}}
	e := NewEngine(fetcher, testRegistry(t), testRuleEngine(t), nil, 0)

	now := time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)
	q, err := e.Quote(context.Background(), Request{
		Source: "USD", Target: "INR", Amount: 50_000,
		Segment: "CORPORATE", Direction: reference.SideBuy, Now: now,
	})
	require.NoError(t, err)

	// base=40, tier(TIER_3)=0, currency=100, additional=+10(MA-002) -> raw=150, clamp[10,200]
	assert.InDelta(t, 150, q.MarginBps, 0.0001)
	assert.Equal(t, float64(10), q.MarginBreakdown.RuleAdditional)
	assert.Equal(t, "TIER_3", q.AmountTier)
}

func TestQuote_NegotiatedDiscountAppliedWhenSegmentAllows(t *testing.T) {
	fetcher := &fakeFetcher{byPair: map[string]fakeRate{
		"USDINR": {rate: mustRate("USDINR", 83.0)},
	}}
	discounts := StaticNegotiatedDiscounts{"cust-1": 25}
	e := NewEngine(fetcher, testRegistry(t), testRuleEngine(t), discounts, 0)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q, err := e.Quote(context.Background(), Request{
		Source: "USD", Target: "INR", Amount: 50_000, CustomerID: "cust-1",
		Segment: "CORPORATE", Direction: reference.SideSell, Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(25), q.MarginBreakdown.NegotiatedDiscount)
}

func TestQuote_RetailSegmentIgnoresNegotiatedDiscount(t *testing.T) {
	fetcher := &fakeFetcher{byPair: map[string]fakeRate{
		"USDINR": {rate: mustRate("USDINR", 83.0)},
	}}
	discounts := StaticNegotiatedDiscounts{"cust-1": 25}
	e := NewEngine(fetcher, testRegistry(t), testRuleEngine(t), discounts, 0)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q, err := e.Quote(context.Background(), Request{
		Source: "USD", Target: "INR", Amount: 5_000, CustomerID: "cust-1",
		Segment: "RETAIL", Direction: reference.SideSell, Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(0), q.MarginBreakdown.NegotiatedDiscount)
}

func TestQuote_FallsBackToInversePair(t *testing.T) {
	fetcher := &fakeFetcher{byPair: map[string]fakeRate{
		"INRUSD": {rate: mustRate("INRUSD", 1.0/83.0)},
	}}
	e := NewEngine(fetcher, testRegistry(t), testRuleEngine(t), nil, 0)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q, err := e.Quote(context.Background(), Request{
		Source: "USD", Target: "INR", Amount: 50_000,
		Segment: "CORPORATE", Direction: reference.SideSell, Now: now,
	})
	require.NoError(t, err)
	assert.InDelta(t, 83.0, q.MidRate, 0.01)
}

func TestQuote_FallsBackToCrossRateViaUSD(t *testing.T) {
	fetcher := &fakeFetcher{byPair: map[string]fakeRate{
		"EURUSD": {rate: mustRate("EURUSD", 1.08)},
		"USDINR": {rate: mustRate("USDINR", 83.0)},
	}}
	e := NewEngine(fetcher, testRegistry(t), testRuleEngine(t), nil, 0)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q, err := e.Quote(context.Background(), Request{
		Source: "EUR", Target: "INR", Amount: 50_000,
		Segment: "CORPORATE", Direction: reference.SideSell, Now: now,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.08*83.0, q.MidRate, 0.01)
}

func TestQuote_NoRateAvailable(t *testing.T) {
	fetcher := &fakeFetcher{byPair: map[string]fakeRate{}}
	e := NewEngine(fetcher, testRegistry(t), testRuleEngine(t), nil, 0)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	_, err := e.Quote(context.Background(), Request{
		Source: "EUR", Target: "INR", Amount: 50_000,
		Segment: "CORPORATE", Direction: reference.SideSell, Now: now,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fxerrors.ErrRateUnavailable)
}

func TestQuote_StaleRateMarksIndicative(t *testing.T) {
	fetcher := &fakeFetcher{byPair: map[string]fakeRate{
		"USDINR": {rate: mustRate("USDINR", 83.0), stale: true},
	}}
	e := NewEngine(fetcher, testRegistry(t), testRuleEngine(t), nil, 0)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q, err := e.Quote(context.Background(), Request{
		Source: "USD", Target: "INR", Amount: 50_000,
		Segment: "CORPORATE", Direction: reference.SideSell, Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, RateIndicative, q.RateType)
}

func TestQuote_ValidUntilBoundedByValidFor(t *testing.T) {
	rate := mustRate("USDINR", 83.0) // ValidUntil is 13:00
	fetcher := &fakeFetcher{byPair: map[string]fakeRate{"USDINR": {rate: rate}}}
	e := NewEngine(fetcher, testRegistry(t), testRuleEngine(t), nil, 5*time.Minute)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q, err := e.Quote(context.Background(), Request{
		Source: "USD", Target: "INR", Amount: 50_000,
		Segment: "CORPORATE", Direction: reference.SideSell, Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), q.ValidUntil)
}

func TestQuote_RejectsNonPositiveAmount(t *testing.T) {
	e := NewEngine(&fakeFetcher{byPair: map[string]fakeRate{}}, testRegistry(t), testRuleEngine(t), nil, 0)
	_, err := e.Quote(context.Background(), Request{Source: "USD", Target: "INR", Amount: 0, Segment: "RETAIL", Now: time.Now()})
	require.Error(t, err)
	var ve *fxerrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestQuote_RejectsUnknownSegment(t *testing.T) {
	e := NewEngine(&fakeFetcher{byPair: map[string]fakeRate{
		"USDINR": {rate: mustRate("USDINR", 83.0)},
	}}, testRegistry(t), testRuleEngine(t), nil, 0)
	_, err := e.Quote(context.Background(), Request{
		Source: "USD", Target: "INR", Amount: 1000, Segment: "NOPE", Now: time.Now(),
	})
	require.Error(t, err)
	var ve *fxerrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}
