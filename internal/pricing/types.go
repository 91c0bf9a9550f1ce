// Package pricing composes a customer-facing rate and margin breakdown
// from the mid-market rate, customer-segment base margin, amount-tier
// adjustment, currency-category factor, negotiated discount, and any
// applicable MARGIN_ADJUSTMENT rules (spec §4.3).
package pricing

import (
	"time"

	"github.com/ajitpratap0/fxengine/internal/reference"
)

// RateType flags whether a quote's rate reflects a substituted default
// (spec §7 propagation policy: "mark the output rate_type: INDICATIVE
// if any substitution affected the rate").
type RateType string

const (
	RateFirm       RateType = "FIRM"
	RateIndicative RateType = "INDICATIVE"
)

// MarginBreakdown itemises the components that sum (after clamp and
// rule overrides) to Quote.MarginBps.
type MarginBreakdown struct {
	SegmentBase        float64 `json:"segment_base"`
	TierAdjustment     float64 `json:"tier_adjustment"`
	CurrencyFactor     float64 `json:"currency_factor"`
	NegotiatedDiscount float64 `json:"negotiated_discount"`
	RuleAdditional     float64 `json:"rule_additional,omitempty"`
}

// Quote is the firm or indicative customer-facing rate (spec §3).
// Quotes are immutable after issuance.
type Quote struct {
	QuoteID          string
	Source           string
	Target           string
	Amount           float64
	Direction        reference.Side
	MidRate          float64
	CustomerRate     float64
	TargetAmount     float64
	MarginBps        float64
	MarginBreakdown  MarginBreakdown
	Segment          string
	AmountTier       string
	CurrencyCategory reference.CurrencyCategoryName
	ValidUntil       time.Time
	RateType         RateType
}

// Request is the input to Engine.Quote (spec §4.3 "Input").
type Request struct {
	Source     string
	Target     string
	Amount     float64
	CustomerID string
	Segment    string
	Direction  reference.Side
	Now        time.Time
}

// NegotiatedDiscounts resolves a customer's negotiated discount in bps.
// A deployment backs this with whatever store holds customer
// commercial terms; the zero value (no entries) means no customer has
// a negotiated discount.
type NegotiatedDiscounts interface {
	DiscountBps(customerID string) float64
}

// StaticNegotiatedDiscounts is a fixed customerID->bps map, suitable
// for tests and simple deployments.
type StaticNegotiatedDiscounts map[string]float64

func (d StaticNegotiatedDiscounts) DiscountBps(customerID string) float64 {
	return d[customerID]
}
