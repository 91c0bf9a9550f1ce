// Package reference owns the immutable-per-reload reference tables:
// providers, customer tiers, pricing segments, amount tiers, currency
// categories, the CBDC registry, the stablecoin registry, and the
// on/off-ramp registry (spec §2, §3).
package reference

// RailType classifies a currency's settlement infrastructure.
type RailType string

const (
	RailFiat       RailType = "FIAT"
	RailCBDC       RailType = "CBDC"
	RailStablecoin RailType = "STABLECOIN"
)

// Side is the direction of a conversion request relative to the customer.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ProviderType enumerates the kinds of fiat settlement providers.
type ProviderType string

const (
	ProviderMarketData   ProviderType = "MARKET_DATA"
	ProviderInternal     ProviderType = "INTERNAL"
	ProviderCorrespondent ProviderType = "CORRESPONDENT"
	ProviderLocal        ProviderType = "LOCAL"
	ProviderFintech      ProviderType = "FINTECH"
	ProviderDealer       ProviderType = "DEALER"
)

// OperatingHours is a half-open [Open, Close) window in HH:MM, evaluated
// against a caller-supplied timestamp in the configured rules time zone.
type OperatingHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Provider is a fiat settlement correspondent, internal desk, or fintech rail.
type Provider struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Type            ProviderType   `json:"type"`
	Reliability     float64        `json:"reliability"` // [0,1]
	AvgLatencyMS    float64        `json:"avg_latency_ms"`
	SettlementHours float64        `json:"settlement_hours"`
	DailyLimit      float64        `json:"daily_limit"`
	MinAmount       float64        `json:"min_amount"`
	MarkupBps       float64        `json:"markup_bps"`
	SupportedPairs  []string       `json:"supported_pairs"` // e.g. "USDINR"
	OperatingHours  OperatingHours `json:"operating_hours"`
	STPEnabled      bool           `json:"stp_enabled"`
	IsActive        bool           `json:"is_active"`
}

// SupportsPair reports whether the provider quotes the given six-letter pair.
func (p Provider) SupportsPair(pair string) bool {
	for _, sp := range p.SupportedPairs {
		if sp == pair {
			return true
		}
	}
	return false
}

// CustomerTier defines the commercial terms attached to a customer segment.
type CustomerTier struct {
	ID                  string   `json:"id"`
	MinAnnualVolume     float64  `json:"min_annual_volume"`
	MarkupDiscountPct   float64  `json:"markup_discount_pct"`
	SpreadReductionBps  float64  `json:"spread_reduction_bps"`
	PriorityRouting     bool     `json:"priority_routing"`
	MaxTransaction      float64  `json:"max_transaction"`
	STPThreshold        float64  `json:"stp_threshold"`
	DefaultObjective    string   `json:"default_objective"`
	ProvidersAllowed    []string `json:"providers_allowed,omitempty"`
}

// PricingSegment defines the margin envelope applied by the pricing engine.
type PricingSegment struct {
	ID                     string  `json:"id"`
	BaseMarginBps          float64 `json:"base_margin_bps"`
	MinMarginBps           float64 `json:"min_margin_bps"`
	MaxMarginBps           float64 `json:"max_margin_bps"`
	VolumeDiscountEligible bool    `json:"volume_discount_eligible"`
	NegotiatedRatesAllowed bool    `json:"negotiated_rates_allowed"`
}

// AmountTier is a half-open [Min, Max) bracket over the conversion amount.
// Max == 0 means unbounded (the final tier).
type AmountTier struct {
	ID             string  `json:"id"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"` // 0 => unbounded
	AdjustmentBps  float64 `json:"adjustment_bps"`
	Description    string  `json:"description"`
}

// Contains reports whether amount falls in this tier's half-open interval.
func (t AmountTier) Contains(amount float64) bool {
	if amount < t.Min {
		return false
	}
	if t.Max == 0 {
		return true
	}
	return amount < t.Max
}

// CurrencyCategoryName is one of the four currency risk buckets.
type CurrencyCategoryName string

const (
	CategoryG10        CurrencyCategoryName = "G10"
	CategoryMinor      CurrencyCategoryName = "MINOR"
	CategoryExotic     CurrencyCategoryName = "EXOTIC"
	CategoryRestricted CurrencyCategoryName = "RESTRICTED"
)

// CurrencyCategory maps a currency to its risk bucket and carries the
// per-segment markup factors (bps) from spec §6.
type CurrencyCategory struct {
	Name            CurrencyCategoryName `json:"name"`
	MarkupBpsBySegment map[string]float64 `json:"markup_bps_by_segment"`
}

// CBDCFees holds the three fee legs a CBDC entry charges.
type CBDCFees struct {
	IssuanceBps   float64 `json:"issuance_bps"`
	RedemptionBps float64 `json:"redemption_bps"`
	TransferBps   float64 `json:"transfer_bps"`
}

// CBDCEntry describes a central-bank digital currency.
type CBDCEntry struct {
	Code                string   `json:"code"`
	Issuer              string   `json:"issuer"`
	LinkedFiat          string   `json:"linked_fiat"`
	Status              string   `json:"status"` // LIVE | PILOT | PLANNED
	SettlementSeconds   float64  `json:"settlement_seconds"`
	MBridgeParticipant  bool     `json:"mbridge_participant"`
	CrossBorderEnabled  bool     `json:"cross_border_enabled"`
	Fees                CBDCFees `json:"fees"`
	Reliability         float64  `json:"reliability"` // default 0.95 for mBridge-class if zero
}

// StablecoinNetwork is one chain a stablecoin settles on.
type StablecoinNetwork struct {
	Chain             string  `json:"chain"`
	SettlementSeconds float64 `json:"settlement_seconds"`
	FeeUSD            float64 `json:"fee_usd"`
}

// StablecoinFees holds the three fee legs a stablecoin entry charges.
type StablecoinFees struct {
	MintBps     float64 `json:"mint_bps"`
	RedeemBps   float64 `json:"redeem_bps"`
	TransferBps float64 `json:"transfer_bps"`
}

// StablecoinEntry describes a fiat-pegged stablecoin.
type StablecoinEntry struct {
	Code          string              `json:"code"`
	Issuer        string              `json:"issuer"`
	PegCurrency   string              `json:"peg_currency"`
	PegRatio      float64             `json:"peg_ratio"`
	Regulated     bool                `json:"regulated"`
	Networks      []StablecoinNetwork `json:"networks"`
	LiquidityScore float64            `json:"liquidity_score"`
	Fees          StablecoinFees      `json:"fees"`
	Reliability   float64             `json:"reliability"` // default 0.98 for Circle-class issuers if zero
}

// RampType distinguishes an on-ramp (fiat->stablecoin) from an off-ramp.
type RampType string

const (
	RampOn  RampType = "ON_RAMP"
	RampOff RampType = "OFF_RAMP"
)

// OnOffRamp is a fiat<->stablecoin conversion facility (Circle-style
// issuer mint/redeem desk, a CEX, or an OTC desk).
type OnOffRamp struct {
	ID                 string   `json:"id"`
	Type               RampType `json:"type"`
	SupportedStablecoins []string `json:"supported_stablecoins"`
	FeeBps             float64  `json:"fee_bps"`
	SettlementSeconds  float64  `json:"settlement_seconds"`
	STPCapable         bool     `json:"stp_capable"`
	Reliability        float64  `json:"reliability"`
}

// AtomicSwapEntry describes an HTLC-based CBDC<->stablecoin corridor.
type AtomicSwapEntry struct {
	CBDC          string  `json:"cbdc"`
	Stablecoin    string  `json:"stablecoin"`
	Status        string  `json:"status"` // PILOT | EXPERIMENTAL | PLANNED
	FeeBps        float64 `json:"fee_bps"`
	SettlementSec float64 `json:"settlement_seconds"`
}
