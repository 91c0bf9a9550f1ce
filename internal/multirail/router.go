package multirail

import (
	"context"
	"sort"

	"github.com/ajitpratap0/fxengine/internal/fxerrors"
	"github.com/ajitpratap0/fxengine/internal/reference"
)

// Request is the input to Route.
type Request struct {
	SourceCurrency  string
	TargetCurrency  string
	Amount          float64
	FilterRegulated bool
}

// Route is one instantiated, scored template.
type Route struct {
	Template        Name
	Pair            RailPair
	FeeBps          float64
	SettlementSeconds float64
	Reliability     float64
	STPCapable      bool
	Regulated       bool
	Legs            int
	Annotations     map[string]bool
	SubScores       SubScores
	CompositeScore  float64
}

// SubScores holds the four per-route [0,1] components (spec §4.2).
type SubScores struct {
	Rate        float64
	Reliability float64
	Speed       float64
	STP         float64
}

// Response is the output of Route: the overall winner plus per-rail
// heads and the full ranked set (spec §4.2 "Output").
type Response struct {
	BestRoute        *Route
	FiatRoute        *Route
	CBDCRoute        *Route
	StablecoinRoute  *Route
	AllRoutes        []Route
}

// defaultWeights mirrors the routing engine's OPTIMUM vector; §4.2
// does not parameterise cross-rail scoring by objective.
var defaultWeights = SubScores{Rate: 0.40, Reliability: 0.25, Speed: 0.20, STP: 0.15}

// Router resolves a currency pair to its rail-pair class and scores
// every applicable catalogue template (spec §4.2).
type Router struct {
	registry *reference.Registry
}

// NewRouter wires a Router to the reference registry it classifies
// currencies and instantiates templates against.
func NewRouter(registry *reference.Registry) *Router {
	return &Router{registry: registry}
}

// Route resolves req to a rail-pair class, instantiates every
// applicable template, scores each, and returns the ranked set.
func (r *Router) Route(ctx context.Context, req Request) (*Response, error) {
	snap := r.registry.Snapshot()
	srcRail := snap.ClassifyCurrency(req.SourceCurrency)
	tgtRail := snap.ClassifyCurrency(req.TargetCurrency)
	pair := RailPair{Src: srcRail, Tgt: tgtRail}

	templates := TemplatesFor(pair)
	if len(templates) == 0 {
		return nil, &fxerrors.NoEligibleProviderError{Pair: req.SourceCurrency + req.TargetCurrency}
	}

	var routes []Route
	for _, t := range templates {
		route, ok := instantiate(t, req, snap)
		if !ok {
			continue
		}
		if req.FilterRegulated && !route.Regulated {
			continue
		}
		scoreRoute(route)
		routes = append(routes, *route)
	}

	if len(routes) == 0 {
		return nil, &fxerrors.NoEligibleProviderError{Pair: req.SourceCurrency + req.TargetCurrency}
	}

	sortRoutes(routes)

	resp := &Response{AllRoutes: routes, BestRoute: &routes[0]}
	for i := range routes {
		switch {
		case routes[i].Pair.Src == reference.RailFiat && routes[i].Pair.Tgt == reference.RailFiat && resp.FiatRoute == nil:
			resp.FiatRoute = &routes[i]
		case (routes[i].Pair.Src == reference.RailCBDC || routes[i].Pair.Tgt == reference.RailCBDC) && resp.CBDCRoute == nil:
			resp.CBDCRoute = &routes[i]
		case (routes[i].Pair.Src == reference.RailStablecoin || routes[i].Pair.Tgt == reference.RailStablecoin) && resp.StablecoinRoute == nil:
			resp.StablecoinRoute = &routes[i]
		}
	}
	return resp, nil
}

// instantiate applies spec §4.2's per-template instantiation rules,
// substituting concrete registry references where the template
// requires them. ok is false when the template does not apply to this
// request (a typed "fall through", not an error).
func instantiate(t Template, req Request, snap *reference.Snapshot) (*Route, bool) {
	route := &Route{
		Template: t.Name, Pair: t.Pair, FeeBps: t.BaseFeeBps,
		SettlementSeconds: t.DefaultSettlement, Reliability: t.DefaultReliability,
		STPCapable: t.STPCapable, Regulated: t.Regulated, Legs: t.Legs,
		Annotations: map[string]bool{},
	}

	switch t.Name {
	case TemplateDirectMint:
		cbdc, ok := snap.CBDCs[req.TargetCurrency]
		if !ok || cbdc.LinkedFiat != req.SourceCurrency {
			return nil, false
		}
		route.FeeBps = cbdc.Fees.IssuanceBps
		route.SettlementSeconds = cbdc.SettlementSeconds
		if cbdc.Reliability > 0 {
			route.Reliability = cbdc.Reliability
		}

	case TemplateDirectRedeem:
		cbdc, ok := snap.CBDCs[req.SourceCurrency]
		if !ok || cbdc.LinkedFiat != req.TargetCurrency {
			return nil, false
		}
		route.FeeBps = cbdc.Fees.RedemptionBps
		route.SettlementSeconds = cbdc.SettlementSeconds
		if cbdc.Reliability > 0 {
			route.Reliability = cbdc.Reliability
		}

	case TemplateMBridgePVP:
		// Eligibility only: both legs must be mBridge participants. Fee,
		// settlement, and reliability stay at the catalogue's contract
		// values (spec §4.2 worked example: fee_bps=13).
		if !snap.IsMBridgeParticipant(req.SourceCurrency) || !snap.IsMBridgeParticipant(req.TargetCurrency) {
			return nil, false
		}

	case TemplateProjectNexus:
		src, srcOK := snap.CBDCs[req.SourceCurrency]
		tgt, tgtOK := snap.CBDCs[req.TargetCurrency]
		if !srcOK || !tgtOK || !snap.IsNexusFiat(src.LinkedFiat) || !snap.IsNexusFiat(tgt.LinkedFiat) {
			return nil, false
		}

	case TemplateAtomicSwap:
		entry, ok := findAtomicSwap(snap, req.SourceCurrency, req.TargetCurrency)
		if !ok {
			return nil, false
		}
		route.FeeBps = entry.FeeBps
		route.SettlementSeconds = entry.SettlementSec
		route.Regulated = entry.Status == "LIVE"
		if entry.Status == "PILOT" || entry.Status == "EXPERIMENTAL" || entry.Status == "PLANNED" {
			route.Annotations["experimental"] = true
		}

	case TemplateMBridgeHybrid:
		stable := req.TargetCurrency
		rampType := reference.RampOn
		if snap.ClassifyCurrency(req.SourceCurrency) == reference.RailStablecoin {
			stable = req.SourceCurrency
			rampType = reference.RampOff
		}
		ramp, ok := cheapestRamp(snap, stable, rampType)
		if !ok {
			return nil, false
		}
		mbridgeLegFee, mbridgeLegSettlement, mbridgeLegReliability := cheapestMBridgeLeg(snap)
		route.FeeBps = ramp.FeeBps + mbridgeLegFee
		route.SettlementSeconds = max(ramp.SettlementSeconds, mbridgeLegSettlement)
		route.Reliability = avgReliability(ramp.Reliability, mbridgeLegReliability, t.DefaultReliability)
		route.STPCapable = ramp.STPCapable && t.STPCapable
	}

	return route, true
}

func findAtomicSwap(snap *reference.Snapshot, a, b string) (reference.AtomicSwapEntry, bool) {
	for _, p := range snap.AtomicSwapPairs {
		if (p.CBDC == a && p.Stablecoin == b) || (p.CBDC == b && p.Stablecoin == a) {
			return p, true
		}
	}
	return reference.AtomicSwapEntry{}, false
}

func cheapestRamp(snap *reference.Snapshot, stablecoin string, kind reference.RampType) (reference.OnOffRamp, bool) {
	var best reference.OnOffRamp
	found := false
	for _, ramp := range snap.Ramps {
		if ramp.Type != kind {
			continue
		}
		supports := false
		for _, sc := range ramp.SupportedStablecoins {
			if sc == stablecoin {
				supports = true
				break
			}
		}
		if !supports {
			continue
		}
		if !found || ramp.FeeBps < best.FeeBps {
			best = ramp
			found = true
		}
	}
	return best, found
}

// cheapestMBridgeLeg picks the lowest-transfer-fee mBridge-participant
// CBDC as a proxy for "the CBDC leg that minimises fee" (spec §4.2).
func cheapestMBridgeLeg(snap *reference.Snapshot) (feeBps, settlementSeconds, reliability float64) {
	found := false
	for code := range snap.MBridgeSet {
		cbdc, ok := snap.CBDCs[code]
		if !ok {
			continue
		}
		if !found || cbdc.Fees.TransferBps < feeBps {
			feeBps = cbdc.Fees.TransferBps
			settlementSeconds = cbdc.SettlementSeconds
			reliability = cbdc.Reliability
			found = true
		}
	}
	if !found {
		return 13, 30, 0.95
	}
	return feeBps, settlementSeconds, reliability
}

func avgReliability(a, b, fallback float64) float64 {
	if a == 0 {
		a = fallback
	}
	if b == 0 {
		b = fallback
	}
	return a * b
}


func scoreRoute(r *Route) {
	r.SubScores = SubScores{
		Rate:        clamp01(1 - min1(r.FeeBps/100)),
		Reliability: clamp01(r.Reliability),
		Speed:       clamp01(1 - min1(r.SettlementSeconds/86400)),
		STP:         stpScore(r.STPCapable),
	}
	r.CompositeScore = r.SubScores.Rate*defaultWeights.Rate +
		r.SubScores.Reliability*defaultWeights.Reliability +
		r.SubScores.Speed*defaultWeights.Speed +
		r.SubScores.STP*defaultWeights.STP
}

func stpScore(stp bool) float64 {
	if stp {
		return 1
	}
	return 0.3
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// sortRoutes orders by composite score descending; routes within 0.005
// of each other tie, the regulated one winning, and a further tie going
// to the route with fewer legs (spec §4.2 "Output").
func sortRoutes(routes []Route) {
	sort.SliceStable(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if diff := a.CompositeScore - b.CompositeScore; diff > 0.005 || diff < -0.005 {
			return a.CompositeScore > b.CompositeScore
		}
		if a.Regulated != b.Regulated {
			return a.Regulated
		}
		if a.Legs != b.Legs {
			return a.Legs < b.Legs
		}
		return a.CompositeScore > b.CompositeScore
	})
}
