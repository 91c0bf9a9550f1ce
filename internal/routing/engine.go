package routing

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/fxengine/internal/fxerrors"
	"github.com/ajitpratap0/fxengine/internal/ratesource"
	"github.com/ajitpratap0/fxengine/internal/reference"
	"github.com/ajitpratap0/fxengine/internal/rules"
)

// Engine scores a candidate fiat provider set for a pair under a chosen
// objective (spec §4.1).
type Engine struct {
	registry *reference.Registry
	rules    *rules.Engine
}

// NewEngine wires the routing engine to the reference registry and rule
// engine it reads snapshots from.
func NewEngine(registry *reference.Registry, ruleEngine *rules.Engine) *Engine {
	return &Engine{registry: registry, rules: ruleEngine}
}

// Recommend ranks eligible providers for req given the current rate
// snapshot, returning the head of the slice as the recommendation.
func (e *Engine) Recommend(ctx context.Context, req Request, rate ratesource.TreasuryRate, now time.Time) ([]RouteRecommendation, error) {
	if rate.Mid <= 0 {
		return nil, &fxerrors.RateUnavailableError{Pair: req.Pair}
	}
	if req.Amount <= 0 {
		return nil, fxerrors.NewValidationError("amount", "must be positive")
	}

	snap := e.registry.Snapshot()
	tier, ok := snap.CustomerTiers[req.CustomerTier]
	if !ok {
		return nil, fxerrors.NewValidationError("customer_tier", "unknown tier "+req.CustomerTier)
	}

	ruleCtx := rules.Context{
		"currency_pair":  req.Pair,
		"customer_tier":  req.CustomerTier,
		"amount":         req.Amount,
		"time_of_day":    now.Format("15:04"),
	}
	matches := e.rules.MatchProviderSelection(ruleCtx, now)

	excluded := map[string]bool{}
	preferredBonus := map[string]float64{}
	objective := req.Objective
	forceProvider := ""
	for _, m := range matches {
		for _, id := range m.Action.Excluded {
			excluded[id] = true
		}
		for _, id := range m.Action.Preferred {
			preferredBonus[id] += 0.05
		}
		if m.Action.ObjectiveOverride != "" {
			objective = Objective(m.Action.ObjectiveOverride)
		}
		if m.Action.ForceProvider != "" {
			forceProvider = m.Action.ForceProvider
		}
	}
	weights := WeightsFor(objective)

	allowed := map[string]bool{}
	if len(tier.ProvidersAllowed) > 0 {
		for _, id := range tier.ProvidersAllowed {
			allowed[id] = true
		}
	}

	var exclusions []fxerrors.ExclusionReason
	var eligible []reference.Provider
	for _, p := range snap.Providers {
		if len(allowed) > 0 && !allowed[p.ID] {
			exclusions = append(exclusions, fxerrors.ExclusionReason{ProviderID: p.ID, Reason: "not in tier's providers_allowed"})
			continue
		}
		if excluded[p.ID] {
			exclusions = append(exclusions, fxerrors.ExclusionReason{ProviderID: p.ID, Reason: "excluded by rule"})
			continue
		}
		if !p.IsActive {
			exclusions = append(exclusions, fxerrors.ExclusionReason{ProviderID: p.ID, Reason: "inactive"})
			continue
		}
		if !p.SupportsPair(req.Pair) {
			exclusions = append(exclusions, fxerrors.ExclusionReason{ProviderID: p.ID, Reason: "pair not supported"})
			continue
		}
		if !withinOperatingWindow(now, p.OperatingHours) {
			exclusions = append(exclusions, fxerrors.ExclusionReason{ProviderID: p.ID, Reason: "outside operating hours"})
			continue
		}
		if req.Amount < p.MinAmount || req.Amount > p.DailyLimit {
			exclusions = append(exclusions, fxerrors.ExclusionReason{ProviderID: p.ID, Reason: "amount outside [min_amount, daily_limit]"})
			continue
		}
		eligible = append(eligible, p)
	}

	if forceProvider != "" {
		for _, p := range eligible {
			if p.ID == forceProvider {
				eligible = []reference.Provider{p}
				break
			}
		}
	}

	if len(eligible) == 0 {
		return nil, &fxerrors.NoEligibleProviderError{Pair: req.Pair, Exclusions: exclusions}
	}

	if tier.PriorityRouting {
		sort.SliceStable(eligible, func(i, j int) bool {
			iInternal := eligible[i].Type == reference.ProviderInternal
			jInternal := eligible[j].Type == reference.ProviderInternal
			if iInternal != jInternal {
				return iInternal
			}
			return eligible[i].Reliability > eligible[j].Reliability
		})
	}

	recs := make([]RouteRecommendation, 0, len(eligible))
	for _, p := range eligible {
		rec, ok := score(p, req, tier, weights, rate, preferredBonus[p.ID])
		if !ok {
			continue // NaN composite score: dropped per spec §4.1 failure modes
		}
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.SubScores.Reliability != b.SubScores.Reliability {
			return a.SubScores.Reliability > b.SubScores.Reliability
		}
		if a.AdjustedMarkupBps != b.AdjustedMarkupBps {
			return a.AdjustedMarkupBps < b.AdjustedMarkupBps
		}
		return a.ProviderID < b.ProviderID
	})

	return recs, nil
}

func score(p reference.Provider, req Request, tier reference.CustomerTier, weights Weights, rate ratesource.TreasuryRate, bonus float64) (RouteRecommendation, bool) {
	positionBias := positionBiasBps(rate.Position, req.Side)
	adjustedMarkup := p.MarkupBps * (1 - tier.MarkupDiscountPct/100)
	totalBps := positionBias + adjustedMarkup - tier.SpreadReductionBps

	var effRate float64
	if req.Side == reference.SideSell {
		effRate = rate.Ask * (1 - totalBps/10000)
	} else {
		effRate = rate.Bid * (1 + totalBps/10000)
	}

	sub := SubScores{
		Rate:        clamp01(1 - min1(adjustedMarkup/100)),
		Reliability: clamp01(p.Reliability),
		Speed:       clamp01(1 - min1(p.AvgLatencyMS/500)),
		STP:         0.3,
	}
	if p.STPEnabled {
		sub.STP = 1
	}

	composite := sub.Rate*weights.Rate + sub.Reliability*weights.Reliability + sub.Speed*weights.Speed + sub.STP*weights.STP + bonus
	if math.IsNaN(composite) {
		return RouteRecommendation{}, false
	}

	return RouteRecommendation{
		ProviderID:        p.ID,
		ProviderType:      p.Type,
		AdjustedRate:      effRate,
		AdjustedMarkupBps: adjustedMarkup,
		SubScores:         sub,
		CompositeScore:    composite,
		RuleBonus:         bonus,
	}, true
}

func positionBiasBps(pos ratesource.Position, side reference.Side) float64 {
	switch pos {
	case ratesource.PositionLong:
		if side == reference.SideSell {
			return -3
		}
		return 3
	case ratesource.PositionShort:
		if side == reference.SideSell {
			return 3
		}
		return -3
	default:
		return 0
	}
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

// withinOperatingWindow evaluates a provider's half-open [Open, Close)
// HH:MM window against now, wrapping past midnight when Close < Open.
func withinOperatingWindow(now time.Time, hours reference.OperatingHours) bool {
	if hours.Open == "" || hours.Close == "" {
		return true // no window configured: always open
	}
	openMin, ok1 := parseHHMM(hours.Open)
	closeMin, ok2 := parseHHMM(hours.Close)
	if !ok1 || !ok2 {
		return true
	}
	nowMin := now.Hour()*60 + now.Minute()
	if openMin <= closeMin {
		return nowMin >= openMin && nowMin < closeMin
	}
	return nowMin >= openMin || nowMin < closeMin
}

func parseHHMM(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return h*60 + m, true
}
