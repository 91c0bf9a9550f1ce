// Package engine composes the core subsystems — reference data, the
// rate source, the rules engine, pricing, smart routing, multi-rail
// routing, and the deals store — into the single facade a transport
// layer (HTTP, or the chat/LLM tool-dispatch shim) calls (spec.md §1
// "Out of scope" and SPEC_FULL.md section C). It owns no transport
// concerns of its own: every method here takes and returns plain Go
// values, the same shape the façade's tool dispatch would marshal.
package engine

import (
	"context"
	"time"

	"github.com/ajitpratap0/fxengine/internal/config"
	"github.com/ajitpratap0/fxengine/internal/deals"
	"github.com/ajitpratap0/fxengine/internal/metrics"
	"github.com/ajitpratap0/fxengine/internal/multirail"
	"github.com/ajitpratap0/fxengine/internal/pricing"
	"github.com/ajitpratap0/fxengine/internal/ratesource"
	"github.com/ajitpratap0/fxengine/internal/reference"
	"github.com/ajitpratap0/fxengine/internal/routing"
	"github.com/ajitpratap0/fxengine/internal/rules"
	"github.com/rs/zerolog"
)

// Engine is the wired decision/pricing core. Construct one with New and
// call its methods from whatever transport or façade sits in front of
// it; Engine itself never listens on a socket.
type Engine struct {
	registry  *reference.Registry
	rates     *ratesource.ResilientSource
	rules     *rules.Engine
	pricing   *pricing.Engine
	routing   *routing.Engine
	multirail *multirail.Router
	deals     *deals.Store
	log       zerolog.Logger
}

// New wires every collaborator. Callers assemble the individual
// components (reference registry, rate source, rules engine, deals
// store) themselves — typically in a cmd/ main — and hand the
// finished values here, mirroring the way the teacher's cmd/api
// assembles db.DB, exchange.Service, and api.Server independently
// before composing them.
func New(
	registry *reference.Registry,
	rateSource *ratesource.ResilientSource,
	ruleEngine *rules.Engine,
	dealsStore *deals.Store,
	discounts pricing.NegotiatedDiscounts,
	cfg *config.Config,
) *Engine {
	return &Engine{
		registry:  registry,
		rates:     rateSource,
		rules:     ruleEngine,
		pricing:   pricing.NewEngine(rateSource, registry, ruleEngine, discounts, cfg.Pricing.QuoteValidity()),
		routing:   routing.NewEngine(registry, ruleEngine),
		multirail: multirail.NewRouter(registry),
		deals:     dealsStore,
		log:       config.NewLogger("engine"),
	}
}

// Recommend runs the fiat smart routing engine (spec §4.1) and then,
// when a deals store is configured, calls BestRate to compare active
// deals with the head route's adjusted rate. Routing always runs first;
// the arbitration result is returned beside the recommendations, and a
// winning deal is neither added to nor placed ahead of them.
func (e *Engine) Recommend(ctx context.Context, req routing.Request, now time.Time) ([]routing.RouteRecommendation, *deals.ArbitrationResult, error) {
	if err := validateRecommendRequest(req); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	rate, stale, err := e.rates.FetchRate(ctx, req.Pair)
	metrics.RecordRateFetch(req.Pair, stale, err)
	if err != nil {
		return nil, nil, err
	}

	recs, err := e.routing.Recommend(ctx, req, rate, now)
	metrics.RecordRouteRecommendation(string(req.Objective), len(recs), time.Since(start).Seconds()*1000, err)
	if err != nil {
		return nil, nil, err
	}

	var arbitration *deals.ArbitrationResult
	if e.deals != nil && len(recs) > 0 {
		arbitration, err = e.deals.BestRate(ctx, req.Pair, req.Side, req.Amount, now, recs[0].AdjustedRate)
		if err != nil {
			return recs, nil, err
		}
	}
	return recs, arbitration, nil
}

// RouteMultiRail runs the cross-rail router (spec §4.2).
func (e *Engine) RouteMultiRail(ctx context.Context, req multirail.Request) (*multirail.Response, error) {
	snap := e.registry.Snapshot()
	srcRail := snap.ClassifyCurrency(req.SourceCurrency)
	tgtRail := snap.ClassifyCurrency(req.TargetCurrency)

	resp, err := e.multirail.Route(ctx, req)
	templatesConsidered := 0
	if resp != nil {
		templatesConsidered = len(resp.AllRoutes)
	}
	metrics.RecordMultiRailRoute(string(srcRail), string(tgtRail), templatesConsidered, err)
	return resp, err
}

// Quote issues a firm or indicative customer quote (spec §4.3).
func (e *Engine) Quote(ctx context.Context, req pricing.Request) (*pricing.Quote, error) {
	if err := validateQuoteRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	q, err := e.pricing.Quote(ctx, req)
	metrics.RecordQuote(req.Source+req.Target, time.Since(start).Seconds()*1000, err)
	return q, err
}

// CreateDeal persists a new DRAFT deal.
func (e *Engine) CreateDeal(ctx context.Context, d *deals.Deal, now time.Time) (*deals.Deal, error) {
	if err := validateDeal(d); err != nil {
		return nil, err
	}
	return e.deals.Create(ctx, d, now)
}

// GetDeal reads one deal, applying any lazy EXPIRED/FULLY_UTILIZED transition.
func (e *Engine) GetDeal(ctx context.Context, dealID string, now time.Time) (*deals.Deal, error) {
	return e.deals.Get(ctx, dealID, now)
}

// ListDeals returns a point-in-time snapshot of every deal.
func (e *Engine) ListDeals(ctx context.Context, now time.Time) ([]*deals.Deal, error) {
	return e.deals.List(ctx, now)
}

// SubmitDeal moves a deal DRAFT -> PENDING_APPROVAL.
func (e *Engine) SubmitDeal(ctx context.Context, dealID, submittedBy string, now time.Time) (*deals.Deal, error) {
	return e.recordTransition(e.deals.Submit(ctx, dealID, submittedBy, now))
}

// ApproveDeal moves a deal PENDING_APPROVAL -> ACTIVE.
func (e *Engine) ApproveDeal(ctx context.Context, dealID, approvedBy string, now time.Time) (*deals.Deal, error) {
	return e.recordTransition(e.deals.Approve(ctx, dealID, approvedBy, now))
}

// RejectDeal moves a deal PENDING_APPROVAL -> REJECTED.
func (e *Engine) RejectDeal(ctx context.Context, dealID, rejectedBy, reason string, now time.Time) (*deals.Deal, error) {
	return e.recordTransition(e.deals.Reject(ctx, dealID, rejectedBy, reason, now))
}

// CancelDeal moves a deal in {DRAFT, PENDING_APPROVAL, ACTIVE} -> CANCELLED.
func (e *Engine) CancelDeal(ctx context.Context, dealID, cancelledBy, reason string, now time.Time) (*deals.Deal, error) {
	return e.recordTransition(e.deals.Cancel(ctx, dealID, cancelledBy, reason, now))
}

// UtiliseDeal draws amount down against a deal's remaining balance.
func (e *Engine) UtiliseDeal(ctx context.Context, dealID string, amount float64, by string, now time.Time) (*deals.Deal, error) {
	d, err := e.deals.Utilise(ctx, dealID, amount, by, now)
	metrics.RecordDealUtilisation(err == nil)
	return d, err
}

// BestRate runs the deals-vs-treasury arbitration standalone (spec §4.4),
// for callers that already hold the treasury-adjusted rate.
func (e *Engine) BestRate(ctx context.Context, pair string, side reference.Side, amount float64, now time.Time, treasuryRate float64) (*deals.ArbitrationResult, error) {
	return e.deals.BestRate(ctx, pair, side, amount, now, treasuryRate)
}

func (e *Engine) recordTransition(d *deals.Deal, err error) (*deals.Deal, error) {
	if err != nil {
		metrics.RecordDealTransitionRejection(err.Error())
		return nil, err
	}
	if n := len(d.Audit); n > 0 {
		last := d.Audit[n-1]
		metrics.RecordDealTransition(string(last.From), string(last.To))
	}
	return d, nil
}

// ReloadReference atomically swaps the reference-table snapshot (spec
// §5 "Shared resources": "writes ... acquire a registry-wide write
// lock; readers use the current immutable snapshot").
func (e *Engine) ReloadReference() error {
	if err := e.registry.Reload(); err != nil {
		e.log.Error().Err(err).Msg("reference registry reload failed")
		return err
	}
	e.log.Info().Msg("reference registry reloaded")
	return nil
}

// ReloadRules atomically swaps the rule set (spec §4.5 "Loading").
func (e *Engine) ReloadRules() error {
	if err := e.rules.Reload(); err != nil {
		e.log.Error().Err(err).Msg("rules reload failed")
		return err
	}
	e.log.Info().Msg("rules reloaded")
	return nil
}
