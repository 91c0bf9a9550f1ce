// Package metrics exposes the engine's Prometheus series. Label sets are
// kept to bounded, known-finite vocabularies (provider IDs, rail types,
// deal states) so cardinality never grows with request volume.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rate source failure categories (bounded set).
const (
	RateErrorTimeout  = "timeout"
	RateErrorStale    = "stale"
	RateErrorNotFound = "not_found"
	RateErrorNetwork  = "network"
	RateErrorOther    = "other"
)

// Deal validation failure reasons (bounded set).
const (
	ValidationReasonInvalidAmount  = "invalid_amount"
	ValidationReasonInvalidWindow  = "invalid_window"
	ValidationReasonFieldMissing   = "field_missing"
	ValidationReasonStateConflict  = "state_conflict"
	ValidationReasonOther          = "other"
)

// NormalizeRateSourceError maps an arbitrary rate source error to the
// bounded set above.
func NormalizeRateSourceError(err error) string {
	if err == nil {
		return ""
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return RateErrorTimeout
	case strings.Contains(lower, "stale"):
		return RateErrorStale
	case strings.Contains(lower, "not found") || strings.Contains(lower, "no rate"):
		return RateErrorNotFound
	case strings.Contains(lower, "network") || strings.Contains(lower, "connection"):
		return RateErrorNetwork
	default:
		return RateErrorOther
	}
}

// NormalizeValidationReason maps an arbitrary validation message to the
// bounded set above.
func NormalizeValidationReason(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "amount"):
		return ValidationReasonInvalidAmount
	case strings.Contains(lower, "window") || strings.Contains(lower, "valid_from") || strings.Contains(lower, "valid_until"):
		return ValidationReasonInvalidWindow
	case strings.Contains(lower, "missing") || strings.Contains(lower, "required"):
		return ValidationReasonFieldMissing
	case strings.Contains(lower, "transition") || strings.Contains(lower, "state"):
		return ValidationReasonStateConflict
	default:
		return ValidationReasonOther
	}
}

// Pricing and routing metrics
var (
	QuoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_quote_requests_total",
		Help: "Total number of quote requests by pair and outcome",
	}, []string{"pair", "outcome"})

	QuoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fxengine_quote_latency_ms",
		Help:    "Quote computation latency in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"pair"})

	RouteRecommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_route_recommendations_total",
		Help: "Total number of routing recommendations by objective and outcome",
	}, []string{"objective", "outcome"})

	RouteRecommendationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fxengine_route_recommendation_latency_ms",
		Help:    "Smart routing engine recommendation latency in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	RouteEligibleProviders = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fxengine_route_eligible_providers",
		Help:    "Number of providers surviving the eligibility filter per recommendation",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
	})

	MultiRailRoutes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_multirail_routes_total",
		Help: "Total number of cross-rail route resolutions by rail pair and outcome",
	}, []string{"src_rail", "tgt_rail", "outcome"})

	MultiRailTemplatesConsidered = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fxengine_multirail_templates_considered",
		Help:    "Number of catalogue templates instantiated per cross-rail resolution",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})
)

// Rate source metrics
var (
	RateFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_rate_fetches_total",
		Help: "Total number of treasury rate fetches by pair and result",
	}, []string{"pair", "result"})

	RateFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_rate_fetch_errors_total",
		Help: "Total number of rate fetch errors by normalized category",
	}, []string{"pair", "error_type"})

	RateStaleness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fxengine_rate_staleness_seconds",
		Help: "Seconds since a pair's treasury rate was last refreshed",
	}, []string{"pair"})

	RateFallbackServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_rate_fallback_served_total",
		Help: "Total number of times a cached/stale rate was served in place of a fresh fetch",
	}, []string{"pair"})
)

// Deal lifecycle metrics
var (
	DealTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_deal_transitions_total",
		Help: "Total number of deal state transitions",
	}, []string{"from_status", "to_status"})

	DealTransitionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_deal_transition_rejections_total",
		Help: "Total number of rejected deal state transition attempts by normalized reason",
	}, []string{"reason"})

	DealUtilisations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_deal_utilisations_total",
		Help: "Total number of deal utilisation draws by outcome",
	}, []string{"outcome"})

	DealRemainingAmount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fxengine_deal_remaining_amount",
		Help: "Remaining utilisable amount on an open deal",
	}, []string{"deal_id", "currency_pair"})

	ActiveDeals = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fxengine_active_deals",
		Help: "Number of deals currently in a given status",
	}, []string{"status"})
)

// Rules engine metrics
var (
	RuleMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_rule_matches_total",
		Help: "Total number of rule matches by rule type and action",
	}, []string{"rule_type", "action"})

	RuleEvaluationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fxengine_rule_evaluation_latency_ms",
		Help:    "Rule set evaluation latency in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50},
	})

	RuleReloadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fxengine_rule_reload_failures_total",
		Help: "Total number of failed rule set reloads",
	})
)

// Reference data metrics
var (
	ReferenceReloadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fxengine_reference_reload_latency_ms",
		Help:    "Reference registry reload latency in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
	})

	ReferenceReloadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fxengine_reference_reload_failures_total",
		Help: "Total number of failed reference registry reloads",
	})

	ProvidersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fxengine_providers_active",
		Help: "Number of providers currently marked active in the registry",
	})
)

// Database metrics (shared by the deals store and any other pgx consumer)
var (
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fxengine_database_connections_active",
		Help: "Number of active database connections",
	})

	DatabaseConnectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fxengine_database_connections_idle",
		Help: "Number of idle database connections",
	})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fxengine_database_query_duration_ms",
		Help:    "Database query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"query_type"})

	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxengine_validation_failures_total",
		Help: "Total number of request validation failures by normalized reason",
	}, []string{"component", "reason"})
)

// RecordQuote records a pricing engine quote request.
func RecordQuote(pair string, durationMs float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	QuoteRequests.WithLabelValues(pair, outcome).Inc()
	QuoteLatency.WithLabelValues(pair).Observe(durationMs)
}

// RecordRouteRecommendation records a smart routing engine recommendation.
func RecordRouteRecommendation(objective string, eligibleCount int, durationMs float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "no_route"
	}
	RouteRecommendations.WithLabelValues(objective, outcome).Inc()
	RouteRecommendationLatency.Observe(durationMs)
	RouteEligibleProviders.Observe(float64(eligibleCount))
}

// RecordMultiRailRoute records a cross-rail route resolution.
func RecordMultiRailRoute(srcRail, tgtRail string, templatesConsidered int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "no_route"
	}
	MultiRailRoutes.WithLabelValues(srcRail, tgtRail, outcome).Inc()
	MultiRailTemplatesConsidered.Observe(float64(templatesConsidered))
}

// RecordRateFetch records a treasury rate fetch, categorising any error.
func RecordRateFetch(pair string, stale bool, err error) {
	result := "fresh"
	if err != nil {
		result = "error"
		RateFetchErrors.WithLabelValues(pair, NormalizeRateSourceError(err)).Inc()
	} else if stale {
		result = "stale"
		RateFallbackServed.WithLabelValues(pair).Inc()
	}
	RateFetches.WithLabelValues(pair, result).Inc()
}

// RecordDealTransition records a successful deal state transition.
func RecordDealTransition(fromStatus, toStatus string) {
	DealTransitions.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordDealTransitionRejection records a rejected transition attempt.
func RecordDealTransitionRejection(reason string) {
	DealTransitionRejections.WithLabelValues(NormalizeValidationReason(reason)).Inc()
}

// RecordDealUtilisation records a utilisation draw against a deal.
func RecordDealUtilisation(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "insufficient_balance"
	}
	DealUtilisations.WithLabelValues(outcome).Inc()
}

// RecordRuleMatch records one rule match during evaluation.
func RecordRuleMatch(ruleType, action string) {
	RuleMatches.WithLabelValues(ruleType, action).Inc()
}

// UpdateDatabaseConnections updates database connection gauges.
func UpdateDatabaseConnections(active, idle int32) {
	DatabaseConnectionsActive.Set(float64(active))
	DatabaseConnectionsIdle.Set(float64(idle))
}

// RecordDatabaseQuery records a database query's duration.
func RecordDatabaseQuery(queryType string, durationMs float64) {
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(durationMs)
}

// RecordValidationFailure records a request validation failure.
func RecordValidationFailure(component, reason string) {
	ValidationFailures.WithLabelValues(component, NormalizeValidationReason(reason)).Inc()
}
