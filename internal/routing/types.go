// Package routing implements the smart routing engine (spec §4.1):
// scoring a candidate fiat provider set under a chosen objective and
// producing a ranked recommendation.
package routing

import "github.com/ajitpratap0/fxengine/internal/reference"

// Objective names a weight vector over (rate, reliability, speed, stp).
type Objective string

const (
	ObjectiveBestRate         Objective = "BEST_RATE"
	ObjectiveOptimum          Objective = "OPTIMUM"
	ObjectiveFastestExecution Objective = "FASTEST_EXECUTION"
	ObjectiveMaxSTP           Objective = "MAX_STP"
)

// Weights is a (rate, reliability, speed, stp) vector.
type Weights struct {
	Rate        float64
	Reliability float64
	Speed       float64
	STP         float64
}

// objectiveWeights are the four fixed vectors from spec §6.
var objectiveWeights = map[Objective]Weights{
	ObjectiveBestRate:         {Rate: 0.70, Reliability: 0.15, Speed: 0.10, STP: 0.05},
	ObjectiveOptimum:          {Rate: 0.40, Reliability: 0.25, Speed: 0.20, STP: 0.15},
	ObjectiveFastestExecution: {Rate: 0.20, Reliability: 0.25, Speed: 0.45, STP: 0.10},
	ObjectiveMaxSTP:           {Rate: 0.25, Reliability: 0.20, Speed: 0.15, STP: 0.40},
}

// WeightsFor returns the weight vector for an objective, defaulting to
// OPTIMUM for an unrecognised name.
func WeightsFor(o Objective) Weights {
	if w, ok := objectiveWeights[o]; ok {
		return w
	}
	return objectiveWeights[ObjectiveOptimum]
}

// Request is the input to Recommend.
type Request struct {
	Pair         string
	Side         reference.Side
	Amount       float64
	CustomerTier string
	Objective    Objective
}

// SubScores holds the four per-route [0,1] components before weighting.
type SubScores struct {
	Rate        float64
	Reliability float64
	Speed       float64
	STP         float64
}

// RouteRecommendation is one scored, eligible provider.
type RouteRecommendation struct {
	ProviderID        string
	ProviderType      reference.ProviderType
	AdjustedRate      float64
	AdjustedMarkupBps float64
	SubScores         SubScores
	CompositeScore    float64
	RuleBonus         float64
}
