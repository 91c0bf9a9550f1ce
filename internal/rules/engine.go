package rules

import (
	"encoding/json"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ajitpratap0/fxengine/internal/fxerrors"
	"github.com/ajitpratap0/fxengine/internal/metrics"
	"github.com/rs/zerolog"
)

// rulesFile is the on-disk document shape: one JSON source per rule type.
type rulesFile struct {
	Rules []Rule `json:"rules"`
}

// ruleSet is the immutable snapshot an Engine publishes on Reload.
type ruleSet struct {
	providerSelection []Rule
	marginAdjustment  []Rule
}

// Engine loads rules from one JSON document per rule type and
// evaluates them against a request context (spec §4.5). Loads replace
// the rule set atomically; readers observe either the old or new set,
// never a partial mix.
type Engine struct {
	current           atomic.Pointer[ruleSet]
	providerSelectionPath string
	marginAdjustmentPath  string
	log               zerolog.Logger
}

// NewEngine constructs an Engine and performs the initial load.
func NewEngine(providerSelectionPath, marginAdjustmentPath string, log zerolog.Logger) (*Engine, error) {
	e := &Engine{
		providerSelectionPath: providerSelectionPath,
		marginAdjustmentPath:  marginAdjustmentPath,
		log:                   log,
	}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload reads both rule documents, validates every rule's action
// shape against its declared RuleType, and atomically publishes the
// new set. A rule whose RuleType doesn't match its file (e.g. a
// PROVIDER_SELECTION rule in the margin-adjustment document) fails the
// whole reload — malformed individual rules are instead caught at
// evaluation time and skipped per spec §7.
func (e *Engine) Reload() error {
	providerRules, err := loadRules(e.providerSelectionPath)
	if err != nil {
		return err
	}
	marginRules, err := loadRules(e.marginAdjustmentPath)
	if err != nil {
		return err
	}

	for i, r := range providerRules {
		if r.RuleType != RuleTypeProviderSelection {
			return &fxerrors.ValidationError{Field: "rule_type", Message: "provider selection document contains rule " + r.RuleID + " of type " + string(r.RuleType)}
		}
		providerRules[i] = r
	}
	for i, r := range marginRules {
		if r.RuleType != RuleTypeMarginAdjustment {
			return &fxerrors.ValidationError{Field: "rule_type", Message: "margin adjustment document contains rule " + r.RuleID + " of type " + string(r.RuleType)}
		}
		marginRules[i] = r
	}

	e.current.Store(&ruleSet{providerSelection: providerRules, marginAdjustment: marginRules})
	return nil
}

func loadRules(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f rulesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Rules, nil
}

// activeEnabledRules filters rs to rules that are enabled and within
// their validity window at now, sorted by priority descending.
func activeEnabledRules(rules []Rule, now time.Time) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled && r.activeAt(now) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// MatchProviderSelection evaluates the PROVIDER_SELECTION rule set
// against ctx at now, returning matches in priority-descending order.
// A rule whose conditions evaluate but whose action JSON is malformed
// is logged and skipped; the request always completes (spec §7).
func (e *Engine) MatchProviderSelection(ctx Context, now time.Time) []ProviderSelectionMatch {
	snap := e.current.Load()
	if snap == nil {
		return nil
	}

	var matches []ProviderSelectionMatch
	for _, r := range activeEnabledRules(snap.providerSelection, now) {
		if !r.Conditions.matches(ctx) {
			continue
		}
		var action ProviderSelectionAction
		if err := action.Decode(r.Actions); err != nil {
			e.log.Warn().Err(&fxerrors.RuleEvaluationError{RuleID: r.RuleID, Cause: err}).Msg("skipping malformed provider selection rule")
			continue
		}
		metrics.RecordRuleMatch(string(RuleTypeProviderSelection), action.kind())
		matches = append(matches, ProviderSelectionMatch{RuleID: r.RuleID, Priority: r.Priority, Action: action})
	}
	return matches
}

// MatchMarginAdjustment evaluates the MARGIN_ADJUSTMENT rule set
// against ctx at now, returning matches in priority-descending order.
func (e *Engine) MatchMarginAdjustment(ctx Context, now time.Time) []MarginAdjustmentMatch {
	snap := e.current.Load()
	if snap == nil {
		return nil
	}

	var matches []MarginAdjustmentMatch
	for _, r := range activeEnabledRules(snap.marginAdjustment, now) {
		if !r.Conditions.matches(ctx) {
			continue
		}
		var action MarginAdjustmentAction
		if err := action.Decode(r.Actions); err != nil {
			e.log.Warn().Err(&fxerrors.RuleEvaluationError{RuleID: r.RuleID, Cause: err}).Msg("skipping malformed margin adjustment rule")
			continue
		}
		metrics.RecordRuleMatch(string(RuleTypeMarginAdjustment), action.kind())
		matches = append(matches, MarginAdjustmentMatch{RuleID: r.RuleID, Priority: r.Priority, Action: action})
	}
	return matches
}
