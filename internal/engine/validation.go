package engine

import (
	"github.com/ajitpratap0/fxengine/internal/deals"
	"github.com/ajitpratap0/fxengine/internal/fxerrors"
	"github.com/ajitpratap0/fxengine/internal/metrics"
	"github.com/ajitpratap0/fxengine/internal/pricing"
	"github.com/ajitpratap0/fxengine/internal/routing"
	"github.com/ajitpratap0/fxengine/internal/validation"
)

// validateRecommendRequest runs the shared request-level checks ahead
// of the routing engine's own domain validation (spec §7
// "ValidationError: malformed or out-of-range input; returned verbatim
// to caller").
func validateRecommendRequest(req routing.Request) error {
	v := validation.NewRouteRequestValidator()
	v.CurrencyPair("currency_pair", req.Pair)
	v.ValidateObjective(string(req.Objective))
	v.Required("customer_tier", req.CustomerTier)
	v.Positive("amount", req.Amount)
	if v.HasErrors() {
		metrics.RecordValidationFailure("routing", v.Errors().Error())
		return fxerrors.NewValidationError("recommend_request", v.Errors().Error())
	}
	return nil
}

func validateQuoteRequest(req pricing.Request) error {
	v := validation.NewQuoteRequestValidator()
	v.ValidatePair(req.Source + req.Target)
	v.ValidateAmount(req.Amount)
	v.ValidateCustomerTier(req.Segment)
	if v.HasErrors() {
		metrics.RecordValidationFailure("pricing", v.Errors().Error())
		return fxerrors.NewValidationError("quote_request", v.Errors().Error())
	}
	return nil
}

func validateDeal(d *deals.Deal) error {
	v := validation.NewDealValidator()
	v.ValidateCurrencyPair(d.Pair)
	v.ValidateSide(string(d.Side))
	v.ValidateAmount(d.Amount)
	v.ValidateRate(d.BuyRate)
	v.ValidateRate(d.SellRate)
	if v.HasErrors() {
		metrics.RecordValidationFailure("deals", v.Errors().Error())
		return fxerrors.NewValidationError("deal", v.Errors().Error())
	}
	return nil
}
