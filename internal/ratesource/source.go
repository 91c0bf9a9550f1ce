package ratesource

import (
	"context"
	"time"

	"github.com/ajitpratap0/fxengine/internal/fxerrors"
	"github.com/ajitpratap0/fxengine/internal/resilience"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ResilientSource wraps a raw Source with the ambient resilience stack
// from spec §5: a bounded fetch timeout, a Redis-backed cache that
// tolerates serving a stale entry when the live fetch fails or times
// out, a circuit breaker that short-circuits a persistently failing
// upstream, and singleflight collapsing of concurrent cache-miss
// fetches for the same pair.
type ResilientSource struct {
	upstream       Source
	cache          *Cache
	breaker        *resilience.Manager
	breakerSettings resilience.ServiceSettings
	fetchTimeout   time.Duration
	group          singleflight.Group
}

// NewResilientSource builds the wrapped source. breakerMgr may be
// shared with other collaborators (e.g. deals persistence) since
// breakers are keyed by name.
func NewResilientSource(upstream Source, cache *Cache, breakerMgr *resilience.Manager, breakerSettings resilience.ServiceSettings, fetchTimeout time.Duration) *ResilientSource {
	return &ResilientSource{
		upstream:        upstream,
		cache:           cache,
		breaker:         breakerMgr,
		breakerSettings: breakerSettings,
		fetchTimeout:    fetchTimeout,
	}
}

const breakerServiceName = "rate_source"

// FetchRate returns the rate for pair, preferring a fresh cache entry,
// falling back to a live fetch on a miss or a stale entry, and finally
// falling back to a stale cache entry if the live fetch fails or times
// out (spec §5 "Cancellation and timeouts"). Staleness is reported in
// the second return value, stale; callers that care should mark their
// output rate_type: INDICATIVE when stale is true.
func (s *ResilientSource) FetchRate(ctx context.Context, pair string) (rate TreasuryRate, stale bool, err error) {
	if cached, isStale, ok := s.cache.Get(ctx, pair); ok && !isStale {
		return cached, false, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	resultCh := s.group.DoChan(pair, func() (interface{}, error) {
		breaker := s.breaker.Breaker(breakerServiceName, s.breakerSettings)
		v, err := breaker.Execute(func() (interface{}, error) {
			return s.upstream.FetchRate(fetchCtx, pair)
		})
		s.breaker.Metrics().RecordRequest(breakerServiceName, err == nil)
		if err != nil {
			return nil, err
		}
		r := v.(TreasuryRate)
		if verr := r.Validate(); verr != nil {
			return nil, verr
		}
		s.cache.Set(ctx, r)
		return r, nil
	})

	select {
	case res := <-resultCh:
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("pair", pair).Msg("rate fetch failed, trying stale cache")
			if cached, _, ok := s.cache.Get(ctx, pair); ok {
				return cached, true, nil
			}
			return TreasuryRate{}, false, &fxerrors.RateUnavailableError{Pair: pair}
		}
		return res.Val.(TreasuryRate), false, nil
	case <-fetchCtx.Done():
		log.Warn().Str("pair", pair).Msg("rate fetch timed out, trying stale cache")
		if cached, _, ok := s.cache.Get(ctx, pair); ok {
			return cached, true, nil
		}
		return TreasuryRate{}, false, &fxerrors.RateUnavailableError{Pair: pair}
	}
}
