package ratesource

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ajitpratap0/fxengine/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResilientSource(t *testing.T, upstream Source) *ResilientSource {
	t.Helper()
	cache, _ := newTestCache(t, 5*time.Second, 30*time.Second)
	mgr := resilience.NewManager()
	settings := BreakerSettings(5, 0.6, 30*time.Second)
	return NewResilientSource(upstream, cache, mgr, settings, 200*time.Millisecond)
}

func TestResilientSource_FetchRate_LiveSuccess(t *testing.T) {
	upstream := SourceFunc(func(ctx context.Context, pair string) (TreasuryRate, error) {
		return TreasuryRate{Pair: pair, Bid: 83.0, Mid: 83.1, Ask: 83.2}, nil
	})
	s := newTestResilientSource(t, upstream)

	rate, stale, err := s.FetchRate(context.Background(), "USDINR")
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, 83.1, rate.Mid)
}

func TestResilientSource_FetchRate_CachesAcrossCalls(t *testing.T) {
	var calls int32
	upstream := SourceFunc(func(ctx context.Context, pair string) (TreasuryRate, error) {
		atomic.AddInt32(&calls, 1)
		return TreasuryRate{Pair: pair, Bid: 83.0, Mid: 83.1, Ask: 83.2}, nil
	})
	s := newTestResilientSource(t, upstream)
	ctx := context.Background()

	_, _, err := s.FetchRate(ctx, "USDINR")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _, err := s.FetchRate(ctx, "USDINR")
		return err == nil && atomic.LoadInt32(&calls) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestResilientSource_FetchRate_FallsBackToStaleOnUpstreamError(t *testing.T) {
	var fail atomic.Bool
	upstream := SourceFunc(func(ctx context.Context, pair string) (TreasuryRate, error) {
		if fail.Load() {
			return TreasuryRate{}, errors.New("upstream down")
		}
		return TreasuryRate{Pair: pair, Bid: 83.0, Mid: 83.1, Ask: 83.2}, nil
	})
	cache, _ := newTestCache(t, 10*time.Millisecond, 30*time.Second)
	mgr := resilience.NewManager()
	s := NewResilientSource(upstream, cache, mgr, BreakerSettings(5, 0.6, 30*time.Second), 200*time.Millisecond)
	ctx := context.Background()

	_, _, err := s.FetchRate(ctx, "USDINR")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _, ok := cache.Get(ctx, "USDINR")
		return ok
	}, time.Second, 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond) // entry goes stale but stays within tolerance
	fail.Store(true)

	rate, stale, err := s.FetchRate(ctx, "USDINR")
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Equal(t, 83.1, rate.Mid)
}

func TestResilientSource_FetchRate_NoCacheNoUpstream_RateUnavailable(t *testing.T) {
	upstream := SourceFunc(func(ctx context.Context, pair string) (TreasuryRate, error) {
		return TreasuryRate{}, errors.New("upstream down")
	})
	s := newTestResilientSource(t, upstream)

	_, _, err := s.FetchRate(context.Background(), "ZZZYYY")
	require.Error(t, err)
}
