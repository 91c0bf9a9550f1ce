// Package resilience provides named gobreaker circuit breakers with
// Prometheus-backed state metrics, shared by any component in the core
// that calls an external or best-effort collaborator (the rate source,
// the deals persistence layer).
package resilience

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Metric result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// ServiceSettings configures one named circuit breaker.
type ServiceSettings struct {
	MinRequests     uint32
	FailureRatio    float64
	OpenTimeout     time.Duration
	HalfOpenMaxReqs uint32
	CountInterval   time.Duration
}

// Metrics holds the Prometheus series shared by every breaker a Manager
// creates; registered once, regardless of how many Managers exist.
type Metrics struct {
	state    *prometheus.GaugeVec
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

func initMetrics() {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			state: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "fxengine_circuit_breaker_state",
					Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
				},
				[]string{"service"},
			),
			requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fxengine_circuit_breaker_requests_total",
					Help: "Total number of requests through a circuit breaker",
				},
				[]string{"service", "result"},
			),
			failures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fxengine_circuit_breaker_failures_total",
					Help: "Total number of failures tracked by a circuit breaker",
				},
				[]string{"service"},
			),
		}
	})
}

// RecordRequest records one request's outcome against the shared metrics.
func (m *Metrics) RecordRequest(service string, success bool) {
	result := ResultSuccess
	if !success {
		result = ResultFailure
		m.failures.WithLabelValues(service).Inc()
	}
	m.requests.WithLabelValues(service, result).Inc()
}

// Manager lazily creates and owns named circuit breakers. Unlike a
// fixed exchange/llm/database triad, breakers here are keyed by
// whatever service name the caller chooses (e.g. "rate_source",
// "deals_db"), so new collaborators don't require new manager fields.
type Manager struct {
	mu         sync.RWMutex
	breakers   map[string]*gobreaker.CircuitBreaker
	metrics    *Metrics
	passthrough bool
}

// NewManager constructs a Manager backed by the shared metrics singleton.
func NewManager() *Manager {
	initMetrics()
	return &Manager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		metrics:  globalMetrics,
	}
}

// NewPassthroughManager returns a Manager whose breakers never trip,
// regardless of the settings passed to Breaker; useful in tests that
// exercise a caller without exercising resilience.
func NewPassthroughManager() *Manager {
	initMetrics()
	return &Manager{
		breakers:    make(map[string]*gobreaker.CircuitBreaker),
		metrics:     globalMetrics,
		passthrough: true,
	}
}

// Breaker returns the named circuit breaker, creating it with the given
// settings on first use. Subsequent calls for the same name ignore the
// settings argument and return the existing breaker.
func (m *Manager) Breaker(name string, settings ServiceSettings) *gobreaker.CircuitBreaker {
	m.mu.RLock()
	if b, ok := m.breakers[name]; ok {
		m.mu.RUnlock()
		return b
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}

	readyToTrip := func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= settings.MinRequests && failureRatio >= settings.FailureRatio
	}
	if m.passthrough {
		readyToTrip = func(gobreaker.Counts) bool { return false }
	}

	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.HalfOpenMaxReqs,
		Interval:    settings.CountInterval,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			m.updateStateMetric(name, to)
		},
	})
	m.breakers[name] = b
	m.updateStateMetric(name, b.State())
	return b
}

func (m *Manager) updateStateMetric(service string, state gobreaker.State) {
	var stateValue float64
	switch state {
	case gobreaker.StateClosed:
		stateValue = 0
	case gobreaker.StateOpen:
		stateValue = 1
	case gobreaker.StateHalfOpen:
		stateValue = 2
	}
	m.metrics.state.WithLabelValues(service).Set(stateValue)
}

// Metrics returns the metrics instance for manual recording alongside
// Execute calls.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}
