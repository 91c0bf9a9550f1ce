package ratesource

import (
	"time"

	"github.com/ajitpratap0/fxengine/internal/resilience"
)

// BreakerSettings builds the rate-source circuit breaker's
// ServiceSettings from the raw config fields (internal/config avoids an
// import of this package to keep the dependency graph leaf-ward).
func BreakerSettings(minReqs uint32, failRatio float64, openDuration time.Duration) resilience.ServiceSettings {
	return resilience.ServiceSettings{
		MinRequests:     minReqs,
		FailureRatio:    failRatio,
		OpenTimeout:     openDuration,
		HalfOpenMaxReqs: 3,
		CountInterval:   10 * time.Second,
	}
}
