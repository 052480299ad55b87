package ddg

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Floors below which error-driven slowdowns do not push the request rate.
const (
	rateLimitedFloor = 2.0
	serverErrorFloor = 3.0
)

// AdaptiveLimiter wraps a rate.Limiter whose rate backs off when the API
// pushes back and recovers slowly on success.
// On 429 the rate drops to 60% (not below 2 rps); on a server error to 80%
// (not below 3 rps). Success raises it by 10%, never above the initial rate.
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter starting at rps requests
// per second.
func NewAdaptiveLimiter(rps float64, burst int) *AdaptiveLimiter {
	if burst < 1 {
		burst = 1
	}
	r := rate.Limit(rps)
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(r, burst),
		initialRate: r,
		currentRate: r,
	}
}

// Wait blocks until the limiter allows a request.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess nudges the rate back towards its initial value.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentRate >= a.initialRate {
		return
	}
	a.set(min(a.initialRate, a.currentRate*1.1))
}

// OnRateLimit slows down after a 429 response.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.reduce(0.6, rateLimitedFloor, "429")
}

// OnServerError slows down after a 5xx response.
func (a *AdaptiveLimiter) OnServerError() {
	a.reduce(0.8, serverErrorFloor, "5xx")
}

func (a *AdaptiveLimiter) reduce(factor, floor float64, cause string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := max(rate.Limit(floor), a.currentRate*rate.Limit(factor))
	if next >= a.currentRate {
		return
	}
	a.set(next)
	zap.L().Warn("ddg: reducing search rate",
		zap.String("cause", cause),
		zap.Float64("new_rate", float64(next)),
	)
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.currentRate = r
	a.limiter.SetLimit(r)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}
