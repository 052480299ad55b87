package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/company-sift/internal/model"
	"github.com/sells-group/company-sift/internal/resilience"
)

type breakerSearcher struct {
	next Searcher
	cb   *resilience.CircuitBreaker
}

// WithCircuitBreaker guards s with cb. Once the circuit opens, searches fail
// with resilience.ErrCircuitOpen, which Enrich treats as fatal for the run.
func WithCircuitBreaker(s Searcher, cb *resilience.CircuitBreaker) Searcher {
	return &breakerSearcher{next: s, cb: cb}
}

func (b *breakerSearcher) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	return resilience.Execute(ctx, b.cb, func(ctx context.Context) ([]model.SearchResult, error) {
		return b.next.Search(ctx, query, maxResults)
	})
}

// NewSearchBreaker returns a breaker that opens after threshold consecutive
// search failures and logs its transitions.
func NewSearchBreaker(threshold, cooldownSecs int) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.BreakerConfig{
		FailureThreshold: threshold,
		Cooldown:         time.Duration(cooldownSecs) * time.Second,
		OnStateChange: func(from, to resilience.CircuitState) {
			zap.L().Warn("pipeline: search circuit changed state",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
}
