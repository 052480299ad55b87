package pipeline

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/sells-group/company-sift/internal/model"
	"github.com/sells-group/company-sift/pkg/ddg"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// --- Searcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	args := m.Called(ctx, query, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchResult), args.Error(1)
}

// --- DDG Client Mock ---

type mockDDGClient struct {
	mock.Mock
}

func (m *mockDDGClient) Search(ctx context.Context, query string, maxResults int) ([]ddg.Result, error) {
	args := m.Called(ctx, query, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ddg.Result), args.Error(1)
}

// --- Result Writer Fake ---

type memWriter struct {
	mu      sync.Mutex
	rows    []model.ScoredResult
	batches map[int]int
	err     error
}

func (w *memWriter) Write(results []model.ScoredResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, results...)
	return nil
}

func (w *memWriter) WriteBatch(batch int, results []model.ScoredResult) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.batches == nil {
		w.batches = map[int]int{}
	}
	w.batches[batch] = len(results)
	return "batch.csv", nil
}

// siteFor returns a result set in which the company's own site is the top
// hit and an unrelated page trails it.
func siteFor(host, title string) []model.SearchResult {
	return []model.SearchResult{
		{URL: "https://www." + host, Title: title, Position: 1},
		{URL: "https://random-website.com/" + host, Title: "Some random page", Position: 10},
	}
}

// searchFunc adapts a function to Searcher.
type searchFunc func(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)

func (f searchFunc) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	return f(ctx, query, maxResults)
}
