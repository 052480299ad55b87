package scorer

import (
	"math"
	"sort"

	"github.com/sells-group/company-sift/internal/domain"
	"github.com/sells-group/company-sift/internal/model"
)

// Result is the outcome of scoring one candidate.
type Result struct {
	Score     float64         `json:"score"`
	Breakdown model.Breakdown `json:"breakdown"`
}

// ConfidenceScorer rates candidates 0-100 on how likely they are to be the
// company's own website. It holds no per-call state and is safe for
// concurrent use.
type ConfidenceScorer struct {
	weights Weights
}

// NewConfidenceScorer creates a scorer with the given weights, normalized to
// sum to 1.
func NewConfidenceScorer(w Weights) *ConfidenceScorer {
	return &ConfidenceScorer{weights: w.Normalize()}
}

// Weights returns the normalized weights in use.
func (s *ConfidenceScorer) Weights() Weights {
	return s.weights
}

// Score rates r for company. Malformed URLs and empty titles degrade the
// affected signals to 0; Score never fails.
func (s *ConfidenceScorer) Score(company model.Company, r model.SearchResult) Result {
	host := domain.Normalize(r.URL)
	b := model.Breakdown{
		DomainMatch:    domainMatch(company.Name, host),
		TLDRelevance:   tldRelevance(host, IsUKPostcode(company.Postcode)),
		SearchPosition: positionScore(r.Position),
		TitleMatch:     titleMatch(company.Name, r.Title),
	}

	w := s.weights
	total := b.DomainMatch*w.DomainMatch +
		b.TLDRelevance*w.TLDRelevance +
		b.SearchPosition*w.SearchPosition +
		b.TitleMatch*w.TitleMatch

	score := math.Round(total*100*100) / 100
	score = math.Max(0, math.Min(100, score))

	return Result{Score: score, Breakdown: b}
}

// FilterByConfidence returns the results scoring at least threshold,
// preserving their order.
func (s *ConfidenceScorer) FilterByConfidence(company model.Company, results []model.SearchResult, threshold float64) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if s.Score(company, r).Score >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// Rank scores every result and sorts them by score, best first. Ties keep
// the better search position first.
func (s *ConfidenceScorer) Rank(company model.Company, results []model.SearchResult) []model.ScoredResult {
	out := make([]model.ScoredResult, 0, len(results))
	for _, r := range results {
		res := s.Score(company, r)
		sr, err := model.NewScoredResult(company, r, res.Score, res.Breakdown)
		if err != nil {
			// Score clamps to [0,100], so this is unreachable.
			continue
		}
		out = append(out, sr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Result.Position < out[j].Result.Position
	})
	return out
}
