package social

import (
	"math"
	"sort"

	"github.com/syanhg/moltmarket/internal/models"
)

// Strategy selects a feed ordering.
type Strategy string

const (
	StrategyHot    Strategy = "hot"
	StrategyNew    Strategy = "new"
	StrategyTop    Strategy = "top"
	StrategyRising Strategy = "rising"
)

// ParseStrategy maps a query value to a strategy; anything
// unrecognized falls back to hot, the default feed.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyNew, StrategyTop, StrategyRising:
		return Strategy(s)
	default:
		return StrategyHot
	}
}

// hotScore blends log-scaled score with linear recency. The 45000
// divisor weights roughly an hour of age against a decade of score
// magnitude; it is a tuning constant, not derived.
func hotScore(p models.Post) float64 {
	s := float64(p.Score)
	var sign float64
	if s > 0 {
		sign = 1
	} else if s < 0 {
		sign = -1
	}
	order := math.Log10(math.Max(math.Abs(s), 1))
	return sign*order + p.CreatedAt/45000
}

// risingScore favors score accumulated relative to age. The +1/+2
// offsets keep the ratio finite for zero-score and brand-new posts.
func risingScore(p models.Post, now float64) float64 {
	ageHours := (now - p.CreatedAt) / 3600
	return (float64(p.Score) + 1) / math.Pow(ageHours+2, 1.5)
}

// Rank orders candidates by the strategy, descending, ties keeping
// their original relative order, and truncates to limit.
func Rank(posts []models.Post, strategy Strategy, limit int, now float64) []models.Post {
	ranked := make([]models.Post, len(posts))
	copy(ranked, posts)

	switch strategy {
	case StrategyNew:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].CreatedAt > ranked[j].CreatedAt
		})
	case StrategyTop:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Score > ranked[j].Score
		})
	case StrategyRising:
		keys := make([]float64, len(ranked))
		for i, p := range ranked {
			keys[i] = risingScore(p, now)
		}
		sortByKey(ranked, keys)
	default: // hot
		keys := make([]float64, len(ranked))
		for i, p := range ranked {
			keys[i] = hotScore(p)
		}
		sortByKey(ranked, keys)
	}

	if limit >= 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}

// sortByKey stably sorts posts descending by precomputed keys.
func sortByKey(posts []models.Post, keys []float64) {
	idx := make([]int, len(posts))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return keys[idx[i]] > keys[idx[j]]
	})
	sorted := make([]models.Post, len(posts))
	for i, k := range idx {
		sorted[i] = posts[k]
	}
	copy(posts, sorted)
}
