package rating

import (
	"sort"

	"github.com/squadlab/posrating/pkg/core"
)

// SelectBest orders ratings by rating, then familiarity (both descending), then
// canonical position order, and returns the best position and the top three.
// The input slice is not modified.
func SelectBest(ratings []core.PositionRating) (core.Position, []core.Position) {
	if len(ratings) == 0 {
		return 0, nil
	}

	sorted := append([]core.PositionRating(nil), ratings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if a.Familiarity != b.Familiarity {
			return a.Familiarity > b.Familiarity
		}
		return a.Position < b.Position
	})

	n := min(3, len(sorted))
	top := make([]core.Position, n)
	for i := 0; i < n; i++ {
		top[i] = sorted[i].Position
	}
	return top[0], top
}
