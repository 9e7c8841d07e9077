// pkg/core/rating.go
package core

import "time"

// PositionRating is the estimated rating of a player at one position.
type PositionRating struct {
	Position    Position    `json:"position"`
	Rating      int         `json:"rating"`
	Familiarity Familiarity `json:"familiarity"`
	// Difference is round(WeightedSum) minus the rating before clamping.
	Difference int `json:"difference"`
	// WeightedSum is the pre-penalty score.
	WeightedSum float64 `json:"weightedSum"`
}

// RatingReport is the full result of rating one player at every position.
type RatingReport struct {
	PlayerID  uint             `json:"playerId"`
	Name      string           `json:"name,omitempty"`
	Primary   Position         `json:"primary"`
	Secondary []Position       `json:"secondary,omitempty"`
	Overall   *int             `json:"overall,omitempty"`
	Ratings   []PositionRating `json:"ratings"`
	Best      Position         `json:"best"`
	Top3      []Position       `json:"top3"`
	// OverallDiscrepancy is the formula rating at the primary position minus
	// the reported overall. Zero when they agree or no overall was supplied.
	OverallDiscrepancy int       `json:"overallDiscrepancy"`
	Warnings           []string  `json:"warnings,omitempty"`
	TablesVersion      string    `json:"tablesVersion"`
	RatedAt            time.Time `json:"ratedAt"`
}

// RatingFor returns the rating at p, if present in the report.
func (r *RatingReport) RatingFor(p Position) (PositionRating, bool) {
	for _, pr := range r.Ratings {
		if pr.Position == p {
			return pr, true
		}
	}
	return PositionRating{}, false
}
