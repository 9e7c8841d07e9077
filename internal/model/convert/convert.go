// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/squadlab/posrating/internal/model"
	"github.com/squadlab/posrating/pkg/core"
	"gorm.io/datatypes"
)

// positionsToJSON converts a []core.Position to datatypes.JSON for DB storage.
func positionsToJSON(ps []core.Position) datatypes.JSON {
	if len(ps) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(ps)
	return datatypes.JSON(data)
}

// stringsToJSON converts a []string to datatypes.JSON for DB storage.
func stringsToJSON(s []string) datatypes.JSON {
	if len(s) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(s)
	return datatypes.JSON(data)
}

func positionsFromJSON(data datatypes.JSON) ([]core.Position, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var ps []core.Position
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, nil
	}
	return ps, nil
}

// CoreToReport converts a core.RatingReport to a GORM model.RatingReport.
func CoreToReport(r *core.RatingReport) model.RatingReport {
	ratings := make([]model.PositionRating, 0, len(r.Ratings))
	for _, pr := range r.Ratings {
		ratings = append(ratings, model.PositionRating{
			Position:    pr.Position.String(),
			Rating:      pr.Rating,
			Familiarity: pr.Familiarity.String(),
			Difference:  pr.Difference,
			WeightedSum: pr.WeightedSum,
		})
	}

	return model.RatingReport{
		PlayerID:           r.PlayerID,
		Name:               r.Name,
		Primary:            r.Primary.String(),
		Secondary:          positionsToJSON(r.Secondary),
		Overall:            r.Overall,
		Best:               r.Best.String(),
		Top3:               positionsToJSON(r.Top3),
		OverallDiscrepancy: r.OverallDiscrepancy,
		Warnings:           stringsToJSON(r.Warnings),
		TablesVersion:      r.TablesVersion,
		RatedAt:            r.RatedAt,
		Ratings:            ratings,
	}
}

// ReportToCore converts a GORM model.RatingReport back to a core.RatingReport.
func ReportToCore(m model.RatingReport) (*core.RatingReport, error) {
	primary, err := core.ParsePosition(m.Primary)
	if err != nil {
		return nil, fmt.Errorf("report %d primary: %w", m.ID, err)
	}
	best, err := core.ParsePosition(m.Best)
	if err != nil {
		return nil, fmt.Errorf("report %d best: %w", m.ID, err)
	}
	secondary, err := positionsFromJSON(m.Secondary)
	if err != nil {
		return nil, fmt.Errorf("report %d secondary: %w", m.ID, err)
	}
	top3, err := positionsFromJSON(m.Top3)
	if err != nil {
		return nil, fmt.Errorf("report %d top3: %w", m.ID, err)
	}
	var warnings []string
	if len(m.Warnings) > 0 {
		if err := json.Unmarshal(m.Warnings, &warnings); err != nil {
			return nil, fmt.Errorf("report %d warnings: %w", m.ID, err)
		}
		if len(warnings) == 0 {
			warnings = nil
		}
	}

	ratings := make([]core.PositionRating, 0, len(m.Ratings))
	for _, pr := range m.Ratings {
		pos, err := core.ParsePosition(pr.Position)
		if err != nil {
			return nil, fmt.Errorf("report %d rating: %w", m.ID, err)
		}
		fam, err := core.ParseFamiliarity(pr.Familiarity)
		if err != nil {
			return nil, fmt.Errorf("report %d rating %s: %w", m.ID, pos, err)
		}
		ratings = append(ratings, core.PositionRating{
			Position:    pos,
			Rating:      pr.Rating,
			Familiarity: fam,
			Difference:  pr.Difference,
			WeightedSum: pr.WeightedSum,
		})
	}

	return &core.RatingReport{
		PlayerID:           m.PlayerID,
		Name:               m.Name,
		Primary:            primary,
		Secondary:          secondary,
		Overall:            m.Overall,
		Ratings:            ratings,
		Best:               best,
		Top3:               top3,
		OverallDiscrepancy: m.OverallDiscrepancy,
		Warnings:           warnings,
		TablesVersion:      m.TablesVersion,
		RatedAt:            m.RatedAt,
	}, nil
}
