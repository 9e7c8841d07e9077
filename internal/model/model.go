package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ServiceInfo{},
	&RatingReport{},
	&PositionRating{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ServiceInfo records which rating tables produced the stored reports
type ServiceInfo struct {
	gorm.Model
	ServiceName   string `json:"serviceName" gorm:"size:64"`
	TablesVersion string `json:"tablesVersion" gorm:"size:64"`
}

func (*ServiceInfo) TableName() string {
	return "service_infos"
}

////////////////////////
// RATING MODELS
////////////////////////

// RatingReport is one rating run for a player. The latest row per
// PlayerID is the current report.
type RatingReport struct {
	gorm.Model
	PlayerID           uint             `json:"playerId" gorm:"index:idx_rating_report_player_id"`
	Name               string           `json:"name" gorm:"size:127"`
	Primary            string           `json:"primary" gorm:"size:3"`
	Secondary          datatypes.JSON   `json:"secondary"`
	Overall            *int             `json:"overall"`
	Best               string           `json:"best" gorm:"size:3"`
	Top3               datatypes.JSON   `json:"top3"`
	OverallDiscrepancy int              `json:"overallDiscrepancy"`
	Warnings           datatypes.JSON   `json:"warnings"`
	TablesVersion      string           `json:"tablesVersion" gorm:"size:64"`
	RatedAt            time.Time        `json:"ratedAt" gorm:"index:idx_rating_report_rated_at"`
	Ratings            []PositionRating `json:"ratings" gorm:"foreignKey:ReportID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*RatingReport) TableName() string {
	return "rating_reports"
}

// PositionRating is the rating at one position within a report
type PositionRating struct {
	ID          uint    `json:"id" gorm:"primarykey"`
	ReportID    uint    `json:"reportId" gorm:"index:idx_position_rating_report_id"`
	Position    string  `json:"position" gorm:"size:3"`
	Rating      int     `json:"rating"`
	Familiarity string  `json:"familiarity" gorm:"size:16"`
	Difference  int     `json:"difference"`
	WeightedSum float64 `json:"weightedSum"`
}

func (*PositionRating) TableName() string {
	return "position_ratings"
}
