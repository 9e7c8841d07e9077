// Package rating estimates a player's rating at every field position from
// their attributes, a per-position weight table and a familiarity penalty.
//
// The engine is pure: it performs no I/O, holds no mutable state and is safe
// for concurrent use. Anything worth logging is returned as report warnings.
package rating

import (
	"fmt"
	"strings"
	"time"

	"github.com/squadlab/posrating/pkg/core"
)

// OutOfRangePolicy decides what happens to attributes outside [0,99].
type OutOfRangePolicy string

const (
	// PolicyClamp clamps the attribute into range and records a warning.
	PolicyClamp OutOfRangePolicy = "clamp"
	// PolicyReject fails the call with core.ErrOutOfRangeAttribute.
	PolicyReject OutOfRangePolicy = "reject"
)

// ParseOutOfRangePolicy converts a config string to a policy.
func ParseOutOfRangePolicy(s string) (OutOfRangePolicy, error) {
	switch OutOfRangePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyClamp, "":
		return PolicyClamp, nil
	case PolicyReject:
		return PolicyReject, nil
	}
	return "", fmt.Errorf("unknown out-of-range policy %q", s)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTables replaces the built-in tables.
func WithTables(t *Tables) Option { return func(e *Engine) { e.tables = t } }

// WithOutOfRangePolicy sets the out-of-range attribute policy.
func WithOutOfRangePolicy(p OutOfRangePolicy) Option { return func(e *Engine) { e.policy = p } }

// WithPrimaryOverride toggles reporting the overall rating at the primary position.
func WithPrimaryOverride(enabled bool) Option { return func(e *Engine) { e.primaryOverride = enabled } }

// WithClock sets the time source used for RatingReport.RatedAt.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// Engine rates players. Create one with New; the zero value is not usable.
type Engine struct {
	tables          *Tables
	policy          OutOfRangePolicy
	primaryOverride bool
	now             func() time.Time
}

// New builds an Engine and validates its tables.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		tables:          DefaultTables(),
		policy:          PolicyClamp,
		primaryOverride: true,
		now:             time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.tables == nil {
		return nil, fmt.Errorf("rating tables are nil")
	}
	snapshot := *e.tables
	e.tables = &snapshot
	if err := e.tables.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rating tables: %w", err)
	}
	if e.policy != PolicyClamp && e.policy != PolicyReject {
		return nil, fmt.Errorf("unknown out-of-range policy %q", e.policy)
	}
	return e, nil
}

// Tables returns a copy of the tables the engine scores with.
func (e *Engine) Tables() *Tables {
	cp := *e.tables
	return &cp
}

// Result is the outcome of RateAllPositions.
type Result struct {
	Ratings            []core.PositionRating
	OverallDiscrepancy int
	Warnings           []string
}

// RateAllPositions rates the player at every position, in canonical order.
// overall may be nil; when set and the primary override is enabled it becomes
// the rating at the primary position.
func (e *Engine) RateAllPositions(attrs core.Attributes, primary core.Position, secondary []core.Position, overall *int) (Result, error) {
	if !primary.Valid() {
		return Result{}, fmt.Errorf("%w: primary %s", core.ErrInvalidPosition, primary)
	}
	for _, p := range secondary {
		if !p.Valid() {
			return Result{}, fmt.Errorf("%w: secondary %s", core.ErrInvalidPosition, p)
		}
	}
	if missing := attrs.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = string(m)
		}
		return Result{}, fmt.Errorf("%w: missing %s", core.ErrIncompleteAttributes, strings.Join(names, ","))
	}

	values, warnings, err := e.normalize(attrs)
	if err != nil {
		return Result{}, err
	}
	_, hasGK := attrs[core.Goalkeeping]
	if !hasGK && primary == core.GK {
		return Result{}, fmt.Errorf("%w: missing %s for primary GK", core.ErrIncompleteAttributes, core.Goalkeeping)
	}
	if !hasGK {
		warnings = append(warnings, "goalkeeping attribute missing, GK not rated")
	}

	res := Result{Ratings: make([]core.PositionRating, 0, core.NumPositions)}
	for _, p := range core.AllPositions() {
		if p == core.GK && !hasGK {
			continue
		}

		weighted := e.weightedHundredths(values, p)
		fam := e.tables.FamiliarityOf(primary, p)
		unclamped := roundHundredths(weighted + e.tables.Penalty(fam)*100)

		if p == primary && e.primaryOverride && overall != nil {
			res.OverallDiscrepancy = unclamped - *overall
			if res.OverallDiscrepancy != 0 {
				warnings = append(warnings, fmt.Sprintf(
					"formula rating %d at %s differs from reported overall %d", unclamped, p, *overall))
			}
			unclamped = *overall
		}

		res.Ratings = append(res.Ratings, core.PositionRating{
			Position:    p,
			Rating:      clamp(unclamped),
			Familiarity: fam,
			Difference:  roundHundredths(weighted) - unclamped,
			WeightedSum: float64(weighted) / 100,
		})
	}
	res.Warnings = warnings
	return res, nil
}

// Rate produces a full report for a player.
func (e *Engine) Rate(p core.Player) (*core.RatingReport, error) {
	primary, err := p.Primary()
	if err != nil {
		return nil, err
	}
	res, err := e.RateAllPositions(p.Attributes, primary, p.Secondary(), p.Overall)
	if err != nil {
		return nil, fmt.Errorf("player %d: %w", p.ID, err)
	}

	best, top3 := SelectBest(res.Ratings)
	return &core.RatingReport{
		PlayerID:           p.ID,
		Name:               p.Name(),
		Primary:            primary,
		Secondary:          append([]core.Position(nil), p.Secondary()...),
		Overall:            p.Overall,
		Ratings:            res.Ratings,
		Best:               best,
		Top3:               top3,
		OverallDiscrepancy: res.OverallDiscrepancy,
		Warnings:           res.Warnings,
		TablesVersion:      e.tables.Version,
		RatedAt:            e.now().UTC(),
	}, nil
}

// normalize applies the out-of-range policy and returns values in column order.
func (e *Engine) normalize(attrs core.Attributes) (WeightRow, []string, error) {
	var values WeightRow
	var warnings []string
	for i, attr := range weightColumns {
		v, ok := attrs[attr]
		if !ok {
			continue
		}
		if v < core.MinAttribute || v > core.MaxAttribute {
			if e.policy == PolicyReject {
				return values, nil, fmt.Errorf("%w: %s=%d", core.ErrOutOfRangeAttribute, attr, v)
			}
			warnings = append(warnings, fmt.Sprintf("%s=%d clamped to %d", attr, v, clamp(v)))
			v = clamp(v)
		}
		values[i] = v
	}
	return values, warnings, nil
}

// weightedHundredths returns the weighted sum scaled by 100 so rounding is exact.
func (e *Engine) weightedHundredths(values WeightRow, p core.Position) int {
	row := e.tables.Weights[p.Index()]
	total := 0
	for i := range row {
		total += values[i] * row[i]
	}
	return total
}

// roundHundredths rounds n/100 half away from zero.
func roundHundredths(n int) int {
	if n >= 0 {
		return (n + 50) / 100
	}
	return -((-n + 50) / 100)
}

func clamp(v int) int {
	if v < core.MinAttribute {
		return core.MinAttribute
	}
	if v > core.MaxAttribute {
		return core.MaxAttribute
	}
	return v
}
