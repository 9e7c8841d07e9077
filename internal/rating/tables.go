package rating

import (
	"errors"
	"fmt"

	"github.com/squadlab/posrating/pkg/core"
)

// attribute column order inside a weight row
var weightColumns = [...]core.Attribute{
	core.Passing, core.Shooting, core.Defense, core.Dribbling, core.Pace, core.Physical, core.Goalkeeping,
}

const numColumns = len(weightColumns)

// WeightRow holds percentage weights in weightColumns order.
type WeightRow [numColumns]int

// Sum returns the total of the row.
func (r WeightRow) Sum() int {
	total := 0
	for _, w := range r {
		total += w
	}
	return total
}

// Tables is the fixed domain data the engine scores with. Values are never
// mutated once an Engine holds them.
type Tables struct {
	Version     string
	Weights     [core.NumPositions]WeightRow
	Familiarity [core.NumPositions][core.NumPositions]core.Familiarity
	Penalties   [core.Primary + 1]int
}

const builtinVersion = "builtin-1"

// familiarity shorthands for the matrix literal below
const (
	un = core.Unfamiliar
	sw = core.Somewhat
	fa = core.Secondary
	pr = core.Primary
)

// DefaultTables returns a copy of the built-in tables.
func DefaultTables() *Tables {
	return &Tables{
		Version: builtinVersion,
		Weights: [core.NumPositions]WeightRow{
			//         PAS SHO DEF DRI PAC PHY  GK
			/* ST  */ {10, 46, 0, 29, 10, 5, 0},
			/* CF  */ {24, 23, 0, 40, 13, 0, 0},
			/* LW  */ {24, 23, 0, 40, 13, 0, 0},
			/* RW  */ {24, 23, 0, 40, 13, 0, 0},
			/* CAM */ {34, 21, 0, 38, 7, 0, 0},
			/* CM  */ {43, 12, 10, 29, 0, 6, 0},
			/* LM  */ {43, 12, 0, 29, 9, 7, 0},
			/* RM  */ {43, 12, 0, 29, 9, 7, 0},
			/* CDM */ {28, 0, 40, 17, 0, 15, 0},
			/* LWB */ {19, 0, 44, 17, 10, 10, 0},
			/* RWB */ {19, 0, 44, 17, 10, 10, 0},
			/* LB  */ {19, 0, 52, 0, 14, 15, 0},
			/* RB  */ {19, 0, 52, 0, 14, 15, 0},
			/* CB  */ {5, 0, 64, 9, 2, 20, 0},
			/* GK  */ {0, 0, 0, 0, 0, 0, 100},
		},
		// rows: primary position, columns: target position
		Familiarity: [core.NumPositions][core.NumPositions]core.Familiarity{
			//         ST  CF  LW  RW  CAM CM  LM  RM  CDM LWB RWB LB  RB  CB  GK
			/* ST  */ {pr, fa, sw, sw, sw, un, un, un, un, un, un, un, un, un, un},
			/* CF  */ {fa, pr, sw, sw, fa, un, un, un, un, un, un, un, un, un, un},
			/* LW  */ {un, sw, pr, sw, sw, un, fa, un, un, un, un, un, un, un, un},
			/* RW  */ {un, sw, sw, pr, sw, un, un, fa, un, un, un, un, un, un, un},
			/* CAM */ {sw, fa, sw, sw, pr, fa, un, un, un, un, un, un, un, un, un},
			/* CM  */ {un, un, un, un, fa, pr, sw, sw, fa, un, un, un, un, un, un},
			/* LM  */ {un, un, fa, un, un, sw, pr, sw, un, sw, un, un, un, un, un},
			/* RM  */ {un, un, un, fa, un, sw, sw, pr, un, un, sw, un, un, un, un},
			/* CDM */ {un, un, un, un, sw, fa, un, un, pr, un, un, un, un, sw, un},
			/* LWB */ {un, un, un, un, un, un, sw, un, un, pr, sw, fa, un, un, un},
			/* RWB */ {un, un, un, un, un, un, un, sw, un, sw, pr, un, fa, un, un},
			/* LB  */ {un, un, un, un, un, un, un, un, un, fa, un, pr, sw, sw, un},
			/* RB  */ {un, un, un, un, un, un, un, un, un, un, fa, sw, pr, sw, un},
			/* CB  */ {un, un, un, un, un, un, un, un, sw, un, un, sw, sw, pr, un},
			/* GK  */ {un, un, un, un, un, un, un, un, un, un, un, un, un, un, pr},
		},
		Penalties: [core.Primary + 1]int{
			core.Unfamiliar: -20,
			core.Somewhat:   -8,
			core.Secondary:  -5,
			core.Primary:    0,
		},
	}
}

// Weight returns the percentage weight of attr for position p.
func (t *Tables) Weight(p core.Position, attr core.Attribute) int {
	i := columnOf(attr)
	if i < 0 {
		return 0
	}
	return t.Weights[p.Index()][i]
}

// FamiliarityOf returns how familiar a player registered at primary is with target.
// A player's own primary position is always Primary.
func (t *Tables) FamiliarityOf(primary, target core.Position) core.Familiarity {
	if primary == target {
		return core.Primary
	}
	return t.Familiarity[primary.Index()][target.Index()]
}

// Penalty returns the additive penalty for a familiarity level.
func (t *Tables) Penalty(f core.Familiarity) int {
	return t.Penalties[f]
}

// Validate checks the table invariants and returns every violation found.
func (t *Tables) Validate() error {
	var errs []error
	gkCol := numColumns - 1

	for _, p := range core.AllPositions() {
		row := t.Weights[p.Index()]
		for i, w := range row {
			if w < 0 {
				errs = append(errs, fmt.Errorf("weights %s: negative weight %d for %s", p, w, weightColumns[i]))
			}
		}
		if p == core.GK {
			if row[gkCol] != 100 || row.Sum() != 100 {
				errs = append(errs, fmt.Errorf("weights GK: must be 100 on goalkeeping only, got %v", row))
			}
			continue
		}
		if row[gkCol] != 0 {
			errs = append(errs, fmt.Errorf("weights %s: goalkeeping weight must be 0, got %d", p, row[gkCol]))
		}
		if sum := row.Sum(); sum != 100 {
			errs = append(errs, fmt.Errorf("weights %s: sum is %d, want 100", p, sum))
		}
	}

	for _, from := range core.AllPositions() {
		for _, to := range core.AllPositions() {
			lvl := t.Familiarity[from.Index()][to.Index()]
			switch {
			case !lvl.Valid():
				errs = append(errs, fmt.Errorf("familiarity %s->%s: invalid level %d", from, to, uint8(lvl)))
			case from == to && lvl != core.Primary:
				errs = append(errs, fmt.Errorf("familiarity %s->%s: diagonal must be PRIMARY, got %s", from, to, lvl))
			case from != to && lvl == core.Primary:
				errs = append(errs, fmt.Errorf("familiarity %s->%s: PRIMARY only allowed on the diagonal", from, to))
			}
		}
	}

	if t.Penalties[core.Primary] != 0 {
		errs = append(errs, fmt.Errorf("penalties: PRIMARY must be 0, got %d", t.Penalties[core.Primary]))
	}
	for lvl := core.Unfamiliar; lvl < core.Primary; lvl++ {
		if t.Penalties[lvl] > t.Penalties[lvl+1] {
			errs = append(errs, fmt.Errorf("penalties: %s (%d) must not exceed %s (%d)",
				lvl, t.Penalties[lvl], lvl+1, t.Penalties[lvl+1]))
		}
		if t.Penalties[lvl] > 0 {
			errs = append(errs, fmt.Errorf("penalties: %s must not be positive, got %d", lvl, t.Penalties[lvl]))
		}
	}

	return errors.Join(errs...)
}
