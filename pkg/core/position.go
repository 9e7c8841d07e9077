// pkg/core/position.go
package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Position is one of the 15 field positions. The zero value is not a valid
// position; use ParsePosition or the constants below.
type Position uint8

// Canonical position order. Ratings are always reported in this order and it
// is the last tie-breaker when picking the best position.
const (
	ST Position = iota + 1
	CF
	LW
	RW
	CAM
	CM
	LM
	RM
	CDM
	LWB
	RWB
	LB
	RB
	CB
	GK
)

// NumPositions is the size of the position enumeration.
const NumPositions = 15

var positionCodes = [NumPositions + 1]string{
	"", "ST", "CF", "LW", "RW", "CAM", "CM", "LM", "RM", "CDM", "LWB", "RWB", "LB", "RB", "CB", "GK",
}

// AllPositions returns the 15 positions in canonical order.
func AllPositions() []Position {
	out := make([]Position, 0, NumPositions)
	for p := ST; p <= GK; p++ {
		out = append(out, p)
	}
	return out
}

// ParsePosition converts a position code such as "lwb" or " CAM " to a Position.
func ParsePosition(code string) (Position, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	for i := 1; i <= NumPositions; i++ {
		if positionCodes[i] == c {
			return Position(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPosition, code)
}

// ParsePositions parses a list of position codes, failing on the first unknown one.
func ParsePositions(codes []string) ([]Position, error) {
	out := make([]Position, 0, len(codes))
	for _, c := range codes {
		p, err := ParsePosition(c)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Valid reports whether p is one of the 15 known positions.
func (p Position) Valid() bool {
	return p >= ST && p <= GK
}

// Index returns the zero-based canonical index of p. Only meaningful for valid positions.
func (p Position) Index() int {
	return int(p) - 1
}

func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Position(%d)", uint8(p))
	}
	return positionCodes[p]
}

// MarshalText encodes the position as its code.
func (p Position) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPosition, uint8(p))
	}
	return []byte(positionCodes[p]), nil
}

// UnmarshalText decodes a position code.
func (p *Position) UnmarshalText(b []byte) error {
	v, err := ParsePosition(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Familiarity is how natural a position is for a player.
type Familiarity uint8

const (
	Unfamiliar Familiarity = 0
	Somewhat   Familiarity = 1
	Secondary  Familiarity = 2 // "fairly familiar"
	Primary    Familiarity = 3
)

var familiarityNames = map[Familiarity]string{
	Unfamiliar: "UNFAMILIAR",
	Somewhat:   "SOMEWHAT",
	Secondary:  "SECONDARY",
	Primary:    "PRIMARY",
}

// Valid reports whether f is one of the four familiarity levels.
func (f Familiarity) Valid() bool {
	return f <= Primary
}

func (f Familiarity) String() string {
	if n, ok := familiarityNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Familiarity(%d)", uint8(f))
}

// MarshalJSON encodes the familiarity level as its name.
func (f Familiarity) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts either the level name or its numeric value.
func (f *Familiarity) UnmarshalJSON(b []byte) error {
	var n uint8
	if err := json.Unmarshal(b, &n); err == nil {
		if !Familiarity(n).Valid() {
			return fmt.Errorf("invalid familiarity level %d", n)
		}
		*f = Familiarity(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid familiarity %s", string(b))
	}
	parsed, err := ParseFamiliarity(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFamiliarity returns the familiarity level with the given name,
// ignoring case.
func ParseFamiliarity(name string) (Familiarity, error) {
	for k, n := range familiarityNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid familiarity %q", name)
}
