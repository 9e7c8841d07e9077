// pkg/core/player.go
package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPosition is returned for a position code outside the 15 known codes.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrIncompleteAttributes is returned when a required attribute is missing.
	ErrIncompleteAttributes = errors.New("incomplete attributes")
	// ErrOutOfRangeAttribute is returned for attributes outside [MinAttribute, MaxAttribute]
	// when the reject policy is active.
	ErrOutOfRangeAttribute = errors.New("attribute out of range")
	// ErrUnknownAttribute is returned by ParseAttribute for unrecognised names.
	ErrUnknownAttribute = errors.New("unknown attribute")
)

// Attribute bounds. Ratings share the same range.
const (
	MinAttribute = 0
	MaxAttribute = 99
)

// Attribute identifies one of the player attributes.
type Attribute string

const (
	Pace        Attribute = "PAC"
	Shooting    Attribute = "SHO"
	Passing     Attribute = "PAS"
	Dribbling   Attribute = "DRI"
	Defense     Attribute = "DEF"
	Physical    Attribute = "PHY"
	Goalkeeping Attribute = "GK"
)

// OutfieldAttributes are the six core attributes every player must carry.
var OutfieldAttributes = []Attribute{Passing, Shooting, Defense, Dribbling, Pace, Physical}

// AllAttributes is OutfieldAttributes plus goalkeeping.
var AllAttributes = []Attribute{Passing, Shooting, Defense, Dribbling, Pace, Physical, Goalkeeping}

// ParseAttribute converts "pac", "pace", "Goalkeeping" etc. to an Attribute.
func ParseAttribute(s string) (Attribute, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PAC", "PACE":
		return Pace, nil
	case "SHO", "SHOOTING":
		return Shooting, nil
	case "PAS", "PASSING":
		return Passing, nil
	case "DRI", "DRIBBLING":
		return Dribbling, nil
	case "DEF", "DEFENSE", "DEFENCE", "DEFENDING":
		return Defense, nil
	case "PHY", "PHYSICAL":
		return Physical, nil
	case "GK", "GOALKEEPING":
		return Goalkeeping, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownAttribute, s)
}

// Attributes holds a player's attribute values. A missing key means the value
// is unknown; it is never treated as zero.
type Attributes map[Attribute]int

// Get returns the value for a and whether it was present.
func (a Attributes) Get(attr Attribute) (int, bool) {
	v, ok := a[attr]
	return v, ok
}

// Missing returns the outfield attributes absent from a, in OutfieldAttributes order.
func (a Attributes) Missing() []Attribute {
	var out []Attribute
	for _, attr := range OutfieldAttributes {
		if _, ok := a[attr]; !ok {
			out = append(out, attr)
		}
	}
	return out
}

// Player is the input record for a rating run, typically decoded from the
// upstream player-data API.
type Player struct {
	ID         uint       `json:"id"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Attributes Attributes `json:"attributes"`
	// Positions lists the player's positions, primary first.
	Positions []Position `json:"positions"`
	// Overall is the externally reported overall rating, nil if unknown.
	Overall *int `json:"overall,omitempty"`
}

// Name returns the display name of the player.
func (p Player) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Primary returns the player's primary position.
func (p Player) Primary() (Position, error) {
	if len(p.Positions) == 0 {
		return 0, fmt.Errorf("%w: player %d has no positions", ErrInvalidPosition, p.ID)
	}
	if !p.Positions[0].Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPosition, uint8(p.Positions[0]))
	}
	return p.Positions[0], nil
}

// Secondary returns the positions after the primary one.
func (p Player) Secondary() []Position {
	if len(p.Positions) < 2 {
		return nil
	}
	return p.Positions[1:]
}
