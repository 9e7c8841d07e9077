package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/squadlab/posrating/internal/api"
	"github.com/squadlab/posrating/pkg/core"
)

// ErrInvalidRequest is returned for malformed inline rating requests.
var ErrInvalidRequest = errors.New("invalid rating request")

// AttributesRequest describes a player inline, without the upstream API.
// Attribute keys accept codes or names ("pac", "pace"); positions are codes,
// primary first.
type AttributesRequest struct {
	PlayerID   uint           `json:"playerId,omitempty"`
	Name       string         `json:"name,omitempty"`
	Attributes map[string]int `json:"attributes"`
	Positions  []string       `json:"positions"`
	Overall    *int           `json:"overall,omitempty"`
}

// Player converts the request into an engine input.
func (r AttributesRequest) Player() (core.Player, error) {
	attrs := make(core.Attributes, len(r.Attributes))
	for name, v := range r.Attributes {
		a, err := core.ParseAttribute(name)
		if err != nil {
			return core.Player{}, err
		}
		if _, dup := attrs[a]; dup {
			return core.Player{}, fmt.Errorf("%w: attribute %s given twice", ErrInvalidRequest, a)
		}
		attrs[a] = v
	}

	positions, err := core.ParsePositions(r.Positions)
	if err != nil {
		return core.Player{}, err
	}

	return core.Player{
		ID:         r.PlayerID,
		FirstName:  r.Name,
		Attributes: attrs,
		Positions:  positions,
		Overall:    r.Overall,
	}, nil
}

// Reason classifies an error for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, api.ErrUpstream), errors.Is(err, ErrNoPlayerSource):
		return "upstream"
	case errors.Is(err, core.ErrInvalidPosition):
		return "invalid_position"
	case errors.Is(err, core.ErrIncompleteAttributes):
		return "incomplete_attributes"
	case errors.Is(err, core.ErrOutOfRangeAttribute):
		return "out_of_range"
	case errors.Is(err, core.ErrUnknownAttribute):
		return "unknown_attribute"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, api.ErrPlayerNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal"
}

// IsInputError reports whether err was caused by the caller's input rather
// than by the service or its dependencies.
func IsInputError(err error) bool {
	switch Reason(err) {
	case "invalid_position", "incomplete_attributes", "out_of_range", "unknown_attribute", "invalid_request":
		return true
	}
	return false
}
