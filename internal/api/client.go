// internal/api/client.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/squadlab/posrating/pkg/core"
)

// DefaultTimeout bounds every upstream request.
const DefaultTimeout = 30 * time.Second

var (
	// ErrPlayerNotFound is returned when the upstream API has no such player.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrUpstream is returned for transport failures and unexpected statuses.
	ErrUpstream = errors.New("upstream request failed")
)

// Client fetches player data from the upstream player API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return NewWithTimeout(baseURL, apiKey, DefaultTimeout)
}

// NewWithTimeout creates a client with a custom request timeout.
func NewWithTimeout(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Healthcheck checks if the upstream API is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := c.newRequest(ctx, "/healthcheck")
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// playerResponse is the upstream envelope for GET /players/{id}.
type playerResponse struct {
	Player struct {
		ID       uint           `json:"id"`
		Metadata playerMetadata `json:"metadata"`
	} `json:"player"`
}

type playerMetadata struct {
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Overall     *int     `json:"overall"`
	Pace        *int     `json:"pace"`
	Shooting    *int     `json:"shooting"`
	Passing     *int     `json:"passing"`
	Dribbling   *int     `json:"dribbling"`
	Defense     *int     `json:"defense"`
	Physical    *int     `json:"physical"`
	Goalkeeping *int     `json:"goalkeeping"`
	Positions   []string `json:"positions"`
}

// GetPlayer fetches and decodes one player. Attributes absent upstream are
// left out of the result rather than set to zero.
func (c *Client) GetPlayer(ctx context.Context, id uint) (core.Player, error) {
	req, err := c.newRequest(ctx, fmt.Sprintf("/players/%d", id))
	if err != nil {
		return core.Player{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Player{}, fmt.Errorf("%w: player %d: %v", ErrUpstream, id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return core.Player{}, fmt.Errorf("%w: %d", ErrPlayerNotFound, id)
	case resp.StatusCode != http.StatusOK:
		return core.Player{}, fmt.Errorf("%w: player %d: status %d", ErrUpstream, id, resp.StatusCode)
	}

	var body playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.Player{}, fmt.Errorf("%w: player %d: invalid body: %v", ErrUpstream, id, err)
	}

	positions, err := core.ParsePositions(body.Player.Metadata.Positions)
	if err != nil {
		// bad data from upstream, not from the caller
		return core.Player{}, fmt.Errorf("%w: player %d: %w", ErrUpstream, id, err)
	}

	md := body.Player.Metadata
	attrs := core.Attributes{}
	for attr, v := range map[core.Attribute]*int{
		core.Pace:        md.Pace,
		core.Shooting:    md.Shooting,
		core.Passing:     md.Passing,
		core.Dribbling:   md.Dribbling,
		core.Defense:     md.Defense,
		core.Physical:    md.Physical,
		core.Goalkeeping: md.Goalkeeping,
	} {
		if v != nil {
			attrs[attr] = *v
		}
	}

	playerID := body.Player.ID
	if playerID == 0 {
		playerID = id
	}

	return core.Player{
		ID:         playerID,
		FirstName:  md.FirstName,
		LastName:   md.LastName,
		Attributes: attrs,
		Positions:  positions,
		Overall:    md.Overall,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return req, nil
}
