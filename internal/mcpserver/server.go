// Package mcpserver exposes the rating service as MCP tools, over stdio for
// local agents or mounted on the HTTP API.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/squadlab/posrating/internal/service"
)

// Name is the MCP implementation name.
const Name = "posrating"

// PlayerArgs selects one upstream player.
type PlayerArgs struct {
	PlayerID uint `json:"player_id" jsonschema:"Upstream player id (required)"`
	Refresh  bool `json:"refresh,omitempty" jsonschema:"Bypass the player cache"`
}

// HistoryArgs selects stored reports for a player.
type HistoryArgs struct {
	PlayerID uint `json:"player_id" jsonschema:"Upstream player id (required)"`
	Limit    int  `json:"limit,omitempty" jsonschema:"Maximum reports, newest first (default 10)"`
}

// AttributesArgs describes a player inline.
type AttributesArgs struct {
	Attributes map[string]int `json:"attributes" jsonschema:"Attribute values keyed by code or name: PAC SHO PAS DRI DEF PHY GK"`
	Positions  []string       `json:"positions" jsonschema:"Position codes, primary first"`
	Overall    *int           `json:"overall,omitempty" jsonschema:"Reported overall rating at the primary position"`
}

// EmptyArgs is used by tools without parameters.
type EmptyArgs struct{}

// New builds an MCP server whose tools call svc.
func New(svc *service.Service, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rate_player",
		Description: "Fetch a player from the player API and rate them at every position",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args PlayerArgs) (*mcp.CallToolResult, any, error) {
		if args.PlayerID == 0 {
			return toolError(fmt.Errorf("player_id is required")), nil, nil
		}
		if args.Refresh {
			svc.InvalidatePlayer(args.PlayerID)
		}
		return toolJSON(svc.RatePlayer(ctx, args.PlayerID))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rate_attributes",
		Description: "Rate an inline attribute set at every position without storing the result",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AttributesArgs) (*mcp.CallToolResult, any, error) {
		return toolJSON(svc.RateAttributes(ctx, service.AttributesRequest{
			Attributes: args.Attributes,
			Positions:  args.Positions,
			Overall:    args.Overall,
		}))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rating_history",
		Description: "Stored rating reports for a player, newest first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args HistoryArgs) (*mcp.CallToolResult, any, error) {
		if args.PlayerID == 0 {
			return toolError(fmt.Errorf("player_id is required")), nil, nil
		}
		limit := args.Limit
		if limit <= 0 {
			limit = 10
		}
		return toolJSON(svc.History(ctx, args.PlayerID, limit))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rating_tables",
		Description: "The active weight, familiarity and penalty tables",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args EmptyArgs) (*mcp.CallToolResult, any, error) {
		return toolJSON(svc.Tables().Document(), nil)
	})

	return server
}

// Handler serves server over streamable HTTP.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)
}

// RunStdio serves server on stdin/stdout until ctx ends or the client disconnects.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func toolJSON(v any, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return toolError(err), nil, nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}
