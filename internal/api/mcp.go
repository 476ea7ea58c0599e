package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/cropdoc/internal/analysis"
	"github.com/kalambet/cropdoc/internal/service"
	"github.com/kalambet/cropdoc/internal/weather"
)

const recentResourceLimit = 10

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Analyzer Analyzer
	History  HistoryReader
	Weather  WeatherReporter // optional; weather_advisories returns an error when nil
	Profile  ProfileStore    // optional
}

// NewMCPServer creates an MCP server with the cropdoc tools and resources.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"cropdoc",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("cropdoc: crop, soil and yield analysis for farmers, plus git error explanations."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_git_error",
			mcp.WithDescription("Explain a git error message and suggest the command that fixes it."),
			mcp.WithString("message", mcp.Description("The git error output"), mcp.Required()),
			mcp.WithString("command", mcp.Description("The git command that produced the error")),
		),
		mcpAnalyzeGitError(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_soil",
			mcp.WithDescription("Assess soil type, pH, moisture and nutrients from one or more base64-encoded photos."),
			mcp.WithArray("images", mcp.Description("Base64 or data-URL encoded soil photos"), mcp.Required()),
			mcp.WithString("location", mcp.Description("Where the sample was taken")),
			mcp.WithString("notes", mcp.Description("Observations from the farmer")),
		),
		mcpAnalyzeSoil(deps),
	)

	s.AddTool(
		mcp.NewTool("list_history",
			mcp.WithDescription("List stored analyses, newest first."),
			mcp.WithString("type", mcp.Description("Restrict to one analysis type: disease, soil, yield or git-error")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of records (default 10)")),
		),
		mcpListHistory(deps),
	)

	s.AddTool(
		mcp.NewTool("weather_advisories",
			mcp.WithDescription("Fetch the forecast for a place or coordinates and return farming advisories."),
			mcp.WithString("place", mcp.Description("Place name, e.g. Nakuru, KE")),
			mcp.WithNumber("lat", mcp.Description("Latitude")),
			mcp.WithNumber("lon", mcp.Description("Longitude")),
		),
		mcpWeatherAdvisories(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"history://recent",
			"Recent Analyses",
			mcp.WithResourceDescription("The most recent stored analyses as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"profile://farm",
			"Farm Profile",
			mcp.WithResourceDescription("The farm's location, crops, field area and treatment preference as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpAnalyzeGitError(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil || message == "" {
			return mcpError("message is required"), nil
		}
		out, err := deps.Analyzer.AnalyzeGitError(ctx, "", service.GitErrorRequest{
			Message: message,
			Command: req.GetString("command", ""),
		})
		if err != nil {
			return mcpError(toolMessage(err)), nil
		}
		return mcpJSON(out)
	}
}

func mcpAnalyzeSoil(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		images := req.GetStringSlice("images", nil)
		if len(images) == 0 {
			return mcpError("images is required"), nil
		}
		soil := service.SoilRequest{
			Images:   images,
			Location: req.GetString("location", ""),
			Notes:    req.GetString("notes", ""),
		}
		withSoilDefaults(ctx, deps.Profile, &soil)
		out, err := deps.Analyzer.AnalyzeSoil(ctx, "", soil)
		if err != nil {
			return mcpError(toolMessage(err)), nil
		}
		return mcpJSON(out)
	}
}

func mcpListHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		recordType := req.GetString("type", "")
		if recordType != "" {
			if _, err := analysis.ParseKind(recordType); err != nil {
				return mcpError(err.Error()), nil
			}
		}
		limit := req.GetInt("limit", recentResourceLimit)
		if limit <= 0 {
			limit = recentResourceLimit
		}
		if limit > 100 {
			limit = 100
		}

		recs, err := deps.History.Recent(ctx, recordType, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("listing history failed: %v", err)), nil
		}
		return mcpJSON(recs)
	}
}

func mcpWeatherAdvisories(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Weather == nil {
			return mcpError("weather service is not configured"), nil
		}
		q := weather.Query{Place: req.GetString("place", "")}
		args := req.GetArguments()
		if _, ok := args["lat"]; ok {
			lat := req.GetFloat("lat", 0)
			q.Lat = &lat
		}
		if _, ok := args["lon"]; ok {
			lon := req.GetFloat("lon", 0)
			q.Lon = &lon
		}
		if emptyQuery(q) {
			q = profileQuery(farmProfile(ctx, deps.Profile))
		}

		report, err := deps.Weather.Report(ctx, q)
		if err != nil {
			return mcpError(toolMessage(err)), nil
		}
		return mcpJSON(struct {
			Location   weather.Location   `json:"location"`
			Advisories []weather.Advisory `json:"advisories"`
		}{report.Location, report.Advisories})
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		recs, err := deps.History.Recent(ctx, "", recentResourceLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent analyses: %w", err)
		}

		b, err := json.Marshal(recs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal analyses: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(farmProfile(ctx, deps.Profile))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// toolMessage keeps provider details out of tool output.
func toolMessage(err error) string {
	var unavailable *service.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		return unavailable.Error()
	case errors.Is(err, weather.ErrPlaceNotFound):
		return "place not found"
	case errors.Is(err, weather.ErrNoAPIKey):
		return "weather service is not configured"
	default:
		return err.Error()
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
