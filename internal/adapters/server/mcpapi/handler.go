// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/colibri-os/rlab/internal/adapters/server/common"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the progress tools.
func NewHandler(cfg Config, service common.ReputationService) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("reputation service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerProgressTool(mcpSrv, service)
	registerTimelineTool(mcpSrv, service)
	registerSubmitEventTool(mcpSrv, service)
	registerCatalogTools(mcpSrv, service)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "rlab"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerProgressTool registers the `rlab.progress` tool.
func registerProgressTool(srv *mcpserver.MCPServer, service common.ProgressReader) {
	srv.AddTool(
		mcp.NewTool(
			"rlab.progress",
			mcp.WithDescription("Return per-category counts, the completion index, and the current and next level."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			progress, err := service.Progress(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(progress)
			if err != nil {
				return nil, fmt.Errorf("encode progress result: %w", err)
			}
			return result, nil
		},
	)
}

// registerTimelineTool registers the `rlab.timeline` tool.
func registerTimelineTool(srv *mcpserver.MCPServer, service common.TimelineReader) {
	srv.AddTool(
		mcp.NewTool(
			"rlab.timeline",
			mcp.WithDescription("List recorded events newest first, optionally filtered by category and kind."),
			mcp.WithString("category", mcp.Description("Category id"), mcp.Enum(common.SupportedCategories()...)),
			mcp.WithString("kind", mcp.Description("Event kind"), mcp.Enum(common.SupportedKinds()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			timeline, err := service.Timeline(ctx, common.TimelineRequest{
				Category: req.GetString("category", ""),
				Kind:     req.GetString("kind", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(timeline)
			if err != nil {
				return nil, fmt.Errorf("encode timeline result: %w", err)
			}
			return result, nil
		},
	)
}

// registerSubmitEventTool registers the `rlab.submit_event` tool.
func registerSubmitEventTool(srv *mcpserver.MCPServer, service common.EventSubmitter) {
	srv.AddTool(
		mcp.NewTool(
			"rlab.submit_event",
			mcp.WithDescription("Record one micro-action, evidence, or milestone."),
			mcp.WithString("kind", mcp.Required(), mcp.Description("Event kind"), mcp.Enum(common.SupportedKinds()...)),
			mcp.WithString("category", mcp.Description("Category id (required for micro-actions and evidence)"), mcp.Enum(common.SupportedCategories()...)),
			mcp.WithString("title", mcp.Required(), mcp.Description("Short title")),
			mcp.WithString("description", mcp.Required(), mcp.Description("What was done")),
			mcp.WithBoolean("registered_externally", mcp.Description("Whether the entry was also registered on Story")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			kind, err := req.RequireString("kind")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			description, err := req.RequireString("description")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			submitted, err := service.SubmitEvent(ctx, common.SubmitEventRequest{
				Kind:                 kind,
				Category:             req.GetString("category", ""),
				Title:                title,
				Description:          description,
				RegisteredExternally: req.GetBool("registered_externally", false),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(submitted)
			if err != nil {
				return nil, fmt.Errorf("encode submit_event result: %w", err)
			}
			return result, nil
		},
	)
}

// registerCatalogTools registers the `rlab.categories` and `rlab.levels` tools.
func registerCatalogTools(srv *mcpserver.MCPServer, service common.CatalogReader) {
	srv.AddTool(
		mcp.NewTool(
			"rlab.categories",
			mcp.WithDescription("List the seven progress categories with labels and hints."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			categories, err := service.Categories(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"categories": categories,
			})
			if err != nil {
				return nil, fmt.Errorf("encode categories result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"rlab.levels",
			mcp.WithDescription("List the level ladder and its thresholds."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			levels, err := service.Levels(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"levels": levels,
			})
			if err != nil {
				return nil, fmt.Errorf("encode levels result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrConflict):
		return mcp.NewToolResultError("conflict: " + err.Error())
	case errors.Is(err, common.ErrStorageUnavailable):
		return mcp.NewToolResultError("storage_unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
