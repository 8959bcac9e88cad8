package mcp

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"listing_generate": {
		def:     generateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGenerate },
	},
	"listing_classify": {
		def:     classifyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClassify },
	},
	"sticker_parse": {
		def:     stickerParseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStickerParse },
	},
	"sticker_fetch": {
		def:     stickerFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStickerFetch },
	},
	"sticker_list": {
		def:     stickerListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStickerList },
	},
	"sticker_purge": {
		def:     stickerPurgeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStickerPurge },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with kenbot tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, gen ops.TextGenerator, src ops.StickerFetcher, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"kenbot",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, gen, src)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}
	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		slog.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, gen ops.TextGenerator, src ops.StickerFetcher, version string) error {
	s := NewServer(db, cfg, gen, src, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
