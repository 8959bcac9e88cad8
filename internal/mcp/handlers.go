package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/errors"
	"github.com/hpungsan/kenbot/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	gen      ops.TextGenerator
	stickers ops.StickerFetcher
}

// NewHandlers creates a new Handlers instance. gen and stickers may be nil.
func NewHandlers(db *sql.DB, cfg *config.Config, gen ops.TextGenerator, stickers ops.StickerFetcher) *Handlers {
	return &Handlers{db: db, cfg: cfg, gen: gen, stickers: stickers}
}

// Request types for each tool

// GenerateRequest represents the arguments for listing_generate.
type GenerateRequest struct {
	Vehicle      map[string]any `json:"vehicle"`
	StickerLines []string       `json:"sticker_lines,omitempty"`
	Slug         string         `json:"slug,omitempty"`
	AI           bool           `json:"ai,omitempty"`
	Strict       *bool          `json:"strict,omitempty"`
}

// ClassifyRequest represents the arguments for listing_classify.
type ClassifyRequest struct {
	Vehicle map[string]any `json:"vehicle"`
}

// StickerParseRequest represents the arguments for sticker_parse.
type StickerParseRequest struct {
	Lines []string `json:"lines"`
}

// StickerFetchRequest represents the arguments for sticker_fetch.
type StickerFetchRequest struct {
	VIN     string `json:"vin"`
	Refresh bool   `json:"refresh,omitempty"`
}

// StickerPurgeRequest represents the arguments for sticker_purge.
type StickerPurgeRequest struct {
	VIN           string `json:"vin,omitempty"`
	OlderThanDays *int   `json:"older_than_days,omitempty"`
}

// Handler implementations

// HandleGenerate handles the listing_generate tool call.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GenerateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Generate(ctx, h.cfg, h.gen, ops.GenerateInput{
		Vehicle:      input.Vehicle,
		StickerLines: input.StickerLines,
		Slug:         input.Slug,
		UseAI:        input.AI,
		Strict:       input.Strict,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleClassify handles the listing_classify tool call.
func (h *Handlers) HandleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClassifyRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Classify(h.cfg, ops.ClassifyInput{Vehicle: input.Vehicle})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStickerParse handles the sticker_parse tool call.
func (h *Handlers) HandleStickerParse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StickerParseRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(ops.ParseSticker(ops.ParseStickerInput{Lines: input.Lines}))
}

// HandleStickerFetch handles the sticker_fetch tool call.
func (h *Handlers) HandleStickerFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StickerFetchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.StickerFetch(ctx, h.db, h.cfg, h.stickers, ops.StickerFetchInput{
		VIN:     input.VIN,
		Refresh: input.Refresh,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStickerList handles the sticker_list tool call.
func (h *Handlers) HandleStickerList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.StickerList(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStickerPurge handles the sticker_purge tool call.
func (h *Handlers) HandleStickerPurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StickerPurgeRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.StickerPurge(ctx, h.db, ops.StickerPurgeInput{
		VIN:           input.VIN,
		OlderThanDays: input.OlderThanDays,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if kErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    kErr.Code,
			"message": kErr.Message,
			"status":  kErr.Status,
		}
		if kErr.Code != errors.ErrInternal && kErr.Details != nil {
			errorObj["details"] = kErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
