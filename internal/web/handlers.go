package web

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/errors"
	"github.com/hpungsan/kenbot/internal/listing"
	"github.com/hpungsan/kenbot/internal/ops"
)

// maxJobBytes bounds a /generate or /preview request body.
const maxJobBytes = 1 << 20

// Handlers contains HTTP route handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	gen      ops.TextGenerator
	stickers ops.StickerFetcher
	renderer *Renderer
	log      *slog.Logger
	version  string
}

// Job is the body of POST /generate and POST /preview.
type Job struct {
	Slug         string         `json:"slug"`
	Event        string         `json:"event,omitempty"`
	Vehicle      map[string]any `json:"vehicle"`
	StickerLines []string       `json:"sticker_lines,omitempty"`
	AI           bool           `json:"ai,omitempty"`
	Strict       *bool          `json:"strict,omitempty"`
}

// GenerateResponse is the body returned by POST /generate.
type GenerateResponse struct {
	Slug            string `json:"slug"`
	Event           string `json:"event"`
	ID              string `json:"id"`
	Category        string `json:"category"`
	EquipmentSource string `json:"equipment_source,omitempty"`
	Generator       string `json:"generator"`
	Placeholder     bool   `json:"placeholder,omitempty"`
	FacebookText    string `json:"facebook_text"`
	MarketplaceText string `json:"marketplace_text"`
	MarketplaceLen  int    `json:"marketplace_chars"`
}

// HandleRoot handles GET / and identifies the service.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "kenbot",
		"version": h.version,
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.log.Error("health check failed", "error", err)
			renderJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	renderJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleGenerate handles POST /generate, producing both listings for a job.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	job, result, err := h.runJob(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, GenerateResponse{
		Slug:            job.Slug,
		Event:           job.Event,
		ID:              result.ID,
		Category:        result.Category.String(),
		EquipmentSource: string(result.EquipmentSource),
		Generator:       result.Generator,
		Placeholder:     result.Placeholder,
		FacebookText:    result.LongForm,
		MarketplaceText: result.ShortForm,
		MarketplaceLen:  result.ShortFormChars,
	})
}

// HandlePreview handles POST /preview: the same job rendered as an HTML page.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	_, result, err := h.runJob(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	title := result.Title
	if title == "" {
		title = "Aperçu"
	}
	h.renderer.renderPage(w, "preview", PreviewPageData{
		PageData: PageData{
			Title:   title,
			Version: h.version,
		},
		Result:    result,
		LongHTML:  renderListing(result.LongForm),
		ShortHTML: renderListing(result.ShortForm),
		Limit:     h.shortFormLimit(),
	})
}

func (h *Handlers) shortFormLimit() int {
	if h.cfg != nil && h.cfg.ShortFormLimit > 0 {
		return h.cfg.ShortFormLimit
	}
	return listing.DefaultShortFormLimit
}

// runJob decodes a Job and generates its listings.
func (h *Handlers) runJob(w http.ResponseWriter, r *http.Request) (*Job, *ops.GenerateOutput, error) {
	job, err := decodeJob(w, r)
	if err != nil {
		return nil, nil, err
	}

	result, err := ops.Generate(r.Context(), h.cfg, h.gen, ops.GenerateInput{
		Vehicle:      job.Vehicle,
		StickerLines: job.StickerLines,
		Slug:         job.Slug,
		UseAI:        job.AI,
		Strict:       job.Strict,
	})
	if err != nil {
		return nil, nil, err
	}
	return job, result, nil
}

func decodeJob(w http.ResponseWriter, r *http.Request) (*Job, error) {
	body := http.MaxBytesReader(w, r.Body, maxJobBytes)
	var job Job
	if err := json.NewDecoder(body).Decode(&job); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case stderrors.As(err, &maxErr):
			return nil, errors.NewInvalidRequest(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case stderrors.Is(err, io.EOF):
			return nil, errors.NewInvalidRequest("request body is required")
		default:
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid JSON: %v", err))
		}
	}
	if job.Vehicle == nil {
		return nil, errors.NewInvalidRequest("vehicle is required")
	}
	if job.Event == "" {
		job.Event = "NEW"
	}
	return &job, nil
}

// HandleStickerList handles GET /stickers, listing cached stickers.
func (h *Handlers) HandleStickerList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.StickerList(r.Context(), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if !wantsHTML(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderer.renderPage(w, "stickers", StickersPageData{
		PageData: PageData{
			Title:   "Window stickers",
			Version: h.version,
		},
		Items: result.Items,
	})
}

// HandleStickerGet handles GET /stickers/{vin}, serving a cached PDF.
func (h *Handlers) HandleStickerGet(w http.ResponseWriter, r *http.Request) {
	result, err := ops.StickerGet(r.Context(), h.db, r.PathValue("vin"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.PDF)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, result.VIN))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.PDF)
}

// HandleStickerFetch handles POST /stickers/{vin}/fetch (read-through cache).
func (h *Handlers) HandleStickerFetch(w http.ResponseWriter, r *http.Request) {
	result, err := ops.StickerFetch(r.Context(), h.db, h.cfg, h.stickers, ops.StickerFetchInput{
		VIN:     r.PathValue("vin"),
		Refresh: parseBoolParam(r, "refresh"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
