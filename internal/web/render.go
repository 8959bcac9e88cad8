package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/hpungsan/kenbot/internal/db"
	"github.com/hpungsan/kenbot/internal/errors"
	"github.com/hpungsan/kenbot/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// PreviewPageData is the template data for the listing preview page.
type PreviewPageData struct {
	PageData
	Result    *ops.GenerateOutput
	LongHTML  template.HTML
	ShortHTML template.HTML
	Limit     int
}

// StickersPageData is the template data for the sticker cache page.
type StickersPageData struct {
	PageData
	Items []db.StickerSummary
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime":  formatTime,
		"formatBytes": formatBytes,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"preview":  "preview.html",
		"stickers": "stickers.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		slog.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("template execution failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation: HTML for
// browsers, the JSON error envelope otherwise.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	kErr, ok := errors.As(err)
	if !ok {
		kErr = errors.NewInternal(err)
	}
	if kErr.Code == errors.ErrInternal {
		slog.Error("request failed", "path", req.URL.Path, "error", err)
	}

	status := kErr.Status
	message := kErr.Message

	if wantsHTML(req) {
		r.renderPageStatus(w, status, "error", ErrorPageData{
			PageData: PageData{
				Title:   fmt.Sprintf("Erreur %d", status),
				Version: r.version,
			},
			StatusCode: status,
			Message:    message,
		})
		return
	}

	renderJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    string(kErr.Code),
			"message": message,
			"status":  status,
		},
	})
}

// wantsHTML reports whether the client prefers an HTML page over JSON.
func wantsHTML(req *http.Request) bool {
	accept := req.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// listingMarkdown renders listing text to HTML. Every line break in the
// listing is kept and raw HTML is escaped.
var listingMarkdown = goldmark.New(
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// renderListing converts listing text to HTML using goldmark.
func renderListing(text string) template.HTML {
	var buf bytes.Buffer
	if err := listingMarkdown.Convert([]byte(text), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatBytes formats a size as KB with one decimal.
func formatBytes(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d o", n)
	}
	return fmt.Sprintf("%.1f Ko", float64(n)/1024)
}
