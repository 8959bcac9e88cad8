package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/db"
	"github.com/hpungsan/kenbot/internal/fetch"
)

const testVIN = "1C6SRFFT0NN123456"

const ramJob = `{
	"slug": "ram-k1234",
	"vehicle": {
		"title": "2022 RAM 1500 Laramie",
		"brand": "RAM",
		"price": 45000,
		"km": 32000,
		"vin": "1C6SRFFT0NN123456"
	}
}`

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}

	return &Handlers{
		db:       database,
		cfg:      config.DefaultConfig(),
		renderer: NewRenderer(templateSub, "test"),
		log:      discardLogger(),
		version:  "test",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPDF() []byte {
	return append([]byte(fetch.PDFSignature+"-1.7\n"), bytes.Repeat([]byte{'x'}, 20*1024)...)
}

// seedSticker stores a cached sticker for vin.
func seedSticker(t *testing.T, h *Handlers, vin string) {
	t.Helper()
	pdf := testPDF()
	err := db.PutSticker(context.Background(), h.db, &db.Sticker{
		ID:        "01HSTICKER0000000000000000",
		VIN:       vin,
		PDF:       pdf,
		SizeBytes: len(pdf),
		SourceURL: "https://stickers.example/" + vin,
		FetchedAt: 1700000000,
	})
	if err != nil {
		t.Fatalf("seed sticker: %v", err)
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return resp
}

type stubFetcher struct {
	pdf []byte
}

func (s *stubFetcher) Fetch(ctx context.Context, vin string) (*fetch.Document, error) {
	return &fetch.Document{VIN: vin, URL: "https://stickers.example/" + vin, PDF: s.pdf}, nil
}

// --- Root / health ---

func TestHandleRoot(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleRoot(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeBody(t, rec)
	if resp["ok"] != true {
		t.Errorf("ok = %v, want true", resp["ok"])
	}
	if resp["service"] != "kenbot" {
		t.Errorf("service = %v, want kenbot", resp["service"])
	}
}

func TestHandleHealth(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["ok"] != true {
		t.Errorf("ok = %v, want true", resp["ok"])
	}
}

// --- HandleGenerate ---

func TestHandleGenerate_Success(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("POST", "/generate", strings.NewReader(ramJob))
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if resp.Slug != "ram-k1234" {
		t.Errorf("slug = %q, want ram-k1234", resp.Slug)
	}
	if resp.Event != "NEW" {
		t.Errorf("event = %q, want NEW default", resp.Event)
	}
	if resp.Generator != "template" {
		t.Errorf("generator = %q, want template", resp.Generator)
	}
	if !strings.Contains(resp.FacebookText, "RAM 1500") {
		t.Errorf("facebook_text missing title:\n%s", resp.FacebookText)
	}
	if strings.Contains(resp.FacebookText, "45000") || strings.Contains(resp.MarketplaceText, "45000") {
		t.Error("listings must not contain the price")
	}
	if resp.MarketplaceLen == 0 || resp.MarketplaceLen > 800 {
		t.Errorf("marketplace_chars = %d, want 1..800", resp.MarketplaceLen)
	}
}

func TestHandleGenerate_MissingTitleStrict(t *testing.T) {
	h := setupTest(t)

	body := `{"slug":"x","strict":true,"vehicle":{"brand":"RAM"}}`
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, httptest.NewRequest("POST", "/generate", strings.NewReader(body)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	errObj, ok := decodeBody(t, rec)["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error object in JSON response")
	}
	if errObj["code"] != "MISSING_REQUIRED_FIELD" {
		t.Errorf("error.code = %v, want MISSING_REQUIRED_FIELD", errObj["code"])
	}
}

func TestHandleGenerate_MissingTitleLenient(t *testing.T) {
	h := setupTest(t)

	body := `{"slug":"x","strict":false,"vehicle":{"brand":"RAM"}}`
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, httptest.NewRequest("POST", "/generate", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["placeholder"] != true {
		t.Errorf("placeholder = %v, want true", resp["placeholder"])
	}
}

func TestHandleGenerate_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"invalid json", "{not json"},
		{"missing vehicle", `{"slug":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupTest(t)
			rec := httptest.NewRecorder()
			h.HandleGenerate(rec, httptest.NewRequest("POST", "/generate", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleGenerate_BodyTooLarge(t *testing.T) {
	h := setupTest(t)

	body := `{"slug":"` + strings.Repeat("a", maxJobBytes) + `"}`
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, httptest.NewRequest("POST", "/generate", strings.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- HandlePreview ---

func TestHandlePreview_RendersBothListings(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandlePreview(rec, httptest.NewRequest("POST", "/preview", strings.NewReader(ramJob)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", "Facebook", "Marketplace", "RAM 1500", "/ 800"} {
		if !strings.Contains(body, want) {
			t.Errorf("preview page missing %q", want)
		}
	}
}

// --- Stickers ---

func TestHandleStickerList_JSON(t *testing.T) {
	h := setupTest(t)
	seedSticker(t, h, testVIN)

	req := httptest.NewRequest("GET", "/stickers", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleStickerList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["total"] != float64(1) {
		t.Errorf("total = %v, want 1", resp["total"])
	}
}

func TestHandleStickerList_HTML(t *testing.T) {
	h := setupTest(t)
	seedSticker(t, h, testVIN)

	req := httptest.NewRequest("GET", "/stickers", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.HandleStickerList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, testVIN) {
		t.Error("sticker page should list the cached VIN")
	}
	if !strings.Contains(body, "/stickers/"+testVIN) {
		t.Error("sticker page should link to the PDF")
	}
}

func TestHandleStickerList_Empty(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/stickers", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.HandleStickerList(rec, req)

	if !strings.Contains(rec.Body.String(), "Aucun sticker") {
		t.Error("expected empty state message")
	}
}

func TestHandleStickerGet_ServesPDF(t *testing.T) {
	h := setupTest(t)
	seedSticker(t, h, testVIN)

	req := httptest.NewRequest("GET", "/stickers/"+testVIN, nil)
	req.SetPathValue("vin", testVIN)
	rec := httptest.NewRecorder()
	h.HandleStickerGet(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte(fetch.PDFSignature)) {
		t.Error("body should be the cached PDF")
	}
}

func TestHandleStickerGet_NotFound(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/stickers/"+testVIN, nil)
	req.SetPathValue("vin", testVIN)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.HandleStickerGet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("browser error should render the full error page")
	}
	if !strings.Contains(body, "404") {
		t.Error("error page should show status code")
	}
}

func TestHandleStickerFetch(t *testing.T) {
	h := setupTest(t)
	h.stickers = &stubFetcher{pdf: testPDF()}

	req := httptest.NewRequest("POST", "/stickers/"+testVIN+"/fetch", nil)
	req.SetPathValue("vin", testVIN)
	rec := httptest.NewRecorder()
	h.HandleStickerFetch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["vin"] != testVIN {
		t.Errorf("vin = %v, want %s", resp["vin"], testVIN)
	}
	if resp["cached"] != false {
		t.Errorf("cached = %v, want false on first fetch", resp["cached"])
	}
	if _, ok := resp["PDF"]; ok {
		t.Error("PDF bytes should not be serialized")
	}
}

// --- Server wiring ---

func TestNewServer_RoutesAndHeaders(t *testing.T) {
	h := setupTest(t)
	srv, err := NewServer(Options{
		DB:      h.db,
		Config:  h.cfg,
		Logger:  discardLogger(),
		Version: "test",
		Bind:    "127.0.0.1",
		Port:    0,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{"GET", "/", "", http.StatusOK},
		{"GET", "/health", "", http.StatusOK},
		{"POST", "/generate", ramJob, http.StatusOK},
		{"GET", "/static/style.css", "", http.StatusOK},
		{"GET", "/nope", "", http.StatusNotFound},
		{"GET", "/generate", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("missing X-Content-Type-Options header")
			}
		})
	}
}

func TestParseBoolParam(t *testing.T) {
	tests := []struct {
		query    string
		expected bool
	}{
		{"", false},
		{"refresh=true", true},
		{"refresh=1", true},
		{"refresh=false", false},
		{"refresh=yes", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/?"+tt.query, nil)
		if got := parseBoolParam(req, "refresh"); got != tt.expected {
			t.Errorf("parseBoolParam(%q) = %v, want %v", tt.query, got, tt.expected)
		}
	}
}
