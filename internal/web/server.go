package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options carries the server's collaborators. Generator and Stickers may be
// nil; AI requests then fall back to templates and sticker fetches fail.
type Options struct {
	DB        *sql.DB
	Config    *config.Config
	Generator ops.TextGenerator
	Stickers  ops.StickerFetcher
	Logger    *slog.Logger
	Version   string
	Bind      string
	Port      int
}

// NewServer creates and configures the HTTP server.
func NewServer(opts Options) (*http.Server, error) {
	h, err := newHandlers(opts)
	if err != nil {
		return nil, err
	}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("POST /generate", h.HandleGenerate)
	mux.HandleFunc("POST /preview", h.HandlePreview)
	mux.HandleFunc("GET /stickers", h.HandleStickerList)
	mux.HandleFunc("GET /stickers/{vin}", h.HandleStickerGet)
	mux.HandleFunc("POST /stickers/{vin}/fetch", h.HandleStickerFetch)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	handler := Chain(mux,
		recoverPanics(h.log),
		requestLogger(h.log),
		tracing("kenbot"),
		securityHeaders,
	)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func newHandlers(opts Options) (*Handlers, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Handlers{
		db:       opts.DB,
		cfg:      cfg,
		gen:      opts.Generator,
		stickers: opts.Stickers,
		renderer: NewRenderer(templateSub, opts.Version),
		log:      log,
		version:  opts.Version,
	}, nil
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("kenbot listening", "addr", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
