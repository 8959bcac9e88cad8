package ops

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/db"
	"github.com/hpungsan/kenbot/internal/errors"
	"github.com/hpungsan/kenbot/internal/fetch"
	"github.com/hpungsan/kenbot/internal/listing"
)

// StickerFetcher downloads a validated window sticker by VIN.
// *fetch.StickerSource satisfies it.
type StickerFetcher interface {
	Fetch(ctx context.Context, vin string) (*fetch.Document, error)
}

// StickerFetchInput contains parameters for the StickerFetch operation.
type StickerFetchInput struct {
	VIN     string // required
	Refresh bool   // bypass the cache
}

// StickerOutput describes a cached sticker. PDF is never serialized.
type StickerOutput struct {
	ID        string `json:"id"`
	VIN       string `json:"vin"`
	SizeBytes int    `json:"size_bytes"`
	SourceURL string `json:"source_url,omitempty"`
	FetchedAt int64  `json:"fetched_at"`
	Cached    bool   `json:"cached"`
	PDF       []byte `json:"-"`
}

// StickerFetch returns the sticker for a VIN, reading through the cache.
// A cached document that no longer satisfies the validity policy is
// refetched. Documents rejected by the policy are never cached.
func StickerFetch(ctx context.Context, database *sql.DB, cfg *config.Config, src StickerFetcher, input StickerFetchInput) (*StickerOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	vin, err := normalizeVIN(input.VIN)
	if err != nil {
		return nil, err
	}
	policy := fetch.Policy{MinBytes: cfg.StickerMinBytes()}

	if !input.Refresh {
		cached, err := db.GetSticker(ctx, database, vin)
		switch {
		case err == nil:
			verr := policy.Validate(cached.PDF)
			if verr == nil {
				slog.Debug("sticker cache hit", "vin", vin, "size", cached.SizeBytes)
				out := stickerOutput(cached)
				out.Cached = true
				return out, nil
			}
			slog.Info("cached sticker rejected, refetching", "vin", vin, "reason", verr)
		case errors.Is(err, errors.ErrNotFound):
			slog.Debug("sticker cache miss", "vin", vin)
		default:
			return nil, err
		}
	}

	if src == nil {
		return nil, errors.NewInvalidRequest("no sticker source configured")
	}
	doc, err := src.Fetch(ctx, vin)
	if err != nil {
		return nil, mapFetchError(ctx, vin, err)
	}
	// The source validates too; re-check against the configured policy.
	if err := policy.Validate(doc.PDF); err != nil {
		return nil, mapFetchError(ctx, vin, err)
	}

	s := &db.Sticker{
		ID:        newID(),
		VIN:       vin,
		PDF:       doc.PDF,
		SizeBytes: len(doc.PDF),
		SourceURL: doc.URL,
		FetchedAt: time.Now().Unix(),
	}
	if err := db.PutSticker(ctx, database, s); err != nil {
		return nil, err
	}
	slog.Info("sticker cached", "vin", vin, "size", s.SizeBytes)
	return stickerOutput(s), nil
}

// StickerGet returns a cached sticker without touching the network.
func StickerGet(ctx context.Context, database *sql.DB, vin string) (*StickerOutput, error) {
	vin, err := normalizeVIN(vin)
	if err != nil {
		return nil, err
	}
	s, err := db.GetSticker(ctx, database, vin)
	if err != nil {
		return nil, err
	}
	out := stickerOutput(s)
	out.Cached = true
	return out, nil
}

// StickerListOutput contains the result of the StickerList operation.
type StickerListOutput struct {
	Items []db.StickerSummary `json:"items"`
	Total int                 `json:"total"`
}

// StickerList lists cached stickers, most recent first.
func StickerList(ctx context.Context, database *sql.DB) (*StickerListOutput, error) {
	items, err := db.ListStickers(ctx, database)
	if err != nil {
		return nil, err
	}
	return &StickerListOutput{Items: items, Total: len(items)}, nil
}

// StickerPurgeInput contains parameters for the StickerPurge operation.
type StickerPurgeInput struct {
	VIN           string // optional, purge only this VIN
	OlderThanDays *int   // optional, only purge entries fetched more than N days ago
}

// StickerPurgeOutput contains the result of the StickerPurge operation.
type StickerPurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// StickerPurge removes cached stickers.
func StickerPurge(ctx context.Context, database *sql.DB, input StickerPurgeInput) (*StickerPurgeOutput, error) {
	if input.OlderThanDays != nil && *input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must be >= 0")
	}

	if strings.TrimSpace(input.VIN) != "" {
		vin, err := normalizeVIN(input.VIN)
		if err != nil {
			return nil, err
		}
		if err := db.DeleteSticker(ctx, database, vin); err != nil {
			return nil, err
		}
		return &StickerPurgeOutput{Purged: 1, Message: formatPurgeMessage(1, nil)}, nil
	}

	var cutoff int64
	if input.OlderThanDays != nil {
		cutoff = time.Now().AddDate(0, 0, -*input.OlderThanDays).Unix()
	}
	count, err := db.PurgeStickers(ctx, database, cutoff)
	if err != nil {
		return nil, err
	}
	return &StickerPurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// NewStickerSource builds the remote sticker source from configuration.
func NewStickerSource(cfg *config.Config) *fetch.StickerSource {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	sc := cfg.Sticker
	tmpl := sc.URLTemplate
	if tmpl == "" {
		tmpl = listing.DefaultStickerURLTemplate
	}
	return &fetch.StickerSource{
		Client: fetch.NewClient(fetch.Options{
			RatePerSecond: sc.RatePerSecond,
			Burst:         sc.Burst,
			Timeout:       time.Duration(sc.TimeoutSeconds) * time.Second,
			MaxRetries:    sc.MaxRetries,
		}),
		URLTemplate: tmpl,
		Policy:      fetch.Policy{MinBytes: cfg.StickerMinBytes()},
	}
}

func normalizeVIN(vin string) (string, error) {
	vin = strings.ToUpper(strings.TrimSpace(vin))
	if !listing.ValidVIN(vin) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid VIN: %q", vin))
	}
	return vin, nil
}

func stickerOutput(s *db.Sticker) *StickerOutput {
	return &StickerOutput{
		ID:        s.ID,
		VIN:       s.VIN,
		SizeBytes: s.SizeBytes,
		SourceURL: s.SourceURL,
		FetchedAt: s.FetchedAt,
		PDF:       s.PDF,
	}
}

// mapFetchError converts a fetch failure to a structured error.
func mapFetchError(ctx context.Context, vin string, err error) error {
	if ctx.Err() != nil {
		return errors.NewCancelled(ctx.Err())
	}
	var docErr *fetch.InvalidDocumentError
	if stderrors.As(err, &docErr) {
		slog.Info("sticker rejected", "vin", vin, "reason", docErr.Reason, "size", docErr.Size)
		return errors.NewInvalidDocument(docErr.Reason, docErr.Size)
	}
	var statusErr *fetch.StatusError
	if stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return errors.NewNotFound(vin)
	}
	return errors.NewUpstream("sticker", err)
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, olderThanDays *int) string {
	if count == 0 {
		return "No cached stickers to purge"
	}

	word := "sticker"
	if count > 1 {
		word = "stickers"
	}
	msg := fmt.Sprintf("Removed %d cached %s", count, word)
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (fetched more than %d days ago)", *olderThanDays)
	}
	return msg
}
