package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/hpungsan/kenbot/internal/errors"
)

// Sticker is one cached window-sticker document.
type Sticker struct {
	ID        string
	VIN       string
	PDF       []byte
	SizeBytes int
	SourceURL string
	FetchedAt int64
}

// StickerSummary describes a cached sticker without its payload.
type StickerSummary struct {
	ID        string `json:"id"`
	VIN       string `json:"vin"`
	SizeBytes int    `json:"size_bytes"`
	FetchedAt int64  `json:"fetched_at"`
}

// PutSticker stores a sticker, replacing any previous document for the VIN.
func PutSticker(ctx context.Context, db *sql.DB, s *Sticker) error {
	query := `
		INSERT INTO stickers (vin, id, pdf, size_bytes, source_url, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(vin) DO UPDATE SET
			id = excluded.id,
			pdf = excluded.pdf,
			size_bytes = excluded.size_bytes,
			source_url = excluded.source_url,
			fetched_at = excluded.fetched_at
	`
	_, err := db.ExecContext(ctx, query,
		s.VIN, s.ID, s.PDF, s.SizeBytes, toNullString(s.SourceURL), s.FetchedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetSticker retrieves the cached sticker for a VIN.
// Returns a NOT_FOUND error when nothing is cached.
func GetSticker(ctx context.Context, db *sql.DB, vin string) (*Sticker, error) {
	query := `
		SELECT id, vin, pdf, size_bytes, source_url, fetched_at
		FROM stickers
		WHERE vin = ?
	`
	var s Sticker
	var sourceURL sql.NullString
	err := db.QueryRowContext(ctx, query, vin).Scan(
		&s.ID, &s.VIN, &s.PDF, &s.SizeBytes, &sourceURL, &s.FetchedAt,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound(vin)
		}
		return nil, errors.NewInternal(err)
	}
	s.SourceURL = sourceURL.String
	return &s, nil
}

// ListStickers returns summaries of all cached stickers, newest first.
func ListStickers(ctx context.Context, db *sql.DB) ([]StickerSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, vin, size_bytes, fetched_at
		FROM stickers
		ORDER BY fetched_at DESC, vin ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := []StickerSummary{}
	for rows.Next() {
		var s StickerSummary
		if err := rows.Scan(&s.ID, &s.VIN, &s.SizeBytes, &s.FetchedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// DeleteSticker removes the cached sticker for a VIN.
// Returns a NOT_FOUND error when nothing was cached.
func DeleteSticker(ctx context.Context, db *sql.DB, vin string) error {
	result, err := db.ExecContext(ctx, "DELETE FROM stickers WHERE vin = ?", vin)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(vin)
	}
	return nil
}

// PurgeStickers removes stickers fetched before the cutoff (unix seconds).
// A zero cutoff removes everything. Returns the number of rows removed.
func PurgeStickers(ctx context.Context, db *sql.DB, cutoff int64) (int, error) {
	query := "DELETE FROM stickers"
	var args []any
	if cutoff > 0 {
		query += " WHERE fetched_at < ?"
		args = append(args, cutoff)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// toNullString converts an empty string to a NULL column value.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
