package db

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/hpungsan/kenbot/internal/errors"
)

const testVIN = "1C6SRFFT0NN123456"

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSticker(id, vin string, fetchedAt int64) *Sticker {
	pdf := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte{'x'}, 64)...)
	return &Sticker{
		ID:        id,
		VIN:       vin,
		PDF:       pdf,
		SizeBytes: len(pdf),
		SourceURL: "https://stickers.example/" + vin,
		FetchedAt: fetchedAt,
	}
}

func TestPutAndGetSticker(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	s := newTestSticker("01STK001", testVIN, 1000)
	if err := PutSticker(ctx, db, s); err != nil {
		t.Fatalf("PutSticker failed: %v", err)
	}

	got, err := GetSticker(ctx, db, testVIN)
	if err != nil {
		t.Fatalf("GetSticker failed: %v", err)
	}
	if got.ID != "01STK001" {
		t.Errorf("ID = %q, want %q", got.ID, "01STK001")
	}
	if !bytes.Equal(got.PDF, s.PDF) {
		t.Errorf("PDF bytes differ")
	}
	if got.SizeBytes != s.SizeBytes {
		t.Errorf("SizeBytes = %d, want %d", got.SizeBytes, s.SizeBytes)
	}
	if got.SourceURL != s.SourceURL {
		t.Errorf("SourceURL = %q, want %q", got.SourceURL, s.SourceURL)
	}
	if got.FetchedAt != 1000 {
		t.Errorf("FetchedAt = %d, want 1000", got.FetchedAt)
	}
}

func TestPutSticker_ReplacesExisting(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if err := PutSticker(ctx, db, newTestSticker("01STK001", testVIN, 1000)); err != nil {
		t.Fatalf("PutSticker failed: %v", err)
	}
	replacement := newTestSticker("01STK002", testVIN, 2000)
	replacement.SourceURL = ""
	if err := PutSticker(ctx, db, replacement); err != nil {
		t.Fatalf("PutSticker (replace) failed: %v", err)
	}

	got, err := GetSticker(ctx, db, testVIN)
	if err != nil {
		t.Fatalf("GetSticker failed: %v", err)
	}
	if got.ID != "01STK002" || got.FetchedAt != 2000 {
		t.Errorf("got %s@%d, want 01STK002@2000", got.ID, got.FetchedAt)
	}
	if got.SourceURL != "" {
		t.Errorf("SourceURL = %q, want empty", got.SourceURL)
	}

	items, err := ListStickers(ctx, db)
	if err != nil {
		t.Fatalf("ListStickers failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("ListStickers length = %d, want 1", len(items))
	}
}

func TestGetSticker_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := GetSticker(context.Background(), db, testVIN)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetSticker error = %v, want NOT_FOUND", err)
	}
}

func TestListStickers_Order(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	items, err := ListStickers(ctx, db)
	if err != nil {
		t.Fatalf("ListStickers failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("ListStickers on empty cache = %v, want empty non-nil", items)
	}

	_ = PutSticker(ctx, db, newTestSticker("01A", "1C6SRFFT0NN000001", 1000))
	_ = PutSticker(ctx, db, newTestSticker("01B", "1C6SRFFT0NN000002", 3000))
	_ = PutSticker(ctx, db, newTestSticker("01C", "1C6SRFFT0NN000003", 2000))

	items, err = ListStickers(ctx, db)
	if err != nil {
		t.Fatalf("ListStickers failed: %v", err)
	}
	want := []string{"01B", "01C", "01A"}
	if len(items) != len(want) {
		t.Fatalf("ListStickers length = %d, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, id)
		}
	}
}

func TestDeleteSticker(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if err := PutSticker(ctx, db, newTestSticker("01STK001", testVIN, 1000)); err != nil {
		t.Fatalf("PutSticker failed: %v", err)
	}
	if err := DeleteSticker(ctx, db, testVIN); err != nil {
		t.Fatalf("DeleteSticker failed: %v", err)
	}
	if _, err := GetSticker(ctx, db, testVIN); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetSticker after delete error = %v, want NOT_FOUND", err)
	}
	if err := DeleteSticker(ctx, db, testVIN); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second DeleteSticker error = %v, want NOT_FOUND", err)
	}
}

func TestPurgeStickers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_ = PutSticker(ctx, db, newTestSticker("01A", "1C6SRFFT0NN000001", 1000))
	_ = PutSticker(ctx, db, newTestSticker("01B", "1C6SRFFT0NN000002", 2000))
	_ = PutSticker(ctx, db, newTestSticker("01C", "1C6SRFFT0NN000003", 3000))

	n, err := PurgeStickers(ctx, db, 2500)
	if err != nil {
		t.Fatalf("PurgeStickers failed: %v", err)
	}
	if n != 2 {
		t.Errorf("purged = %d, want 2", n)
	}

	n, err = PurgeStickers(ctx, db, 0)
	if err != nil {
		t.Fatalf("PurgeStickers(all) failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
}
