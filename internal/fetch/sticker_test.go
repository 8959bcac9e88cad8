package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakePDF(size int) []byte {
	doc := []byte("%PDF-1.7\n")
	return append(doc, bytes.Repeat([]byte{'0'}, size-len(doc))...)
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		doc     []byte
		wantErr bool
	}{
		{"valid", Policy{MinBytes: MinStickerBytes}, fakePDF(MinStickerBytes), false},
		{"too small", Policy{MinBytes: MinStickerBytes}, fakePDF(MinStickerBytes - 1), true},
		{"strict rejects medium", Policy{MinBytes: StrictMinStickerBytes}, fakePDF(20 * 1024), true},
		{"strict accepts large", Policy{MinBytes: StrictMinStickerBytes}, fakePDF(StrictMinStickerBytes), false},
		{"html error page", Policy{MinBytes: 10}, bytes.Repeat([]byte("<html>"), 100), true},
		{"empty", Policy{}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(tt.doc)
			if tt.wantErr {
				var invalid *InvalidDocumentError
				require.True(t, errors.As(err, &invalid), "err = %v", err)
				require.Equal(t, len(tt.doc), invalid.Size)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestStickerSourceFetch(t *testing.T) {
	const vin = "1C6SRFFT0NN123456"
	doc := fakePDF(MinStickerBytes)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("vin") != vin {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(doc)
	}))
	defer srv.Close()

	src := &StickerSource{
		Client:      newTestClient(0),
		URLTemplate: srv.URL + "/sticker?vin=%s",
		Policy:      Policy{MinBytes: MinStickerBytes},
	}

	got, err := src.Fetch(context.Background(), vin)
	require.NoError(t, err)
	require.Equal(t, vin, got.VIN)
	require.Equal(t, srv.URL+"/sticker?vin="+vin, got.URL)
	require.Equal(t, doc, got.PDF)

	_, err = src.Fetch(context.Background(), "1C6SRFFT0NN000000")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))

	src.Policy = Policy{MinBytes: StrictMinStickerBytes}
	_, err = src.Fetch(context.Background(), vin)
	var invalid *InvalidDocumentError
	require.True(t, errors.As(err, &invalid))
}
