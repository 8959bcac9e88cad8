package fetch

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hpungsan/kenbot/internal/listing"
)

// PDFSignature is the 4-byte prefix every accepted sticker starts with.
const PDFSignature = "%PDF"

// Validity thresholds for sticker documents.
const (
	MinStickerBytes       = 10 * 1024
	StrictMinStickerBytes = 60 * 1024
)

// InvalidDocumentError reports a document rejected by Policy.
type InvalidDocumentError struct {
	Reason string
	Size   int
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid document (%d bytes): %s", e.Size, e.Reason)
}

// Policy decides whether a document may be cached and used.
type Policy struct {
	MinBytes int
}

// Validate accepts doc only if it is at least MinBytes long and starts with
// the PDF signature.
func (p Policy) Validate(doc []byte) error {
	if len(doc) < p.MinBytes {
		return &InvalidDocumentError{
			Reason: fmt.Sprintf("smaller than %d bytes", p.MinBytes),
			Size:   len(doc),
		}
	}
	if !bytes.HasPrefix(doc, []byte(PDFSignature)) {
		return &InvalidDocumentError{Reason: "missing PDF signature", Size: len(doc)}
	}
	return nil
}

// Document is a fetched and validated sticker.
type Document struct {
	VIN string
	URL string
	PDF []byte
}

// StickerSource downloads manufacturer window stickers by VIN.
type StickerSource struct {
	Client      *Client
	URLTemplate string
	Policy      Policy
}

// Fetch downloads and validates the sticker for vin.
func (s *StickerSource) Fetch(ctx context.Context, vin string) (*Document, error) {
	url := listing.StickerURL(s.URLTemplate, vin)

	body, err := s.Client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch sticker %s: %w", vin, err)
	}
	if err := s.Policy.Validate(body); err != nil {
		return nil, err
	}
	return &Document{VIN: vin, URL: url, PDF: body}, nil
}
