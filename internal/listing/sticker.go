package listing

import (
	"regexp"
	"strings"
)

// Marker prefixes set by the sticker extraction step: a header line opens an
// option, a detail line belongs to the current option.
const (
	HeaderMarker = "✅"
	DetailMarker = "▫️"
)

// Parser limits.
const (
	MaxOptionRecords = 40
	MaxOptionDetails = 12
)

// OptionRecord is one manufacturer option parsed from sticker lines.
type OptionRecord struct {
	Title   string   `json:"title"`
	Price   string   `json:"price,omitempty"` // display only, never composed into ad text
	Details []string `json:"details"`
}

// ParseStickerLines groups marker-tagged lines into option records. A header
// line flushes the pending record and opens a new one ("Title • 395 $" splits
// into title and price). A detail line appends to the current record, opening
// a headerless one if needed. Records without a title are not emitted.
func ParseStickerLines(lines []string) []OptionRecord {
	out := make([]OptionRecord, 0)
	var cur *OptionRecord

	flush := func() {
		if cur == nil {
			return
		}
		cur.Title = normalizeLine(cur.Title)
		if cur.Title != "" {
			cur.Details = capList(DedupeKeepOrder(cur.Details), MaxOptionDetails)
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, raw := range lines {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(s, HeaderMarker); ok {
			flush()
			title, price, _ := strings.Cut(strings.TrimSpace(rest), "•")
			cur = &OptionRecord{
				Title:   strings.TrimSpace(title),
				Price:   normalizeLine(price),
				Details: []string{},
			}
			continue
		}

		if strings.Contains(s, DetailMarker) {
			if cur == nil {
				cur = &OptionRecord{Details: []string{}}
			}
			detail := strings.NewReplacer("_", "", DetailMarker, "").Replace(s)
			if detail = normalizeLine(detail); detail != "" {
				cur.Details = append(cur.Details, detail)
			}
		}
	}
	flush()

	return out[:min(len(out), MaxOptionRecords)]
}

// FormatOptions renders option records back to marker-tagged display lines.
// Prices are dropped.
func FormatOptions(records []OptionRecord) []string {
	var out []string
	for _, r := range records {
		title := StripOptionPrice(r.Title)
		if title == "" {
			continue
		}
		out = append(out, HeaderMarker+" "+title)
		for _, d := range r.Details {
			if d = StripOptionPrice(d); d != "" {
				out = append(out, DetailMarker+" "+d)
			}
		}
	}
	return out
}

var (
	trailingPriceRegex = regexp.MustCompile(`\s+\d[\d\s]*\s*\$\s*$`)
	leadingPriceRegex  = regexp.MustCompile(`^\$\s*\d[\d\s]*\s*`)
	parenPriceRegex    = regexp.MustCompile(`\(\s*\d[\d\s]*\s*\$\s*\)\s*$`)
	priceOnlyRegex     = regexp.MustCompile(`^\d[\d\s]*\s*\$$`)
)

// StripOptionPrice removes a trailing, leading or parenthesized trailing
// currency amount so ad text never implies per-option pricing.
func StripOptionPrice(line string) string {
	s := strings.TrimSpace(line)
	if priceOnlyRegex.MatchString(s) {
		return ""
	}
	s = trailingPriceRegex.ReplaceAllString(s, "")
	s = leadingPriceRegex.ReplaceAllString(s, "")
	s = parenPriceRegex.ReplaceAllString(s, "")
	return strings.Trim(s, " -•\t")
}

// StripOptionPrices applies StripOptionPrice and drops lines left empty.
func StripOptionPrices(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s := StripOptionPrice(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}
