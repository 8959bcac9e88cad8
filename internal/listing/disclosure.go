package listing

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// disclosureBrands are the manufacturers whose VIN and window-sticker link may
// be published. This is a listing policy, not a technical limit.
var disclosureBrands = []string{"ram", "jeep", "dodge", "chrysler", "fiat", "wagoneer", "alfa romeo", "alfaromeo", "alfa"}

// DefaultStickerURLTemplate is the manufacturer window-sticker lookup; %s is the VIN.
const DefaultStickerURLTemplate = "https://www.chrysler.com/hostd/windowsticker/getWindowStickerPdf.do?vin=%s"

// VINDisclosureAllowed reports whether the vehicle's brand is on the
// disclosure allow-list. The brand field decides when present; for records
// without a brand the title must name an allowed brand as whole words.
func VINDisclosureAllowed(v *Vehicle) bool {
	if v == nil {
		return false
	}
	if brand := strings.ToLower(v.Brand); brand != "" {
		for _, b := range disclosureBrands {
			if brand == b || strings.HasPrefix(brand, b+" ") {
				return true
			}
		}
		return false
	}
	words := strings.FieldsFunc(strings.ToLower(v.Title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, b := range disclosureBrands {
		if hasPhrase(words, strings.Fields(b)) {
			return true
		}
	}
	return false
}

// hasPhrase reports whether phrase occurs in words as a run of whole words.
func hasPhrase(words, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// StickerURL builds the window-sticker lookup link for vin.
func StickerURL(tmpl, vin string) string {
	if tmpl == "" {
		tmpl = DefaultStickerURLTemplate
	}
	return fmt.Sprintf(tmpl, url.QueryEscape(vin))
}
