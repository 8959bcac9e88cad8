package ops

import (
	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/errors"
	"github.com/hpungsan/kenbot/internal/listing"
)

// ClassifyInput contains parameters for the Classify operation.
type ClassifyInput struct {
	Vehicle map[string]any // required
}

// ClassifyOutput describes how a vehicle would be presented.
type ClassifyOutput struct {
	Title            string           `json:"title"`
	Category         listing.Category `json:"category"`
	Profile          listing.Profile  `json:"profile"`
	VINValid         bool             `json:"vin_valid"`
	VINDisclosure    bool             `json:"vin_disclosure"`
	StickerAvailable bool             `json:"sticker_available"`
}

// Classify categorizes a vehicle and returns the profile the composer would
// use for it.
func Classify(cfg *config.Config, input ClassifyInput) (*ClassifyOutput, error) {
	if input.Vehicle == nil {
		return nil, errors.NewInvalidRequest("vehicle is required")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	v := listing.NewVehicle(input.Vehicle)
	cat := listing.Classify(v, ruleSet(cfg))
	disclose := listing.VINDisclosureAllowed(v)

	return &ClassifyOutput{
		Title:            v.Title,
		Category:         cat,
		Profile:          listing.GetProfile(cat, v.Title, v.Brand, newComposer(cfg).Dealer.Hashtags),
		VINValid:         v.VIN != "",
		VINDisclosure:    disclose,
		StickerAvailable: disclose && v.VIN != "",
	}, nil
}

// ParseStickerInput contains parameters for the ParseSticker operation.
type ParseStickerInput struct {
	Lines []string
}

// ParseStickerOutput contains parsed option records and their display lines.
type ParseStickerOutput struct {
	Records []listing.OptionRecord `json:"records"`
	Lines   []string               `json:"lines"`
}

// ParseSticker groups marker-tagged sticker lines into option records and
// renders them back to price-free display lines.
func ParseSticker(input ParseStickerInput) *ParseStickerOutput {
	records := listing.ParseStickerLines(input.Lines)
	if records == nil {
		records = []listing.OptionRecord{}
	}
	lines := listing.FormatOptions(records)
	if lines == nil {
		lines = []string{}
	}
	return &ParseStickerOutput{Records: records, Lines: lines}
}
