package ops

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/listing"
)

// Generator names reported in GenerateOutput.
const (
	GeneratorTemplate = "template"
	GeneratorAI       = "ai"
)

// Output file names written for each vehicle.
const (
	LongFormFile  = "facebook.txt"
	ShortFormFile = "marketplace.txt"
)

// TextGenerator produces free text from a system and a user prompt.
// *llm.Client satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// newComposer builds a Composer from configuration. Zero values fall back to
// the Composer defaults.
func newComposer(cfg *config.Config) *listing.Composer {
	comp := listing.NewComposer()
	if cfg == nil {
		return comp
	}

	d := cfg.Dealer
	if d.Name != "" {
		comp.Dealer.Name = d.Name
	}
	if d.Seller != "" {
		comp.Dealer.Seller = d.Seller
	}
	if d.Phone != "" {
		comp.Dealer.Phone = d.Phone
	}
	if d.Location != "" {
		comp.Dealer.Location = d.Location
	}
	if len(d.Hashtags) > 0 {
		comp.Dealer.Hashtags = append([]string(nil), d.Hashtags...)
	}

	if cfg.ShortFormLimit > 0 {
		comp.ShortFormLimit = cfg.ShortFormLimit
	}
	if cfg.LongFormEquipmentCap > 0 {
		comp.LongEquipmentCap = cfg.LongFormEquipmentCap
	}
	if cfg.ShortFormEquipmentCap > 0 {
		comp.ShortEquipmentCap = cfg.ShortFormEquipmentCap
	}
	if cfg.Sticker.URLTemplate != "" {
		comp.StickerURLTemplate = cfg.Sticker.URLTemplate
	}
	return comp
}

func ruleSet(cfg *config.Config) listing.RuleSet {
	if cfg == nil || cfg.UseExtendedCategories() {
		return listing.RuleSetExtended
	}
	return listing.RuleSetBasic
}

// newID returns a fresh ULID string.
func newID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
