package ops

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/errors"
	"github.com/hpungsan/kenbot/internal/listing"
	"github.com/hpungsan/kenbot/internal/llm"
)

// GenerateInput contains parameters for the Generate operation.
type GenerateInput struct {
	Vehicle      map[string]any // required
	StickerLines []string       // optional, overrides dealer equipment when non-empty
	Slug         string         // optional, stock fallback
	UseAI        bool
	Strict       *bool // overrides config when set
}

// GenerateOutput contains the generated listing pair.
type GenerateOutput struct {
	ID              string                  `json:"id"`
	Title           string                  `json:"title,omitempty"`
	Category        listing.Category        `json:"category"`
	EquipmentSource listing.EquipmentSource `json:"equipment_source,omitempty"`
	Generator       string                  `json:"generator"`
	Placeholder     bool                    `json:"placeholder,omitempty"`
	LongForm        string                  `json:"long_form"`
	ShortForm       string                  `json:"short_form"`
	ShortFormChars  int                     `json:"short_form_chars"`
}

// Generate produces the long-form and short-form listings for one vehicle.
//
// A record without a usable title fails with MISSING_REQUIRED_FIELD in strict
// mode and yields the "listing unavailable" placeholder pair otherwise. When
// UseAI is set and gen is non-nil the text comes from the generator; any
// generator failure falls back to the template pair.
func Generate(ctx context.Context, cfg *config.Config, gen TextGenerator, input GenerateInput) (*GenerateOutput, error) {
	ctx, span := otel.Tracer("kenbot/ops").Start(ctx, "listing.generate")
	defer span.End()

	out, err := generate(ctx, cfg, gen, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("listing.category", out.Category.String()),
		attribute.String("listing.generator", out.Generator),
		attribute.Int("listing.short_form_chars", out.ShortFormChars),
	)
	return out, nil
}

func generate(ctx context.Context, cfg *config.Config, gen TextGenerator, input GenerateInput) (*GenerateOutput, error) {
	if input.Vehicle == nil {
		return nil, errors.NewInvalidRequest("vehicle is required")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	v := listing.NewVehicle(input.Vehicle)
	if v.Stock == "" && input.Slug != "" {
		v.Stock = listing.StockFromSlug(input.Slug)
	}

	comp := newComposer(cfg)
	out := &GenerateOutput{
		ID:        newID(),
		Title:     v.Title,
		Category:  listing.Classify(v, ruleSet(cfg)),
		Generator: GeneratorTemplate,
	}

	if v.Title == "" {
		strict := cfg.IsStrict()
		if input.Strict != nil {
			strict = *input.Strict
		}
		if strict {
			return nil, errors.NewMissingRequiredField("title")
		}
		out.Placeholder = true
		out.LongForm, out.ShortForm = comp.Unavailable()
		out.ShortFormChars = listing.CountChars(out.ShortForm)
		return out, nil
	}

	eq := listing.ChooseEquipment(v, input.StickerLines)
	out.EquipmentSource = eq.Source

	if input.UseAI {
		long, short, err := generateAI(ctx, gen, v, out.Category, eq, comp.ShortFormLimit)
		if err == nil {
			out.Generator = GeneratorAI
			out.LongForm = long
			out.ShortForm = short
			out.ShortFormChars = listing.CountChars(short)
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, errors.NewCancelled(ctx.Err())
		}
		slog.Warn("ai generation failed, using templates",
			"title", v.Title, "category", out.Category.String(), "error", err)
	}

	out.LongForm = comp.LongForm(v, out.Category, eq)
	out.ShortForm = comp.ShortForm(v, out.Category, eq)
	out.ShortFormChars = listing.CountChars(out.ShortForm)
	return out, nil
}

// generateAI asks the generator for both channels concurrently. Either both
// succeed or the whole pair is discarded.
func generateAI(ctx context.Context, gen TextGenerator, v *listing.Vehicle, cat listing.Category, eq listing.Equipment, limit int) (string, string, error) {
	if gen == nil {
		return "", "", errors.NewGeneratorUnavailable("OPENAI_API_KEY not set")
	}

	system := llm.SystemPrompt(cat)
	var long, short string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := gen.Generate(gctx, system, llm.UserPrompt(v, eq.Lines, 0))
		long = text
		return err
	})
	g.Go(func() error {
		text, err := gen.Generate(gctx, system, llm.UserPrompt(v, eq.Lines, limit))
		short = text
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}

	long = listing.CleanText(long)
	short = listing.Shorten(listing.CleanText(short), limit-1)
	if long == "" || short == "" {
		return "", "", errors.NewUpstream("llm", nil)
	}
	return long + "\n", short + "\n", nil
}

// NewGenerator builds the text-generation client from configuration. It
// returns nil when no API key is configured, which makes AI requests fall
// back to templates.
func NewGenerator(cfg *config.Config) TextGenerator {
	if cfg == nil {
		return nil
	}
	client, err := llm.NewClient(llm.Options{
		APIKey:        cfg.LLM.APIKey,
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		Timeout:       time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		RatePerSecond: cfg.LLM.RatePerSecond,
		Burst:         cfg.LLM.Burst,
	})
	if err != nil {
		slog.Debug("text generator disabled", "reason", err)
		return nil
	}
	return client
}
