package ops

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/errors"
	"github.com/hpungsan/kenbot/internal/listing"
)

// fakeGenerator answers long prompts with long and prompts carrying a
// character budget with short.
type fakeGenerator struct {
	long  string
	short string
	err   error
	calls atomic.Int32
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(user, "Maximum") {
		return f.short, nil
	}
	return f.long, nil
}

func TestGenerate_Template(t *testing.T) {
	out, err := Generate(context.Background(), nil, nil, GenerateInput{Vehicle: ramRecord()})
	require.NoError(t, err)

	require.NotEmpty(t, out.ID)
	require.Equal(t, listing.CategoryTruck, out.Category)
	require.Equal(t, listing.SourceDealer, out.EquipmentSource)
	require.Equal(t, GeneratorTemplate, out.Generator)
	require.False(t, out.Placeholder)
	require.Contains(t, out.LongForm, "🔥 2022 RAM 1500 Laramie 🔥")
	require.Contains(t, out.LongForm, "Sièges chauffants")
	require.Contains(t, out.ShortForm, "💰 Prix : 45 000 $")
	require.Equal(t, listing.CountChars(out.ShortForm), out.ShortFormChars)
	require.LessOrEqual(t, out.ShortFormChars, listing.DefaultShortFormLimit)
}

func TestGenerate_StickerLinesOverrideDealer(t *testing.T) {
	out, err := Generate(context.Background(), nil, nil, GenerateInput{
		Vehicle:      ramRecord(),
		StickerLines: []string{"✅ Groupe remorquage • 895 $", "▫️ Attelage classe IV"},
	})
	require.NoError(t, err)
	require.Equal(t, listing.SourceSticker, out.EquipmentSource)
	require.Contains(t, out.LongForm, "Groupe remorquage")
	require.NotContains(t, out.LongForm, "895")
	require.NotContains(t, out.LongForm, "Sièges chauffants")
}

func TestGenerate_StockFromSlug(t *testing.T) {
	out, err := Generate(context.Background(), nil, nil, GenerateInput{
		Vehicle: ramRecord(),
		Slug:    "ram-1500-laramie-k1234",
	})
	require.NoError(t, err)
	require.Contains(t, out.LongForm, "Inventaire : K1234")
	require.Contains(t, out.ShortForm, "🧾 Stock : K1234")
}

func TestGenerate_RecordStockWinsOverSlug(t *testing.T) {
	rec := ramRecord()
	rec["stock"] = "k9999"
	out, err := Generate(context.Background(), nil, nil, GenerateInput{Vehicle: rec, Slug: "ram-k1234"})
	require.NoError(t, err)
	require.Contains(t, out.LongForm, "K9999")
	require.NotContains(t, out.LongForm, "K1234")
}

func TestGenerate_MissingTitle(t *testing.T) {
	rec := ramRecord()
	delete(rec, "title")

	t.Run("strict by default", func(t *testing.T) {
		_, err := Generate(context.Background(), nil, nil, GenerateInput{Vehicle: rec})
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrMissingRequiredField), "got %v", err)
	})

	t.Run("lenient from config", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Strict = boolPtr(false)
		out, err := Generate(context.Background(), cfg, nil, GenerateInput{Vehicle: rec})
		require.NoError(t, err)
		require.True(t, out.Placeholder)
		require.Contains(t, out.LongForm, "Annonce non disponible")
		require.Equal(t, out.LongForm, out.ShortForm)
	})

	t.Run("input overrides config", func(t *testing.T) {
		out, err := Generate(context.Background(), nil, nil, GenerateInput{Vehicle: rec, Strict: boolPtr(false)})
		require.NoError(t, err)
		require.True(t, out.Placeholder)

		cfg := config.DefaultConfig()
		cfg.Strict = boolPtr(false)
		_, err = Generate(context.Background(), cfg, nil, GenerateInput{Vehicle: rec, Strict: boolPtr(true)})
		require.True(t, errors.Is(err, errors.ErrMissingRequiredField))
	})

	t.Run("placeholder title counts as missing", func(t *testing.T) {
		rec := ramRecord()
		rec["title"] = "null"
		_, err := Generate(context.Background(), nil, nil, GenerateInput{Vehicle: rec})
		require.True(t, errors.Is(err, errors.ErrMissingRequiredField))
	})
}

func TestGenerate_VehicleRequired(t *testing.T) {
	_, err := Generate(context.Background(), nil, nil, GenerateInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestGenerate_AI(t *testing.T) {
	gen := &fakeGenerator{
		long:  "  Texte long généré.\n\nDeuxième paragraphe.  ",
		short: "Texte court généré.",
	}
	out, err := Generate(context.Background(), nil, gen, GenerateInput{Vehicle: ramRecord(), UseAI: true})
	require.NoError(t, err)
	require.Equal(t, GeneratorAI, out.Generator)
	require.Equal(t, "Texte long généré.\n\nDeuxième paragraphe.\n", out.LongForm)
	require.Equal(t, "Texte court généré.\n", out.ShortForm)
	require.Equal(t, int32(2), gen.calls.Load())
}

func TestGenerate_AIControlCharacters(t *testing.T) {
	gen := &fakeGenerator{
		long:  "a\r\nb\tc\x00\r\n\r\n\r\nd",
		short: "court\r\nx\x1b",
	}
	out, err := Generate(context.Background(), nil, gen, GenerateInput{Vehicle: ramRecord(), UseAI: true})
	require.NoError(t, err)
	require.Equal(t, GeneratorAI, out.Generator)
	require.Equal(t, "a\nb c\n\nd\n", out.LongForm)
	require.Equal(t, "court\nx\n", out.ShortForm)
}

func TestGenerate_NoVINForTitleSubstring(t *testing.T) {
	out, err := Generate(context.Background(), nil, nil, GenerateInput{Vehicle: map[string]any{
		"title": "2020 Hyundai Tucson Preferred toit panoramique",
		"vin":   testVIN,
		"price": 24000,
	}})
	require.NoError(t, err)
	require.NotContains(t, out.LongForm, testVIN)
	require.NotContains(t, out.ShortForm, testVIN)
	require.NotContains(t, out.LongForm, "windowsticker")
}

func TestGenerate_AIShortFormBounded(t *testing.T) {
	gen := &fakeGenerator{
		long:  "Texte long.",
		short: strings.Repeat("Une phrase de vente assez longue. ", 60),
	}
	cfg := config.DefaultConfig()
	cfg.ShortFormLimit = 200
	out, err := Generate(context.Background(), cfg, gen, GenerateInput{Vehicle: ramRecord(), UseAI: true})
	require.NoError(t, err)
	require.Equal(t, GeneratorAI, out.Generator)
	require.LessOrEqual(t, out.ShortFormChars, 200)
	require.True(t, strings.HasSuffix(out.ShortForm, "\n"))
}

func TestGenerate_AIFallsBackToTemplate(t *testing.T) {
	tests := []struct {
		name string
		gen  TextGenerator
	}{
		{"no generator", nil},
		{"generator error", &fakeGenerator{err: fmt.Errorf("boom")}},
		{"empty text", &fakeGenerator{long: "  ", short: "court"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Generate(context.Background(), nil, tc.gen, GenerateInput{Vehicle: ramRecord(), UseAI: true})
			require.NoError(t, err)
			require.Equal(t, GeneratorTemplate, out.Generator)
			require.Contains(t, out.LongForm, "🔥 2022 RAM 1500 Laramie 🔥")
		})
	}
}

func TestGenerate_AICancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGenerator{err: context.Canceled}
	_, err := Generate(ctx, nil, gen, GenerateInput{Vehicle: ramRecord(), UseAI: true})
	require.True(t, errors.Is(err, errors.ErrCancelled), "got %v", err)
}

func TestGenerate_GeneratorNotCalledWithoutAI(t *testing.T) {
	gen := &fakeGenerator{long: "x", short: "y"}
	out, err := Generate(context.Background(), nil, gen, GenerateInput{Vehicle: ramRecord()})
	require.NoError(t, err)
	require.Equal(t, GeneratorTemplate, out.Generator)
	require.Zero(t, gen.calls.Load())
}

func TestGenerate_Idempotent(t *testing.T) {
	a, err := Generate(context.Background(), nil, nil, GenerateInput{Vehicle: ramRecord()})
	require.NoError(t, err)
	b, err := Generate(context.Background(), nil, nil, GenerateInput{Vehicle: ramRecord()})
	require.NoError(t, err)
	require.Equal(t, a.LongForm, b.LongForm)
	require.Equal(t, a.ShortForm, b.ShortForm)
	require.NotEqual(t, a.ID, b.ID)
}

func TestNewGenerator(t *testing.T) {
	require.Nil(t, NewGenerator(nil))

	cfg := config.DefaultConfig()
	require.Nil(t, NewGenerator(cfg))

	cfg.LLM.APIKey = "sk-test"
	require.NotNil(t, NewGenerator(cfg))
}
