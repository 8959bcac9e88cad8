package ops

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/errors"
)

// StickerFileSuffix names the optional sticker-line file that sits beside a
// vehicle JSON file: "ram-k1234.json" pairs with "ram-k1234.sticker.txt".
const StickerFileSuffix = ".sticker.txt"

// BatchInput contains parameters for the GenerateBatch operation.
type BatchInput struct {
	InputDir  string // required, holds *.json vehicle records
	OutputDir string // required
	UseAI     bool
	Strict    *bool
}

// BatchItem reports the outcome for one vehicle file.
type BatchItem struct {
	File        string `json:"file"`
	ID          string `json:"id,omitempty"`
	Category    string `json:"category,omitempty"`
	Generator   string `json:"generator,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
	LongPath    string `json:"long_path,omitempty"`
	ShortPath   string `json:"short_path,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BatchOutput contains the result of the GenerateBatch operation.
type BatchOutput struct {
	Generated int         `json:"generated"`
	Failed    int         `json:"failed"`
	Items     []BatchItem `json:"items"`
}

// GenerateBatch generates listings for every *.json file in InputDir, at most
// cfg.BatchConcurrency at a time. Each vehicle writes its pair under
// OutputDir/<stem>/. A bad record is reported in its item and does not stop
// the batch; cancellation does.
func GenerateBatch(ctx context.Context, cfg *config.Config, gen TextGenerator, input BatchInput) (*BatchOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if strings.TrimSpace(input.InputDir) == "" {
		return nil, errors.NewInvalidRequest("input directory is required")
	}
	if err := ValidateOutputDir(input.OutputDir); err != nil {
		return nil, err
	}

	files, err := vehicleFiles(input.InputDir)
	if err != nil {
		return nil, err
	}

	items := make([]BatchItem, len(files))

	limit := cfg.BatchConcurrency
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = generateOne(gctx, cfg, gen, input, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.NewCancelled(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled(err)
	}

	out := &BatchOutput{Items: items}
	for _, item := range items {
		if item.Error != "" {
			out.Failed++
		} else {
			out.Generated++
		}
	}
	return out, nil
}

func generateOne(ctx context.Context, cfg *config.Config, gen TextGenerator, input BatchInput, path string) BatchItem {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	item := BatchItem{File: name}

	fail := func(err error) BatchItem {
		item.Error = errorMessage(err)
		slog.Warn("batch item failed", "file", name, "error", err)
		return item
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fail(errors.NewInvalidRequest(fmt.Sprintf("invalid vehicle JSON: %v", err)))
	}
	if raw == nil {
		return fail(errors.NewInvalidRequest("vehicle JSON must be an object"))
	}

	stickerLines, err := readStickerLines(filepath.Join(filepath.Dir(path), stem+StickerFileSuffix))
	if err != nil {
		return fail(err)
	}

	res, err := Generate(ctx, cfg, gen, GenerateInput{
		Vehicle:      raw,
		StickerLines: stickerLines,
		Slug:         stem,
		UseAI:        input.UseAI,
		Strict:       input.Strict,
	})
	if err != nil {
		return fail(err)
	}

	longPath, shortPath, err := WriteListings(input.OutputDir, stem, res)
	if err != nil {
		return fail(err)
	}

	item.ID = res.ID
	item.Category = res.Category.String()
	item.Generator = res.Generator
	item.Placeholder = res.Placeholder
	item.LongPath = longPath
	item.ShortPath = shortPath
	return item
}

// WriteListings writes the pair under outputDir/<stem>/ and returns both paths.
func WriteListings(outputDir, stem string, res *GenerateOutput) (string, string, error) {
	if err := ValidateOutputDir(outputDir); err != nil {
		return "", "", err
	}
	dir := filepath.Join(outputDir, SanitizeForFilename(stem))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", errors.NewInternal(err)
	}
	longPath := filepath.Join(dir, LongFormFile)
	shortPath := filepath.Join(dir, ShortFormFile)
	if err := writeFileAtomic(longPath, []byte(res.LongForm)); err != nil {
		return "", "", errors.NewInternal(err)
	}
	if err := writeFileAtomic(shortPath, []byte(res.ShortForm)); err != nil {
		return "", "", errors.NewInternal(err)
	}
	return longPath, shortPath, nil
}

// vehicleFiles lists *.json files in dir, sorted by name.
func vehicleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("input directory does not exist: %s", dir))
		}
		return nil, errors.NewInternal(err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// readStickerLines returns the lines of path, or nil if it does not exist.
func readStickerLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ReadLines(bytes.NewReader(data))
}

// ReadLines splits r into lines, dropping blank ones.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func errorMessage(err error) string {
	if kErr, ok := errors.As(err); ok {
		return fmt.Sprintf("[%s] %s", kErr.Code, kErr.Message)
	}
	return err.Error()
}
