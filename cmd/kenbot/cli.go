package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/kenbot/internal/config"
	"github.com/hpungsan/kenbot/internal/errors"
	"github.com/hpungsan/kenbot/internal/ops"
	"github.com/hpungsan/kenbot/internal/web"
)

// maxStdinBytes bounds how much piped input a command reads.
const maxStdinBytes = 4 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, gen ops.TextGenerator, stickers ops.StickerFetcher) *cli.App {
	app := &cli.App{
		Name:    "kenbot",
		Usage:   "Used-vehicle listing generator",
		Version: Version,
		Commands: []*cli.Command{
			generateCmd(cfg, gen),
			classifyCmd(cfg),
			parseStickerCmd(),
			batchCmd(cfg, gen),
			stickerCmd(db, cfg, stickers),
			serveCmd(db, cfg, gen, stickers),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// generateResult is the generate command output: the listing pair plus the
// files written, if any.
type generateResult struct {
	*ops.GenerateOutput
	LongPath  string `json:"long_path,omitempty"`
	ShortPath string `json:"short_path,omitempty"`
}

// generateCmd creates the generate command.
func generateCmd(cfg *config.Config, gen ops.TextGenerator) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate both listings for one vehicle (reads vehicle JSON from --in or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Vehicle JSON file (default: stdin)"},
			&cli.StringFlag{Name: "sticker", Aliases: []string{"s"}, Usage: "Window-sticker text file, one line per entry"},
			&cli.StringFlag{Name: "slug", Usage: "Listing slug (defaults to the input file name)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write facebook.txt and marketplace.txt under <out>/<slug>/"},
			&cli.BoolFlag{Name: "ai", Usage: "Generate text with the language model, falling back to templates"},
			&cli.BoolFlag{Name: "strict", Usage: "Fail on a missing title"},
			&cli.BoolFlag{Name: "lenient", Usage: "Emit the placeholder listing on a missing title"},
		},
		Action: func(c *cli.Context) error {
			vehicle, err := readVehicle(c.String("in"))
			if err != nil {
				return outputError(err)
			}

			input := ops.GenerateInput{
				Vehicle: vehicle,
				Slug:    c.String("slug"),
				UseAI:   c.Bool("ai"),
			}
			if input.Slug == "" && c.String("in") != "" {
				input.Slug = fileStem(c.String("in"))
			}
			strict, err := strictFlag(c)
			if err != nil {
				return outputError(err)
			}
			input.Strict = strict

			if path := c.String("sticker"); path != "" {
				lines, err := readLinesFile(path)
				if err != nil {
					return outputError(err)
				}
				input.StickerLines = lines
			}

			output, err := ops.Generate(c.Context, cfg, gen, input)
			if err != nil {
				return outputError(err)
			}

			result := generateResult{GenerateOutput: output}
			if out := c.String("out"); out != "" {
				stem := input.Slug
				if stem == "" {
					stem = output.ID
				}
				result.LongPath, result.ShortPath, err = ops.WriteListings(out, stem, output)
				if err != nil {
					return outputError(err)
				}
			}

			return outputJSON(result)
		},
	}
}

// classifyCmd creates the classify command.
func classifyCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Show the category and presentation profile for a vehicle",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Vehicle JSON file (default: stdin)"},
		},
		Action: func(c *cli.Context) error {
			vehicle, err := readVehicle(c.String("in"))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Classify(cfg, ops.ClassifyInput{Vehicle: vehicle})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// parseStickerCmd creates the parse-sticker command.
func parseStickerCmd() *cli.Command {
	return &cli.Command{
		Name:  "parse-sticker",
		Usage: "Parse window-sticker lines into option records",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Sticker text file (default: stdin)"},
		},
		Action: func(c *cli.Context) error {
			var lines []string
			if path := c.String("in"); path != "" {
				var err error
				if lines, err = readLinesFile(path); err != nil {
					return outputError(err)
				}
			} else {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("sticker lines must be piped via stdin or given with --in"))
				}
				text, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				if lines, err = ops.ReadLines(strings.NewReader(text)); err != nil {
					return outputError(errors.NewInternal(err))
				}
			}

			return outputJSON(ops.ParseSticker(ops.ParseStickerInput{Lines: lines}))
		},
	}
}

// batchCmd creates the batch command.
func batchCmd(cfg *config.Config, gen ops.TextGenerator) *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Generate listings for every vehicle JSON file in a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "Directory of vehicle JSON files"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "Output directory"},
			&cli.BoolFlag{Name: "ai", Usage: "Generate text with the language model, falling back to templates"},
			&cli.BoolFlag{Name: "strict", Usage: "Fail vehicles with a missing title"},
			&cli.BoolFlag{Name: "lenient", Usage: "Emit the placeholder listing on a missing title"},
		},
		Action: func(c *cli.Context) error {
			strict, err := strictFlag(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.GenerateBatch(c.Context, cfg, gen, ops.BatchInput{
				InputDir:  c.String("in"),
				OutputDir: c.String("out"),
				UseAI:     c.Bool("ai"),
				Strict:    strict,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// stickerCmd creates the sticker command and its subcommands.
func stickerCmd(db *sql.DB, cfg *config.Config, stickers ops.StickerFetcher) *cli.Command {
	return &cli.Command{
		Name:  "sticker",
		Usage: "Manage cached window-sticker PDFs",
		Subcommands: []*cli.Command{
			{
				Name:      "fetch",
				Usage:     "Fetch a sticker through the local cache",
				ArgsUsage: "<vin>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "refresh", Usage: "Ignore the cached copy"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.StickerFetch(c.Context, db, cfg, stickers, ops.StickerFetchInput{
						VIN:     c.Args().First(),
						Refresh: c.Bool("refresh"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "get",
				Usage:     "Show a cached sticker, optionally writing its PDF",
				ArgsUsage: "<vin>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the PDF to this file"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.StickerGet(c.Context, db, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					if path := c.String("out"); path != "" {
						if err := os.WriteFile(path, output.PDF, 0644); err != nil {
							return outputError(errors.NewInternal(err))
						}
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List cached stickers",
				Action: func(c *cli.Context) error {
					output, err := ops.StickerList(c.Context, db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "purge",
				Usage: "Remove cached stickers",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "vin", Usage: "Remove only this VIN"},
					&cli.StringFlag{Name: "older-than", Usage: "Only purge if fetched more than N days ago (e.g., 30d)"},
				},
				Action: func(c *cli.Context) error {
					input := ops.StickerPurgeInput{VIN: c.String("vin")}
					if olderThan := c.String("older-than"); olderThan != "" {
						days, err := parseDuration(olderThan)
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
						input.OlderThanDays = &days
					}

					output, err := ops.StickerPurge(c.Context, db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, gen ops.TextGenerator, stickers ops.StickerFetcher) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP listing service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(web.Options{
				DB:        db,
				Config:    cfg,
				Generator: gen,
				Stickers:  stickers,
				Version:   Version,
				Bind:      c.String("bind"),
				Port:      c.Int("port"),
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, nil)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if kErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", kErr.Code, kErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// strictFlag maps --strict/--lenient onto an override. Neither flag leaves
// the configured mode in place.
func strictFlag(c *cli.Context) (*bool, error) {
	strict, lenient := c.Bool("strict"), c.Bool("lenient")
	switch {
	case strict && lenient:
		return nil, errors.NewInvalidRequest("--strict and --lenient are mutually exclusive")
	case strict:
		return &strict, nil
	case lenient:
		off := false
		return &off, nil
	}
	return nil, nil
}

// readVehicle decodes a vehicle JSON object from path, or stdin if path is empty.
func readVehicle(path string) (map[string]any, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("read vehicle: %v", err))
		}
		data = b
	} else {
		if !stdinHasData() {
			return nil, errors.NewInvalidRequest("vehicle JSON must be piped via stdin or given with --in")
		}
		text, err := readStdin(maxStdinBytes)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		data = []byte(text)
	}

	var vehicle map[string]any
	if err := json.Unmarshal(data, &vehicle); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid vehicle JSON: %v", err))
	}
	if vehicle == nil {
		return nil, errors.NewInvalidRequest("vehicle JSON must be an object")
	}
	return vehicle, nil
}

// readLinesFile reads the non-blank lines of a text file.
func readLinesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("read %s: %v", path, err))
	}
	defer f.Close()
	lines, err := ops.ReadLines(f)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return lines, nil
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("input exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
