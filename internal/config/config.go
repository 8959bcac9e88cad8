package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hpungsan/kenbot/internal/fetch"
	"github.com/hpungsan/kenbot/internal/listing"
)

// Config holds application configuration.
type Config struct {
	// ShortFormLimit is the character budget of the marketplace listing.
	ShortFormLimit int `json:"short_form_limit"`

	// LongFormEquipmentCap and ShortFormEquipmentCap bound the bulleted
	// dealer equipment rendered in each channel.
	LongFormEquipmentCap  int `json:"long_form_equipment_cap"`
	ShortFormEquipmentCap int `json:"short_form_equipment_cap"`

	// Strict makes a record without a usable title an error. When false the
	// "listing unavailable" placeholder pair is emitted instead. Default true.
	Strict *bool `json:"strict,omitempty"`

	// ExtendedCategories enables the luxury and sport classification rules.
	// Default true.
	ExtendedCategories *bool `json:"extended_categories,omitempty"`

	Dealer  DealerConfig  `json:"dealer"`
	Sticker StickerConfig `json:"sticker"`
	LLM     LLMConfig     `json:"llm"`

	// BatchConcurrency bounds how many vehicles a batch generates at once.
	BatchConcurrency int `json:"batch_concurrency,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DealerConfig identifies the publishing dealership.
type DealerConfig struct {
	Name     string   `json:"name,omitempty"`
	Seller   string   `json:"seller,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Location string   `json:"location,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// StickerConfig controls remote window-sticker retrieval and the cache
// validity policy.
type StickerConfig struct {
	MinBytes         int     `json:"min_bytes,omitempty"`
	StrictMinBytes   int     `json:"strict_min_bytes,omitempty"`
	StrictValidation bool    `json:"strict_validation,omitempty"`
	URLTemplate      string  `json:"url_template,omitempty"`
	RatePerSecond    float64 `json:"rate_per_second,omitempty"`
	Burst            int     `json:"burst,omitempty"`
	TimeoutSeconds   int     `json:"timeout_seconds,omitempty"`
	MaxRetries       int     `json:"max_retries,omitempty"`
}

// LLMConfig configures the optional text-generation service. The API key is
// never read from config files.
type LLMConfig struct {
	BaseURL        string  `json:"base_url,omitempty"`
	Model          string  `json:"model,omitempty"`
	RatePerSecond  float64 `json:"rate_per_second,omitempty"`
	Burst          int     `json:"burst,omitempty"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
	APIKey         string  `json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ShortFormLimit:        listing.DefaultShortFormLimit,
		LongFormEquipmentCap:  10,
		ShortFormEquipmentCap: 8,
		Strict:                boolPtr(true),
		ExtendedCategories:    boolPtr(true),
		Dealer: DealerConfig{
			Name:     "Kennebec Dodge Chrysler",
			Seller:   "Daniel Giroux",
			Phone:    "418-222-3939",
			Location: "Saint-Georges (Beauce)",
			Hashtags: []string{
				"#VehiculeOccasion", "#AutoUsagée", "#Quebec", "#Beauce",
				"#SaintGeorges", "#KennebecDodge", "#DanielGiroux",
			},
		},
		Sticker: StickerConfig{
			MinBytes:       fetch.MinStickerBytes,
			StrictMinBytes: fetch.StrictMinStickerBytes,
			URLTemplate:    listing.DefaultStickerURLTemplate,
			RatePerSecond:  1,
			Burst:          2,
			TimeoutSeconds: 30,
			MaxRetries:     2,
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			RatePerSecond:  2,
			Burst:          2,
			TimeoutSeconds: 60,
		},
		BatchConcurrency: 4,
		LogLevel:         "info",
	}
}

// IsStrict reports whether a missing title is an error.
func (c *Config) IsStrict() bool {
	return c.Strict == nil || *c.Strict
}

// UseExtendedCategories reports whether the luxury and sport rules run.
func (c *Config) UseExtendedCategories() bool {
	return c.ExtendedCategories == nil || *c.ExtendedCategories
}

// StickerMinBytes returns the minimum accepted sticker size under the active
// validation mode.
func (c *Config) StickerMinBytes() int {
	if c.Sticker.StrictValidation {
		return c.Sticker.StrictMinBytes
	}
	return c.Sticker.MinBytes
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.kenbot.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.kenbot) and repo (.kenbot) directories.
// Repo config is found by walking upward from startDir to find the nearest .kenbot/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing. Environment variables are applied last.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	cfg.LoadFromEnv(filepath.Join(startDir, ".env"))
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .kenbot/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".kenbot", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadFromEnv loads dotenv (if present) then overrides config from
// environment variables. Variables already set in the process win over the
// file.
func (c *Config) LoadFromEnv(dotenv string) {
	if dotenv != "" {
		_ = godotenv.Load(dotenv)
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("KENBOT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("KENBOT_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Strict = boolPtr(b)
		}
	}
	if v := os.Getenv("KENBOT_BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.BatchConcurrency = n
		}
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars and a non-empty dealer hashtag
// list; disabled_tools is merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.ShortFormLimit = pickInt(overlay.ShortFormLimit, base.ShortFormLimit)
	result.LongFormEquipmentCap = pickInt(overlay.LongFormEquipmentCap, base.LongFormEquipmentCap)
	result.ShortFormEquipmentCap = pickInt(overlay.ShortFormEquipmentCap, base.ShortFormEquipmentCap)
	result.BatchConcurrency = pickInt(overlay.BatchConcurrency, base.BatchConcurrency)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)

	// Tri-state booleans: overlay wins if set, so a repo can turn a default off
	result.Strict = base.Strict
	if overlay.Strict != nil {
		result.Strict = overlay.Strict
	}
	result.ExtendedCategories = base.ExtendedCategories
	if overlay.ExtendedCategories != nil {
		result.ExtendedCategories = overlay.ExtendedCategories
	}

	result.Dealer = DealerConfig{
		Name:     pickString(overlay.Dealer.Name, base.Dealer.Name),
		Seller:   pickString(overlay.Dealer.Seller, base.Dealer.Seller),
		Phone:    pickString(overlay.Dealer.Phone, base.Dealer.Phone),
		Location: pickString(overlay.Dealer.Location, base.Dealer.Location),
		Hashtags: pickStringSlice(overlay.Dealer.Hashtags, base.Dealer.Hashtags),
	}

	result.Sticker = StickerConfig{
		MinBytes:         pickInt(overlay.Sticker.MinBytes, base.Sticker.MinBytes),
		StrictMinBytes:   pickInt(overlay.Sticker.StrictMinBytes, base.Sticker.StrictMinBytes),
		StrictValidation: base.Sticker.StrictValidation || overlay.Sticker.StrictValidation,
		URLTemplate:      pickString(overlay.Sticker.URLTemplate, base.Sticker.URLTemplate),
		RatePerSecond:    pickFloat(overlay.Sticker.RatePerSecond, base.Sticker.RatePerSecond),
		Burst:            pickInt(overlay.Sticker.Burst, base.Sticker.Burst),
		TimeoutSeconds:   pickInt(overlay.Sticker.TimeoutSeconds, base.Sticker.TimeoutSeconds),
		MaxRetries:       pickInt(overlay.Sticker.MaxRetries, base.Sticker.MaxRetries),
	}

	result.LLM = LLMConfig{
		BaseURL:        pickString(overlay.LLM.BaseURL, base.LLM.BaseURL),
		Model:          pickString(overlay.LLM.Model, base.LLM.Model),
		RatePerSecond:  pickFloat(overlay.LLM.RatePerSecond, base.LLM.RatePerSecond),
		Burst:          pickInt(overlay.LLM.Burst, base.LLM.Burst),
		TimeoutSeconds: pickInt(overlay.LLM.TimeoutSeconds, base.LLM.TimeoutSeconds),
		APIKey:         pickString(overlay.LLM.APIKey, base.LLM.APIKey),
	}

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickFloat(overlay, base float64) float64 {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// pickStringSlice returns the cleaned overlay when it has any entries, and
// base otherwise.
func pickStringSlice(overlay, base []string) []string {
	if cleaned := mergeStringSlice(overlay, nil); cleaned != nil {
		return cleaned
	}
	return base
}

func boolPtr(b bool) *bool {
	return &b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
