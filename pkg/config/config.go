package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"knowthepast/pkg/model"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	History   HistoryConfig   `yaml:"history"`
	Request   RequestConfig   `yaml:"request"`
	LLM       LLMConfig       `yaml:"llm"`
	Images    ImagesConfig    `yaml:"images"`
	Maps      MapsConfig      `yaml:"maps"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	DB        DBConfig        `yaml:"db"`
}

// DBConfig holds the SQLite settings.
type DBConfig struct {
	Path          string `yaml:"path"`           // ":memory:" keeps everything in process
	PruneSchedule string `yaml:"prune_schedule"` // Cron expression for cache pruning; empty disables
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address   string `yaml:"address"`
	StaticDir string `yaml:"static_dir"` // Built front-end; empty disables static serving
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// HistoryConfig controls the prompt/response transcript.
type HistoryConfig struct {
	LLM HistorySettings `yaml:"llm"`
}

// HistorySettings holds settings for one transcript file.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RequestConfig holds HTTP request settings for plain REST calls (geocoding).
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LLMConfig holds settings for the generative model provider.
type LLMConfig struct {
	Provider    string            `yaml:"provider"`    // "gemini"
	Model       string            `yaml:"model"`       // structured content model
	ImageModel  string            `yaml:"image_model"` // image synthesis model
	Key         string            `yaml:"key"`         // API Key
	Profiles    map[string]string `yaml:"profiles"`    // Map of intent -> model
	Timeout     Duration          `yaml:"timeout"`
	Temperature float32           `yaml:"temperature"`
}

// ImagesConfig holds settings for slide image generation.
type ImagesConfig struct {
	Timeout     Duration `yaml:"timeout"`
	Concurrency int      `yaml:"concurrency"`
	Interval    Duration `yaml:"interval"` // Minimum spacing between image calls; 0 disables pacing
	StyleSuffix string   `yaml:"style_suffix"`
	MaxWidth    int      `yaml:"max_width"`
	MaxHeight   int      `yaml:"max_height"`
}

// MapsConfig holds map provider settings.
type MapsConfig struct {
	Key          string   `yaml:"key"`
	GeocodeURL   string   `yaml:"geocode_url"`
	FallbackZoom int      `yaml:"fallback_zoom"` // Used when an area boundary cannot be resolved
	InitialLat   float64  `yaml:"initial_lat"`
	InitialLon   float64  `yaml:"initial_lon"`
	InitialZoom  int      `yaml:"initial_zoom"`
	InitialType  string   `yaml:"initial_type"`
	MapID        string   `yaml:"map_id"`
	CacheTTL     Duration `yaml:"cache_ttl"`
}

// DiscoveryConfig holds place discovery settings.
type DiscoveryConfig struct {
	CategoriesFile string `yaml:"categories_file"`
	RecentLimit    int    `yaml:"recent_limit"` // How many discovered names are fed back as "avoid"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:   "localhost:1921",
			StaticDir: "./web/dist",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		History: HistoryConfig{
			LLM: HistorySettings{
				Enabled: false,
				Path:    "./logs/gemini.log",
			},
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(10 * time.Second),
			},
		},
		LLM: LLMConfig{
			Provider:   "gemini",
			Model:      "gemini-2.5-flash",
			ImageModel: "gemini-2.5-flash-image",
			Key:        "",
			Profiles: map[string]string{
				"discovery": "gemini-2.5-flash",
				"story":     "gemini-2.5-flash",
			},
			Timeout:     Duration(60 * time.Second),
			Temperature: 1.0,
		},
		Images: ImagesConfig{
			Timeout:     Duration(90 * time.Second),
			Concurrency: 3,
			Interval:    Duration(500 * time.Millisecond),
			StyleSuffix: "photorealistic, cinematic lighting, no text or captions",
			MaxWidth:    1280,
			MaxHeight:   720,
		},
		Maps: MapsConfig{
			Key:          "",
			GeocodeURL:   "https://maps.googleapis.com/maps/api/geocode/json",
			FallbackZoom: 12,
			InitialLat:   40.7831,
			InitialLon:   -73.9712,
			InitialZoom:  11,
			InitialType:  "satellite",
			MapID:        "KNOW_THE_PAST_MAP_DARK",
			CacheTTL:     Duration(Day),
		},
		Discovery: DiscoveryConfig{
			CategoriesFile: "configs/categories.yaml",
			RecentLimit:    10,
		},
		DB: DBConfig{
			Path:          "./data/knowthepast.db",
			PruneSchedule: "@hourly",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Credentials missing from the file are taken from the environment but never written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv fills empty credentials from the environment.
func applyEnv(cfg *Config) {
	if cfg.LLM.Key == "" {
		cfg.LLM.Key = firstEnv("GEMINI_API_KEY", "API_KEY")
	}
	if cfg.Maps.Key == "" {
		cfg.Maps.Key = firstEnv("MAPS_API_KEY", "GOOGLE_MAPS_API_KEY")
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks the settings the application cannot start without.
// It returns a *model.ConfigurationError for the first missing one.
func (c *Config) Validate() error {
	if c.LLM.Key == "" {
		return &model.ConfigurationError{Setting: "llm.key (GEMINI_API_KEY)"}
	}
	if c.Maps.Key == "" {
		return &model.ConfigurationError{Setting: "maps.key (MAPS_API_KEY)"}
	}
	if c.LLM.Model == "" {
		return &model.ConfigurationError{Setting: "llm.model"}
	}
	if c.Images.Concurrency < 1 {
		return &model.ConfigurationError{Setting: "images.concurrency", Err: fmt.Errorf("must be at least 1, got %d", c.Images.Concurrency)}
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Know The Past Configuration
# ---------------------
# Credentials may be left empty and supplied via GEMINI_API_KEY / MAPS_API_KEY
# (environment or .env file).
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	reType := regexp.MustCompile(`(?m)^(\s+)initial_type:`)
	data = reType.ReplaceAll(data, []byte("${1}# Options: roadmap, satellite\n${1}initial_type:"))

	reInterval := regexp.MustCompile(`(?m)^(\s+)interval:`)
	data = reInterval.ReplaceAll(data, []byte("${1}# Minimum gap between image requests (0 = no pacing)\n${1}interval:"))

	rePrune := regexp.MustCompile(`(?m)^(\s+)prune_schedule:`)
	data = rePrune.ReplaceAll(data, []byte("${1}# Cron expression, e.g. @hourly or \"0 */6 * * *\" (empty = startup only)\n${1}prune_schedule:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
