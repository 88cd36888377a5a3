// Package config loads and validates the bookforge configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Book       BookConfig       `yaml:"book"`
	Expand     ExpandConfig     `yaml:"expand"`
	Audio      AudioConfig      `yaml:"audio"`
	Video      VideoConfig      `yaml:"video"`
	Cover      CoverConfig      `yaml:"cover"`
	Retry      RetryConfig      `yaml:"retry"`
	Server     ServerConfig     `yaml:"server"`
	Batch      BatchConfig      `yaml:"batch"`
}

// GenerationConfig configures the external text-generation service.
type GenerationConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Timeout     int     `yaml:"timeout_seconds,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	// PromptFile holds the base system prompt. AuthorsDir and TonesDir hold
	// persona and tone prefaces selectable per run.
	PromptFile string `yaml:"prompt_file,omitempty"`
	AuthorsDir string `yaml:"authors_dir,omitempty"`
	TonesDir   string `yaml:"tones_dir,omitempty"`
}

// BookConfig configures book project defaults.
type BookConfig struct {
	OutputDir string `yaml:"output_dir"`
	Author    string `yaml:"author,omitempty"`
	Language  string `yaml:"language,omitempty"`
}

// ExpandConfig configures the expansion pass engine.
type ExpandConfig struct {
	// MaxPasses caps how many expansion passes a single invocation may run.
	// Expansion grows content on every pass and never converges on its own.
	MaxPasses int `yaml:"max_passes,omitempty"`
}

// AudioConfig configures narration rendering.
type AudioConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Command   []string `yaml:"command,omitempty"`
	Voice     string   `yaml:"voice,omitempty"`
	Dirname   string   `yaml:"dirname,omitempty"`
	Overwrite bool     `yaml:"overwrite,omitempty"`
}

// VideoConfig configures chapter video rendering.
type VideoConfig struct {
	Enabled         bool                 `yaml:"enabled"`
	Dirname         string               `yaml:"dirname,omitempty"`
	Background      string               `yaml:"background,omitempty"`
	Overwrite       bool                 `yaml:"overwrite,omitempty"`
	ParagraphImages ParagraphImageConfig `yaml:"paragraph_images,omitempty"`
}

// ParagraphImageConfig configures per-paragraph slideshow imagery.
type ParagraphImageConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command []string `yaml:"command,omitempty"`
	Dirname string   `yaml:"dirname,omitempty"`
	Width   int      `yaml:"width,omitempty"`
	Height  int      `yaml:"height,omitempty"`
}

// CoverConfig configures cover image rendering.
type CoverConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Command   []string `yaml:"command,omitempty"`
	Width     int      `yaml:"width,omitempty"`
	Height    int      `yaml:"height,omitempty"`
	Overwrite bool     `yaml:"overwrite,omitempty"`
}

// RetryConfig configures retry behavior for transient generation failures.
type RetryConfig struct {
	Backoff    RetryBackoffMode `yaml:"backoff,omitempty"`
	Initial    time.Duration    `yaml:"initial,omitempty"`
	Max        time.Duration    `yaml:"max,omitempty"`
	MaxRetries int              `yaml:"max_retries,omitempty"`
	// AbortOnFailure aborts the whole run when a unit exhausts its retries
	// instead of recording the failure and continuing.
	AbortOnFailure bool `yaml:"abort_on_failure,omitempty"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	BooksDir string `yaml:"books_dir,omitempty"`
}

// BatchConfig configures multi-book batch runs.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env/.env.local if present; process env always wins.
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("load %s: %w", envPath, err)
			}
			break
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = "http://localhost:1234"
	}
	if c.Generation.Timeout <= 0 {
		c.Generation.Timeout = 600
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = 0.7
	}
	if c.Book.OutputDir == "" {
		c.Book.OutputDir = "./books"
	}
	if c.Book.Language == "" {
		c.Book.Language = "en"
	}
	if c.Expand.MaxPasses <= 0 {
		c.Expand.MaxPasses = 8
	}
	if c.Audio.Dirname == "" {
		c.Audio.Dirname = "audio"
	}
	if c.Video.Dirname == "" {
		c.Video.Dirname = "video"
	}
	if c.Video.ParagraphImages.Dirname == "" {
		c.Video.ParagraphImages.Dirname = "video_images"
	}
	if c.Video.ParagraphImages.Width <= 0 {
		c.Video.ParagraphImages.Width = 1280
	}
	if c.Video.ParagraphImages.Height <= 0 {
		c.Video.ParagraphImages.Height = 720
	}
	if c.Cover.Width <= 0 {
		c.Cover.Width = 1600
	}
	if c.Cover.Height <= 0 {
		c.Cover.Height = 2560
	}
	if c.Retry.Backoff == "" {
		c.Retry.Backoff = RetryBackoffLinear
	}
	if c.Retry.Initial <= 0 {
		c.Retry.Initial = time.Second
	}
	if c.Retry.Max <= 0 {
		c.Retry.Max = 30 * time.Second
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 2
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BooksDir == "" {
		c.Server.BooksDir = c.Book.OutputDir
	}
	if c.Batch.Concurrency <= 0 {
		c.Batch.Concurrency = 2
	}
}

// Validate checks configuration invariants after defaults are applied.
func (c *Config) Validate() error {
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	switch c.Retry.Backoff {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		return fmt.Errorf("retry.backoff: unknown mode %q", c.Retry.Backoff)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative")
	}
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

const exampleConfig = `# bookforge configuration
generation:
  # OpenAI-compatible chat completions endpoint.
  base_url: http://localhost:1234
  model: ${BOOKFORGE_MODEL}
  timeout_seconds: 600
  temperature: 0.7
  prompt_file: PROMPT.md
  authors_dir: authors
  tones_dir: tones

book:
  output_dir: ./books
  author: ""
  language: en

expand:
  max_passes: 8

audio:
  enabled: false
  voice: en-US-AvaNeural
  dirname: audio

video:
  enabled: false
  dirname: video
  paragraph_images:
    enabled: false
    dirname: video_images

cover:
  enabled: false

retry:
  backoff: linear
  initial: 1s
  max: 30s
  max_retries: 2

server:
  addr: :8080

batch:
  concurrency: 2
`
