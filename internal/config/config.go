// Package config loads the optional YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/famomatic/bvdl/internal/webpage"
)

// Config mirrors the file layout.
type Config struct {
	Host           string          `yaml:"host"`
	UserAgent      string          `yaml:"user_agent"`
	ProxyURL       string          `yaml:"proxy_url"`
	RequestTimeout Duration        `yaml:"request_timeout"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	MaxBodyBytes   int64           `yaml:"max_body_bytes"`
	OutputDir      string          `yaml:"output_dir"`
	StateDecoder   string          `yaml:"state_decoder"`

	Worker    WorkerConfig      `yaml:"worker"`
	Muxer     MuxerConfig       `yaml:"muxer"`
	Selectors webpage.Selectors `yaml:"selectors"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// RateLimitConfig applies one token bucket to every request of a run.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// WorkerConfig controls part concurrency and failure handling.
type WorkerConfig struct {
	Concurrency  int    `yaml:"concurrency"`
	AbortOnError bool   `yaml:"abort_on_error"`
	MissingParts string `yaml:"missing_parts"`
}

// MuxerConfig selects the remux backend.
type MuxerConfig struct {
	Backend               string `yaml:"backend"`
	FFmpegPath            string `yaml:"ffmpeg_path"`
	KeepIntermediateFiles bool   `yaml:"keep_intermediate_files"`
}

// LoggingConfig selects log verbosity and presentation.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	NoColor bool   `yaml:"no_color"`
	// Progress enables progress bars on terminals. Nil means enabled.
	Progress *bool `yaml:"progress"`
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Host:           "www.bilibili.com",
		RequestTimeout: DurationFrom(60 * time.Second),
		OutputDir:      "data",
		StateDecoder:   "scan",
		Worker: WorkerConfig{
			Concurrency:  1,
			MissingParts: "skip",
		},
		Muxer: MuxerConfig{
			Backend:    "ffmpeg",
			FFmpegPath: "ffmpeg",
		},
		Selectors: webpage.DefaultSelectors(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load decodes YAML from r on top of the defaults. Unknown keys are rejected.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Selectors = cfg.Selectors.WithDefaults()
	return cfg, nil
}

// LoadFile reads the YAML file at path on top of the defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Load(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// SearchPaths returns the standard config locations in lookup order.
func SearchPaths() []string {
	paths := []string{"./bvdl.yaml", "./bvdl.yml"}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths,
			filepath.Join(home, ".bvdl", "config.yaml"),
			filepath.Join(home, ".bvdl", "config.yml"),
		)
	}
	return paths
}

// Find returns the first existing file of locations, or SearchPaths when
// none are given. It returns "" when nothing exists.
func Find(locations ...string) string {
	if len(locations) == 0 {
		locations = SearchPaths()
	}
	for _, path := range locations {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	return ""
}

// Validate reports every invalid value of c.
func (c Config) Validate() error {
	var errs []error
	if c.RequestTimeout.Duration < 0 {
		errs = append(errs, errors.New("request_timeout must not be negative"))
	}
	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit values must not be negative"))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("max_body_bytes must not be negative"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("worker.concurrency must be at least 1, got %d", c.Worker.Concurrency))
	}
	switch strings.ToLower(c.Worker.MissingParts) {
	case "", "skip", "fail":
	default:
		errs = append(errs, fmt.Errorf("worker.missing_parts must be skip or fail, got %q", c.Worker.MissingParts))
	}
	switch strings.ToLower(c.StateDecoder) {
	case "", "scan", "script", "auto":
	default:
		errs = append(errs, fmt.Errorf("state_decoder must be scan, script or auto, got %q", c.StateDecoder))
	}
	switch strings.ToLower(c.Muxer.Backend) {
	case "", "ffmpeg", "native":
	default:
		errs = append(errs, fmt.Errorf("muxer.backend must be ffmpeg or native, got %q", c.Muxer.Backend))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not supported", c.Logging.Level))
	}
	return errors.Join(errs...)
}
