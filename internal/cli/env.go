package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/famomatic/bvdl/internal/config"
)

// Environment variables read by ApplyEnv.
const (
	EnvProxy        = "BVDL_PROXY"
	EnvFFmpeg       = "BVDL_FFMPEG"
	EnvOutput       = "BVDL_OUTPUT"
	EnvUserAgent    = "BVDL_USER_AGENT"
	EnvConcurrency  = "BVDL_CONCURRENCY"
	EnvMuxer        = "BVDL_MUXER"
	EnvStateDecoder = "BVDL_STATE_DECODER"
	EnvLogLevel     = "BVDL_LOG_LEVEL"
)

// LoadEnvFile loads path into the process environment without overriding
// variables that are already set. An empty path loads ./.env when present.
// It returns the file that was loaded, or "".
func LoadEnvFile(path string) (string, error) {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("env file %s: %w", path, err)
	}
	return path, nil
}

// ApplyEnv overrides cfg with the BVDL_* variables reported by getenv.
func ApplyEnv(cfg *config.Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvProxy)); v != "" {
		cfg.ProxyURL = v
	}
	if v := strings.TrimSpace(getenv(EnvFFmpeg)); v != "" {
		cfg.Muxer.FFmpegPath = v
	}
	if v := strings.TrimSpace(getenv(EnvOutput)); v != "" {
		cfg.OutputDir = v
	}
	if v := strings.TrimSpace(getenv(EnvUserAgent)); v != "" {
		cfg.UserAgent = v
	}
	if v := strings.TrimSpace(getenv(EnvMuxer)); v != "" {
		cfg.Muxer.Backend = v
	}
	if v := strings.TrimSpace(getenv(EnvStateDecoder)); v != "" {
		cfg.StateDecoder = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvConcurrency)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConcurrency, err)
		}
		cfg.Worker.Concurrency = n
	}
	return nil
}

// Resolve builds the effective configuration: defaults, then the config
// file, then the environment, then explicit flags.
func Resolve(opts Options, getenv func(string) string) (config.Config, string, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.Find()
	}
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return cfg, path, err
		}
		cfg = loaded
	}
	if err := ApplyEnv(&cfg, getenv); err != nil {
		return cfg, path, err
	}
	MergeFlags(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}
