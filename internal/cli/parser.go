package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/famomatic/bvdl/client"
	"github.com/famomatic/bvdl/internal/config"
)

// Options holds all command-line options.
type Options struct {
	// Input, exactly one of the two.
	BID string // -bid
	URL string // -url

	// General
	ConfigPath string // -config
	EnvFile    string // -env-file

	// Network
	ProxyURL  string        // -proxy
	UserAgent string        // -user-agent
	Timeout   time.Duration // -timeout
	RateLimit float64       // -rate-limit

	// Download / Filesystem
	OutputDir        string // -o
	Concurrency      int    // -concurrency
	AbortOnError     bool   // -abort-on-error
	MissingParts     string // -missing-parts
	SkipDownload     bool   // -skip-download
	KeepIntermediate bool   // -keep-intermediate

	// Post-processing
	Muxer          string // -muxer
	FFmpegLocation string // -ffmpeg-location

	// Advanced / Debug
	StateDecoder string // -state-decoder

	// Verbosity / Debug
	Verbose    bool
	PrintJSON  bool // -print-json
	NoProgress bool // -no-progress
	NoColor    bool // -no-color

	set map[string]bool
}

// IsSet reports whether the named flag was given on the command line.
func (o Options) IsSet(name string) bool {
	return o.set[name]
}

// Input returns the identifier to resolve.
func (o Options) Input() string {
	if o.BID != "" {
		return o.BID
	}
	return o.URL
}

// ErrUsage is returned when the arguments do not name exactly one video.
var ErrUsage = errors.New("exactly one of -bid or -url is required")

// ParseFlags parses command-line arguments into Options. Usage goes to output.
func ParseFlags(args []string, output io.Writer) (Options, error) {
	opts := Options{}
	fs := flag.NewFlagSet("bvdl", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.BID, "bid", "", "Video code, e.g. BV1xx411c7mD")
	fs.StringVar(&opts.URL, "url", "", "Video detail page URL")

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to config file (default: search standard locations)")
	fs.StringVar(&opts.EnvFile, "env-file", "", "Environment file to load (default: .env when present)")

	fs.StringVar(&opts.ProxyURL, "proxy", "", "Use the specified HTTP/HTTPS/SOCKS proxy")
	fs.StringVar(&opts.UserAgent, "user-agent", "", "User-Agent sent with every request")
	fs.DurationVar(&opts.Timeout, "timeout", 0, "Idle timeout per request (default: from config, 60s)")
	fs.Float64Var(&opts.RateLimit, "rate-limit", 0, "Maximum requests per second (0 = unlimited)")

	fs.StringVar(&opts.OutputDir, "o", "", "Output root directory (default: data)")
	fs.IntVar(&opts.Concurrency, "concurrency", 0, "Number of parts processed at once (default: from config, 1)")
	fs.BoolVar(&opts.AbortOnError, "abort-on-error", false, "Stop remaining parts after the first failure")
	fs.StringVar(&opts.MissingParts, "missing-parts", "", "Gaps in the part listing: skip or fail")
	fs.BoolVar(&opts.SkipDownload, "skip-download", false, "Resolve metadata only")
	fs.BoolVar(&opts.KeepIntermediate, "keep-intermediate", false, "Keep the per-part .m4s files after muxing")

	fs.StringVar(&opts.Muxer, "muxer", "", "Remux backend: ffmpeg or native")
	fs.StringVar(&opts.FFmpegLocation, "ffmpeg-location", "", "Path to ffmpeg binary")

	fs.StringVar(&opts.StateDecoder, "state-decoder", "", "Inline state decoder: scan, script or auto")

	fs.BoolVar(&opts.Verbose, "verbose", false, "Print various debugging information")
	fs.BoolVar(&opts.PrintJSON, "print-json", false, "Print the video information as JSON")
	fs.BoolVar(&opts.NoProgress, "no-progress", false, "Disable progress bars")
	fs.BoolVar(&opts.NoColor, "no-color", false, "Disable colored log output")

	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: bvdl (-bid <code> | -url <page url>) [OPTIONS]\n\n")
		fmt.Fprintln(output, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	opts.BID = strings.TrimSpace(opts.BID)
	opts.URL = strings.TrimSpace(opts.URL)
	if (opts.BID == "") == (opts.URL == "") || fs.NArg() > 0 {
		fs.Usage()
		return opts, ErrUsage
	}
	return opts, nil
}

// MergeFlags overrides cfg with every flag that was explicitly set.
func MergeFlags(cfg *config.Config, opts Options) {
	if opts.IsSet("proxy") {
		cfg.ProxyURL = opts.ProxyURL
	}
	if opts.IsSet("user-agent") {
		cfg.UserAgent = opts.UserAgent
	}
	if opts.IsSet("timeout") {
		cfg.RequestTimeout = config.DurationFrom(opts.Timeout)
	}
	if opts.IsSet("rate-limit") {
		cfg.RateLimit.PerSecond = opts.RateLimit
	}
	if opts.IsSet("o") {
		cfg.OutputDir = opts.OutputDir
	}
	if opts.IsSet("concurrency") {
		cfg.Worker.Concurrency = opts.Concurrency
	}
	if opts.IsSet("abort-on-error") {
		cfg.Worker.AbortOnError = opts.AbortOnError
	}
	if opts.IsSet("missing-parts") {
		cfg.Worker.MissingParts = opts.MissingParts
	}
	if opts.IsSet("keep-intermediate") {
		cfg.Muxer.KeepIntermediateFiles = opts.KeepIntermediate
	}
	if opts.IsSet("muxer") {
		cfg.Muxer.Backend = opts.Muxer
	}
	if opts.IsSet("ffmpeg-location") {
		cfg.Muxer.FFmpegPath = opts.FFmpegLocation
	}
	if opts.IsSet("state-decoder") {
		cfg.StateDecoder = opts.StateDecoder
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	if opts.NoColor {
		cfg.Logging.NoColor = true
	}
	if opts.NoProgress {
		off := false
		cfg.Logging.Progress = &off
	}
}

// ToClientConfig converts the merged configuration to client.Config.
func ToClientConfig(cfg config.Config) (client.Config, error) {
	out := client.Config{
		ProxyURL:              cfg.ProxyURL,
		Host:                  cfg.Host,
		UserAgent:             cfg.UserAgent,
		RequestTimeout:        cfg.RequestTimeout.Duration,
		RateLimit:             cfg.RateLimit.PerSecond,
		RateBurst:             cfg.RateLimit.Burst,
		MaxBodyBytes:          cfg.MaxBodyBytes,
		Concurrency:           cfg.Worker.Concurrency,
		AbortOnError:          cfg.Worker.AbortOnError,
		MissingParts:          cfg.Worker.MissingParts,
		StateDecoder:          cfg.StateDecoder,
		Selectors:             cfg.Selectors,
		MuxerBackend:          cfg.Muxer.Backend,
		FFmpegPath:            cfg.Muxer.FFmpegPath,
		KeepIntermediateFiles: cfg.Muxer.KeepIntermediateFiles,
	}
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}
