package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/famomatic/bvdl/client"
	"github.com/famomatic/bvdl/internal/cli"
	"github.com/famomatic/bvdl/internal/config"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitPartial = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := cli.ParseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if _, err := cli.LoadEnvFile(opts.EnvFile); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	cfg, cfgPath, err := cli.Resolve(opts, os.Getenv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration: %v\n", err)
		return exitUsage
	}

	logger := newLogger(cfg.Logging, stderr)
	entry := logger.WithField("input", opts.Input())
	if cfgPath != "" {
		entry.Debugf("loaded config %s", cfgPath)
	}

	clientCfg, err := cli.ToClientConfig(cfg)
	if err != nil {
		entry.Errorf("invalid configuration: %v", err)
		return exitUsage
	}
	clientCfg.Logger = entry
	if progressEnabled(cfg, stderr) {
		clientCfg.Progress = newBarFactory(stderr)
	}

	c := client.New(clientCfg)
	res, err := c.Download(ctx, opts.Input(), client.DownloadOptions{
		OutputDir:    cfg.OutputDir,
		SkipDownload: opts.SkipDownload,
	})
	if res != nil {
		entry = entry.WithField("run", res.RunID)
		if res.Info != nil {
			if opts.PrintJSON {
				if perr := printJSON(stdout, res.Info); perr != nil {
					entry.Errorf("print json: %v", perr)
				}
			} else {
				printInfo(stdout, res.Info)
			}
		}
		for _, f := range res.Files {
			entry.WithField("part", f.Part).Infof("saved %s (%d bytes)", f.OutputPath, f.Bytes)
		}
	}
	if err != nil {
		category := client.ClassifyError(err)
		entry.WithField("category", category).Errorf("%v", err)
		var failed *client.PartsFailedError
		if errors.As(err, &failed) {
			for _, f := range failed.Failures {
				entry.WithFields(log.Fields{"part": f.Part, "stage": f.Stage}).Errorf("%v", f.Err)
			}
			return exitPartial
		}
		return exitFailure
	}
	return exitOK
}

func newLogger(cfg config.LoggingConfig, stderr io.Writer) *log.Logger {
	logger := log.New()
	out := stderr
	if f, ok := stderr.(*os.File); ok && f == os.Stderr && !cfg.NoColor {
		out = colorable.NewColorableStderr()
	}
	logger.SetOutput(out)
	logger.SetFormatter(&log.TextFormatter{
		TimestampFormat:        "15:04:05.000",
		FullTimestamp:          true,
		DisableColors:          cfg.NoColor || !isTerminal(stderr),
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// progressEnabled keeps bars off for pipes and for parallel parts, where
// concurrent bars would overwrite each other.
func progressEnabled(cfg config.Config, stderr io.Writer) bool {
	if cfg.Logging.Progress != nil && !*cfg.Logging.Progress {
		return false
	}
	return cfg.Worker.Concurrency <= 1 && isTerminal(stderr)
}

func printJSON(w io.Writer, info *client.VideoInfo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(info)
}

func printInfo(w io.Writer, info *client.VideoInfo) {
	fmt.Fprintf(w, "[title]: %s\n", info.Title)
	fmt.Fprintf(w, "[date]: %s\n", info.PublishDate)
	fmt.Fprintf(w, "[intro]: %s\n", info.Description)
	fmt.Fprintf(w, "[tags]: %v\n", info.Tags)
	for _, p := range info.Pages {
		fmt.Fprintf(w, "[p%d]: %s\n", p.Page, p.Title)
	}
	if len(info.MissingPages) > 0 {
		fmt.Fprintf(w, "[missing]: %v\n", info.MissingPages)
	}
}
