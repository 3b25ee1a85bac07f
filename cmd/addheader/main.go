// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.astrophena.name/addheader/cli"
	"go.astrophena.name/addheader/header"
	"go.astrophena.name/addheader/logger"
)

// defaultConfigFile is looked up in the processed directory when -config is
// not set.
const defaultConfigFile = ".addheader.txtar"

var errInvalidConfig = errors.New("invalid configuration")

func main() { cli.Main(new(app)) }

type app struct {
	root    string
	dryRun  bool
	config  string
	year    int
	verbose bool
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.root, "path", ".", "Root `directory` to process.")
	fs.BoolVar(&a.dryRun, "dry-run", false, "Show what would be done without making changes.")
	fs.StringVar(&a.config, "config", "", "Read configuration from txtar `file` (default: "+defaultConfigFile+" in the root directory, if present).")
	fs.IntVar(&a.year, "year", 0, "Copyright `year` for new headers, overriding the configuration.")
	fs.BoolVar(&a.verbose, "v", false, "Log skipped files and pruned directories.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	if len(env.Args) > 0 {
		return fmt.Errorf("%w: unexpected arguments %q", cli.ErrInvalidArgs, env.Args)
	}
	if a.year < 0 {
		return fmt.Errorf("%w: -year must not be negative", cli.ErrInvalidArgs)
	}
	if a.verbose {
		logger.LevelVar(ctx).Set(slog.LevelDebug)
	}

	opts, err := a.loadOptions(ctx)
	if err != nil {
		return err
	}
	if a.year != 0 {
		opts.Year = a.year
		opts.YearFromModTime = false
	}
	cfg, err := header.New(opts)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	printBanner(env.Stdout, cfg)
	fmt.Fprintf(env.Stdout, "Scanning directory: %s\n", a.root)
	fmt.Fprintf(env.Stdout, "Dry run: %v\n\n", a.dryRun)

	ap := &header.Applicator{
		Config: cfg,
		DryRun: a.dryRun,
		Report: func(r header.Result) { printResult(env.Stdout, r) },
	}
	sum, err := ap.Apply(ctx, a.root)
	printSummary(env.Stdout, sum)
	return err
}

func (a *app) loadOptions(ctx context.Context) (header.Options, error) {
	path := a.config
	if path == "" {
		path = filepath.Join(a.root, defaultConfigFile)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return header.DefaultOptions(), nil
		}
	}
	logger.Debug(ctx, "reading configuration", slog.String("path", path))
	return header.ReadOptions(path)
}

func printBanner(w io.Writer, cfg *header.Config) {
	fmt.Fprintln(w, "Copyright Header Automation")
	fmt.Fprintf(w, "Holder: %s\n", cfg.Holder())
	if cfg.YearFromModTime() {
		fmt.Fprint(w, "Year: from file modification time\n\n")
	} else {
		fmt.Fprintf(w, "Year: %d\n\n", cfg.Year())
	}
}

func printResult(w io.Writer, r header.Result) {
	switch r.Outcome {
	case header.Updated:
		fmt.Fprintf(w, "[OK] Added header to: %s\n", r.Path)
	case header.WouldUpdate:
		fmt.Fprintf(w, "[DRY RUN] Would add header to: %s\n", r.Path)
	case header.Covered:
		fmt.Fprintf(w, "[SKIP] Skipped (has copyright): %s\n", r.Path)
	case header.Failed:
		if r.Processed {
			fmt.Fprintf(w, "[ERROR] Failed to add header to: %s\n", r.Path)
		}
	}
}

func printSummary(w io.Writer, sum header.Summary) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Files processed: %d\n", sum.Processed)
	fmt.Fprintf(w, "  Files updated: %d\n", sum.Updated)
	fmt.Fprintf(w, "  Files skipped: %d\n", sum.Skipped)
	if sum.Failed > 0 {
		fmt.Fprintf(w, "  Files failed: %d\n", sum.Failed)
	}
	fmt.Fprintln(w, rule)
}
