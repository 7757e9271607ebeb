package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"trendcast/internal/core"
	"trendcast/internal/loader"
	"trendcast/internal/types"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

type rootOptions struct {
	configPath string
	verbose    bool
	dryRun     bool
	noImages   bool
	noClean    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "trendcast",
		Short: "Turn today's tech headlines into a Bluesky carousel",
		Long: `trendcast fetches the configured RSS and Atom feeds, clusters the
articles into trends, renders one slide per trend plus a cover and
posts the slides to Bluesky as a single multi-image post.

Example usage:
  trendcast                          # full run with ./config.toml
  trendcast --dry-run -v             # render slides, do not post
  trendcast --no-images --dry-run    # fetch and analyze only`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.toml", "path to configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every stage")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "render and write slides but never publish")
	cmd.Flags().BoolVar(&opts.noImages, "no-images", false, "stop after analysis")
	cmd.Flags().BoolVar(&opts.noClean, "no-clean", false, "keep the previous output directory contents")

	cmd.AddCommand(newVersionCmd(), newHistoryCmd(opts))

	return cmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runPipeline(ctx context.Context, out io.Writer, opts *rootOptions) error {
	logger := newLogger(opts.verbose)
	slog.SetDefault(logger)

	appState, err := loader.LoadAndBuild(ctx, opts.configPath, core.Options{
		DryRun:   opts.dryRun,
		NoImages: opts.noImages,
		NoClean:  opts.noClean,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting run", "bot", appState.Bot.Name(), "dry_run", opts.dryRun, "no_images", opts.noImages)

	result, runErr := appState.Bot.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := appState.Bot.Stop(shutdownCtx); err != nil {
		logger.Warn("Shutdown failed", "error", err)
	}

	fmt.Fprintln(out, summary(result))
	return runErr
}

// summary is the one line every run prints, verbose or not.
func summary(result *types.RunResult) string {
	if result == nil {
		return "trendcast: no run"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "trendcast: %d/%d feeds, %d articles, %d trends",
		result.FeedsTotal-result.FeedsFailed, result.FeedsTotal, result.Articles, result.Trends)

	if len(result.Labels) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(result.Labels, ", "))
	}
	if result.Slides > 0 {
		fmt.Fprintf(&b, ", %d slides", result.Slides)
	}

	switch {
	case result.Err != nil:
		fmt.Fprintf(&b, ", failed (exit %d)", types.ExitCode(result.Err))
	case result.Posted:
		fmt.Fprintf(&b, ", posted %s", result.PostURI)
	case result.DryRun:
		b.WriteString(", dry run")
	}

	fmt.Fprintf(&b, " in %s", result.Duration().Round(time.Millisecond))
	return b.String()
}
