package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"trendcast/internal/config"
	"trendcast/internal/storage"
	_ "trendcast/internal/storage/sqlite"

	"github.com/spf13/cobra"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		limit int
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the history database",
		Long: `Show recent runs recorded in history.path.

Examples:
  trendcast history                 # last 10 runs
  trendcast history --limit 50
  trendcast history --prune 720h    # drop runs older than 30 days first`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.History.Path == "" {
				return fmt.Errorf("history is disabled: set history.path in %s", root.configPath)
			}

			store, err := storage.New("sqlite", cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close(cmd.Context())

			runs := store.Runs()
			if prune > 0 {
				removed, err := runs.DeleteOlderThan(cmd.Context(), prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d runs\n", removed)
			}

			records, err := runs.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete runs older than this before listing")
	return cmd
}

func printHistory(out io.Writer, records []storage.RunRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}

	t := newTable(out, []string{"ID", "Started", "Mode", "Feeds", "Trends", "Slides", "Exit", "Post"})
	for _, r := range records {
		mode := "live"
		if r.DryRun {
			mode = "dry-run"
		}
		post := r.PostURI
		if post == "" {
			post = "-"
		}
		t.addRow(
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format(time.DateTime),
			mode,
			fmt.Sprintf("%d/%d", r.FeedsTotal-r.FeedsFailed, r.FeedsTotal),
			trendsColumn(r),
			strconv.Itoa(r.Slides),
			strconv.Itoa(r.ExitCode),
			post,
		)
	}
	return t.render()
}

func trendsColumn(r storage.RunRecord) string {
	if len(r.Labels) == 0 {
		return fmt.Sprintf("%d", r.Trends)
	}
	return fmt.Sprintf("%d (%s)", r.Trends, strings.Join(r.Labels, ", "))
}
