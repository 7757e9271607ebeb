package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"trendcast/internal/storage"
	"trendcast/internal/types"
)

type runStore struct {
	db *sql.DB
}

func newRunStore(db *sql.DB) storage.RunStore {
	return &runStore{db: db}
}

func (s *runStore) Record(ctx context.Context, result *types.RunResult) (int64, error) {
	labels := result.Labels
	if labels == nil {
		labels = []string{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return 0, fmt.Errorf("failed to encode labels: %w", err)
	}

	errText := ""
	if result.Err != nil {
		errText = result.Err.Error()
	}

	query := `
		INSERT INTO runs (started_at, finished_at, dry_run, feeds_total, feeds_failed,
			articles, trends, labels, slides, posted, post_uri, exit_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		result.StartedAt.UTC(),
		result.FinishedAt.UTC(),
		result.DryRun,
		result.FeedsTotal,
		result.FeedsFailed,
		result.Articles,
		result.Trends,
		string(labelsJSON),
		result.Slides,
		result.Posted,
		result.PostURI,
		types.ExitCode(result.Err),
		errText,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	return id, nil
}

func (s *runStore) Recent(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, dry_run, feeds_total, feeds_failed,
			articles, trends, labels, slides, posted, post_uri, exit_code, error
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	records := make([]storage.RunRecord, 0)
	for rows.Next() {
		var r storage.RunRecord
		var labels string

		err := rows.Scan(
			&r.ID,
			&r.StartedAt,
			&r.FinishedAt,
			&r.DryRun,
			&r.FeedsTotal,
			&r.FeedsFailed,
			&r.Articles,
			&r.Trends,
			&labels,
			&r.Slides,
			&r.Posted,
			&r.PostURI,
			&r.ExitCode,
			&r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if err := json.Unmarshal([]byte(labels), &r.Labels); err != nil {
			return nil, fmt.Errorf("failed to decode labels of run %d: %w", r.ID, err)
		}

		records = append(records, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

func (s *runStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).UTC()

	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}

	return result.RowsAffected()
}
