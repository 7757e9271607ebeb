package storage

import (
	"context"
	"database/sql"
	"time"

	"trendcast/internal/types"
)

type StorageInterface interface {
	GetConnection() *sql.DB
	Runs() RunStore
	Close(ctx context.Context) error
}

// RunRecord is one persisted pipeline run.
type RunRecord struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time
	DryRun      bool
	FeedsTotal  int
	FeedsFailed int
	Articles    int
	Trends      int
	Labels      []string
	Slides      int
	Posted      bool
	PostURI     string
	ExitCode    int
	Error       string
}

type RunStore interface {
	Record(ctx context.Context, result *types.RunResult) (int64, error)
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
