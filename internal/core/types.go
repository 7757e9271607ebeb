package core

import (
	"context"
	"time"

	"trendcast/internal/sources/rss"
	"trendcast/internal/targets/disk"
	"trendcast/internal/types"
)

type Fetcher interface {
	Fetch(ctx context.Context, sources []types.FeedSource) (*rss.FetchResult, error)
}

type Analyzer interface {
	Analyze(articles []types.Article) ([]types.Trend, error)
}

type Composer interface {
	Compose(ctx context.Context, trends []types.Trend, date time.Time) ([]types.Slide, error)
}

// CaptionFunc renders the post text saved next to the slides.
type CaptionFunc func(trends []types.Trend, date time.Time) string

// Writer persists the carousel. Clean runs before anything is fetched.
type Writer interface {
	Name() string
	Clean() error
	Write(ctx context.Context, carousel disk.Carousel) ([]string, error)
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, slides []types.Slide, trends []types.Trend, date time.Time) (*types.PublishResult, error)
}

// History records finished runs. A failing history never fails a run.
type History interface {
	Record(ctx context.Context, result *types.RunResult) (int64, error)
}

type OnEmpty string

const (
	OnEmptyAbort OnEmpty = "abort"
	OnEmptyCover OnEmpty = "cover"
)

type Options struct {
	DryRun   bool
	NoImages bool
	NoClean  bool
	OnEmpty  OnEmpty
}
