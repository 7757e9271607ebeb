package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trendcast/internal/processors/filters"
	"trendcast/internal/targets/disk"
	"trendcast/internal/types"
)

const historyTimeout = 5 * time.Second

type PipelineConfig struct {
	Sources   []types.FeedSource
	Fetcher   Fetcher
	Filters   []filters.Filter
	Analyzer  Analyzer
	Composer  Composer
	Writer    Writer
	Caption   CaptionFunc
	Publisher Publisher
	History   History
	Options   Options
	Logger    *slog.Logger
}

// Pipeline runs one pass: fetch, analyze, compose, write and publish.
// Stages run strictly in order and a failed stage ends the run.
type Pipeline struct {
	sources   []types.FeedSource
	fetcher   Fetcher
	filters   []filters.Filter
	analyzer  Analyzer
	composer  Composer
	writer    Writer
	caption   CaptionFunc
	publisher Publisher
	history   History
	options   Options
	logger    *slog.Logger
	now       func() time.Time
}

func NewPipeline(config PipelineConfig) (*Pipeline, error) {
	if config.Fetcher == nil || config.Analyzer == nil {
		return nil, fmt.Errorf("pipeline requires a fetcher and an analyzer")
	}
	if !config.Options.NoImages && (config.Composer == nil || config.Writer == nil) {
		return nil, fmt.Errorf("pipeline requires a composer and a writer unless images are disabled")
	}
	if !config.Options.NoClean && config.Writer == nil {
		return nil, fmt.Errorf("pipeline requires a writer to clean the output directory")
	}
	if config.Options.OnEmpty == "" {
		config.Options.OnEmpty = OnEmptyAbort
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Pipeline{
		sources:   config.Sources,
		fetcher:   config.Fetcher,
		filters:   config.Filters,
		analyzer:  config.Analyzer,
		composer:  config.Composer,
		writer:    config.Writer,
		caption:   config.Caption,
		publisher: config.Publisher,
		history:   config.History,
		options:   config.Options,
		logger:    config.Logger,
		now:       time.Now,
	}, nil
}

// Run executes the pipeline once. The returned result is always non-nil and
// carries the same error that is returned.
func (p *Pipeline) Run(ctx context.Context) (*types.RunResult, error) {
	result := &types.RunResult{
		StartedAt:  p.now(),
		DryRun:     p.options.DryRun,
		FeedsTotal: len(p.sources),
	}

	err := p.run(ctx, result)

	result.FinishedAt = p.now()
	result.Err = err
	p.record(ctx, result)

	return result, err
}

func (p *Pipeline) run(ctx context.Context, result *types.RunResult) error {
	if !p.options.NoClean {
		if err := p.writer.Clean(); err != nil {
			return fmt.Errorf("failed to clean output: %w", err)
		}
	}

	fetched, err := p.fetcher.Fetch(ctx, p.sources)
	if fetched != nil {
		result.FeedsFailed = len(fetched.Failed)
		result.Articles = len(fetched.Articles)
	}
	if err != nil {
		return err
	}

	articles := p.filter(fetched.Articles)

	trends, err := p.analyzer.Analyze(articles)
	if err != nil {
		return err
	}
	result.Trends = len(trends)
	for _, trend := range trends {
		result.Labels = append(result.Labels, trend.Label)
	}

	if len(trends) == 0 {
		if p.options.OnEmpty != OnEmptyCover {
			return fmt.Errorf("%d articles: %w", len(articles), types.ErrNoTrends)
		}
		p.logger.Warn("No trends found, continuing with the cover slide only", "articles", len(articles))
	}

	if p.options.NoImages {
		p.logger.Info("Images disabled, stopping after analysis", "trends", len(trends))
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	date := result.StartedAt
	slides, err := p.composer.Compose(ctx, trends, date)
	if err != nil {
		return err
	}
	result.Slides = len(slides)

	carousel := disk.Carousel{Date: date, Slides: slides, Trends: trends}
	if p.caption != nil {
		carousel.Caption = p.caption(trends, date)
	}
	if _, err := p.writer.Write(ctx, carousel); err != nil {
		return err
	}

	if p.options.DryRun {
		p.logger.Info("Dry run, not publishing", "slides", len(slides))
		return nil
	}

	if p.publisher == nil {
		return fmt.Errorf("no publisher configured")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	published, err := p.publisher.Publish(ctx, slides, trends, date)
	if err != nil {
		return err
	}
	result.Posted = published.Success
	result.PostURI = published.URI

	return nil
}

func (p *Pipeline) filter(articles []types.Article) []types.Article {
	if len(p.filters) == 0 {
		return articles
	}

	kept, dropped := filters.Apply(articles, p.filters...)
	for _, f := range p.filters {
		if n := dropped[f.Name()]; n > 0 {
			p.logger.Debug("Articles filtered", "filter", f.Name(), "dropped", n)
		}
	}
	p.logger.Info("Articles filtered", "kept", len(kept), "dropped", len(articles)-len(kept))
	return kept
}

func (p *Pipeline) record(ctx context.Context, result *types.RunResult) {
	if p.history == nil {
		return
	}

	// An interrupted run is still worth recording.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	id, err := p.history.Record(ctx, result)
	if err != nil {
		p.logger.Warn("Failed to record run history", "error", err)
		return
	}
	p.logger.Debug("Run recorded", "id", id)
}
