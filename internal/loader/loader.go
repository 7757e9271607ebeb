package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trendcast/internal/analyzer"
	"trendcast/internal/components"
	"trendcast/internal/config"
	"trendcast/internal/core"
	"trendcast/internal/platforms"
	"trendcast/internal/processors/filters"
	"trendcast/internal/render"
	"trendcast/internal/sources/rss"
	"trendcast/internal/state"
	"trendcast/internal/targets/bluesky"
	"trendcast/internal/targets/disk"
	"trendcast/internal/types"
)

// Loader turns a validated configuration and the CLI options into a ready
// bot. Only the components the run will actually use are built.
type Loader struct {
	config  *config.Config
	options core.Options
	logger  *slog.Logger
}

func NewLoader(cfg *config.Config, options core.Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if options.OnEmpty == "" {
		options.OnEmpty = core.OnEmpty(cfg.Analyzer.OnEmpty)
	}
	return &Loader{
		config:  cfg,
		options: options,
		logger:  logger,
	}
}

func (l *Loader) Initialize(ctx context.Context) (*state.State, error) {
	registry := components.NewRegistry()
	l.logger.Debug("Initializing components")

	if l.config.History.Path != "" {
		if err := registry.Register(components.NewStorageComponent(l.config.History.Path)); err != nil {
			return nil, fmt.Errorf("failed to register storage component: %w", err)
		}
	}

	if !l.options.NoImages {
		if err := registry.Register(components.NewFontsComponent(l.fontsConfig(), l.logger)); err != nil {
			return nil, fmt.Errorf("failed to register fonts component: %w", err)
		}
	}

	if l.publishes() {
		platformComp, err := l.buildPlatformComponent()
		if err != nil {
			return nil, err
		}
		if err := registry.Register(platformComp); err != nil {
			return nil, fmt.Errorf("failed to register platform component: %w", err)
		}
	}

	if err := registry.InitializeAll(ctx); err != nil {
		return nil, fmt.Errorf("component initialization failed: %w", err)
	}

	l.logger.Debug("All components initialized", "components", registry.Names())

	pipeline, err := l.buildPipeline(ctx, registry)
	if err != nil {
		registry.CloseAll(ctx)
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	bot := core.NewBot(core.BotConfig{
		Name:       l.config.Bot.Name,
		Pipeline:   pipeline,
		ShutdownFn: registry.CloseAll,
	})

	return state.NewState(l.config, registry, bot), nil
}

// publishes reports whether this run can reach the publish stage. Runs that
// cannot never load credentials or build a platform.
func (l *Loader) publishes() bool {
	return !l.options.DryRun && !l.options.NoImages
}

func (l *Loader) buildPlatformComponent() (*components.PlatformComponent, error) {
	creds, err := config.LoadCredentials(l.config.Publisher.SecretsFile)
	if err != nil {
		return nil, err
	}

	return components.NewPlatformComponent(platforms.BlueskySettings{
		Host:        l.config.Publisher.Host,
		SessionFile: l.config.Publisher.SessionFile,
		Credentials: creds,
	}, l.logger), nil
}

func (l *Loader) fontsConfig() render.FontsConfig {
	cfg := l.config.Fonts
	return render.FontsConfig{
		CacheDir: cfg.CacheDir,
		Regular:  render.FontSource{File: cfg.Regular.File, URL: cfg.Regular.URL},
		Bold:     render.FontSource{File: cfg.Bold.File, URL: cfg.Bold.URL},
	}
}

func (l *Loader) buildPipeline(ctx context.Context, registry *components.Registry) (*core.Pipeline, error) {
	sources, err := l.feedSources(ctx)
	if err != nil {
		return nil, err
	}

	trendAnalyzer, err := analyzer.New(analyzer.Config{
		MaxTrends:        l.config.Analyzer.MaxTrends,
		Threshold:        l.config.Analyzer.ThresholdValue(),
		MinArticles:      l.config.Analyzer.MinArticles,
		DedupeSimilarity: l.config.Analyzer.DedupeSimilarity,
		ExtraStopwords:   l.config.Analyzer.ExtraStopwords,
	}, l.logger)
	if err != nil {
		return nil, err
	}

	boilerplate, err := rss.NewBoilerplate(l.config.Fetch.Boilerplate)
	if err != nil {
		return nil, err
	}

	pipelineConfig := core.PipelineConfig{
		Sources: sources,
		Fetcher: rss.NewFetcher(rss.FetcherConfig{
			Timeout:     l.config.Fetch.TimeoutDuration(),
			Workers:     l.config.Fetch.Workers,
			MaxItems:    l.config.Fetch.MaxItems,
			MaxAge:      l.config.Fetch.MaxAgeDuration(),
			UserAgent:   l.config.Fetch.UserAgent,
			Boilerplate: boilerplate,
		}, l.logger),
		Filters:  l.articleFilters(),
		Analyzer: trendAnalyzer,
		Writer: disk.New("disk", disk.Config{
			Dir:     l.config.Output.Dir,
			Title:   l.config.Bot.Brand,
			Tagline: l.config.Bot.Tagline,
			Handle:  l.config.Bot.Handle,
		}, l.logger),
		Options: l.options,
		Logger:  l.logger,
	}

	if !l.options.NoImages {
		composer, err := l.createComposer(registry)
		if err != nil {
			return nil, err
		}
		pipelineConfig.Composer = composer
	}

	postConfig := bluesky.Config{
		Brand:      l.config.Bot.Brand,
		DateFormat: l.config.Bot.DateFormat,
		Languages:  l.config.Publisher.Languages,
		Hashtags:   l.config.Publisher.Hashtags,
	}
	pipelineConfig.Caption = func(trends []types.Trend, date time.Time) string {
		post := postConfig.Caption(trends, date)
		return post.Into().Text
	}

	if l.publishes() {
		platform := registry.Get(components.PlatformComponentName).(*components.PlatformComponent).Bluesky()
		pipelineConfig.Publisher = bluesky.New("bluesky", platform, postConfig, l.logger)
	}

	if registry.Has(components.StorageComponentName) {
		store := registry.Get(components.StorageComponentName).(*components.StorageComponent).Store()
		pipelineConfig.History = store.Runs()
	}

	return core.NewPipeline(pipelineConfig)
}

func (l *Loader) articleFilters() []filters.Filter {
	cfg := l.config.Filter
	var list []filters.Filter
	if len(cfg.Categories) > 0 {
		list = append(list, filters.CategoryFilter("categories", cfg.Categories))
	}
	if len(cfg.Include) > 0 {
		list = append(list, filters.KeywordFilter("include", cfg.Include, filters.ModeInclude))
	}
	if len(cfg.Exclude) > 0 {
		list = append(list, filters.KeywordFilter("exclude", cfg.Exclude, filters.ModeExclude))
	}
	return list
}

func (l *Loader) feedSources(ctx context.Context) ([]types.FeedSource, error) {
	inline := make([]types.FeedSource, 0, len(l.config.Feeds))
	for _, feed := range l.config.Feeds {
		inline = append(inline, types.FeedSource{URL: feed.URL, Name: feed.Name, Category: feed.Category})
	}

	lists := make([]rss.FeedList, 0, len(l.config.FeedLists))
	for _, list := range l.config.FeedLists {
		lists = append(lists, rss.FeedList{Kind: list.Kind, Value: list.Value, Category: list.Category})
	}

	sources, err := rss.ExpandSources(ctx, inline, lists)
	if err != nil {
		return nil, fmt.Errorf("failed to expand feed lists: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no feeds configured")
	}
	return sources, nil
}

func (l *Loader) createComposer(registry *components.Registry) (*render.Composer, error) {
	specs := make([]render.PaletteSpec, 0, len(l.config.Slides.Palettes))
	for _, p := range l.config.Slides.Palettes {
		specs = append(specs, render.PaletteSpec{Background: p.Background, Foreground: p.Foreground, Accent: p.Accent})
	}
	palettes, err := render.ParsePalettes(specs)
	if err != nil {
		return nil, fmt.Errorf("invalid slide palettes: %w", err)
	}

	fonts := registry.Get(components.FontsComponentName).(*components.FontsComponent).Fonts()

	return render.NewComposer(render.Options{
		Width:      l.config.Slides.Width,
		Height:     l.config.Slides.Height,
		Headlines:  l.config.Slides.Headlines,
		Brand:      l.config.Bot.Brand,
		Tagline:    l.config.Bot.Tagline,
		Handle:     l.config.Bot.Handle,
		DateFormat: l.config.Bot.DateFormat,
		Palettes:   palettes,
	}, fonts, l.logger), nil
}

func LoadAndBuild(ctx context.Context, configPath string, options core.Options, logger *slog.Logger) (*state.State, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewLoader(cfg, options, logger).Initialize(ctx)
}
