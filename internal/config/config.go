package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

const appName = "trendcast"

type Config struct {
	Bot       BotConfig        `toml:"bot"`
	Fetch     FetchConfig      `toml:"fetch"`
	Feeds     []FeedConfig     `toml:"feeds"`
	FeedLists []FeedListConfig `toml:"feed_lists"`
	Filter    FilterConfig     `toml:"filter"`
	Analyzer  AnalyzerConfig   `toml:"analyzer"`
	Slides    SlidesConfig     `toml:"slides"`
	Fonts     FontsConfig      `toml:"fonts"`
	Output    OutputConfig     `toml:"output"`
	Publisher PublisherConfig  `toml:"publisher"`
	History   HistoryConfig    `toml:"history"`
}

type BotConfig struct {
	Name       string `toml:"name"`
	Brand      string `toml:"brand"`
	Handle     string `toml:"handle"`
	Tagline    string `toml:"tagline"`
	DateFormat string `toml:"date_format"`
}

type FetchConfig struct {
	Timeout   string `toml:"timeout"`
	Workers   int    `toml:"workers"`
	MaxItems  int    `toml:"max_items"`
	MaxAge    string `toml:"max_age"`
	UserAgent string `toml:"user_agent"`
	// Boilerplate lists regular expressions removed from summaries. Empty
	// keeps the built-in blog footer patterns.
	Boilerplate []string `toml:"boilerplate"`
}

type FeedConfig struct {
	URL      string `toml:"url"`
	Name     string `toml:"name"`
	Category string `toml:"category"`
}

// FeedListConfig points at an OPML document that expands into feeds.
type FeedListConfig struct {
	Kind     string `toml:"kind"`
	Value    string `toml:"value"`
	Category string `toml:"category"`
}

// FilterConfig narrows the fetched articles before analysis.
type FilterConfig struct {
	Include    []string `toml:"include"`
	Exclude    []string `toml:"exclude"`
	Categories []string `toml:"categories"`
}

type AnalyzerConfig struct {
	MaxTrends        int      `toml:"max_trends"`
	Threshold        *float64 `toml:"threshold"`
	MinArticles      int      `toml:"min_articles"`
	OnEmpty          string   `toml:"on_empty"`
	ExtraStopwords   []string `toml:"extra_stopwords"`
	DedupeSimilarity float64  `toml:"dedupe_similarity"`
}

type SlidesConfig struct {
	Width     int             `toml:"width"`
	Height    int             `toml:"height"`
	Headlines int             `toml:"headlines"`
	Palettes  []PaletteConfig `toml:"palettes"`
}

type PaletteConfig struct {
	Background string `toml:"background"`
	Foreground string `toml:"foreground"`
	Accent     string `toml:"accent"`
}

type FontsConfig struct {
	CacheDir string     `toml:"cache_dir"`
	Regular  FontConfig `toml:"regular"`
	Bold     FontConfig `toml:"bold"`
}

type FontConfig struct {
	File string `toml:"file"`
	URL  string `toml:"url"`
}

type OutputConfig struct {
	Dir string `toml:"dir"`
}

type PublisherConfig struct {
	Platform    string   `toml:"platform"`
	Host        string   `toml:"host"`
	SessionFile string   `toml:"session_file"`
	SecretsFile string   `toml:"secrets_file"`
	Languages   []string `toml:"languages"`
	Hashtags    []string `toml:"hashtags"`
}

type HistoryConfig struct {
	Path string `toml:"path"`
}

const (
	OnEmptyAbort = "abort"
	OnEmptyCover = "cover"
)

const (
	defaultThreshold  = 0.3
	defaultSimilarity = 0.6
)

// Bluesky accepts at most four images per post.
const blueskyMaxImages = 4

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.Bot.Name == "" {
		config.Bot.Name = appName
	}

	if config.Bot.Brand == "" {
		config.Bot.Brand = "Tech Trends"
	}

	if config.Bot.Tagline == "" {
		config.Bot.Tagline = "What tech is talking about today"
	}

	if config.Bot.DateFormat == "" {
		config.Bot.DateFormat = "January 2, 2006"
	}

	if config.Fetch.Timeout == "" {
		config.Fetch.Timeout = "15s"
	}

	if _, err := time.ParseDuration(config.Fetch.Timeout); err != nil {
		return fmt.Errorf("invalid fetch timeout: %w", err)
	}

	if config.Fetch.MaxAge == "" {
		config.Fetch.MaxAge = "72h"
	}

	if _, err := time.ParseDuration(config.Fetch.MaxAge); err != nil {
		return fmt.Errorf("invalid fetch max_age: %w", err)
	}

	if config.Fetch.Workers <= 0 {
		config.Fetch.Workers = 4
	}

	if config.Fetch.MaxItems <= 0 {
		config.Fetch.MaxItems = 30
	}

	if config.Fetch.UserAgent == "" {
		config.Fetch.UserAgent = appName + "/1.0"
	}

	for i, pattern := range config.Fetch.Boilerplate {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("fetch boilerplate %d: %w", i, err)
		}
	}

	if len(config.Feeds) == 0 && len(config.FeedLists) == 0 {
		return fmt.Errorf("at least one feed or feed list must be configured")
	}

	for i, feed := range config.Feeds {
		if err := validateFeedURL(feed.URL); err != nil {
			return fmt.Errorf("feed %d: %w", i, err)
		}
		if feed.Name == "" {
			config.Feeds[i].Name = feed.URL
		}
	}

	for i, list := range config.FeedLists {
		switch list.Kind {
		case "opml_file", "opml_url":
		default:
			return fmt.Errorf("feed list %d: unsupported kind %q", i, list.Kind)
		}
		if list.Value == "" {
			return fmt.Errorf("feed list %d: value is required", i)
		}
	}

	if config.Analyzer.MaxTrends <= 0 {
		config.Analyzer.MaxTrends = 3
	}

	if config.Analyzer.Threshold == nil {
		threshold := defaultThreshold
		config.Analyzer.Threshold = &threshold
	}

	if t := *config.Analyzer.Threshold; t < 0 || t > 1 {
		return fmt.Errorf("analyzer threshold must be between 0 and 1, got %v", t)
	}

	if config.Analyzer.MinArticles <= 0 {
		config.Analyzer.MinArticles = 2
	}

	if config.Analyzer.DedupeSimilarity == 0 {
		config.Analyzer.DedupeSimilarity = defaultSimilarity
	}

	if s := config.Analyzer.DedupeSimilarity; s < 0 || s > 1 {
		return fmt.Errorf("analyzer dedupe_similarity must be between 0 and 1, got %v", s)
	}

	switch config.Analyzer.OnEmpty {
	case "":
		config.Analyzer.OnEmpty = OnEmptyAbort
	case OnEmptyAbort, OnEmptyCover:
	default:
		return fmt.Errorf("analyzer on_empty must be %q or %q, got %q", OnEmptyAbort, OnEmptyCover, config.Analyzer.OnEmpty)
	}

	if config.Slides.Width <= 0 {
		config.Slides.Width = 1080
	}

	if config.Slides.Height <= 0 {
		config.Slides.Height = 1350
	}

	if config.Slides.Headlines <= 0 {
		config.Slides.Headlines = 3
	}

	if config.Fonts.CacheDir == "" {
		config.Fonts.CacheDir = filepath.Join(xdg.CacheHome, appName, "fonts")
	}

	if config.Output.Dir == "" {
		config.Output.Dir = "output"
	}

	if config.Publisher.Platform == "" {
		config.Publisher.Platform = "bluesky"
	}

	if config.Publisher.Platform != "bluesky" {
		return fmt.Errorf("unsupported publisher platform: %s", config.Publisher.Platform)
	}

	if config.Publisher.Host == "" {
		config.Publisher.Host = "https://bsky.social"
	}

	if config.Publisher.SessionFile == "" {
		config.Publisher.SessionFile = filepath.Join(xdg.StateHome, appName, "bsky-session.json")
	}

	if len(config.Publisher.Languages) == 0 {
		config.Publisher.Languages = []string{"en"}
	}

	if 1+config.Analyzer.MaxTrends > blueskyMaxImages {
		return fmt.Errorf("analyzer max_trends %d exceeds the %d images bluesky allows per post (cover included)",
			config.Analyzer.MaxTrends, blueskyMaxImages)
	}

	return nil
}

func validateFeedURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

func (c FetchConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

func (c FetchConfig) MaxAgeDuration() time.Duration {
	d, err := time.ParseDuration(c.MaxAge)
	if err != nil {
		return 72 * time.Hour
	}
	return d
}

// ThresholdValue is the keyword-overlap threshold after defaults are applied.
func (c AnalyzerConfig) ThresholdValue() float64 {
	if c.Threshold == nil {
		return defaultThreshold
	}
	return *c.Threshold
}
