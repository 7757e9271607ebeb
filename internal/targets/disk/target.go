package disk

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"trendcast/internal/types"

	"github.com/gorilla/feeds"
)

// ManifestName is written last; its presence marks a complete carousel.
const ManifestName = "carousel.json"

// CaptionName holds the post text for the carousel, ready to copy.
const CaptionName = "caption.txt"

const stagingPrefix = ".staging-"

type Config struct {
	Dir     string
	Title   string
	Tagline string
	Handle  string
}

// Carousel is everything needed to persist one run's output.
type Carousel struct {
	Date    time.Time
	Slides  []types.Slide
	Trends  []types.Trend
	Caption string
}

// Target persists rendered slides and the carousel manifest to a directory.
// A reader of the directory sees either the previous complete carousel, no
// carousel, or the new complete one.
type Target struct {
	name   string
	config Config
	logger *slog.Logger

	rename func(oldpath, newpath string) error
}

func New(name string, config Config, logger *slog.Logger) *Target {
	if config.Dir == "" {
		config.Dir = "output"
	}
	if config.Title == "" {
		config.Title = "trendcast"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Target{
		name:   name,
		config: config,
		logger: logger,
		rename: os.Rename,
	}
}

func (t *Target) Name() string {
	return t.name
}

func (t *Target) Dir() string {
	return t.config.Dir
}

// Clean removes carousel files and leftover staging dirs. Files the writer
// does not own are left alone.
func (t *Target) Clean() error {
	entries, err := os.ReadDir(t.config.Dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &types.WriteError{Path: t.config.Dir, Err: err}
	}

	removed := 0
	for _, entry := range entries {
		if !owned(entry.Name()) {
			continue
		}
		p := filepath.Join(t.config.Dir, entry.Name())
		if err := os.RemoveAll(p); err != nil {
			return &types.WriteError{Path: p, Err: err}
		}
		removed++
	}

	t.logger.Debug("Output directory cleaned", "target", t.name, "dir", t.config.Dir, "removed", removed)
	return nil
}

// Write stages every slide and the caption, moves the set into the output
// dir and finishes with the manifest. On failure nothing from this run
// remains.
func (t *Target) Write(ctx context.Context, carousel Carousel) ([]string, error) {
	if err := os.MkdirAll(t.config.Dir, 0o755); err != nil {
		return nil, &types.WriteError{Path: t.config.Dir, Err: err}
	}

	staging, err := os.MkdirTemp(t.config.Dir, stagingPrefix)
	if err != nil {
		return nil, &types.WriteError{Path: t.config.Dir, Err: err}
	}
	defer os.RemoveAll(staging)

	for _, slide := range carousel.Slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := filepath.Join(staging, slide.Name)
		if err := os.WriteFile(p, slide.Data, 0o644); err != nil {
			return nil, &types.WriteError{Path: p, Err: err}
		}
	}

	stagedCaption := filepath.Join(staging, CaptionName)
	if carousel.Caption != "" {
		if err := os.WriteFile(stagedCaption, []byte(carousel.Caption+"\n"), 0o644); err != nil {
			return nil, &types.WriteError{Path: stagedCaption, Err: err}
		}
	}

	manifest, err := t.manifest(carousel)
	if err != nil {
		return nil, &types.WriteError{Path: ManifestName, Err: err}
	}
	stagedManifest := filepath.Join(staging, ManifestName)
	if err := os.WriteFile(stagedManifest, []byte(manifest), 0o644); err != nil {
		return nil, &types.WriteError{Path: stagedManifest, Err: err}
	}

	finalManifest := filepath.Join(t.config.Dir, ManifestName)
	finalCaption := filepath.Join(t.config.Dir, CaptionName)
	for _, p := range []string{finalManifest, finalCaption} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, &types.WriteError{Path: p, Err: err}
		}
	}

	written := make([]string, 0, len(carousel.Slides)+2)
	for _, slide := range carousel.Slides {
		dest := filepath.Join(t.config.Dir, slide.Name)
		if err := t.rename(filepath.Join(staging, slide.Name), dest); err != nil {
			t.rollback(written)
			return nil, &types.WriteError{Path: dest, Err: err}
		}
		written = append(written, dest)
	}

	if carousel.Caption != "" {
		if err := t.rename(stagedCaption, finalCaption); err != nil {
			t.rollback(written)
			return nil, &types.WriteError{Path: finalCaption, Err: err}
		}
		written = append(written, finalCaption)
	}

	if err := t.rename(stagedManifest, finalManifest); err != nil {
		t.rollback(written)
		return nil, &types.WriteError{Path: finalManifest, Err: err}
	}
	written = append(written, finalManifest)

	t.logger.Info("Carousel written", "target", t.name, "dir", t.config.Dir, "slides", len(carousel.Slides))
	return written, nil
}

func (t *Target) rollback(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			t.logger.Warn("Failed to remove partial output", "target", t.name, "path", p, "error", err)
		}
	}
}

// manifest renders the carousel as a JSON Feed: one item per slide, in
// slide order.
func (t *Target) manifest(carousel Carousel) (string, error) {
	date := carousel.Date.UTC()

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s for %s", t.config.Title, date.Format("2006-01-02")),
		Link:        &feeds.Link{Href: ""},
		Description: t.config.Tagline,
		Author:      &feeds.Author{Name: t.config.Handle},
		Created:     date,
		Items:       make([]*feeds.Item, 0, len(carousel.Slides)),
	}

	for _, slide := range carousel.Slides {
		item := &feeds.Item{
			Id:          slide.Name,
			Title:       "Cover",
			Link:        &feeds.Link{Href: slide.Name},
			Description: slide.Alt,
			Created:     date,
			Enclosure: &feeds.Enclosure{
				Url:    slide.Name,
				Type:   "image/png",
				Length: strconv.Itoa(len(slide.Data)),
			},
		}

		if slide.Index > 0 && slide.Index <= len(carousel.Trends) {
			trend := carousel.Trends[slide.Index-1]
			item.Title = trend.Label
			item.Content = trendContent(trend)
			if len(trend.Articles) > 0 && trend.Articles[0].Link != "" {
				item.Source = &feeds.Link{Href: trend.Articles[0].Link}
			}
		}

		feed.Items = append(feed.Items, item)
	}

	return feed.ToJSON()
}

func trendContent(trend types.Trend) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, a := range trend.Articles {
		fmt.Fprintf(&b, `<li><a href="%s">%s</a> (%s)</li>`, html.EscapeString(a.Link), html.EscapeString(a.Title), html.EscapeString(a.Source))
	}
	b.WriteString("</ul>")
	return b.String()
}

func owned(name string) bool {
	if name == ManifestName || name == CaptionName || strings.HasPrefix(name, stagingPrefix) {
		return true
	}
	return strings.HasPrefix(name, "slide_") && strings.HasSuffix(name, ".png")
}
