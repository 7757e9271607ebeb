package bluesky

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trendcast/internal/types"

	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
)

// Platform is the authenticated Bluesky account the target posts through.
type Platform interface {
	UploadBlob(ctx context.Context, data []byte) (*lexutil.LexBlob, error)
	CreatePost(ctx context.Context, post *bsky.FeedPost) (uri, cid string, err error)
}

type Config struct {
	Brand      string
	DateFormat string
	Languages  []string
	Hashtags   []string
}

// Caption is the post text for trends published on date.
func (c Config) Caption(trends []types.Trend, date time.Time) Post {
	format := c.DateFormat
	if format == "" {
		format = "January 2, 2006"
	}
	return Caption(c.Brand, date.Format(format), trends, c.Hashtags)
}

// Target publishes a carousel as a single post with an image embed.
type Target struct {
	name     string
	platform Platform
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

func New(name string, platform Platform, config Config, logger *slog.Logger) *Target {
	if config.DateFormat == "" {
		config.DateFormat = "January 2, 2006"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Target{
		name:     name,
		platform: platform,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

func (t *Target) Name() string {
	return t.name
}

// Publish uploads every slide and creates one post embedding them in order.
// No step is retried; failures are PublishErrors wrapping the cause.
func (t *Target) Publish(ctx context.Context, slides []types.Slide, trends []types.Trend, date time.Time) (*types.PublishResult, error) {
	if len(slides) == 0 {
		return nil, &types.PublishError{Stage: "validate", Err: fmt.Errorf("no slides to publish")}
	}
	if len(slides) > MaxImages {
		return nil, &types.PublishError{
			Stage: "validate",
			Err:   fmt.Errorf("%d slides exceed the %d images allowed per post", len(slides), MaxImages),
		}
	}

	images := make([]*bsky.EmbedImages_Image, 0, len(slides))
	for _, slide := range slides {
		blob, err := t.platform.UploadBlob(ctx, slide.Data)
		if err != nil {
			return nil, &types.PublishError{Stage: "upload", Err: fmt.Errorf("%s: %w", slide.Name, err)}
		}
		t.logger.Debug("Slide uploaded", "target", t.name, "slide", slide.Name, "bytes", len(slide.Data))
		images = append(images, EmbedImage(slide, blob))
	}

	caption := t.config.Caption(trends, date)
	post := BuildPost(caption.Into(), images, t.config.Languages, t.now())

	uri, cid, err := t.platform.CreatePost(ctx, post)
	if err != nil {
		return nil, &types.PublishError{Stage: "post", Err: err}
	}

	t.logger.Info("Carousel published", "target", t.name, "uri", uri, "images", len(images))

	return &types.PublishResult{
		Success:   true,
		Target:    t.name,
		URI:       uri,
		CID:       cid,
		Images:    len(images),
		Timestamp: t.now(),
	}, nil
}
