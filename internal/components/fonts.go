package components

import (
	"context"
	"log/slog"

	"trendcast/internal/render"
)

// FontsComponent resolves the slide fonts, downloading them into the cache
// dir on first use.
type FontsComponent struct {
	config render.FontsConfig
	logger *slog.Logger
	fonts  render.Fonts
}

func NewFontsComponent(config render.FontsConfig, logger *slog.Logger) *FontsComponent {
	return &FontsComponent{
		config: config,
		logger: logger,
	}
}

func (c *FontsComponent) Name() string {
	return FontsComponentName
}

func (c *FontsComponent) Dependencies() []string {
	return []string{}
}

func (c *FontsComponent) Validate() error {
	return nil
}

func (c *FontsComponent) Initialize(ctx context.Context) error {
	fonts, err := render.LoadFonts(ctx, c.config, c.logger)
	if err != nil {
		return err
	}
	c.fonts = fonts
	return nil
}

func (c *FontsComponent) Close(ctx context.Context) error {
	return nil
}

func (c *FontsComponent) Fonts() render.Fonts {
	return c.fonts
}
