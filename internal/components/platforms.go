package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"trendcast/internal/config"
	"trendcast/internal/platforms"
)

// PlatformComponent builds the Bluesky platform. It does not log in:
// authentication is deferred to the first upload so runs that never publish
// never touch the network.
type PlatformComponent struct {
	settings platforms.BlueskySettings
	logger   *slog.Logger
	bluesky  *platforms.BlueskyPlatform
}

func NewPlatformComponent(settings platforms.BlueskySettings, logger *slog.Logger) *PlatformComponent {
	return &PlatformComponent{
		settings: settings,
		logger:   logger,
	}
}

func (c *PlatformComponent) Name() string {
	return PlatformComponentName
}

func (c *PlatformComponent) Dependencies() []string {
	return []string{}
}

// Validate fails fast when there is no way to authenticate: no credentials
// and no cached session to resume.
func (c *PlatformComponent) Validate() error {
	if !c.settings.Credentials.Empty() {
		return nil
	}

	missing := fmt.Errorf("bluesky: set %s and %s or provide a secrets file", config.EnvIdentifier, config.EnvPassword)
	if c.settings.SessionFile == "" {
		return missing
	}

	if _, err := os.Stat(c.settings.SessionFile); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w (no cached session at %s)", missing, c.settings.SessionFile)
		}
		return fmt.Errorf("bluesky: cannot read session file: %w", err)
	}
	return nil
}

func (c *PlatformComponent) Initialize(ctx context.Context) error {
	bluesky, err := platforms.NewBlueskyPlatform(c.settings, c.logger)
	if err != nil {
		return fmt.Errorf("failed to create bluesky platform: %w", err)
	}
	if err := bluesky.Validate(); err != nil {
		return fmt.Errorf("bluesky platform validation failed: %w", err)
	}
	c.bluesky = bluesky
	return nil
}

func (c *PlatformComponent) Close(ctx context.Context) error {
	if c.bluesky != nil {
		return c.bluesky.Close(ctx)
	}
	return nil
}

func (c *PlatformComponent) Bluesky() *platforms.BlueskyPlatform {
	return c.bluesky
}
