package core

import (
	"context"
	"fmt"
	"sync"

	"trendcast/internal/types"
)

// Bot owns a pipeline and the resources built for it. It runs the pipeline
// once per Start; scheduling is left to cron or a systemd timer.
type Bot struct {
	name       string
	pipeline   *Pipeline
	mu         sync.Mutex
	running    bool
	shutdownFn func(ctx context.Context) error
}

type BotConfig struct {
	Name       string
	Pipeline   *Pipeline
	ShutdownFn func(ctx context.Context) error
}

func NewBot(config BotConfig) *Bot {
	return &Bot{
		name:       config.Name,
		pipeline:   config.Pipeline,
		shutdownFn: config.ShutdownFn,
	}
}

func (b *Bot) Start(ctx context.Context) (*types.RunResult, error) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil, fmt.Errorf("bot already running")
	}
	b.running = true
	b.mu.Unlock()

	defer b.markStopped()

	return b.pipeline.Run(ctx)
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.shutdownFn == nil {
		return nil
	}
	if err := b.shutdownFn(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (b *Bot) Name() string {
	return b.name
}

func (b *Bot) markStopped() {
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
}
