package state

import (
	"trendcast/internal/components"
	"trendcast/internal/config"
	"trendcast/internal/core"
)

// State is everything the loader built for one invocation.
type State struct {
	Config   *config.Config
	Registry *components.Registry
	Bot      *core.Bot
}

func NewState(cfg *config.Config, registry *components.Registry, bot *core.Bot) *State {
	return &State{
		Config:   cfg,
		Registry: registry,
		Bot:      bot,
	}
}
