package components

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"trendcast/internal/config"
	"trendcast/internal/platforms"
	"trendcast/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events *[]string
	name   string
	deps   []string
	fail   bool
}

func (r *recorder) Name() string           { return r.name }
func (r *recorder) Dependencies() []string { return r.deps }
func (r *recorder) Validate() error        { return nil }

func (r *recorder) Initialize(ctx context.Context) error {
	if r.fail {
		return errors.New("boom")
	}
	*r.events = append(*r.events, "init "+r.name)
	return nil
}

func (r *recorder) Close(ctx context.Context) error {
	*r.events = append(*r.events, "close "+r.name)
	return nil
}

func TestRegistryOrder(t *testing.T) {
	var events []string
	registry := NewRegistry()
	require.NoError(t, registry.Register(&recorder{events: &events, name: "b", deps: []string{"a"}}))
	require.NoError(t, registry.Register(&recorder{events: &events, name: "a"}))
	assert.Error(t, registry.Register(&recorder{events: &events, name: "a"}))

	require.NoError(t, registry.InitializeAll(context.Background()))
	require.NoError(t, registry.CloseAll(context.Background()))

	assert.Equal(t, []string{"init a", "init b", "close b", "close a"}, events)
}

func TestRegistryClosesOnFailure(t *testing.T) {
	var events []string
	registry := NewRegistry()
	require.NoError(t, registry.Register(&recorder{events: &events, name: "a"}))
	require.NoError(t, registry.Register(&recorder{events: &events, name: "b", deps: []string{"a"}, fail: true}))

	err := registry.InitializeAll(context.Background())
	assert.ErrorContains(t, err, "component b initialization failed")
	assert.Equal(t, []string{"init a", "close a"}, events)
}

func TestRegistryMissingDependency(t *testing.T) {
	var events []string
	registry := NewRegistry()
	require.NoError(t, registry.Register(&recorder{events: &events, name: "a", deps: []string{"ghost"}}))
	assert.Error(t, registry.InitializeAll(context.Background()))
	assert.Empty(t, events)
}

func TestBuiltinComponents(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()

	require.NoError(t, registry.Register(NewStorageComponent(filepath.Join(dir, "runs.db"))))
	require.NoError(t, registry.Register(NewFontsComponent(render.FontsConfig{CacheDir: dir}, nil)))
	require.NoError(t, registry.Register(NewPlatformComponent(platforms.BlueskySettings{
		Credentials: config.Credentials{Identifier: "bot.example", Password: "secret"},
	}, nil)))

	require.NoError(t, registry.InitializeAll(context.Background()))
	defer registry.CloseAll(context.Background())

	assert.NotNil(t, registry.Get(StorageComponentName).(*StorageComponent).Store())
	assert.NotNil(t, registry.Get(FontsComponentName).(*FontsComponent).Fonts().Bold)

	bluesky := registry.Get(PlatformComponentName).(*PlatformComponent).Bluesky()
	require.NotNil(t, bluesky)
	assert.Nil(t, bluesky.Client(), "platform must not log in during initialization")
}

func TestPlatformComponentRequiresCredentials(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewPlatformComponent(platforms.BlueskySettings{}, nil)))
	assert.ErrorContains(t, registry.InitializeAll(context.Background()), config.EnvIdentifier)
}

func TestPlatformComponentSessionFile(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "bsky-session.json")

	component := NewPlatformComponent(platforms.BlueskySettings{Host: "https://bsky.example", SessionFile: missing}, nil)
	err := component.Validate()
	assert.ErrorContains(t, err, config.EnvIdentifier)
	assert.ErrorContains(t, err, missing)

	require.NoError(t, os.WriteFile(missing, []byte(`{}`), 0o600))
	assert.NoError(t, component.Validate(), "a cached session is enough without credentials")

	withCreds := NewPlatformComponent(platforms.BlueskySettings{
		SessionFile: filepath.Join(dir, "absent.json"),
		Credentials: config.Credentials{Identifier: "bot.example", Password: "secret"},
	}, nil)
	assert.NoError(t, withCreds.Validate())
}
