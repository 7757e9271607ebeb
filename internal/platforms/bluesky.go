package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"trendcast/internal/config"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
)

const PostCollection = "app.bsky.feed.post"

type BlueskySettings struct {
	Host        string
	SessionFile string
	Credentials config.Credentials
}

// BlueskyPlatform is an authenticated XRPC client. Login happens on first
// use and reuses the session cached on disk when the server still accepts
// it.
type BlueskyPlatform struct {
	host        string
	sessionFile string
	credentials config.Credentials
	logger      *slog.Logger

	mu     sync.Mutex
	client *xrpc.Client
}

// session is the on-disk session cache. It holds tokens and must never be
// logged.
type session struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle"`
	Did        string `json:"did"`
}

func NewBlueskyPlatform(settings BlueskySettings, logger *slog.Logger) (*BlueskyPlatform, error) {
	if settings.Host == "" {
		settings.Host = "https://bsky.social"
	}
	if settings.SessionFile == "" && settings.Credentials.Empty() {
		return nil, fmt.Errorf("bluesky platform: credentials or a session file are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &BlueskyPlatform{
		host:        settings.Host,
		sessionFile: settings.SessionFile,
		credentials: settings.Credentials,
		logger:      logger,
	}, nil
}

func (p *BlueskyPlatform) Validate() error {
	if p.host == "" {
		return fmt.Errorf("bluesky platform: host is required")
	}
	return nil
}

// Initialize authenticates: cached session, then refresh, then a new
// session from credentials. The resulting session is written back.
func (p *BlueskyPlatform) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.login(ctx)
}

func (p *BlueskyPlatform) login(ctx context.Context) error {
	if p.client != nil {
		return nil
	}

	client := &xrpc.Client{Host: p.host}

	cached, err := p.loadSession()
	if err != nil {
		p.logger.Warn("Ignoring unreadable Bluesky session cache", "error", err)
	}

	var auth *xrpc.AuthInfo
	if cached != nil {
		auth = p.resume(ctx, client, cached)
	}

	if auth == nil {
		if p.credentials.Empty() {
			return fmt.Errorf("bluesky platform: session expired and no credentials configured")
		}

		out, err := atproto.ServerCreateSession(ctx, client, &atproto.ServerCreateSession_Input{
			Identifier: p.credentials.Identifier,
			Password:   p.credentials.Password,
		})
		if err != nil {
			return fmt.Errorf("failed to authenticate with bluesky: %w", err)
		}

		auth = &xrpc.AuthInfo{
			AccessJwt:  out.AccessJwt,
			RefreshJwt: out.RefreshJwt,
			Handle:     out.Handle,
			Did:        out.Did,
		}
		p.logger.Info("Created Bluesky session", "handle", auth.Handle)
	}

	client.Auth = auth
	p.client = client

	if err := p.saveSession(auth); err != nil {
		p.logger.Warn("Failed to cache Bluesky session", "error", err)
	}

	return nil
}

// resume returns usable auth from a cached session, or nil when neither the
// access nor the refresh token is accepted.
func (p *BlueskyPlatform) resume(ctx context.Context, client *xrpc.Client, cached *session) *xrpc.AuthInfo {
	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  cached.AccessJwt,
		RefreshJwt: cached.RefreshJwt,
		Handle:     cached.Handle,
		Did:        cached.Did,
	}

	if out, err := atproto.ServerGetSession(ctx, client); err == nil {
		p.logger.Debug("Reusing cached Bluesky session", "handle", out.Handle)
		return &xrpc.AuthInfo{
			AccessJwt:  cached.AccessJwt,
			RefreshJwt: cached.RefreshJwt,
			Handle:     out.Handle,
			Did:        out.Did,
		}
	}

	if cached.RefreshJwt == "" {
		return nil
	}

	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  cached.RefreshJwt,
		RefreshJwt: cached.RefreshJwt,
		Handle:     cached.Handle,
		Did:        cached.Did,
	}

	out, err := atproto.ServerRefreshSession(ctx, client)
	if err != nil {
		p.logger.Debug("Cached Bluesky session rejected", "error", err)
		client.Auth = nil
		return nil
	}

	p.logger.Debug("Refreshed Bluesky session", "handle", out.Handle)
	return &xrpc.AuthInfo{
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
		Handle:     out.Handle,
		Did:        out.Did,
	}
}

func (p *BlueskyPlatform) loadSession() (*session, error) {
	if p.sessionFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(p.sessionFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("malformed session cache: %w", err)
	}
	if s.AccessJwt == "" && s.RefreshJwt == "" {
		return nil, nil
	}
	return &s, nil
}

func (p *BlueskyPlatform) saveSession(auth *xrpc.AuthInfo) error {
	if p.sessionFile == "" {
		return nil
	}

	data, err := json.Marshal(session{
		AccessJwt:  auth.AccessJwt,
		RefreshJwt: auth.RefreshJwt,
		Handle:     auth.Handle,
		Did:        auth.Did,
	})
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.sessionFile)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), p.sessionFile)
}

// Do runs fn with an authenticated client, logging in first if needed.
func (p *BlueskyPlatform) Do(ctx context.Context, fn func(c *xrpc.Client) error) error {
	p.mu.Lock()
	if err := p.login(ctx); err != nil {
		p.mu.Unlock()
		return err
	}
	client := p.client
	p.mu.Unlock()

	return fn(client)
}

func (p *BlueskyPlatform) UploadBlob(ctx context.Context, data []byte) (*lexutil.LexBlob, error) {
	var blob *lexutil.LexBlob
	err := p.Do(ctx, func(c *xrpc.Client) error {
		out, err := atproto.RepoUploadBlob(ctx, c, bytes.NewReader(data))
		if err != nil {
			return err
		}
		blob = out.Blob
		return nil
	})
	return blob, err
}

func (p *BlueskyPlatform) CreatePost(ctx context.Context, post *bsky.FeedPost) (uri, cid string, err error) {
	err = p.Do(ctx, func(c *xrpc.Client) error {
		out, err := atproto.RepoCreateRecord(ctx, c, &atproto.RepoCreateRecord_Input{
			Collection: PostCollection,
			Repo:       c.Auth.Did,
			Record:     &lexutil.LexiconTypeDecoder{Val: post},
		})
		if err != nil {
			return err
		}
		uri, cid = out.Uri, out.Cid
		return nil
	})
	return uri, cid, err
}

func (p *BlueskyPlatform) Client() *xrpc.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

func (p *BlueskyPlatform) Close(ctx context.Context) error {
	return nil
}
