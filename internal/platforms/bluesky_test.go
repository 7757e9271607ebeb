package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"trendcast/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePDS answers the three session endpoints. Tokens listed in valid are
// accepted by getSession; refreshable tokens are accepted by refreshSession.
type fakePDS struct {
	mu          sync.Mutex
	valid       map[string]bool
	refreshable map[string]bool
	calls       map[string]int
	issued      int
}

func newFakePDS() *fakePDS {
	return &fakePDS{
		valid:       map[string]bool{},
		refreshable: map[string]bool{},
		calls:       map[string]int{},
	}
}

func (f *fakePDS) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		method := filepath.Base(r.URL.Path)
		f.calls[method]++
		token := ""
		if auth := r.Header.Get("Authorization"); len(auth) > len("Bearer ") {
			token = auth[len("Bearer "):]
		}

		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "com.atproto.server.getSession":
			if !f.valid[token] {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":"ExpiredToken","message":"token expired"}`)
				return
			}
			fmt.Fprint(w, `{"did":"did:plc:bot","handle":"bot.example"}`)
		case "com.atproto.server.refreshSession":
			if !f.refreshable[token] {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":"ExpiredToken","message":"refresh expired"}`)
				return
			}
			f.writeSession(w)
		case "com.atproto.server.createSession":
			var in struct {
				Identifier string `json:"identifier"`
				Password   string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if in.Identifier != "bot.example" || in.Password != "app-password" {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":"AuthenticationRequired","message":"bad login"}`)
				return
			}
			f.writeSession(w)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakePDS) writeSession(w http.ResponseWriter) {
	f.issued++
	access := fmt.Sprintf("access-%d", f.issued)
	f.valid[access] = true
	fmt.Fprintf(w, `{"accessJwt":%q,"refreshJwt":"refresh-%d","handle":"bot.example","did":"did:plc:bot"}`, access, f.issued)
}

func (f *fakePDS) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls["com.atproto.server."+method]
}

func writeSessionFile(t *testing.T, path string, s session) {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func readSessionFile(t *testing.T, path string) session {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var s session
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func newPlatform(t *testing.T, host, sessionFile string, creds config.Credentials) *BlueskyPlatform {
	t.Helper()
	p, err := NewBlueskyPlatform(BlueskySettings{Host: host, SessionFile: sessionFile, Credentials: creds}, nil)
	require.NoError(t, err)
	return p
}

var testCreds = config.Credentials{Identifier: "bot.example", Password: "app-password"}

func TestLoginCreatesAndCachesSession(t *testing.T) {
	pds := newFakePDS()
	server := httptest.NewServer(pds.handler())
	defer server.Close()

	sessionFile := filepath.Join(t.TempDir(), "state", "session.json")
	p := newPlatform(t, server.URL, sessionFile, testCreds)

	require.NoError(t, p.Initialize(context.Background()))
	assert.Equal(t, 1, pds.count("createSession"))
	assert.Equal(t, "did:plc:bot", p.Client().Auth.Did)

	info, err := os.Stat(sessionFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, "access-1", readSessionFile(t, sessionFile).AccessJwt)

	require.NoError(t, p.Initialize(context.Background()))
	assert.Equal(t, 1, pds.count("createSession"))
}

func TestLoginReusesValidSession(t *testing.T) {
	pds := newFakePDS()
	pds.valid["cached-access"] = true
	server := httptest.NewServer(pds.handler())
	defer server.Close()

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	writeSessionFile(t, sessionFile, session{AccessJwt: "cached-access", RefreshJwt: "cached-refresh", Handle: "bot.example", Did: "did:plc:bot"})

	p := newPlatform(t, server.URL, sessionFile, config.Credentials{})
	require.NoError(t, p.Initialize(context.Background()))

	assert.Equal(t, 1, pds.count("getSession"))
	assert.Zero(t, pds.count("refreshSession"))
	assert.Zero(t, pds.count("createSession"))
	assert.Equal(t, "cached-access", p.Client().Auth.AccessJwt)
}

func TestLoginRefreshesExpiredSession(t *testing.T) {
	pds := newFakePDS()
	pds.refreshable["cached-refresh"] = true
	server := httptest.NewServer(pds.handler())
	defer server.Close()

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	writeSessionFile(t, sessionFile, session{AccessJwt: "stale", RefreshJwt: "cached-refresh", Did: "did:plc:bot"})

	p := newPlatform(t, server.URL, sessionFile, testCreds)
	require.NoError(t, p.Initialize(context.Background()))

	assert.Equal(t, 1, pds.count("refreshSession"))
	assert.Zero(t, pds.count("createSession"))

	saved := readSessionFile(t, sessionFile)
	assert.Equal(t, "access-1", saved.AccessJwt)
	assert.Equal(t, "refresh-1", saved.RefreshJwt)
}

func TestLoginFallsBackToCredentials(t *testing.T) {
	pds := newFakePDS()
	server := httptest.NewServer(pds.handler())
	defer server.Close()

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	writeSessionFile(t, sessionFile, session{AccessJwt: "stale", RefreshJwt: "also-stale"})

	p := newPlatform(t, server.URL, sessionFile, testCreds)
	require.NoError(t, p.Initialize(context.Background()))

	assert.Equal(t, 1, pds.count("getSession"))
	assert.Equal(t, 1, pds.count("refreshSession"))
	assert.Equal(t, 1, pds.count("createSession"))
	assert.Equal(t, "access-1", readSessionFile(t, sessionFile).AccessJwt)
}

func TestLoginWithoutCredentialsFails(t *testing.T) {
	pds := newFakePDS()
	server := httptest.NewServer(pds.handler())
	defer server.Close()

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	writeSessionFile(t, sessionFile, session{AccessJwt: "stale"})

	p := newPlatform(t, server.URL, sessionFile, config.Credentials{})
	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Nil(t, p.Client())
}

func TestLoginBadPasswordDoesNotLeakIt(t *testing.T) {
	pds := newFakePDS()
	server := httptest.NewServer(pds.handler())
	defer server.Close()

	p := newPlatform(t, server.URL, "", config.Credentials{Identifier: "bot.example", Password: "wrong-secret"})
	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "wrong-secret")
}

func TestNewBlueskyPlatformRequiresLogin(t *testing.T) {
	_, err := NewBlueskyPlatform(BlueskySettings{}, nil)
	assert.Error(t, err)
}
