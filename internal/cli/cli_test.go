package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-vocab-client/internal/cli"
	"github.com/jrsteele09/go-vocab-client/internal/config"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/jrsteele09/go-vocab-client/tokenstore"
	"github.com/jrsteele09/go-vocab-client/users"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "a@b.com"
	testPassword = "Password123"
	testToken    = "token-1"
	travelID     = "65a1b2c3d4e5f60718293a4b"
)

// syncBuffer lets a test read output while a command is still writing it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testFixture holds all test dependencies
type testFixture struct {
	api   *http.ServeMux
	cfg   config.Config
	store *tokenstore.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{api: http.NewServeMux(), store: tokenstore.New(nil)}
	apiServer := httptest.NewServer(f.api)
	t.Cleanup(apiServer.Close)
	t.Cleanup(f.store.Close)

	f.cfg = config.NewWithValues(config.Values{"env": "TEST", "api_base_url": apiServer.URL, "store": "memory"})

	f.api.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != testPassword {
			writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid email or password"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"data":{"accessToken":"`+testToken+`","user":{"id":"u1","email":"`+body.Email+`","username":"ann"}}}`)
	})
	f.api.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	f.api.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Refresh token expired"}`)
	})
	return f
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// run executes one command in a fresh App sharing the fixture's store, the way two
// invocations of the binary share the configured store.
func (f *testFixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &syncBuffer{}
	app, err := cli.NewApp(f.cfg, cli.WithStore(f.store), cli.WithIO(strings.NewReader(stdin), out))
	require.NoError(t, err)
	t.Cleanup(app.Watcher().Close)

	err = app.Run(context.Background(), args)
	return out.String(), err
}

func (f *testFixture) signIn(role users.RoleType) {
	f.store.SetUser(&users.Profile{ID: "u1", Email: testEmail, Username: "ann", Role: role})
	f.store.SetAccessToken(testToken)
}

func TestRun_Usage(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "")
	require.ErrorIs(t, err, cli.ErrUsage)

	_, err = f.run(t, "", "frobnicate")
	require.ErrorIs(t, err, cli.ErrUsage)

	var buf bytes.Buffer
	cli.Usage(&buf)
	require.Contains(t, buf.String(), "whoami")
	require.Contains(t, buf.String(), "serve")
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.run(t, "", "login", "-email", testEmail, "-password", testPassword)
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as ann (a@b.com)")

	token, ok := f.store.AccessToken()
	require.True(t, ok)
	require.Equal(t, testToken, token)

	t.Run("whoami in the next invocation", func(t *testing.T) {
		out, err := f.run(t, "", "whoami")
		require.NoError(t, err)
		require.Contains(t, out, "email:    a@b.com")
		require.Contains(t, out, "role:     user")
	})

	t.Run("login again shows the interstitial", func(t *testing.T) {
		out, err := f.run(t, "", "login", "-email", testEmail, "-password", testPassword)
		require.NoError(t, err)
		require.Contains(t, out, "already signed in as ann")
	})
}

func TestLogin_PromptsForPassword(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.run(t, testPassword+"\n", "login", "-email", testEmail)
	require.NoError(t, err)
	require.Contains(t, out, "Password: ")
	require.Contains(t, out, "Signed in as ann")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "", "login", "-email", testEmail, "-password", "nope")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, ok := f.store.AccessToken()
	require.False(t, ok)
}

func TestGate(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.run(t, "", "whoami")
		require.ErrorIs(t, err, cli.ErrNotSignedIn)
	})

	t.Run("admin command as a regular user", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signIn(users.RoleUser)
		_, err := f.run(t, "", "admin", "stats")
		require.ErrorIs(t, err, cli.ErrAdminRequired)
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(users.RoleUser)

	out, err := f.run(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out.")

	_, ok := f.store.AccessToken()
	require.False(t, ok)
}

func TestVocabList(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(users.RoleUser)
	f.api.HandleFunc("GET /vocabularies", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[{"_id":"v1","word":"hola","meanings":[{"meaning":"hello"}],"categories":["`+travelID+`"]}]}`)
	})
	f.api.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[{"_id":"`+travelID+`","name":"Travel"}]}`)
	})

	out, err := f.run(t, "", "vocab", "list")
	require.NoError(t, err)
	require.Contains(t, out, "hola")
	require.Contains(t, out, "hello")
	require.Contains(t, out, "Travel")
}

func TestVocabAdd_Validation(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(users.RoleUser)

	_, err := f.run(t, "", "vocab", "add", "-word", "hola", "-meaning", "hello", "-pos", "gerund")
	require.ErrorIs(t, err, cli.ErrUsage)

	_, err = f.run(t, "", "vocab", "add", "-word", "hola")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestCategoryUpdate_SendsOnlySetFlags(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(users.RoleUser)
	bodies := make(chan string, 1)
	f.api.HandleFunc("PATCH /categories/{id}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- string(body)
		writeJSON(w, http.StatusOK, `{"data":{"_id":"c1","name":"Trips"}}`)
	})

	out, err := f.run(t, "", "category", "update", "-name", "Trips", "c1")
	require.NoError(t, err)
	require.Contains(t, out, "Updated category Trips (c1)")
	require.JSONEq(t, `{"name":"Trips"}`, <-bodies)
}

func TestSessionExpiry(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(users.RoleUser)
	f.api.HandleFunc("GET /vocabularies", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Token expired"}`)
	})

	out, err := f.run(t, "", "vocab", "list")
	require.ErrorIs(t, err, errs.ErrSessionExpired)
	require.Contains(t, out, "session has expired")

	_, ok := f.store.AccessToken()
	require.False(t, ok)
}

func TestServe_StopsOnCancel(t *testing.T) {
	f := setupTestFixture(t)
	out := &syncBuffer{}
	app, err := cli.NewApp(f.cfg, cli.WithStore(f.store), cli.WithIO(strings.NewReader(""), out))
	require.NoError(t, err)
	t.Cleanup(app.Watcher().Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx, []string{"serve", "-addr", "127.0.0.1:0"}) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Console listening on http://127.0.0.1:")
	}, 3*time.Second, 10*time.Millisecond)

	addr := strings.TrimSpace(strings.TrimPrefix(out.String(), "Console listening on "))
	resp, err := http.Get(addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
