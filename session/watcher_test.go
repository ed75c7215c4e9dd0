package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-vocab-client/auth"
	"github.com/jrsteele09/go-vocab-client/httpclient"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/jrsteele09/go-vocab-client/session"
	"github.com/jrsteele09/go-vocab-client/tokenstore"
	"github.com/jrsteele09/go-vocab-client/users"
	"github.com/stretchr/testify/require"
)

// fakeAuth mimics the store side effects of auth.Service.
type fakeAuth struct {
	store      *tokenstore.Store
	fetchCalls atomic.Int32
	fetch      func(ctx context.Context) (*users.Profile, error)
	loginErr   error
}

var _ session.Authenticator = (*fakeAuth)(nil)

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	user := &users.Profile{ID: "u1", Email: email, Username: "a"}
	f.store.SetAccessToken("tok1")
	f.store.SetUser(user)
	return &auth.Session{AccessToken: "tok1", User: user}, nil
}

func (f *fakeAuth) Register(ctx context.Context, req auth.RegisterRequest) error {
	return nil
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.store.Clear()
	return nil
}

func (f *fakeAuth) FetchProfile(ctx context.Context) (*users.Profile, error) {
	f.fetchCalls.Add(1)
	p, err := f.fetch(ctx)
	if err == nil {
		f.store.SetUser(p)
	}
	return p, err
}

type testFixture struct {
	store   *tokenstore.Store
	auth    *fakeAuth
	watcher *session.Watcher
	states  *stateRecorder
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	store := tokenstore.New(nil)
	fa := &fakeAuth{
		store: store,
		fetch: func(ctx context.Context) (*users.Profile, error) {
			return &users.Profile{Email: "a@b.com", Username: "a"}, nil
		},
	}
	w := session.NewWatcher(fa, store)
	rec := &stateRecorder{}
	w.Subscribe(rec.record)
	t.Cleanup(w.Close)
	t.Cleanup(store.Close)
	return &testFixture{store: store, auth: fa, watcher: w, states: rec}
}

type stateRecorder struct {
	mu     sync.Mutex
	states []session.State
}

func (r *stateRecorder) record(s session.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) all() []session.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.State(nil), r.states...)
}

func eventuallyStatus(t *testing.T, w *session.Watcher, want session.Status) session.State {
	t.Helper()
	require.Eventually(t, func() bool {
		s := w.State()
		return s.Status == want && s.Resolved()
	}, 3*time.Second, 5*time.Millisecond)
	return w.State()
}

func TestWatcher_EmptyStoreIsUnauthenticated(t *testing.T) {
	f := setupTestFixture(t)

	state := f.watcher.Start(context.Background())
	require.Equal(t, session.StatusUnauthenticated, state.Status)
	require.Zero(t, f.auth.fetchCalls.Load(), "no network call without a token")
}

func TestWatcher_CachedUserNeedsNoFetch(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetAccessToken("tok1")
	f.store.SetUser(&users.Profile{Email: "a@b.com", Role: users.RoleAdmin})

	state := f.watcher.Start(context.Background())
	require.Equal(t, session.StatusAuthenticated, state.Status)
	require.True(t, state.User.IsAdmin())
	require.Zero(t, f.auth.fetchCalls.Load())
}

func TestWatcher_TokenWithoutUserFetchesProfile(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetAccessToken("tok1")

	state := f.watcher.Start(context.Background())
	require.Equal(t, session.StatusAuthenticated, state.Status)
	require.Equal(t, "a@b.com", state.User.Email)
	require.EqualValues(t, 1, f.auth.fetchCalls.Load())

	cached, ok := f.store.User()
	require.True(t, ok)
	require.Equal(t, "a", cached.Username)
}

func TestWatcher_FetchFailureIsUnauthenticated(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetAccessToken("tok1")
	f.auth.fetch = func(ctx context.Context) (*users.Profile, error) {
		return nil, errs.ErrNetwork
	}

	state := f.watcher.Start(context.Background())
	require.Equal(t, session.StatusUnauthenticated, state.Status)
	require.ErrorIs(t, state.Err, errs.ErrNetwork)
}

func TestWatcher_Login(t *testing.T) {
	f := setupTestFixture(t)
	f.watcher.Start(context.Background())

	user, err := f.watcher.Login(context.Background(), "a@b.com", "Password123")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)

	state := f.watcher.State()
	require.Equal(t, session.StatusAuthenticated, state.Status)
	require.False(t, state.Loading)
	require.Zero(t, f.auth.fetchCalls.Load(), "our own writes do not trigger a fetch")

	states := f.states.all()
	require.Equal(t, []session.Status{
		session.StatusUnauthenticated,
		session.StatusUnauthenticated,
		session.StatusAuthenticated,
	}, statuses(states))
	require.True(t, states[1].Loading)

	_, err = f.watcher.Login(context.Background(), "a@b.com", "Password123")
	require.ErrorIs(t, err, errs.ErrAlreadyAuthenticated)
	require.ErrorIs(t, f.watcher.Register(context.Background(), auth.RegisterRequest{}), errs.ErrAlreadyAuthenticated)
}

func TestWatcher_LoginFailureSurfacesError(t *testing.T) {
	f := setupTestFixture(t)
	f.watcher.Start(context.Background())
	f.auth.loginErr = &auth.Error{Kind: auth.KindInvalidCredentials, Message: "Invalid email or password"}

	_, err := f.watcher.Login(context.Background(), "a@b.com", "wrong")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	state := f.watcher.State()
	require.Equal(t, session.StatusUnauthenticated, state.Status)
	require.Equal(t, "Invalid email or password", auth.UserMessage(state.Err))
}

func TestWatcher_Logout(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetAccessToken("tok1")
	f.store.SetUser(&users.Profile{Email: "a@b.com"})
	f.watcher.Start(context.Background())

	require.NoError(t, f.watcher.Logout(context.Background()))
	require.Equal(t, session.StatusUnauthenticated, f.watcher.State().Status)
	_, ok := f.store.AccessToken()
	require.False(t, ok)
}

func TestWatcher_StaleEvaluationIsDropped(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetAccessToken("tok1")

	started := make(chan struct{})
	release := make(chan struct{})
	f.auth.fetch = func(ctx context.Context) (*users.Profile, error) {
		close(started)
		<-release
		return &users.Profile{Email: "late@b.com"}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.watcher.Start(ctx)
	<-started

	// Another writer signs out while the profile request is still in flight.
	f.store.Clear()
	eventuallyStatus(t, f.watcher, session.StatusUnauthenticated)

	close(release)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, session.StatusUnauthenticated, f.watcher.State().Status)
	for _, s := range f.states.all() {
		if s.User != nil {
			require.NotEqual(t, "late@b.com", s.User.Email, "the superseded fetch never reaches subscribers")
		}
	}
}

func TestWatcher_CloseSuppressesUpdates(t *testing.T) {
	f := setupTestFixture(t)
	f.watcher.Start(context.Background())
	before := len(f.states.all())

	f.watcher.Close()
	f.store.SetAccessToken("tok1")
	f.store.SetUser(&users.Profile{Email: "a@b.com"})
	time.Sleep(50 * time.Millisecond)

	require.Len(t, f.states.all(), before)
	require.Equal(t, session.StatusUnauthenticated, f.watcher.State().Status)
}

func TestWatcher_FollowsOtherProcess(t *testing.T) {
	backend := tokenstore.NewMemoryBackend()
	writer := tokenstore.New(backend)
	defer writer.Close()

	f := setupTestFixture(t)
	reader := tokenstore.New(backend)
	defer reader.Close()
	f.auth.store = reader

	w := session.NewWatcher(f.auth, reader)
	defer w.Close()
	require.Equal(t, session.StatusUnauthenticated, w.Start(context.Background()).Status)

	writer.SetUser(&users.Profile{Email: "other@b.com"})
	writer.SetAccessToken("tok9")
	state := eventuallyStatus(t, w, session.StatusAuthenticated)
	require.Equal(t, "other@b.com", state.User.Email)

	writer.Clear()
	eventuallyStatus(t, w, session.StatusUnauthenticated)
}

func TestWatcher_FollowsOtherProcessThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	newStore := func() *tokenstore.Store {
		b, err := tokenstore.NewFileBackend(path)
		require.NoError(t, err)
		s := tokenstore.New(b)
		t.Cleanup(s.Close)
		return s
	}
	writer, reader := newStore(), newStore()

	fa := &fakeAuth{store: reader, fetch: func(ctx context.Context) (*users.Profile, error) {
		return &users.Profile{Email: "fetched@b.com"}, nil
	}}
	w := session.NewWatcher(fa, reader)
	defer w.Close()
	w.Start(context.Background())

	writer.SetAccessToken("tok1")
	state := eventuallyStatus(t, w, session.StatusAuthenticated)
	require.Equal(t, "fetched@b.com", state.User.Email)
}

func TestWatcher_WithAuthService(t *testing.T) {
	var meCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		meCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"email":"a@b.com","username":"a"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := tokenstore.New(nil)
	defer store.Close()
	store.SetAccessToken("tok1")

	client, err := httpclient.New(server.URL, store)
	require.NoError(t, err)
	service, err := auth.NewService(client)
	require.NoError(t, err)

	w := session.NewWatcher(service, store)
	defer w.Close()

	state := w.Start(context.Background())
	require.Equal(t, session.StatusAuthenticated, state.Status)
	require.Equal(t, "a@b.com", state.User.Email)
	require.Equal(t, "a", state.User.Username)
	require.EqualValues(t, 1, meCalls.Load())

	cached, ok := store.User()
	require.True(t, ok)
	require.Equal(t, "a@b.com", cached.Email)
}

func TestWaitResolved_HonoursContext(t *testing.T) {
	f := setupTestFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	state, err := f.watcher.WaitResolved(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, session.StatusUnknown, state.Status)
}

func statuses(states []session.State) []session.Status {
	out := make([]session.Status, len(states))
	for i, s := range states {
		out[i] = s.Status
	}
	return out
}
