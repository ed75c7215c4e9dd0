// Package session keeps a de-duplicated view of whether this process is signed in,
// re-evaluated whenever the token store changes here or in another process.
package session

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-vocab-client/auth"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/jrsteele09/go-vocab-client/tokenstore"
	"github.com/jrsteele09/go-vocab-client/users"
	"github.com/rs/zerolog/log"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// State is what subscribers and guards see.
type State struct {
	Status  Status
	User    *users.Profile // set when Authenticated
	Loading bool           // a login, register or logout is in flight
	Err     error          // last failure surfaced to the user
}

// Resolved reports whether the state can be acted on.
func (s State) Resolved() bool {
	return s.Status != StatusUnknown && !s.Loading
}

func (s State) equal(o State) bool {
	if s.Status != o.Status || s.Loading != o.Loading || s.Err != o.Err {
		return false
	}
	if s.User == nil || o.User == nil {
		return s.User == o.User
	}
	return *s.User == *o.User
}

// Authenticator is the subset of *auth.Service the watcher drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Register(ctx context.Context, req auth.RegisterRequest) error
	Logout(ctx context.Context) error
	FetchProfile(ctx context.Context) (*users.Profile, error)
}

var _ Authenticator = (*auth.Service)(nil)

// Watcher must be started before use and closed when done. Overlapping Login and
// Logout calls are not queued; callers issue one mutating call at a time.
type Watcher struct {
	auth  Authenticator
	store *tokenstore.Store

	mu          sync.Mutex
	state       State
	gen         uint64
	mutating    int
	closed      bool
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	subs        map[int]func(State)
	nextID      int
	changed     chan struct{}
}

func NewWatcher(authenticator Authenticator, store *tokenstore.Store) *Watcher {
	return &Watcher{
		auth:    authenticator,
		store:   store,
		subs:    make(map[int]func(State)),
		changed: make(chan struct{}),
	}
}

// Start subscribes to the store and runs the first evaluation, returning its result.
// ctx bounds the watcher's lifetime, including background profile fetches.
func (w *Watcher) Start(ctx context.Context) State {
	w.mu.Lock()
	if w.ctx != nil {
		w.mu.Unlock()
		return w.State()
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.gen++
	gen := w.gen
	w.mu.Unlock()

	unsubscribe := w.store.Subscribe(w.onStoreChange)
	w.mu.Lock()
	w.unsubscribe = unsubscribe
	w.mu.Unlock()

	w.evaluate(gen)
	return w.settle()
}

// Close stops watching and suppresses every later update.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	unsubscribe, cancel := w.unsubscribe, w.cancel
	w.subs = map[int]func(State){}
	w.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}

func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Subscribe calls fn on every distinct state. The returned func unsubscribes.
func (w *Watcher) Subscribe(fn func(State)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// WaitResolved blocks until the state is neither Unknown nor Loading.
func (w *Watcher) WaitResolved(ctx context.Context) (State, error) {
	for {
		w.mu.Lock()
		state, changed := w.state, w.changed
		w.mu.Unlock()
		if state.Resolved() {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-changed:
		}
	}
}

// Refresh forces a re-evaluation and waits for it.
func (w *Watcher) Refresh() State {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.mu.Unlock()
	w.evaluate(gen)
	return w.settle()
}

// settle waits for an evaluation superseded by a store change to finish.
func (w *Watcher) settle() State {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	state, _ := w.WaitResolved(ctx)
	return state
}

// Login signs in and resolves to Authenticated, or stays Unauthenticated with Err set.
func (w *Watcher) Login(ctx context.Context, email, password string) (*users.Profile, error) {
	if w.State().Status == StatusAuthenticated {
		return nil, errs.ErrAlreadyAuthenticated
	}

	w.beginMutation()
	sess, err := w.auth.Login(ctx, email, password)
	if err == nil && sess.User == nil {
		sess.User, err = w.auth.FetchProfile(ctx)
	}
	gen := w.endMutation()

	if err != nil {
		w.commit(gen, State{Status: StatusUnauthenticated, Err: err})
		return nil, err
	}
	w.commit(gen, State{Status: StatusAuthenticated, User: sess.User})
	return sess.User, nil
}

// Register creates an account. The status does not change: the new account must
// verify its email and then log in.
func (w *Watcher) Register(ctx context.Context, req auth.RegisterRequest) error {
	if w.State().Status == StatusAuthenticated {
		return errs.ErrAlreadyAuthenticated
	}

	w.beginMutation()
	err := w.auth.Register(ctx, req)
	gen := w.endMutation()

	state := w.State()
	state.Loading = false
	state.Err = err
	w.commit(gen, state)
	return err
}

// Logout always ends Unauthenticated.
func (w *Watcher) Logout(ctx context.Context) error {
	w.beginMutation()
	err := w.auth.Logout(ctx)
	gen := w.endMutation()

	w.commit(gen, State{Status: StatusUnauthenticated})
	return err
}

func (w *Watcher) beginMutation() {
	w.mu.Lock()
	w.mutating++
	w.gen++
	gen := w.gen
	state := w.state
	w.mu.Unlock()

	state.Loading = true
	state.Err = nil
	w.commit(gen, state)
}

func (w *Watcher) endMutation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mutating--
	w.gen++
	return w.gen
}

// onStoreChange supersedes any evaluation in flight. Changes made by our own
// login or logout are ignored; the mutation commits its own result.
func (w *Watcher) onStoreChange(c tokenstore.Change) {
	if c.Key != tokenstore.KeyAccessToken && c.Key != tokenstore.KeyUser {
		return
	}
	w.mu.Lock()
	if w.closed || w.mutating > 0 {
		w.mu.Unlock()
		return
	}
	w.gen++
	gen := w.gen
	w.mu.Unlock()

	log.Debug().Str("key", c.Key).Stringer("origin", c.Origin).Msg("session: store changed, re-evaluating")
	go w.evaluate(gen)
}

// evaluate reads the store and, when only a token is present, fetches the profile.
func (w *Watcher) evaluate(gen uint64) {
	if _, ok := w.store.AccessToken(); !ok {
		w.commit(gen, State{Status: StatusUnauthenticated})
		return
	}
	if user, ok := w.store.User(); ok {
		w.commit(gen, State{Status: StatusAuthenticated, User: user})
		return
	}

	if !w.commit(gen, State{Status: StatusUnknown}) {
		return
	}

	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	user, err := w.auth.FetchProfile(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("session: profile fetch failed")
		w.commit(gen, State{Status: StatusUnauthenticated, Err: err})
		return
	}
	w.commit(gen, State{Status: StatusAuthenticated, User: user})
}

// commit applies state if gen is still current and reports whether it was current.
func (w *Watcher) commit(gen uint64, state State) bool {
	w.mu.Lock()
	if w.closed || gen != w.gen {
		w.mu.Unlock()
		return false
	}
	if w.state.equal(state) {
		w.mu.Unlock()
		return true
	}
	w.state = state
	close(w.changed)
	w.changed = make(chan struct{})
	subs := make([]func(State), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
	return true
}
