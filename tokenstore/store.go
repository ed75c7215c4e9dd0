// Package tokenstore persists the access token and cached user profile and
// broadcasts every change to subscribers in this process. Writes made by other
// processes are picked up through the backend's notifier, when it has one.
package tokenstore

import (
	"encoding/json"
	"fmt"
	"sync"

	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/jrsteele09/go-vocab-client/users"
	"github.com/rs/zerolog/log"
)

const (
	KeyAccessToken = "accessToken"
	KeyUser        = "user"
)

// Origin tells subscribers where a change came from.
type Origin int

const (
	OriginLocal    Origin = iota // written through this Store
	OriginExternal               // observed from another process sharing the backend
)

func (o Origin) String() string {
	if o == OriginExternal {
		return "external"
	}
	return "local"
}

// Change is published for every write.
type Change struct {
	Key     string
	Value   string
	Deleted bool
	Origin  Origin
}

// Backend is the persistence behind a Store. Load reports false for a missing key.
type Backend interface {
	Load(key string) (string, bool, error)
	Save(key, value string) error
	Delete(key string) error
	Close() error
}

// Notifier is implemented by backends that can observe writes from other processes.
// notify may be called from any goroutine and may be called spuriously.
type Notifier interface {
	Notify(notify func()) error
}

type cachedValue struct {
	value string
	ok    bool
}

var trackedKeys = []string{KeyAccessToken, KeyUser}

// Store is safe for concurrent use. None of its methods return errors: a failing
// backend is replaced by an in-memory one and the store keeps working.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	degraded error
	closed   bool
	last     map[string]cachedValue
	subs     map[int]func(Change)
	nextID   int
}

// New wraps backend. A nil backend means memory only.
func New(backend Backend) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{
		backend: backend,
		last:    make(map[string]cachedValue),
		subs:    make(map[int]func(Change)),
	}

	s.mu.Lock()
	for _, key := range trackedKeys {
		v, ok := s.load(key)
		s.last[key] = cachedValue{value: v, ok: ok}
	}
	current := s.backend
	s.mu.Unlock()

	if n, ok := current.(Notifier); ok {
		if err := n.Notify(s.reload); err != nil {
			log.Warn().Err(err).Msg("token store: changes from other processes will not be observed")
		}
	}
	return s
}

// Get returns the stored value for key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(key)
}

// Set stores value under key and notifies subscribers.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	if err := s.backend.Save(key, value); err != nil {
		s.degrade("save", err)
		_ = s.backend.Save(key, value)
	}
	s.remember(key, value, true)
	subs := s.subscribers()
	s.mu.Unlock()

	publish(subs, Change{Key: key, Value: value, Origin: OriginLocal})
}

// Remove deletes key and notifies subscribers.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	if err := s.backend.Delete(key); err != nil {
		s.degrade("delete", err)
		_ = s.backend.Delete(key)
	}
	s.remember(key, "", false)
	subs := s.subscribers()
	s.mu.Unlock()

	publish(subs, Change{Key: key, Deleted: true, Origin: OriginLocal})
}

// Clear removes the access token and the cached user.
func (s *Store) Clear() {
	s.Remove(KeyAccessToken)
	s.Remove(KeyUser)
}

// AccessToken returns the stored token, if any.
func (s *Store) AccessToken() (string, bool) {
	token, ok := s.Get(KeyAccessToken)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func (s *Store) SetAccessToken(token string) {
	s.Set(KeyAccessToken, token)
}

// User decodes the cached profile. A malformed entry reads as absent.
func (s *Store) User() (*users.Profile, bool) {
	raw, ok := s.Get(KeyUser)
	if !ok || raw == "" || raw == "null" {
		return nil, false
	}
	var p users.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		log.Warn().Err(err).Str("key", KeyUser).Msg("token store: ignoring malformed cached user")
		return nil, false
	}
	return &p, true
}

// SetUser caches p; nil removes the entry.
func (s *Store) SetUser(p *users.Profile) {
	if p == nil {
		s.Remove(KeyUser)
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		log.Warn().Err(err).Msg("token store: cannot encode user")
		return
	}
	s.Set(KeyUser, string(raw))
}

// Subscribe registers fn for every change. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Degraded reports whether the store fell back to memory.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded != nil
}

// Err returns why the store fell back to memory, matching ErrStoreUnavailable, or nil.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Close stops watching for external changes and releases the backend.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	backend := s.backend
	s.mu.Unlock()

	if err := backend.Close(); err != nil {
		log.Debug().Err(err).Msg("token store: closing backend")
	}
}

// reload runs when the backend reports a possible external write. Only keys whose
// value differs from the last one seen are published.
func (s *Store) reload() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	var changes []Change
	for _, key := range trackedKeys {
		v, ok := s.load(key)
		if prev := s.last[key]; prev.ok == ok && prev.value == v {
			continue
		}
		s.last[key] = cachedValue{value: v, ok: ok}
		changes = append(changes, Change{Key: key, Value: v, Deleted: !ok, Origin: OriginExternal})
	}
	subs := s.subscribers()
	s.mu.Unlock()

	for _, c := range changes {
		publish(subs, c)
	}
}

// load must be called with mu held.
func (s *Store) load(key string) (string, bool) {
	v, ok, err := s.backend.Load(key)
	if err != nil {
		s.degrade("load", err)
		v, ok, _ = s.backend.Load(key)
	}
	return v, ok
}

func (s *Store) remember(key, value string, ok bool) {
	if _, tracked := s.last[key]; tracked {
		s.last[key] = cachedValue{value: value, ok: ok}
	}
}

// degrade swaps in a memory backend seeded with the last known values. mu must be held.
func (s *Store) degrade(op string, err error) {
	if s.degraded != nil {
		return
	}
	s.degraded = fmt.Errorf("%s: %w: %w", op, errs.ErrStoreUnavailable, err)
	log.Warn().Err(s.degraded).Str("op", op).Msg("token store: backend unavailable, continuing in memory")

	mem := NewMemoryBackend()
	for key, v := range s.last {
		if v.ok {
			_ = mem.Save(key, v.value)
		}
	}
	old := s.backend
	s.backend = mem
	go func() { _ = old.Close() }()
}

func (s *Store) subscribers() []func(Change) {
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

func publish(subs []func(Change), c Change) {
	for _, fn := range subs {
		fn(c)
	}
}
