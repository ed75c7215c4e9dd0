package tokenstore

import "sync"

// MemoryBackend keeps values in a map. Stores sharing one MemoryBackend see each
// other's writes as external changes.
type MemoryBackend struct {
	mu       sync.RWMutex
	values   map[string]string
	watchers []func()
}

var (
	_ Backend  = (*MemoryBackend)(nil)
	_ Notifier = (*MemoryBackend)(nil)
)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (m *MemoryBackend) Load(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Save(key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	m.broadcast()
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	m.broadcast()
	return nil
}

func (m *MemoryBackend) Notify(notify func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, notify)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

// Watchers run on their own goroutines: the writer may still hold its store lock.
func (m *MemoryBackend) broadcast() {
	m.mu.RLock()
	watchers := append([]func(){}, m.watchers...)
	m.mu.RUnlock()
	for _, w := range watchers {
		go w()
	}
}
