// Package navigation tracks the current route of a client and lets components
// request a move to another one.
package navigation

import (
	"net/url"
	"strings"
	"sync"
)

// Location is the current route. The zero value starts at "/".
type Location struct {
	mu        sync.RWMutex
	path      string
	listeners map[int]func(path string)
	nextID    int
}

// New starts at path.
func New(path string) *Location {
	return &Location{path: Clean(path)}
}

func (l *Location) CurrentPath() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.path == "" {
		return "/"
	}
	return l.path
}

// Navigate moves to path and tells listeners. Moving to the current path is a no-op.
func (l *Location) Navigate(path string) {
	path = Clean(path)
	l.mu.Lock()
	if l.path == path || (l.path == "" && path == "/") {
		l.mu.Unlock()
		return
	}
	l.path = path
	listeners := make([]func(string), 0, len(l.listeners))
	for _, fn := range l.listeners {
		listeners = append(listeners, fn)
	}
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(path)
	}
}

// OnNavigate registers fn and returns a func that removes it.
func (l *Location) OnNavigate(fn func(path string)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listeners == nil {
		l.listeners = make(map[int]func(string))
	}
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}

// Clean strips the query and fragment and guarantees a leading slash.
func Clean(path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
