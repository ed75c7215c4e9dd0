package tokenstore

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-vocab-client/internal/config"
	"github.com/rs/zerolog/log"
)

// Open builds the Store configured by cfg, scoped to origin (the API base URL).
// A backend that cannot be opened is logged and replaced by memory.
func Open(cfg config.StoreConfig, origin string) *Store {
	backend, err := openBackend(cfg, origin)
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.GetStoreBackend()).Msg("token store: falling back to memory")
		return New(NewMemoryBackend())
	}
	log.Debug().Str("backend", cfg.GetStoreBackend()).Str("origin", origin).Msg("token store opened")
	return New(backend)
}

func openBackend(cfg config.StoreConfig, origin string) (Backend, error) {
	scope := OriginScope(origin)
	switch strings.ToLower(cfg.GetStoreBackend()) {
	case config.StoreMemory:
		return NewMemoryBackend(), nil
	case config.StoreFile, "":
		return NewFileBackend(filepath.Join(cfg.GetStoreDir(), "session-"+scope+".json"))
	case config.StoreKeyring:
		return NewKeyringBackend(cfg.GetKeyringService()+"/"+scope, cfg.GetStorePollInterval()), nil
	case config.StoreSQLite:
		return NewSQLiteBackend(filepath.Join(cfg.GetStoreDir(), "session.db"), scope, cfg.GetStorePollInterval())
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.GetStoreBackend())
	}
}

// OriginScope turns a base URL into a filesystem safe name. Two base URLs on the
// same scheme, host and port share a scope.
func OriginScope(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return sanitize(origin)
	}
	return sanitize(u.Scheme + "_" + u.Host)
}

func sanitize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
