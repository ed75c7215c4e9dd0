package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	storeBackendVar      = envPrefix + "STORE"
	storeDirVar          = envPrefix + "STORE_DIR"
	storePollIntervalVar = envPrefix + "STORE_POLL_INTERVAL"
	keyringServiceVar    = envPrefix + "KEYRING_SERVICE"
)

// Store backends
const (
	StoreMemory  = "memory"
	StoreFile    = "file"
	StoreKeyring = "keyring"
	StoreSQLite  = "sqlite"
)

type Store struct {
	values Values
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() string {
	return s.values.get(storeBackendVar, StoreFile)
}

func (s Store) GetStoreDir() string {
	return s.values.get(storeDirVar, defaultStoreDir())
}

// GetStorePollInterval is how often the SQLite and keyring backends look for writes made by other processes
func (s Store) GetStorePollInterval() time.Duration {
	return s.values.getDuration(storePollIntervalVar, time.Second)
}

func (s Store) GetKeyringService() string {
	return s.values.get(keyringServiceVar, "myvocab")
}

func defaultStoreDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(os.TempDir(), "myvocab")
	}
	return filepath.Join(dir, "myvocab")
}
