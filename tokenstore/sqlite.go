package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// kvEntry is one key of one origin. Deletes leave a tombstone so the version keeps
// moving and pollers in other processes notice them.
type kvEntry struct {
	Origin    string `gorm:"primaryKey;size:255"`
	Key       string `gorm:"primaryKey;column:entry_key;size:64"`
	Value     string
	Deleted   bool
	Version   int64 `gorm:"index"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// SQLiteBackend stores entries in a SQLite database shared by every process on the machine.
type SQLiteBackend struct {
	db       *gorm.DB
	origin   string
	interval time.Duration

	mu     sync.Mutex
	poller *poller
}

var (
	_ Backend  = (*SQLiteBackend)(nil)
	_ Notifier = (*SQLiteBackend)(nil)
)

// NewSQLiteBackend opens (or creates) the database at path.
func NewSQLiteBackend(path, origin string, interval time.Duration) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open token database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("token database handle: %w", err)
	}
	sqlDB.Exec("PRAGMA journal_mode=WAL")
	sqlDB.Exec("PRAGMA busy_timeout=5000")

	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}
	_ = os.Chmod(path, 0o600)

	return &SQLiteBackend{db: db, origin: origin, interval: interval}, nil
}

func (s *SQLiteBackend) Load(key string) (string, bool, error) {
	var entry kvEntry
	err := s.db.Where("origin = ? AND entry_key = ? AND deleted = ?", s.origin, key, false).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *SQLiteBackend) Save(key, value string) error {
	return s.put(key, value, false)
}

func (s *SQLiteBackend) Delete(key string) error {
	return s.put(key, "", true)
}

func (s *SQLiteBackend) put(key, value string, deleted bool) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		version, err := maxVersion(tx, s.origin)
		if err != nil {
			return err
		}
		entry := kvEntry{
			Origin:    s.origin,
			Key:       key,
			Value:     value,
			Deleted:   deleted,
			Version:   version + 1,
			UpdatedAt: time.Now().UTC(),
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// Notify polls the highest version for this origin.
func (s *SQLiteBackend) Notify(notify func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poller != nil {
		return fmt.Errorf("sqlite store already has a notifier")
	}
	s.poller = newPoller(s.interval, func() (string, error) {
		v, err := maxVersion(s.db, s.origin)
		return strconv.FormatInt(v, 10), err
	})
	s.poller.start(notify)
	return nil
}

func (s *SQLiteBackend) Close() error {
	s.mu.Lock()
	if s.poller != nil {
		s.poller.stop()
	}
	s.mu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func maxVersion(db *gorm.DB, origin string) (int64, error) {
	var version int64
	err := db.Model(&kvEntry{}).
		Where("origin = ?", origin).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return version, nil
}
