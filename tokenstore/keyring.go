package tokenstore

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

// KeyringBackend stores each key as a secret in the OS keychain under one service name.
type KeyringBackend struct {
	service  string
	interval time.Duration

	mu     sync.Mutex
	poller *poller
}

var (
	_ Backend  = (*KeyringBackend)(nil)
	_ Notifier = (*KeyringBackend)(nil)
)

// NewKeyringBackend scopes secrets to service. interval controls how often the
// keychain is polled for writes from other processes.
func NewKeyringBackend(service string, interval time.Duration) *KeyringBackend {
	return &KeyringBackend{service: service, interval: interval}
}

func (k *KeyringBackend) Load(key string) (string, bool, error) {
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("keyring get %s: %w", key, err)
	}
	return v, true, nil
}

func (k *KeyringBackend) Save(key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("keyring set %s: %w", key, err)
	}
	return nil
}

func (k *KeyringBackend) Delete(key string) error {
	err := keyring.Delete(k.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %s: %w", key, err)
	}
	return nil
}

// Notify polls the tracked keys; the keychain has no change notification.
func (k *KeyringBackend) Notify(notify func()) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.poller != nil {
		return fmt.Errorf("keyring store already has a notifier")
	}
	k.poller = newPoller(k.interval, k.fingerprint)
	k.poller.start(notify)
	return nil
}

func (k *KeyringBackend) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.poller != nil {
		k.poller.stop()
	}
	return nil
}

func (k *KeyringBackend) fingerprint() (string, error) {
	var b strings.Builder
	for _, key := range trackedKeys {
		v, ok, err := k.Load(key)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s=%t:%d:%s;", key, ok, len(v), v)
	}
	return b.String(), nil
}
