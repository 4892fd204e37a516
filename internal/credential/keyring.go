// Package credential stores IMAP passwords in the system keyring.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"github.com/cristianoliveira/mailnotify/internal/config"
)

const serviceName = "mailnotify"

// Keyring backend selections.
const (
	BackendAuto = "auto"
	BackendFile = "file"
	BackendNone = "none"
)

// ErrNoPassword is returned when neither the environment nor the keyring holds a password.
var ErrNoPassword = errors.New("no password available")

// Store reads and writes account passwords.
type Store struct {
	open func() (keyring.Keyring, error)
}

// NewStore returns a store for the given backend, keeping file-backed secrets under dir.
func NewStore(backend, dir string) *Store {
	return &Store{open: func() (keyring.Keyring, error) {
		return openKeyring(backend, dir)
	}}
}

// NewStoreWithKeyring wraps an already opened keyring.
func NewStoreWithKeyring(ring keyring.Keyring) *Store {
	return &Store{open: func() (keyring.Keyring, error) { return ring, nil }}
}

// openKeyring returns a configured keyring instance.
func openKeyring(backend, dir string) (keyring.Keyring, error) {
	var backends []keyring.BackendType
	switch backend {
	case BackendNone:
		return nil, fmt.Errorf("opening keyring: disabled by keyring_backend=none")
	case BackendFile:
		backends = []keyring.BackendType{keyring.FileBackend}
	default:
		backends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		}
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		AllowedBackends:          backends,
		FileDir:                  filepath.Join(dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("mailnotify-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Key is the keyring item key for an account password.
func Key(accountID string) string {
	return "imap-" + accountID
}

// Get retrieves a credential value by key from the keyring.
func (s *Store) Get(key string) (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the keyring.
func (s *Store) Set(key string, value string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "mailnotify " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the keyring.
func (s *Store) Delete(key string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Password resolves the password of acc: password_env wins over the keyring.
func (s *Store) Password(acc config.AccountConfig) (string, error) {
	if acc.PasswordEnv != "" {
		if v, ok := os.LookupEnv(acc.PasswordEnv); ok {
			return v, nil
		}
	}
	pw, err := s.Get(Key(acc.ID))
	if err != nil {
		return "", fmt.Errorf("account %q: %w: %w", acc.ID, ErrNoPassword, err)
	}
	return pw, nil
}
