package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/pelletier/go-toml/v2"
)

// TLS modes accepted for an account connection.
const (
	TLSImplicit = "tls"
	TLSStart    = "starttls"
	TLSNone     = "none"
)

// ErrNoAccounts is returned when the accounts file defines no account.
var ErrNoAccounts = errors.New("no accounts configured")

// AccountIdentity is one [[account.identity]] table.
type AccountIdentity struct {
	Email        string `toml:"email"`
	Label        string `toml:"label"`
	Name         string `toml:"name"`
	Organization string `toml:"organization"`
}

// AccountConfig is one [[account]] table of the accounts file.
type AccountConfig struct {
	ID          string            `toml:"id"`
	Name        string            `toml:"name"`
	Host        string            `toml:"host"`
	Port        int               `toml:"port"`
	Username    string            `toml:"username"`
	TLS         string            `toml:"tls"`
	PasswordEnv string            `toml:"password_env"`
	Identities  []AccountIdentity `toml:"identity"`
}

// Address returns host:port, filling the port from the TLS mode when unset.
func (a AccountConfig) Address() string {
	port := a.Port
	if port == 0 {
		port = 993
		if a.TLS == TLSStart || a.TLS == TLSNone {
			port = 143
		}
	}
	return fmt.Sprintf("%s:%d", a.Host, port)
}

// Domain converts the account into the engine's account value.
func (a AccountConfig) Domain() domain.Account {
	identities := make([]domain.Identity, 0, len(a.Identities))
	for _, id := range a.Identities {
		identities = append(identities, domain.Identity{
			Email:        id.Email,
			Label:        id.Label,
			Name:         id.Name,
			Organization: id.Organization,
		})
	}
	return domain.Account{
		ID:         a.ID,
		Name:       a.Name,
		Type:       "imap",
		Identities: identities,
	}
}

type accountsFile struct {
	Accounts []AccountConfig `toml:"account"`
}

// LoadAccounts reads and validates the accounts file at path.
func LoadAccounts(path string) ([]AccountConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	return ParseAccounts(data)
}

// ParseAccounts decodes accounts TOML, applying defaults and rejecting incomplete entries.
func ParseAccounts(data []byte) ([]AccountConfig, error) {
	var file accountsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}
	if len(file.Accounts) == 0 {
		return nil, ErrNoAccounts
	}

	seen := make(map[string]bool, len(file.Accounts))
	for i := range file.Accounts {
		acc := &file.Accounts[i]
		if strings.TrimSpace(acc.Host) == "" {
			return nil, fmt.Errorf("account %d: host is required", i+1)
		}
		if strings.TrimSpace(acc.Username) == "" {
			return nil, fmt.Errorf("account %d: username is required", i+1)
		}
		if acc.ID == "" {
			acc.ID = fmt.Sprintf("account%d", i+1)
		}
		if seen[acc.ID] {
			return nil, fmt.Errorf("account %q: duplicate id", acc.ID)
		}
		seen[acc.ID] = true
		if acc.Name == "" {
			acc.Name = acc.Username
		}
		acc.TLS = strings.ToLower(acc.TLS)
		switch acc.TLS {
		case "":
			acc.TLS = TLSImplicit
		case TLSImplicit, TLSStart, TLSNone:
		default:
			return nil, fmt.Errorf("account %q: invalid tls mode %q: must be one of: none, starttls, tls", acc.ID, acc.TLS)
		}
		if acc.Port < 0 || acc.Port > 65535 {
			return nil, fmt.Errorf("account %q: invalid port %d", acc.ID, acc.Port)
		}
	}
	return file.Accounts, nil
}
