package app

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cristianoliveira/mailnotify/internal/config"
	"github.com/cristianoliveira/mailnotify/internal/credential"
)

// PasswordClient stores account passwords.
type PasswordClient interface {
	Set(key, value string) error
	Delete(key string) error
}

// AccountsUseCase lists accounts and manages their stored passwords.
type AccountsUseCase struct {
	accounts []config.AccountConfig
	client   PasswordClient
}

// NewAccountsUseCase creates an accounts use-case over the configured accounts.
func NewAccountsUseCase(accounts []config.AccountConfig, client PasswordClient) *AccountsUseCase {
	if client == nil {
		panic("NewAccountsUseCase: client dependency cannot be nil")
	}
	return &AccountsUseCase{accounts: accounts, client: client}
}

// List writes one line per account.
func (u *AccountsUseCase) List(out io.Writer) error {
	if len(u.accounts) == 0 {
		_, err := fmt.Fprintln(out, "No accounts configured")
		return err
	}
	for _, acc := range u.accounts {
		source := "keyring"
		if acc.PasswordEnv != "" {
			source = "$" + acc.PasswordEnv
		}
		line := fmt.Sprintf("%s\t%s@%s\t%s\tpassword: %s", acc.ID, acc.Username, acc.Address(), acc.TLS, source)
		if len(acc.Identities) > 0 {
			emails := make([]string, 0, len(acc.Identities))
			for _, id := range acc.Identities {
				emails = append(emails, id.Email)
			}
			line += "\tidentities: " + strings.Join(emails, ", ")
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func (u *AccountsUseCase) find(id string) (config.AccountConfig, error) {
	for _, acc := range u.accounts {
		if acc.ID == id {
			return acc, nil
		}
	}
	return config.AccountConfig{}, fmt.Errorf("unknown account %q", id)
}

// SetPassword stores password for the account with the given id.
func (u *AccountsUseCase) SetPassword(accountID, password string) error {
	if _, err := u.find(accountID); err != nil {
		return err
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return errors.New("password must not be empty")
	}
	if err := u.client.Set(credential.Key(accountID), password); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}
	return nil
}

// DeletePassword removes the stored password of the account.
func (u *AccountsUseCase) DeletePassword(accountID string) error {
	if _, err := u.find(accountID); err != nil {
		return err
	}
	if err := u.client.Delete(credential.Key(accountID)); err != nil {
		return fmt.Errorf("failed to delete password: %w", err)
	}
	return nil
}
