package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/cristianoliveira/mailnotify/internal/app"
	"github.com/cristianoliveira/mailnotify/internal/colors"
	"github.com/cristianoliveira/mailnotify/internal/config"
	"github.com/spf13/cobra"
)

const accountsCommandLong = `List IMAP accounts and manage their passwords.

Accounts are read from accounts_file (default: $XDG_CONFIG_HOME/mailnotify/accounts.toml).
Passwords live in the system keyring unless an account sets password_env.

USAGE:
    mailnotify accounts
    mailnotify accounts password set <account-id>   (reads the password from stdin)
    mailnotify accounts password delete <account-id>`

// NewAccountsCmd creates the accounts command with explicit dependencies.
func NewAccountsCmd(load func() ([]config.AccountConfig, error), passwords func() app.PasswordClient) *cobra.Command {
	if load == nil || passwords == nil {
		panic("NewAccountsCmd: dependencies cannot be nil")
	}
	useCase := func() (*app.AccountsUseCase, error) {
		accounts, err := load()
		if err != nil && !errors.Is(err, config.ErrNoAccounts) {
			return nil, err
		}
		return app.NewAccountsUseCase(accounts, passwords()), nil
	}

	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts and manage passwords",
		Long:  accountsCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := useCase()
			if err != nil {
				return err
			}
			return uc.List(cmd.OutOrStdout())
		},
	}

	passwordCmd := &cobra.Command{
		Use:   "password",
		Short: "Manage stored account passwords",
		Long:  accountsCommandLong,
	}
	passwordCmd.AddCommand(
		&cobra.Command{
			Use:   "set <account-id>",
			Short: "Store the password read from stdin",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				uc, err := useCase()
				if err != nil {
					return err
				}
				password, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				if err := uc.SetPassword(args[0], password); err != nil {
					return err
				}
				colors.Success(fmt.Sprintf("password stored for %s", args[0]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <account-id>",
			Short: "Remove the stored password",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				uc, err := useCase()
				if err != nil {
					return err
				}
				if err := uc.DeletePassword(args[0]); err != nil {
					return err
				}
				colors.Success(fmt.Sprintf("password removed for %s", args[0]))
				return nil
			},
		},
	)
	accountsCmd.AddCommand(passwordCmd)
	return accountsCmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}

// Passwords returns the keyring-backed password store.
func (d *runtimeDeps) Passwords() app.PasswordClient {
	return d.Credentials()
}
