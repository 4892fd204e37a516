// Package mocks provides testify mocks for the engine ports.
package mocks

import (
	"context"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/ports"
	"github.com/stretchr/testify/mock"
)

// MailClient is a mock implementation of ports.MailClient.
//
// Example usage:
//
//	client := new(mocks.MailClient)
//	client.On("ListUnread", mock.Anything, "acc1:/INBOX").Return([]domain.Message{}, nil)
type MailClient struct {
	mock.Mock
}

var _ ports.MailClient = (*MailClient)(nil)

// ListMessages returns a mocked page.
func (m *MailClient) ListMessages(ctx context.Context, folder domain.WatchedFolder, pageToken string) (domain.MessagePage, error) {
	args := m.Called(ctx, folder, pageToken)
	return args.Get(0).(domain.MessagePage), args.Error(1)
}

// ListUnread returns mocked unread messages.
func (m *MailClient) ListUnread(ctx context.Context, folderID string) ([]domain.Message, error) {
	args := m.Called(ctx, folderID)
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.Error(1)
}

// ListAccounts returns mocked accounts.
func (m *MailClient) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]domain.Account)
	return accounts, args.Error(1)
}

// GetFolderInfo returns mocked folder counters.
func (m *MailClient) GetFolderInfo(ctx context.Context, folderID string) (domain.FolderInfo, error) {
	args := m.Called(ctx, folderID)
	return args.Get(0).(domain.FolderInfo), args.Error(1)
}

// Transport is a mock implementation of ports.Transport.
type Transport struct {
	mock.Mock
}

var _ ports.Transport = (*Transport)(nil)

// SendOnce records a one-shot delivery.
func (m *Transport) SendOnce(ctx context.Context, name string, payload []byte) error {
	args := m.Called(ctx, name, payload)
	return args.Error(0)
}

// Connect returns a mocked connection.
func (m *Transport) Connect(ctx context.Context, name string) (ports.Conn, error) {
	args := m.Called(ctx, name)
	conn, _ := args.Get(0).(ports.Conn)
	return conn, args.Error(1)
}

// Conn is a mock implementation of ports.Conn.
type Conn struct {
	mock.Mock
}

var _ ports.Conn = (*Conn)(nil)

// Post records a payload written to the connection.
func (m *Conn) Post(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// Close records the connection teardown.
func (m *Conn) Close() error {
	args := m.Called()
	return args.Error(0)
}
