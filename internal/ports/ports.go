// Package ports defines application boundary interfaces used by the notification engine.
package ports

import (
	"context"

	"github.com/cristianoliveira/mailnotify/internal/domain"
)

// MessageLister lists a folder one page at a time.
// An empty token requests the first page.
type MessageLister interface {
	ListMessages(ctx context.Context, folder domain.WatchedFolder, pageToken string) (domain.MessagePage, error)
}

// MailClient defines the mail client queries consumed by the engine.
type MailClient interface {
	MessageLister
	ListUnread(ctx context.Context, folderID string) ([]domain.Message, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetFolderInfo(ctx context.Context, folderID string) (domain.FolderInfo, error)
}

// UnreadChecker is implemented by mail clients that can tell whether a folder holds unread
// messages without fetching them.
type UnreadChecker interface {
	HasUnread(ctx context.Context, folderID string) (bool, error)
}

// OptionsReader reads the persisted engine options.
type OptionsReader interface {
	Load(ctx context.Context) (domain.Options, error)
}

// OptionsOpener presents the options to the user when they were never reviewed.
type OptionsOpener interface {
	OpenOptions(ctx context.Context) error
}

// Conn is a long-lived channel to the external consumer.
type Conn interface {
	Post(ctx context.Context, payload []byte) error
	Close() error
}

// Transport reaches the external consumer identified by name.
type Transport interface {
	// SendOnce delivers exactly one payload over a fresh one-shot exchange.
	SendOnce(ctx context.Context, name string, payload []byte) error
	// Connect opens a persistent channel.
	Connect(ctx context.Context, name string) (Conn, error)
}

// DeliveryJournal records delivery attempts.
type DeliveryJournal interface {
	RecordDelivery(ctx context.Context, rec domain.DeliveryRecord) error
}
