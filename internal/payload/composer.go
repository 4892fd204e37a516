package payload

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/ports"
	"github.com/cristianoliveira/mailnotify/internal/retry"
)

// StartAttempts bounds the unread check on session start. The mail index may not be
// queryable for a short while after the client starts.
const StartAttempts = 10

// ErrMissingMessage is returned when an extended payload for a message event has no message.
var ErrMissingMessage = errors.New("payload: message required for event")

// SeenCounter reports how many messages are tracked for a folder.
type SeenCounter interface {
	Size(key domain.FolderKey) int
}

// Request describes one composition.
type Request struct {
	Mode    domain.OperatingMode
	Event   domain.EventKind
	Folders []domain.WatchedFolder
	// Message is the triggering message; nil for EventStart.
	Message *domain.Message
}

// Composer assembles mode-appropriate payloads.
type Composer struct {
	mail  ports.MailClient
	seen  SeenCounter
	retry *retry.Scheduler
}

// NewComposer creates a Composer. sched paces the session start unread check.
func NewComposer(mail ports.MailClient, seen SeenCounter, sched *retry.Scheduler) *Composer {
	return &Composer{mail: mail, seen: seen, retry: sched}
}

// Compose builds the payload for req.
func (c *Composer) Compose(ctx context.Context, req Request) (Payload, error) {
	switch req.Mode {
	case domain.ModeSimple:
		return c.composeSimple(ctx, req)
	case domain.ModeExtended:
		return c.composeExtended(ctx, req)
	default:
		return Payload{}, fmt.Errorf("payload: unsupported mode %q", req.Mode)
	}
}

func (c *Composer) composeSimple(ctx context.Context, req Request) (Payload, error) {
	switch req.Event {
	case domain.EventNew:
		return Bool(true), nil
	case domain.EventRead, domain.EventDeleted:
		unread, err := c.HasUnread(ctx, req.Folders)
		if err != nil {
			return Payload{}, err
		}
		return Bool(unread), nil
	case domain.EventStart:
		unread, err := retry.Do(ctx, c.retry, StartAttempts, func(ctx context.Context) (bool, error) {
			return c.HasUnread(ctx, req.Folders)
		})
		if err != nil {
			return Payload{}, err
		}
		return Bool(unread), nil
	default:
		return Payload{}, fmt.Errorf("payload: unsupported event %q", req.Event)
	}
}

// HasUnread reports whether any watched folder holds an unread message.
func (c *Composer) HasUnread(ctx context.Context, folders []domain.WatchedFolder) (bool, error) {
	for _, folder := range folders {
		unread, err := c.folderHasUnread(ctx, folder.ID)
		if err != nil {
			return false, fmt.Errorf("payload: list unread in %s: %w", folder.Key(), err)
		}
		if unread {
			return true, nil
		}
	}
	return false, nil
}

func (c *Composer) folderHasUnread(ctx context.Context, folderID string) (bool, error) {
	if checker, ok := c.mail.(ports.UnreadChecker); ok {
		return checker.HasUnread(ctx, folderID)
	}
	msgs, err := c.mail.ListUnread(ctx, folderID)
	return len(msgs) > 0, err
}

func (c *Composer) composeExtended(ctx context.Context, req Request) (Payload, error) {
	if !req.Event.IsValid() {
		return Payload{}, fmt.Errorf("payload: unsupported event %q", req.Event)
	}

	accounts, err := c.mail.ListAccounts(ctx)
	if err != nil {
		return Payload{}, fmt.Errorf("payload: list accounts: %w", err)
	}
	snap := &Snapshot{
		Accounts: make(map[string]AccountData, len(accounts)),
		Folders:  make([]FolderData, 0, len(req.Folders)),
		Event:    req.Event,
	}
	for _, account := range accounts {
		identities := make([]IdentityData, 0, len(account.Identities))
		for _, id := range account.Identities {
			identities = append(identities, IdentityData{
				Email:        id.Email,
				Label:        id.Label,
				Name:         id.Name,
				Organization: id.Organization,
			})
		}
		snap.Accounts[account.ID] = AccountData{
			Identities: identities,
			Name:       account.Name,
			Type:       account.Type,
		}
	}

	for _, folder := range req.Folders {
		info, err := c.mail.GetFolderInfo(ctx, folder.ID)
		if err != nil {
			return Payload{}, fmt.Errorf("payload: folder info for %s: %w", folder.Key(), err)
		}
		snap.Folders = append(snap.Folders, FolderData{
			AccountID:          folder.AccountID,
			Favorite:           info.Favorite,
			Name:               folder.Name,
			Path:               folder.Path,
			TotalMessageCount:  info.TotalMessageCount,
			Type:               folder.Type,
			UnreadMessageCount: info.UnreadMessageCount,
			SeenMessageCount:   c.seen.Size(folder.Key()),
		})
	}

	if req.Event != domain.EventStart {
		if req.Message == nil {
			return Payload{}, fmt.Errorf("%w %q", ErrMissingMessage, req.Event)
		}
		snap.Message = newMessageData(*req.Message)
	}
	return FromSnapshot(snap), nil
}
