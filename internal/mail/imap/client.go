// Package imap implements the mail client and event source over IMAP accounts.
package imap

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"slices"
	"strconv"
	"sync"

	giimap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/charset"

	"github.com/cristianoliveira/mailnotify/internal/config"
	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/ports"
)

// DefaultPageSize bounds how many messages one ListMessages page holds.
const DefaultPageSize = 200

var (
	// ErrUnknownAccount is returned for a folder of an account missing from the accounts file.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrInvalidFolderID is returned for ids not shaped as "account:/path".
	ErrInvalidFolderID = errors.New("invalid folder id")
)

// PasswordSource resolves account passwords.
type PasswordSource interface {
	Password(acc config.AccountConfig) (string, error)
}

// Dialer opens an unauthenticated connection to the account's server.
type Dialer func(acc config.AccountConfig, opts *imapclient.Options) (*imapclient.Client, error)

// DialAccount connects according to the account's TLS mode.
func DialAccount(acc config.AccountConfig, opts *imapclient.Options) (*imapclient.Client, error) {
	addr := acc.Address()
	var (
		c   *imapclient.Client
		err error
	)
	switch acc.TLS {
	case config.TLSStart:
		c, err = imapclient.DialStartTLS(addr, opts)
	case config.TLSNone:
		c, err = imapclient.DialInsecure(addr, opts)
	default:
		c, err = imapclient.DialTLS(addr, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	return c, nil
}

type account struct {
	cfg config.AccountConfig

	mu   sync.Mutex
	conn *imapclient.Client
}

// Client answers mail queries against the configured IMAP accounts. One connection per
// account is kept open and reused; it is redialed after a connection failure.
type Client struct {
	order     []string
	accounts  map[string]*account
	passwords PasswordSource
	dial      Dialer
	pageSize  int
}

var (
	_ ports.MailClient    = (*Client)(nil)
	_ ports.UnreadChecker = (*Client)(nil)
	_ Source              = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the network dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithPageSize sets the ListMessages page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates a Client for accounts.
func NewClient(accounts []config.AccountConfig, passwords PasswordSource, opts ...Option) *Client {
	c := &Client{
		accounts:  make(map[string]*account, len(accounts)),
		passwords: passwords,
		dial:      DialAccount,
		pageSize:  DefaultPageSize,
	}
	for _, acc := range accounts {
		c.order = append(c.order, acc.ID)
		c.accounts[acc.ID] = &account{cfg: acc}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close logs out of every open connection.
func (c *Client) Close() error {
	var errs []error
	for _, id := range c.order {
		acc := c.accounts[id]
		acc.mu.Lock()
		if acc.conn != nil {
			if err := acc.conn.Logout().Wait(); err != nil {
				errs = append(errs, fmt.Errorf("logout %s: %w", id, err))
			}
			_ = acc.conn.Close()
			acc.conn = nil
		}
		acc.mu.Unlock()
	}
	return errors.Join(errs...)
}

// ListAccounts returns the configured accounts in file order.
func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	out := make([]domain.Account, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.accounts[id].cfg.Domain())
	}
	return out, nil
}

// GetFolderInfo returns message counters for the folder.
func (c *Client) GetFolderInfo(ctx context.Context, folderID string) (domain.FolderInfo, error) {
	accountID, mailbox, ok := splitFolderID(folderID)
	if !ok {
		return domain.FolderInfo{}, fmt.Errorf("%w: %q", ErrInvalidFolderID, folderID)
	}
	var info domain.FolderInfo
	err := c.withSession(ctx, accountID, func(conn *imapclient.Client) error {
		status, err := conn.Status(mailbox, &giimap.StatusOptions{NumMessages: true, NumUnseen: true}).Wait()
		if err != nil {
			return fmt.Errorf("status %s: %w", mailbox, err)
		}
		if status.NumMessages != nil {
			info.TotalMessageCount = int(*status.NumMessages)
		}
		if status.NumUnseen != nil {
			info.UnreadMessageCount = int(*status.NumUnseen)
		}
		return nil
	})
	return info, err
}

// ListUnread returns the unread messages of the folder.
func (c *Client) ListUnread(ctx context.Context, folderID string) ([]domain.Message, error) {
	accountID, mailbox, ok := splitFolderID(folderID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFolderID, folderID)
	}
	folder := domain.Folder{AccountID: accountID, ID: folderID, Name: mailbox, Path: "/" + mailbox}
	var msgs []domain.Message
	err := c.withSession(ctx, accountID, func(conn *imapclient.Client) error {
		uids, err := searchUIDs(conn, mailbox, unreadCriteria())
		if err != nil {
			return err
		}
		msgs, err = fetchMessages(conn, uids, folder)
		return err
	})
	return msgs, err
}

// HasUnread reports whether the folder holds an unread message, searching UIDs only.
func (c *Client) HasUnread(ctx context.Context, folderID string) (bool, error) {
	accountID, mailbox, ok := splitFolderID(folderID)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrInvalidFolderID, folderID)
	}
	var unread bool
	err := c.withSession(ctx, accountID, func(conn *imapclient.Client) error {
		uids, err := searchUIDs(conn, mailbox, unreadCriteria())
		unread = len(uids) > 0
		return err
	})
	return unread, err
}

// ListMessages returns one page of the folder. The token is the offset of the page.
func (c *Client) ListMessages(ctx context.Context, folder domain.WatchedFolder, pageToken string) (domain.MessagePage, error) {
	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return domain.MessagePage{}, fmt.Errorf("invalid page token %q", pageToken)
		}
		offset = n
	}

	var page domain.MessagePage
	err := c.withSession(ctx, folder.AccountID, func(conn *imapclient.Client) error {
		uids, err := searchUIDs(conn, mailboxName(folder.Path), &giimap.SearchCriteria{})
		if err != nil {
			return err
		}
		if offset >= len(uids) {
			return nil
		}
		end := min(offset+c.pageSize, len(uids))
		page.Messages, err = fetchMessages(conn, uids[offset:end], folderOf(folder))
		if err != nil {
			return err
		}
		if end < len(uids) {
			page.NextToken = strconv.Itoa(end)
		}
		return nil
	})
	return page, err
}

// Snapshot returns the UIDVALIDITY of the folder and the read, junk and flagged state of
// every message in it.
func (c *Client) Snapshot(ctx context.Context, folder domain.WatchedFolder) (FolderSnapshot, error) {
	snap := FolderSnapshot{Messages: make(map[string]MessageState)}
	err := c.withSession(ctx, folder.AccountID, func(conn *imapclient.Client) error {
		mailbox := mailboxName(folder.Path)
		sel, err := selectMailbox(conn, mailbox)
		if err != nil {
			return err
		}
		snap.UIDValidity = sel.UIDValidity
		uids, err := uidSearch(conn, mailbox, &giimap.SearchCriteria{})
		if err != nil || len(uids) == 0 {
			return err
		}
		bufs, err := conn.Fetch(giimap.UIDSetNum(uids...), &giimap.FetchOptions{UID: true, Flags: true}).Collect()
		if err != nil {
			return fmt.Errorf("fetch flags: %w", err)
		}
		for _, buf := range bufs {
			snap.Messages[strconv.FormatUint(uint64(buf.UID), 10)] = stateFromFlags(buf.Flags)
		}
		return nil
	})
	return snap, err
}

// Messages fetches the given message ids from the folder. Unknown ids are skipped.
func (c *Client) Messages(ctx context.Context, folder domain.WatchedFolder, ids []string) ([]domain.Message, error) {
	uids := make([]giimap.UID, 0, len(ids))
	for _, id := range ids {
		if uid, ok := parseUID(id); ok {
			uids = append(uids, uid)
		}
	}
	var msgs []domain.Message
	err := c.withSession(ctx, folder.AccountID, func(conn *imapclient.Client) error {
		if _, err := selectMailbox(conn, mailboxName(folder.Path)); err != nil {
			return err
		}
		var err error
		msgs, err = fetchMessages(conn, uids, folderOf(folder))
		return err
	})
	return msgs, err
}

// withSession runs fn on the account's connection, dialing and logging in when needed.
// Protocol errors keep the connection; anything else drops it. The connection is closed
// when ctx ends mid-command, which unblocks the pending command.
func (c *Client) withSession(ctx context.Context, accountID string, fn func(*imapclient.Client) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	acc, ok := c.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAccount, accountID)
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.conn == nil {
		conn, err := c.login(ctx, acc.cfg)
		if err != nil {
			return fmt.Errorf("imap %s: %w", accountID, err)
		}
		acc.conn = conn
	}

	conn := acc.conn
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	err := fn(conn)
	if !stop() {
		acc.conn = nil
		return fmt.Errorf("imap %s: %w", accountID, ctx.Err())
	}
	var protoErr *giimap.Error
	if err != nil && !errors.As(err, &protoErr) {
		_ = conn.Close()
		acc.conn = nil
	}
	if err != nil {
		return fmt.Errorf("imap %s: %w", accountID, err)
	}
	return nil
}

func (c *Client) login(ctx context.Context, acc config.AccountConfig) (*imapclient.Client, error) {
	password, err := c.passwords.Password(acc)
	if err != nil {
		return nil, err
	}
	conn, err := c.dial(acc, &imapclient.Options{
		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
	})
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	err = conn.Login(acc.Username, password).Wait()
	if !stop() {
		return nil, fmt.Errorf("login %s: %w", acc.Username, ctx.Err())
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("authentication failed for %s: %w", acc.Username, err)
	}
	return conn, nil
}

func unreadCriteria() *giimap.SearchCriteria {
	return &giimap.SearchCriteria{NotFlag: []giimap.Flag{giimap.FlagSeen, giimap.FlagDeleted}}
}

// searchUIDs selects mailbox read-only and returns the matching UIDs in ascending order.
func searchUIDs(conn *imapclient.Client, mailbox string, criteria *giimap.SearchCriteria) ([]giimap.UID, error) {
	if _, err := selectMailbox(conn, mailbox); err != nil {
		return nil, err
	}
	return uidSearch(conn, mailbox, criteria)
}

func selectMailbox(conn *imapclient.Client, mailbox string) (*giimap.SelectData, error) {
	data, err := conn.Select(mailbox, &giimap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", mailbox, err)
	}
	return data, nil
}

// uidSearch searches the selected mailbox.
func uidSearch(conn *imapclient.Client, mailbox string, criteria *giimap.SearchCriteria) ([]giimap.UID, error) {
	data, err := conn.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", mailbox, err)
	}
	uids := data.AllUIDs()
	slices.Sort(uids)
	return uids, nil
}

func fetchMessages(conn *imapclient.Client, uids []giimap.UID, folder domain.Folder) ([]domain.Message, error) {
	if len(uids) == 0 {
		return []domain.Message{}, nil
	}
	bufs, err := conn.Fetch(giimap.UIDSetNum(uids...), &giimap.FetchOptions{
		UID:          true,
		Flags:        true,
		Envelope:     true,
		InternalDate: true,
		RFC822Size:   true,
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	msgs := make([]domain.Message, 0, len(bufs))
	for _, buf := range bufs {
		msgs = append(msgs, messageFromBuffer(buf, folder))
	}
	slices.SortFunc(msgs, func(a, b domain.Message) int { return compareIDs(a.ID, b.ID) })
	return msgs, nil
}
