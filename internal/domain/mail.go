// Package domain holds the mail notification value types shared by the engine.
package domain

import "time"

// FolderKey identifies per-folder engine state. It is stable across restarts.
type FolderKey struct {
	AccountID string
	Path      string
}

// String renders the key as account id followed by path.
func (k FolderKey) String() string {
	return k.AccountID + k.Path
}

// FolderID builds the mail client identifier of a folder.
func FolderID(accountID, path string) string {
	return accountID + ":" + path
}

// WatchedFolder is a persisted folder entry the engine monitors.
type WatchedFolder struct {
	AccountID string `json:"accountId"`
	Path      string `json:"path"`
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Key returns the folder identity key.
func (f WatchedFolder) Key() FolderKey {
	return FolderKey{AccountID: f.AccountID, Path: f.Path}
}

// Folder is a mail folder as reported by the mail client.
type Folder struct {
	AccountID string
	ID        string
	Name      string
	Path      string
	Type      string
}

// Key returns the folder identity key.
func (f Folder) Key() FolderKey {
	return FolderKey{AccountID: f.AccountID, Path: f.Path}
}

// FolderInfo carries the mail client's counters for one folder.
type FolderInfo struct {
	Favorite           bool
	TotalMessageCount  int
	UnreadMessageCount int
}

// Message is a mail message header as seen by the mail client.
type Message struct {
	// ID is the client-side identifier, unique within its folder.
	ID string
	// HeaderMessageID is the RFC 5322 Message-ID.
	HeaderMessageID string
	Folder          Folder
	Author          string
	Recipients      []string
	CCList          []string
	BCCList         []string
	Date            time.Time
	Flagged         bool
	Read            bool
	Junk            bool
	JunkScore       int
	HeadersOnly     bool
	Size            int64
	Subject         string
	Tags            []string
}

// Identity is a sending identity of an account.
type Identity struct {
	Email        string
	Label        string
	Name         string
	Organization string
}

// Account is a configured mail account. It never carries credentials.
type Account struct {
	ID         string
	Name       string
	Type       string
	Identities []Identity
}

// MessagePage is one page of a folder listing. An empty NextToken ends the listing.
type MessagePage struct {
	Messages  []Message
	NextToken string
}

// Options is the persisted engine configuration read on every event.
type Options struct {
	Mode             OperatingMode
	Transport        TransportMode
	Folders          []WatchedFolder
	OptionsPageShown bool
}

// DefaultOptions returns the options used when nothing has been persisted.
func DefaultOptions() Options {
	return Options{
		Mode:      ModeSimple,
		Transport: TransportConnectionless,
		Folders:   []WatchedFolder{},
	}
}

// IsWatched reports whether the folder identified by key is in the watch list.
func (o Options) IsWatched(key FolderKey) bool {
	for _, f := range o.Folders {
		if f.Key() == key {
			return true
		}
	}
	return false
}

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryRecord is one journal entry for a delivery attempt.
type DeliveryRecord struct {
	ID        string
	Timestamp time.Time
	Event     EventKind
	Mode      OperatingMode
	Transport TransportMode
	Status    DeliveryStatus
	Error     string
}
