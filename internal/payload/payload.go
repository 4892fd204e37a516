// Package payload builds the notification payloads sent to the external consumer.
package payload

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/domain"
)

// Payload is either a bare boolean (simple mode) or a Snapshot (extended mode).
type Payload struct {
	flag     *bool
	snapshot *Snapshot
}

// Bool wraps a simple-mode boolean payload.
func Bool(v bool) Payload {
	return Payload{flag: &v}
}

// FromSnapshot wraps an extended-mode snapshot payload.
func FromSnapshot(s *Snapshot) Payload {
	return Payload{snapshot: s}
}

// Bool returns the boolean value and whether the payload is a boolean.
func (p Payload) Bool() (bool, bool) {
	if p.flag == nil {
		return false, false
	}
	return *p.flag, true
}

// Snapshot returns the snapshot and whether the payload is a snapshot.
func (p Payload) Snapshot() (*Snapshot, bool) {
	return p.snapshot, p.snapshot != nil
}

// MarshalJSON encodes the payload as exactly a boolean or a snapshot object.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch {
	case p.flag != nil:
		return json.Marshal(*p.flag)
	case p.snapshot != nil:
		return json.Marshal(p.snapshot)
	default:
		return nil, errors.New("payload: empty payload")
	}
}

// Snapshot is the self-contained extended-mode payload.
type Snapshot struct {
	Accounts map[string]AccountData `json:"accounts"`
	Folders  []FolderData           `json:"folders"`
	Event    domain.EventKind       `json:"event"`
	Message  *MessageData           `json:"message"`
}

// IdentityData is the public part of an account identity.
type IdentityData struct {
	Email        string `json:"email"`
	Label        string `json:"label"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
}

// AccountData describes an account without credentials.
type AccountData struct {
	Identities []IdentityData `json:"identities"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
}

// FolderData describes a watched folder.
type FolderData struct {
	AccountID          string `json:"accountId"`
	Favorite           bool   `json:"favorite"`
	Name               string `json:"name"`
	Path               string `json:"path"`
	TotalMessageCount  int    `json:"totalMessageCount"`
	Type               string `json:"type"`
	UnreadMessageCount int    `json:"unreadMessageCount"`
	SeenMessageCount   int    `json:"seenMessageCount"`
}

// MessageFolderData identifies the folder a message lives in.
type MessageFolderData struct {
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Type      string `json:"type"`
}

// MessageData describes the message that triggered the notification.
type MessageData struct {
	Author      string            `json:"author"`
	Recipients  []string          `json:"recipients"`
	CCList      []string          `json:"ccList"`
	BCCList     []string          `json:"bccList"`
	Date        time.Time         `json:"date"`
	Flagged     bool              `json:"flagged"`
	MessageID   string            `json:"messageId"`
	HeadersOnly bool              `json:"headersOnly"`
	Junk        bool              `json:"junk"`
	JunkScore   int               `json:"junkScore"`
	Read        bool              `json:"read"`
	Size        int64             `json:"size"`
	Subject     string            `json:"subject"`
	Tags        []string          `json:"tags"`
	Folder      MessageFolderData `json:"folder"`
}

func newMessageData(m domain.Message) *MessageData {
	return &MessageData{
		Author:      m.Author,
		Recipients:  nonNil(m.Recipients),
		CCList:      nonNil(m.CCList),
		BCCList:     nonNil(m.BCCList),
		Date:        m.Date,
		Flagged:     m.Flagged,
		MessageID:   m.HeaderMessageID,
		HeadersOnly: m.HeadersOnly,
		Junk:        m.Junk,
		JunkScore:   m.JunkScore,
		Read:        m.Read,
		Size:        m.Size,
		Subject:     m.Subject,
		Tags:        nonNil(m.Tags),
		Folder: MessageFolderData{
			AccountID: m.Folder.AccountID,
			Name:      m.Folder.Name,
			Path:      m.Folder.Path,
			Type:      m.Folder.Type,
		},
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
