package imap

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	giimap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/cristianoliveira/mailnotify/internal/domain"
)

// Keyword flags used by mail clients to mark spam.
const (
	flagJunk    giimap.Flag = "$Junk"
	flagNotJunk giimap.Flag = "$NotJunk"
)

// junkScore mirrors the 0-100 scale used by desktop clients.
const junkScore = 100

// MessageState is the part of a message the watcher compares between polls.
type MessageState struct {
	Read    bool
	Junk    bool
	Flagged bool
}

// FolderSnapshot is the state of a folder at one poll. Message ids of two snapshots are only
// comparable when their UIDValidity matches.
type FolderSnapshot struct {
	UIDValidity uint32
	Messages    map[string]MessageState
}

func stateFromFlags(flags []giimap.Flag) MessageState {
	return MessageState{
		Read:    slices.Contains(flags, giimap.FlagSeen),
		Junk:    slices.Contains(flags, flagJunk),
		Flagged: slices.Contains(flags, giimap.FlagFlagged),
	}
}

// tagsFromFlags keeps the keyword flags that are not system or junk markers.
func tagsFromFlags(flags []giimap.Flag) []string {
	tags := []string{}
	for _, f := range flags {
		if strings.HasPrefix(string(f), `\`) || f == flagJunk || f == flagNotJunk {
			continue
		}
		tags = append(tags, string(f))
	}
	return tags
}

func formatAddress(a giimap.Address) string {
	addr := &mail.Address{Name: a.Name, Address: a.Addr()}
	if a.Name == "" {
		return addr.Address
	}
	return addr.String()
}

func formatAddresses(list []giimap.Address) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, formatAddress(a))
	}
	return out
}

// messageFromBuffer converts fetched message data into the engine message.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer, folder domain.Folder) domain.Message {
	state := stateFromFlags(buf.Flags)
	msg := domain.Message{
		ID:         strconv.FormatUint(uint64(buf.UID), 10),
		Folder:     folder,
		Recipients: []string{},
		CCList:     []string{},
		BCCList:    []string{},
		Date:       buf.InternalDate,
		Flagged:    state.Flagged,
		Read:       state.Read,
		Junk:       state.Junk,
		Size:       buf.RFC822Size,
		Tags:       tagsFromFlags(buf.Flags),
	}
	if state.Junk {
		msg.JunkScore = junkScore
	}

	if env := buf.Envelope; env != nil {
		msg.HeaderMessageID = env.MessageID
		msg.Subject = env.Subject
		if !env.Date.IsZero() {
			msg.Date = env.Date
		}
		if len(env.From) > 0 {
			msg.Author = formatAddress(env.From[0])
		}
		msg.Recipients = formatAddresses(env.To)
		msg.CCList = formatAddresses(env.Cc)
		msg.BCCList = formatAddresses(env.Bcc)
	}
	return msg
}

func parseUID(id string) (giimap.UID, bool) {
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return giimap.UID(n), true
}

// compareIDs orders message ids by UID.
func compareIDs(a, b string) int {
	x, _ := strconv.ParseUint(a, 10, 32)
	y, _ := strconv.ParseUint(b, 10, 32)
	return cmp.Compare(x, y)
}

// splitFolderID splits "account:/path" into the account id and the IMAP mailbox name.
func splitFolderID(id string) (accountID, mailbox string, ok bool) {
	accountID, path, ok := strings.Cut(id, ":")
	if !ok || accountID == "" || path == "" {
		return "", "", false
	}
	return accountID, mailboxName(path), true
}

func mailboxName(path string) string {
	return strings.TrimPrefix(path, "/")
}

func folderOf(f domain.WatchedFolder) domain.Folder {
	id := f.ID
	if id == "" {
		id = domain.FolderID(f.AccountID, f.Path)
	}
	return domain.Folder{AccountID: f.AccountID, ID: id, Name: f.Name, Path: f.Path, Type: f.Type}
}
