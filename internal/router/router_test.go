package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/delivery"
	"github.com/cristianoliveira/mailnotify/internal/domain"
	apperrors "github.com/cristianoliveira/mailnotify/internal/errors"
	"github.com/cristianoliveira/mailnotify/internal/payload"
	"github.com/cristianoliveira/mailnotify/internal/ports"
	"github.com/cristianoliveira/mailnotify/internal/ports/mocks"
	"github.com/cristianoliveira/mailnotify/internal/retry"
	"github.com/cristianoliveira/mailnotify/internal/seen"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	inboxFolder = domain.Folder{AccountID: "acc1", ID: "acc1:/INBOX", Name: "Inbox", Path: "/INBOX", Type: "inbox"}
	spamFolder  = domain.Folder{AccountID: "acc1", ID: "acc1:/Spam", Name: "Spam", Path: "/Spam", Type: "junk"}
	inbox       = domain.WatchedFolder{AccountID: "acc1", Path: "/INBOX", ID: "acc1:/INBOX", Name: "Inbox", Type: "inbox"}
)

type staticOptions struct {
	mu   sync.Mutex
	opts domain.Options
	err  error
}

func (s *staticOptions) Load(context.Context) (domain.Options, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts, s.err
}

func (s *staticOptions) set(fn func(*domain.Options)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.opts)
}

type countingOpener struct{ calls int }

func (o *countingOpener) OpenOptions(context.Context) error {
	o.calls++
	return nil
}

// recordingTransport keeps every payload that reached the consumer.
type recordingTransport struct {
	mu       sync.Mutex
	sent     []string
	conns    []*recordingConn
	sendErr  error
	onceUsed int
}

func (t *recordingTransport) SendOnce(_ context.Context, _ string, p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onceUsed++
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, string(p))
	return nil
}

func (t *recordingTransport) Connect(context.Context, string) (ports.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := &recordingConn{t: t}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *recordingTransport) payloads() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

type recordingConn struct {
	t      *recordingTransport
	posts  int
	closed bool
}

func (c *recordingConn) Post(_ context.Context, p []byte) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.posts++
	c.t.sent = append(c.t.sent, string(p))
	return nil
}

func (c *recordingConn) Close() error {
	c.closed = true
	return nil
}

type memoryJournal struct {
	records []domain.DeliveryRecord
}

func (j *memoryJournal) RecordDelivery(_ context.Context, rec domain.DeliveryRecord) error {
	j.records = append(j.records, rec)
	return nil
}

type harness struct {
	router    *Router
	options   *staticOptions
	opener    *countingOpener
	client    *mocks.MailClient
	registry  *seen.Registry
	transport *recordingTransport
	journal   *memoryJournal
	errs      *apperrors.Recorder
}

func newHarness(t *testing.T, mode domain.OperatingMode, transport domain.TransportMode, junk domain.JunkPolicy) *harness {
	t.Helper()
	h := &harness{
		options: &staticOptions{opts: domain.Options{
			Mode:             mode,
			Transport:        transport,
			Folders:          []domain.WatchedFolder{inbox},
			OptionsPageShown: true,
		}},
		opener:    &countingOpener{},
		client:    new(mocks.MailClient),
		transport: &recordingTransport{},
		journal:   &memoryJournal{},
		errs:      apperrors.NewRecorder(nil),
	}
	h.registry = seen.NewRegistry(h.client)
	h.router = New(Deps{
		Options:       h.options,
		Opener:        h.opener,
		Registry:      h.registry,
		Composer:      payload.NewComposer(h.client, h.registry, retry.New(0)),
		Channel:       delivery.NewChannel(h.transport, nil),
		Journal:       h.journal,
		Errors:        h.errs,
		JunkOnArrival: junk,
	})
	h.client.On("ListAccounts", mock.Anything).Return([]domain.Account{{ID: "acc1", Name: "Me", Type: "imap"}}, nil).Maybe()
	h.client.On("GetFolderInfo", mock.Anything, inbox.ID).Return(domain.FolderInfo{TotalMessageCount: 10, UnreadMessageCount: 3}, nil).Maybe()
	return h
}

// withFolderContents makes the watched inbox list msgs on rebuild.
func (h *harness) withFolderContents(msgs ...domain.Message) {
	h.client.On("ListMessages", mock.Anything, inbox, "").Return(domain.MessagePage{Messages: msgs}, nil)
}

func message(id string) domain.Message {
	return domain.Message{ID: id, Folder: inboxFolder, Subject: "subject " + id, Date: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func decodeSnapshot(t *testing.T, raw string) map[string]any {
	t.Helper()
	var snap map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	return snap
}

func seenCount(t *testing.T, snap map[string]any) int {
	t.Helper()
	folders, ok := snap["folders"].([]any)
	require.True(t, ok)
	require.Len(t, folders, 1)
	return int(folders[0].(map[string]any)["seenMessageCount"].(float64))
}

func TestSimpleNewMailDeliversTrueOnce(t *testing.T) {
	h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkNotify)

	err := h.router.Handle(context.Background(), domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{message("1")}})
	require.NoError(t, err)

	require.Equal(t, []string{"true"}, h.transport.payloads())
	require.Len(t, h.journal.records, 1)
	require.Equal(t, domain.EventNew, h.journal.records[0].Event)
	require.Equal(t, domain.DeliveryDelivered, h.journal.records[0].Status)
	require.Equal(t, domain.TransportConnectionless, h.journal.records[0].Transport)
}

func TestSimpleNewMailReportsOncePerBatch(t *testing.T) {
	h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkNotify)

	err := h.router.Handle(context.Background(), domain.NewMail{
		Folder:   inboxFolder,
		Messages: []domain.Message{message("1"), message("2"), message("3")},
	})
	require.NoError(t, err)
	require.Len(t, h.transport.payloads(), 1)
}

func TestExtendedNewMailBatchDeliversPerMessage(t *testing.T) {
	h := newHarness(t, domain.ModeExtended, domain.TransportConnectionless, domain.JunkNotify)
	h.withFolderContents()
	ctx := context.Background()

	require.NoError(t, h.router.Start(ctx))
	require.Len(t, h.transport.payloads(), 1)

	batch := domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{message("1"), message("2"), message("3")}}
	require.NoError(t, h.router.Handle(ctx, batch))

	sent := h.transport.payloads()[1:]
	require.Len(t, sent, 3)
	for i, raw := range sent {
		snap := decodeSnapshot(t, raw)
		require.Equal(t, "new", snap["event"])
		require.Equal(t, i+1, seenCount(t, snap))
		require.Equal(t, "subject "+batch.Messages[i].ID, snap["message"].(map[string]any)["subject"])
	}

	// Already tracked messages are not reported again.
	require.NoError(t, h.router.Handle(ctx, batch))
	require.Len(t, h.transport.payloads(), 4)
}

func TestExtendedReadShrinksSeenSet(t *testing.T) {
	h := newHarness(t, domain.ModeExtended, domain.TransportConnectionless, domain.JunkNotify)
	h.withFolderContents(message("1"), message("2"))
	ctx := context.Background()

	require.NoError(t, h.router.Start(ctx))
	key := inbox.Key()
	require.Equal(t, 2, h.registry.Size(key))

	read := message("1")
	read.Read = true
	require.NoError(t, h.router.Handle(ctx, domain.MessageUpdated{Message: read, Changed: domain.ChangedProperties{Read: true}}))

	require.Equal(t, 1, h.registry.Size(key))
	sent := h.transport.payloads()
	require.Len(t, sent, 2)
	snap := decodeSnapshot(t, sent[1])
	require.Equal(t, "read", snap["event"])
	require.Equal(t, 1, seenCount(t, snap))
}

func TestUpdateWithoutReadChangeIsIgnored(t *testing.T) {
	h := newHarness(t, domain.ModeExtended, domain.TransportConnectionless, domain.JunkNotify)
	flagged := true

	err := h.router.Handle(context.Background(), domain.MessageUpdated{
		Message: message("1"),
		Changed: domain.ChangedProperties{Flagged: &flagged},
	})
	require.NoError(t, err)
	require.Empty(t, h.transport.payloads())
}

func TestSimpleReadReportsAggregateUnread(t *testing.T) {
	h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkNotify)
	h.client.On("ListUnread", mock.Anything, inbox.ID).Return([]domain.Message{}, nil)

	err := h.router.Handle(context.Background(), domain.MessageUpdated{Message: message("1"), Changed: domain.ChangedProperties{Read: true}})
	require.NoError(t, err)
	require.Equal(t, []string{"false"}, h.transport.payloads())
}

func TestDeletedMessage(t *testing.T) {
	h := newHarness(t, domain.ModeExtended, domain.TransportConnectionless, domain.JunkNotify)
	h.withFolderContents(message("7"))
	ctx := context.Background()
	require.NoError(t, h.router.Start(ctx))

	require.NoError(t, h.router.Handle(ctx, domain.MessageDeleted{Message: message("7")}))

	require.Equal(t, 0, h.registry.Size(inbox.Key()))
	sent := h.transport.payloads()
	require.Len(t, sent, 2)
	require.Equal(t, "deleted", decodeSnapshot(t, sent[1])["event"])
}

func TestUnwatchedFoldersNeverDeliver(t *testing.T) {
	for _, mode := range []domain.OperatingMode{domain.ModeSimple, domain.ModeExtended} {
		t.Run(string(mode), func(t *testing.T) {
			h := newHarness(t, mode, domain.TransportConnectionless, domain.JunkNotify)
			ctx := context.Background()
			msg := domain.Message{ID: "9", Folder: spamFolder}

			require.NoError(t, h.router.Handle(ctx, domain.NewMail{Folder: spamFolder, Messages: []domain.Message{msg}}))
			require.NoError(t, h.router.Handle(ctx, domain.MessageUpdated{Message: msg, Changed: domain.ChangedProperties{Read: true}}))
			require.NoError(t, h.router.Handle(ctx, domain.MessageDeleted{Message: msg}))

			require.Empty(t, h.transport.payloads())
			require.Empty(t, h.journal.records)
		})
	}
}

func TestJunkOnArrival(t *testing.T) {
	junk := message("13")
	junk.Junk = true

	t.Run("notify", func(t *testing.T) {
		h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, "")
		require.NoError(t, h.router.Handle(context.Background(), domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{junk}}))
		require.Equal(t, []string{"true"}, h.transport.payloads())
	})

	t.Run("skip", func(t *testing.T) {
		h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkSkip)
		require.NoError(t, h.router.Handle(context.Background(), domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{junk}}))
		require.Empty(t, h.transport.payloads())
	})

	t.Run("skip keeps later messages of the batch", func(t *testing.T) {
		h := newHarness(t, domain.ModeExtended, domain.TransportConnectionless, domain.JunkSkip)
		h.withFolderContents()
		ctx := context.Background()
		require.NoError(t, h.router.Start(ctx))

		require.NoError(t, h.router.Handle(ctx, domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{junk, message("14")}}))
		require.Len(t, h.transport.payloads(), 2)
		require.False(t, h.registry.Contains(inbox.Key(), "13"))
		require.True(t, h.registry.Contains(inbox.Key(), "14"))
	})

	t.Run("junk updates are always ignored", func(t *testing.T) {
		h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkNotify)
		require.NoError(t, h.router.Handle(context.Background(), domain.MessageUpdated{Message: junk, Changed: domain.ChangedProperties{Read: true}}))
		require.Empty(t, h.transport.payloads())
	})
}

func TestOptionsChangedReconnectsAndRestarts(t *testing.T) {
	h := newHarness(t, domain.ModeExtended, domain.TransportConnectionBased, domain.JunkNotify)
	h.withFolderContents(message("1"))
	ctx := context.Background()

	require.NoError(t, h.router.Start(ctx))
	require.Len(t, h.transport.conns, 1)
	first := h.transport.conns[0]

	require.NoError(t, h.router.Handle(ctx, domain.ControlMessage{OptionsChanged: true}))

	require.True(t, first.closed)
	require.Len(t, h.transport.conns, 2)
	second := h.transport.conns[1]
	require.Equal(t, 1, second.posts)
	require.Equal(t, "start", decodeSnapshot(t, h.transport.payloads()[1])["event"])
	h.client.AssertNumberOfCalls(t, "ListMessages", 2)

	require.NoError(t, h.router.Handle(ctx, domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{message("2")}}))
	require.Equal(t, 2, second.posts)
	require.Len(t, h.transport.conns, 2)
}

func TestOptionsChangedRebuildsForNewFolders(t *testing.T) {
	h := newHarness(t, domain.ModeExtended, domain.TransportConnectionless, domain.JunkNotify)
	h.withFolderContents(message("1"), message("2"))
	ctx := context.Background()
	require.NoError(t, h.router.Start(ctx))

	h.options.set(func(o *domain.Options) { o.Folders = nil })
	require.NoError(t, h.router.Handle(ctx, domain.ControlMessage{OptionsChanged: true}))

	require.False(t, h.registry.Tracked(inbox.Key()))
	snap := decodeSnapshot(t, h.transport.payloads()[1])
	require.Empty(t, snap["folders"])
}

func TestControlMessagesIgnored(t *testing.T) {
	t.Run("not an options change", func(t *testing.T) {
		h := newHarness(t, domain.ModeExtended, domain.TransportConnectionBased, domain.JunkNotify)
		require.NoError(t, h.router.Handle(context.Background(), domain.ControlMessage{}))
		require.Empty(t, h.transport.payloads())
		h.client.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("simple mode", func(t *testing.T) {
		h := newHarness(t, domain.ModeSimple, domain.TransportConnectionBased, domain.JunkNotify)
		ctx := context.Background()
		require.NoError(t, h.router.Handle(ctx, domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{message("1")}}))
		require.Len(t, h.transport.conns, 1)

		require.NoError(t, h.router.Handle(ctx, domain.ControlMessage{OptionsChanged: true}))
		require.False(t, h.transport.conns[0].closed)
		require.Len(t, h.transport.payloads(), 1)
	})
}

func TestOptionsChangeRunsReconfigureFirst(t *testing.T) {
	h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkNotify)
	calls := 0
	h.router.reconfig = func() {
		calls++
		h.router.SetJunkOnArrival(domain.JunkSkip)
	}
	ctx := context.Background()

	require.NoError(t, h.router.Handle(ctx, domain.ControlMessage{}))
	require.Equal(t, 0, calls)

	require.NoError(t, h.router.Handle(ctx, domain.ControlMessage{OptionsChanged: true}))
	require.Equal(t, 1, calls)

	junk := message("20")
	junk.Junk = true
	require.NoError(t, h.router.Handle(ctx, domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{junk}}))
	require.Empty(t, h.transport.payloads())
}

func TestStartWithoutFoldersDoesNothing(t *testing.T) {
	h := newHarness(t, domain.ModeExtended, domain.TransportConnectionless, domain.JunkNotify)
	h.options.set(func(o *domain.Options) { o.Folders = []domain.WatchedFolder{} })

	require.NoError(t, h.router.Handle(context.Background(), domain.SessionStart{}))

	require.Empty(t, h.transport.payloads())
	h.client.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything)
	require.False(t, h.registry.Tracked(inbox.Key()))
}

func TestStartOpensOptionsFirst(t *testing.T) {
	h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkNotify)
	h.options.set(func(o *domain.Options) { o.OptionsPageShown = false })

	require.NoError(t, h.router.Start(context.Background()))

	require.Equal(t, 1, h.opener.calls)
	require.Empty(t, h.transport.payloads())
}

func TestSimpleStartRetriesUnreadCheck(t *testing.T) {
	h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkNotify)
	h.client.On("ListUnread", mock.Anything, inbox.ID).Return(nil, errors.New("folder not found")).Twice()
	h.client.On("ListUnread", mock.Anything, inbox.ID).Return([]domain.Message{message("1")}, nil).Once()

	require.NoError(t, h.router.Start(context.Background()))

	require.Equal(t, []string{"true"}, h.transport.payloads())
	h.client.AssertNumberOfCalls(t, "ListUnread", 3)
}

func TestFailedDeliveryIsJournaledAndReturned(t *testing.T) {
	h := newHarness(t, domain.ModeExtended, domain.TransportConnectionless, domain.JunkNotify)
	h.withFolderContents()
	ctx := context.Background()
	require.NoError(t, h.router.Start(ctx))
	h.transport.sendErr = errors.New("host exited with status 1")

	err := h.router.Handle(ctx, domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{message("1")}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "host exited")

	// The registry mutation is kept.
	require.True(t, h.registry.Contains(inbox.Key(), "1"))
	last := h.journal.records[len(h.journal.records)-1]
	require.Equal(t, domain.DeliveryFailed, last.Status)
	require.Equal(t, "host exited with status 1", last.Error)
}

func TestRunSurfacesErrorsAndContinues(t *testing.T) {
	h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkNotify)
	h.transport.sendErr = errors.New("boom")

	events := make(chan domain.Event, 2)
	events <- domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{message("1")}}
	events <- domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{message("2")}}
	close(events)

	require.NoError(t, h.router.Run(context.Background(), events))
	require.Len(t, h.errs.Texts(apperrors.MessageTypeError), 2)
	require.Equal(t, 2, h.transport.onceUsed)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkNotify)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.router.Run(ctx, make(chan domain.Event))
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptionsLoadFailure(t *testing.T) {
	h := newHarness(t, domain.ModeSimple, domain.TransportConnectionless, domain.JunkNotify)
	h.options.err = errors.New("database is locked")

	err := h.router.Handle(context.Background(), domain.NewMail{Folder: inboxFolder, Messages: []domain.Message{message("1")}})
	require.Error(t, err)
	require.Empty(t, h.transport.payloads())
}
