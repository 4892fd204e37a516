package imap

import (
	"context"
	"slices"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/logging"
	"github.com/cristianoliveira/mailnotify/internal/ports"
)

// DefaultPollInterval is how often watched folders are compared with the previous poll.
const DefaultPollInterval = 30 * time.Second

// Source exposes the folder state the watcher diffs.
type Source interface {
	Snapshot(ctx context.Context, folder domain.WatchedFolder) (FolderSnapshot, error)
	Messages(ctx context.Context, folder domain.WatchedFolder, ids []string) ([]domain.Message, error)
}

// Watcher polls the watched folders and turns state changes into mail events.
// The first poll of a folder only records a baseline, and so does a poll that sees a new
// UIDVALIDITY.
type Watcher struct {
	source   Source
	options  ports.OptionsReader
	interval time.Duration
	log      logging.Logger

	state map[domain.FolderKey]FolderSnapshot
}

// NewWatcher creates a Watcher. The watch list is re-read from options on every poll.
func NewWatcher(source Source, options ports.OptionsReader, interval time.Duration, log logging.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logging.GetGlobal()
	}
	return &Watcher{
		source:   source,
		options:  options,
		interval: interval,
		log:      log,
		state:    make(map[domain.FolderKey]FolderSnapshot),
	}
}

// Run polls until ctx is done, sending events to out.
func (w *Watcher) Run(ctx context.Context, out chan<- domain.Event) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		for _, ev := range w.Poll(ctx) {
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll compares every watched folder with its previous snapshot and returns the resulting
// events. Folder errors are logged and leave that folder's baseline untouched.
func (w *Watcher) Poll(ctx context.Context) []domain.Event {
	opts, err := w.options.Load(ctx)
	if err != nil {
		w.log.Warn("watcher: loading options failed", "error", err)
		return nil
	}

	var events []domain.Event
	watched := make(map[domain.FolderKey]bool, len(opts.Folders))
	for _, folder := range opts.Folders {
		key := folder.Key()
		watched[key] = true

		cur, err := w.source.Snapshot(ctx, folder)
		if err != nil {
			w.log.Warn("watcher: snapshot failed", "folder", key.String(), "error", err)
			continue
		}
		prev, ok := w.state[key]
		w.state[key] = cur
		if !ok {
			w.log.Debug("watcher: baseline recorded", "folder", key.String(), "messages", len(cur.Messages))
			continue
		}
		if prev.UIDValidity != cur.UIDValidity {
			w.log.Info("watcher: uid validity changed, baseline reset", "folder", key.String(),
				"previous", prev.UIDValidity, "current", cur.UIDValidity)
			continue
		}
		events = append(events, w.folderEvents(ctx, folder, prev.Messages, cur.Messages)...)
	}

	for key := range w.state {
		if !watched[key] {
			delete(w.state, key)
		}
	}
	return events
}

func (w *Watcher) folderEvents(ctx context.Context, folder domain.WatchedFolder, prev, cur map[string]MessageState) []domain.Event {
	d := diff(prev, cur)
	var events []domain.Event

	if len(d.added) > 0 {
		msgs, err := w.source.Messages(ctx, folder, d.added)
		if err != nil {
			w.log.Warn("watcher: fetching new messages failed", "folder", folder.Key().String(), "error", err)
		} else {
			unread := slices.DeleteFunc(msgs, func(m domain.Message) bool { return m.Read })
			if len(unread) > 0 {
				events = append(events, domain.NewMail{Folder: folderOf(folder), Messages: unread})
			}
		}
	}

	if len(d.changed) > 0 {
		ids := make([]string, 0, len(d.changed))
		for _, c := range d.changed {
			ids = append(ids, c.id)
		}
		msgs, err := w.source.Messages(ctx, folder, ids)
		if err != nil {
			w.log.Warn("watcher: fetching updated messages failed", "folder", folder.Key().String(), "error", err)
		} else {
			byID := make(map[string]domain.Message, len(msgs))
			for _, m := range msgs {
				byID[m.ID] = m
			}
			for _, c := range d.changed {
				msg, ok := byID[c.id]
				if !ok {
					continue
				}
				events = append(events, domain.MessageUpdated{Message: msg, Changed: c.props})
			}
		}
	}

	for _, id := range d.removed {
		st := prev[id]
		events = append(events, domain.MessageDeleted{Message: domain.Message{
			ID:      id,
			Folder:  folderOf(folder),
			Read:    st.Read,
			Junk:    st.Junk,
			Flagged: st.Flagged,
		}})
	}
	return events
}

type change struct {
	id    string
	props domain.ChangedProperties
}

type folderDiff struct {
	added   []string
	changed []change
	removed []string
}

// diff compares two snapshots. Only transitions to read and flag toggles count as changes.
func diff(prev, cur map[string]MessageState) folderDiff {
	var d folderDiff
	for id, st := range cur {
		old, ok := prev[id]
		if !ok {
			d.added = append(d.added, id)
			continue
		}
		var props domain.ChangedProperties
		changed := false
		if st.Read && !old.Read {
			props.Read = true
			changed = true
		}
		if st.Flagged != old.Flagged {
			flagged := st.Flagged
			props.Flagged = &flagged
			changed = true
		}
		if changed {
			d.changed = append(d.changed, change{id: id, props: props})
		}
	}
	for id := range prev {
		if _, ok := cur[id]; !ok {
			d.removed = append(d.removed, id)
		}
	}
	slices.SortFunc(d.added, compareIDs)
	slices.SortFunc(d.removed, compareIDs)
	slices.SortFunc(d.changed, func(a, b change) int { return compareIDs(a.id, b.id) })
	return d
}
