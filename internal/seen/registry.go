// Package seen tracks, per watched folder, which messages were already reported as new.
package seen

import (
	"context"
	"fmt"
	"sync"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/mail"
	"github.com/cristianoliveira/mailnotify/internal/ports"
)

type idSet map[string]struct{}

// Registry holds one set of tracked message ids per watched folder.
// A folder without a set is untracked: marks are ignored and its size is 0.
type Registry struct {
	mu     sync.RWMutex
	lister ports.MessageLister
	sets   map[domain.FolderKey]idSet
}

// NewRegistry creates an empty registry that lists folders through lister on rebuild.
func NewRegistry(lister ports.MessageLister) *Registry {
	return &Registry{
		lister: lister,
		sets:   make(map[domain.FolderKey]idSet),
	}
}

// Rebuild replaces every set with the unread, non-junk messages currently in the
// watched folders. It does nothing in simple mode. On a listing error the previous
// state is kept.
func (r *Registry) Rebuild(ctx context.Context, mode domain.OperatingMode, folders []domain.WatchedFolder) error {
	switch mode {
	case domain.ModeSimple:
		return nil
	case domain.ModeExtended:
	default:
		return fmt.Errorf("seen registry: rebuild: unsupported mode %q", mode)
	}

	next := make(map[domain.FolderKey]idSet, len(folders))
	for _, folder := range folders {
		set := make(idSet)
		for msg, err := range mail.AllMessages(ctx, r.lister, folder) {
			if err != nil {
				return fmt.Errorf("seen registry: list %s: %w", folder.Key(), err)
			}
			if !msg.Junk && !msg.Read {
				set[msg.ID] = struct{}{}
			}
		}
		next[folder.Key()] = set
	}

	r.mu.Lock()
	r.sets = next
	r.mu.Unlock()
	return nil
}

// MarkTracked adds id to the folder's set if the folder is tracked.
func (r *Registry) MarkTracked(key domain.FolderKey, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.sets[key]; ok {
		set[id] = struct{}{}
	}
}

// MarkUntracked removes id from the folder's set if present.
func (r *Registry) MarkUntracked(key domain.FolderKey, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.sets[key]; ok {
		delete(set, id)
	}
}

// Contains reports whether id is tracked for the folder.
func (r *Registry) Contains(key domain.FolderKey, id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sets[key][id]
	return ok
}

// Size returns the number of tracked ids for the folder, 0 when untracked.
func (r *Registry) Size(key domain.FolderKey) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sets[key])
}

// Tracked reports whether the folder currently has a set.
func (r *Registry) Tracked(key domain.FolderKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sets[key]
	return ok
}
