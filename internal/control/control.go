// Package control turns out-of-band reconfiguration requests into control messages for the
// router.
package control

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/logging"
)

// StampName is the file touched whenever persisted options change.
const StampName = "options.changed"

// DefaultDebounce coalesces bursts of file events into one control message.
const DefaultDebounce = 200 * time.Millisecond

// StampPath returns the stamp file inside stateDir.
func StampPath(stateDir string) string {
	return filepath.Join(stateDir, StampName)
}

// Notify touches the stamp file so a running daemon reloads its options.
func Notify(stateDir string) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	stamp := []byte(time.Now().UTC().Format(time.RFC3339Nano) + "\n")
	if err := os.WriteFile(StampPath(stateDir), stamp, 0o644); err != nil {
		return fmt.Errorf("touch options stamp: %w", err)
	}
	return nil
}

// Watcher emits ControlMessage{OptionsChanged: true} on SIGHUP and when any watched file
// is written, created or replaced.
type Watcher struct {
	files    map[string]bool
	debounce time.Duration
	signals  []os.Signal
	log      logging.Logger
}

// NewWatcher watches files. Files may not exist yet; their directories must.
func NewWatcher(files []string, log logging.Logger) *Watcher {
	if log == nil {
		log = logging.GetGlobal()
	}
	w := &Watcher{
		files:    make(map[string]bool, len(files)),
		debounce: DefaultDebounce,
		signals:  []os.Signal{syscall.SIGHUP},
		log:      log,
	}
	for _, f := range files {
		if f != "" {
			w.files[filepath.Clean(f)] = true
		}
	}
	return w
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context, out chan<- domain.Event) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("control: create file watcher: %w", err)
	}
	defer fsw.Close()

	dirs := make(map[string]bool)
	for f := range w.files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("control: create %s: %w", dir, err)
		}
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("control: watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	sigs := make(chan os.Signal, 1)
	if len(w.signals) > 0 {
		signal.Notify(sigs, w.signals...)
		defer signal.Stop(sigs)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-sigs:
			w.log.Info("control: reload requested", "signal", sig.String())
			if err := send(ctx, out); err != nil {
				return err
			}
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("control: file changed", "file", ev.Name, "op", ev.Op.String())
			if pending == nil {
				pending = time.After(w.debounce)
			}
		case <-pending:
			pending = nil
			if err := send(ctx, out); err != nil {
				return err
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("control: file watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !w.files[filepath.Clean(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func send(ctx context.Context, out chan<- domain.Event) error {
	select {
	case out <- domain.ControlMessage{OptionsChanged: true}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
