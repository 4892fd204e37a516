package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/control"
	"github.com/cristianoliveira/mailnotify/internal/delivery"
	"github.com/cristianoliveira/mailnotify/internal/domain"
	apperrors "github.com/cristianoliveira/mailnotify/internal/errors"
	"github.com/cristianoliveira/mailnotify/internal/logging"
	"github.com/cristianoliveira/mailnotify/internal/mail/imap"
	"github.com/cristianoliveira/mailnotify/internal/options"
	"github.com/cristianoliveira/mailnotify/internal/payload"
	"github.com/cristianoliveira/mailnotify/internal/ports"
	"github.com/cristianoliveira/mailnotify/internal/retry"
	"github.com/cristianoliveira/mailnotify/internal/router"
	"github.com/cristianoliveira/mailnotify/internal/seen"
	"golang.org/x/sync/errgroup"
)

// eventBuffer bounds how far event sources may run ahead of the router.
const eventBuffer = 64

// MailSource is the mail client the daemon queries and watches.
type MailSource interface {
	ports.MailClient
	imap.Source
}

// Journal persists delivery records and prunes old ones.
type Journal interface {
	ports.DeliveryJournal
	PruneDeliveries(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventSource feeds events to the router until ctx is done.
type EventSource interface {
	Run(ctx context.Context, out chan<- domain.Event) error
}

// Settings are the daemon values that follow configuration reloads.
type Settings struct {
	// HostName is the consumer name handed to the transport.
	HostName      string
	JunkOnArrival domain.JunkPolicy
}

// DaemonDeps holds everything the daemon wires together.
type DaemonDeps struct {
	Options   options.KV
	Journal   Journal
	Mail      MailSource
	Transport ports.Transport
	Opener    ports.OptionsOpener

	Settings Settings
	// Reload is optional. It re-reads configuration on every options change and returns
	// the settings to use from then on.
	Reload func() Settings

	RetryDelay   time.Duration
	PollInterval time.Duration
	// Retention prunes journal records older than this at startup. Zero keeps everything.
	Retention time.Duration
	// ControlFiles are watched for writes that signal changed options.
	ControlFiles []string

	Errors apperrors.ErrorHandler
	Logger logging.Logger
}

// Daemon runs the notification engine.
type Daemon struct {
	router   *router.Router
	sources  []EventSource
	journal  Journal
	keep     time.Duration
	log      logging.Logger
	reload   func() Settings
	settings atomic.Pointer[Settings]
}

// NewDaemon assembles the engine from deps.
func NewDaemon(deps DaemonDeps) *Daemon {
	if deps.Logger == nil {
		deps.Logger = logging.GetGlobal()
	}
	if deps.Opener == nil {
		deps.Opener = &options.Opener{}
	}
	d := &Daemon{
		journal: deps.Journal,
		keep:    deps.Retention,
		log:     deps.Logger,
		reload:  deps.Reload,
	}
	settings := deps.Settings
	d.settings.Store(&settings)

	store := options.NewStore(deps.Options)
	registry := seen.NewRegistry(deps.Mail)
	composer := payload.NewComposer(deps.Mail, registry, retry.New(deps.RetryDelay))
	channel := delivery.NewChannel(deps.Transport, d.hostName)

	d.router = router.New(router.Deps{
		Options:       store,
		Opener:        deps.Opener,
		Registry:      registry,
		Composer:      composer,
		Channel:       channel,
		Journal:       deps.Journal,
		Errors:        deps.Errors,
		Logger:        deps.Logger.With("component", "router"),
		JunkOnArrival: settings.JunkOnArrival,
		Reconfigure:   d.reconfigure,
	})

	sources := []EventSource{
		imap.NewWatcher(deps.Mail, store, deps.PollInterval, deps.Logger.With("component", "watcher")),
	}
	if len(deps.ControlFiles) > 0 {
		sources = append(sources, control.NewWatcher(deps.ControlFiles, deps.Logger.With("component", "control")))
	}
	d.sources = sources
	return d
}

// Settings returns the settings in effect.
func (d *Daemon) Settings() Settings {
	return *d.settings.Load()
}

func (d *Daemon) hostName() string {
	return d.settings.Load().HostName
}

// reconfigure runs on the router goroutine ahead of every options change.
func (d *Daemon) reconfigure() {
	if d.reload == nil {
		return
	}
	next := d.reload()
	prev := d.settings.Swap(&next)
	d.router.SetJunkOnArrival(next.JunkOnArrival)
	if prev.HostName != next.HostName {
		d.log.Info("consumer changed", "from", prev.HostName, "to", next.HostName)
	}
}

// Run starts the session and handles events until ctx is cancelled. A failing event
// source stops the daemon with its error.
func (d *Daemon) Run(ctx context.Context) error {
	d.prune(ctx)

	events := make(chan domain.Event, eventBuffer)
	events <- domain.SessionStart{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.router.Run(gctx, events)
	})
	for _, src := range d.sources {
		g.Go(func() error {
			return src.Run(gctx, events)
		})
	}

	err := g.Wait()
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		d.log.Info("daemon stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	return nil
}

func (d *Daemon) prune(ctx context.Context) {
	if d.journal == nil || d.keep <= 0 {
		return
	}
	n, err := d.journal.PruneDeliveries(ctx, time.Now().Add(-d.keep))
	if err != nil {
		d.log.Warn("journal prune failed", "error", err)
		return
	}
	if n > 0 {
		d.log.Info("journal pruned", "removed", n)
	}
}
