// Package router decides, per mail or control event, whether and what to deliver to the
// external consumer.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/errors"
	"github.com/cristianoliveira/mailnotify/internal/logging"
	"github.com/cristianoliveira/mailnotify/internal/payload"
	"github.com/cristianoliveira/mailnotify/internal/ports"
)

// Registry is the seen-message state the router drives.
type Registry interface {
	payload.SeenCounter
	Rebuild(ctx context.Context, mode domain.OperatingMode, folders []domain.WatchedFolder) error
	MarkTracked(key domain.FolderKey, id string)
	MarkUntracked(key domain.FolderKey, id string)
	Contains(key domain.FolderKey, id string) bool
}

// Composer builds payloads.
type Composer interface {
	Compose(ctx context.Context, req payload.Request) (payload.Payload, error)
}

// Channel delivers payloads and owns the persistent connection.
type Channel interface {
	Send(ctx context.Context, mode domain.TransportMode, p payload.Payload) error
	Teardown() error
}

// Deps holds the collaborators of a Router.
type Deps struct {
	Options  ports.OptionsReader
	Opener   ports.OptionsOpener
	Registry Registry
	Composer Composer
	Channel  Channel
	// Journal is optional.
	Journal ports.DeliveryJournal
	// Errors surfaces failed handlers from Run. Defaults to the console handler.
	Errors errors.ErrorHandler
	// Logger defaults to the global logger.
	Logger logging.Logger
	// JunkOnArrival selects whether junk messages in a NewMail batch are reported.
	JunkOnArrival domain.JunkPolicy
	// Reconfigure is optional. It runs on the router goroutine for every options change,
	// before the connection is torn down, so reloaded settings apply to the reconnect.
	Reconfigure func()
}

// Router owns the engine state and handles events one at a time.
type Router struct {
	options  ports.OptionsReader
	opener   ports.OptionsOpener
	registry Registry
	composer Composer
	channel  Channel
	journal  ports.DeliveryJournal
	errs     errors.ErrorHandler
	log      logging.Logger
	junk     domain.JunkPolicy
	reconfig func()
	now      func() time.Time
}

// New creates a Router from deps.
func New(deps Deps) *Router {
	r := &Router{
		options:  deps.Options,
		opener:   deps.Opener,
		registry: deps.Registry,
		composer: deps.Composer,
		channel:  deps.Channel,
		journal:  deps.Journal,
		errs:     deps.Errors,
		log:      deps.Logger,
		reconfig: deps.Reconfigure,
		now:      time.Now,
	}
	if r.errs == nil {
		r.errs = errors.NewDefaultCLIHandler()
	}
	if r.log == nil {
		r.log = logging.GetGlobal()
	}
	r.SetJunkOnArrival(deps.JunkOnArrival)
	return r
}

// SetJunkOnArrival changes the junk policy. Call it before Run or from Reconfigure.
func (r *Router) SetJunkOnArrival(p domain.JunkPolicy) {
	if p == "" {
		p = domain.JunkNotify
	}
	r.junk = p
}

// Run handles events serially until ctx is done or events is closed. Handler failures are
// reported and do not stop the loop.
func (r *Router) Run(ctx context.Context, events <-chan domain.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.Handle(ctx, ev); err != nil {
				r.log.Error("event handler failed", "event", fmt.Sprintf("%T", ev), "error", err)
				r.errs.Error(err.Error())
			}
		}
	}
}

// Handle dispatches one event.
func (r *Router) Handle(ctx context.Context, ev domain.Event) error {
	switch e := ev.(type) {
	case domain.SessionStart:
		return r.Start(ctx)
	case domain.NewMail:
		return r.handleNewMail(ctx, e)
	case domain.MessageUpdated:
		return r.handleUpdated(ctx, e)
	case domain.MessageDeleted:
		return r.handleDeleted(ctx, e)
	case domain.ControlMessage:
		return r.handleControl(ctx, e)
	default:
		return fmt.Errorf("router: unsupported event %T", ev)
	}
}

// Start runs the session start sequence.
func (r *Router) Start(ctx context.Context) error {
	opts, err := r.loadOptions(ctx)
	if err != nil {
		return err
	}
	if !opts.OptionsPageShown {
		r.log.Info("options never reviewed, opening options")
		if err := r.opener.OpenOptions(ctx); err != nil {
			return fmt.Errorf("router: open options: %w", err)
		}
		return nil
	}
	if len(opts.Folders) == 0 {
		r.log.Debug("no watched folders, nothing to report on start")
		return nil
	}
	return r.restart(ctx, opts)
}

func (r *Router) handleNewMail(ctx context.Context, e domain.NewMail) error {
	opts, err := r.loadOptions(ctx)
	if err != nil {
		return err
	}
	key := e.Folder.Key()
	if !opts.IsWatched(key) {
		return nil
	}

	for i := range e.Messages {
		msg := e.Messages[i]
		if msg.Junk && r.junk == domain.JunkSkip {
			continue
		}
		switch opts.Mode {
		case domain.ModeSimple:
			// One notification per batch.
			return r.deliver(ctx, opts, domain.EventNew, &msg)
		case domain.ModeExtended:
			if r.registry.Contains(key, msg.ID) {
				continue
			}
			r.registry.MarkTracked(key, msg.ID)
			if err := r.deliver(ctx, opts, domain.EventNew, &msg); err != nil {
				return err
			}
		default:
			return fmt.Errorf("router: unsupported mode %q", opts.Mode)
		}
	}
	return nil
}

func (r *Router) handleUpdated(ctx context.Context, e domain.MessageUpdated) error {
	if e.Message.Junk {
		return nil
	}
	opts, err := r.loadOptions(ctx)
	if err != nil {
		return err
	}
	if !opts.IsWatched(e.Message.Folder.Key()) || !e.Changed.Read {
		return nil
	}
	if opts.Mode == domain.ModeExtended {
		r.registry.MarkUntracked(e.Message.Folder.Key(), e.Message.ID)
	}
	return r.deliver(ctx, opts, domain.EventRead, &e.Message)
}

func (r *Router) handleDeleted(ctx context.Context, e domain.MessageDeleted) error {
	opts, err := r.loadOptions(ctx)
	if err != nil {
		return err
	}
	if !opts.IsWatched(e.Message.Folder.Key()) {
		return nil
	}
	if opts.Mode == domain.ModeExtended {
		r.registry.MarkUntracked(e.Message.Folder.Key(), e.Message.ID)
	}
	return r.deliver(ctx, opts, domain.EventDeleted, &e.Message)
}

func (r *Router) handleControl(ctx context.Context, e domain.ControlMessage) error {
	if !e.OptionsChanged {
		return nil
	}
	if r.reconfig != nil {
		r.reconfig()
	}
	opts, err := r.loadOptions(ctx)
	if err != nil {
		return err
	}
	if opts.Mode == domain.ModeSimple {
		return nil
	}
	if err := r.channel.Teardown(); err != nil {
		r.log.Warn("closing consumer connection failed", "error", err)
	}
	return r.restart(ctx, opts)
}

// restart rebuilds the seen registry and reports a session start.
func (r *Router) restart(ctx context.Context, opts domain.Options) error {
	if err := r.registry.Rebuild(ctx, opts.Mode, opts.Folders); err != nil {
		return fmt.Errorf("router: rebuild seen registry: %w", err)
	}
	return r.deliver(ctx, opts, domain.EventStart, nil)
}

func (r *Router) loadOptions(ctx context.Context) (domain.Options, error) {
	opts, err := r.options.Load(ctx)
	if err != nil {
		return domain.Options{}, fmt.Errorf("router: %w", err)
	}
	return opts, nil
}

// deliver composes and sends one payload, recording the attempt in the journal.
func (r *Router) deliver(ctx context.Context, opts domain.Options, event domain.EventKind, msg *domain.Message) error {
	p, err := r.composer.Compose(ctx, payload.Request{
		Mode:    opts.Mode,
		Event:   event,
		Folders: opts.Folders,
		Message: msg,
	})
	if err != nil {
		return fmt.Errorf("router: compose %s: %w", event, err)
	}

	sendErr := r.channel.Send(ctx, opts.Transport, p)
	r.record(ctx, opts, event, sendErr)
	if sendErr != nil {
		return fmt.Errorf("router: deliver %s: %w", event, sendErr)
	}
	r.log.Debug("delivered", "event", event, "mode", opts.Mode, "transport", opts.Transport)
	return nil
}

func (r *Router) record(ctx context.Context, opts domain.Options, event domain.EventKind, sendErr error) {
	if r.journal == nil {
		return
	}
	rec := domain.DeliveryRecord{
		Timestamp: r.now(),
		Event:     event,
		Mode:      opts.Mode,
		Transport: opts.Transport,
		Status:    domain.DeliveryDelivered,
	}
	if sendErr != nil {
		rec.Status = domain.DeliveryFailed
		rec.Error = sendErr.Error()
	}
	if err := r.journal.RecordDelivery(context.WithoutCancel(ctx), rec); err != nil {
		r.log.Warn("recording delivery failed", "event", event, "error", err)
	}
}
