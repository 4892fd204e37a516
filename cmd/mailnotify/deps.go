package main

import (
	"context"
	"sync"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/config"
	"github.com/cristianoliveira/mailnotify/internal/control"
	"github.com/cristianoliveira/mailnotify/internal/credential"
	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/options"
	"github.com/cristianoliveira/mailnotify/internal/storage/sqlite"
)

// runtimeDeps opens the real backends on first use, after configuration is loaded.
type runtimeDeps struct {
	once    sync.Once
	storage *sqlite.Storage
	err     error
}

func newRuntimeDeps() *runtimeDeps {
	return &runtimeDeps{}
}

func (d *runtimeDeps) Storage() (*sqlite.Storage, error) {
	d.once.Do(func() {
		d.storage, d.err = sqlite.NewStorage(config.Get("db_path", ""))
	})
	return d.storage, d.err
}

func (d *runtimeDeps) Close() error {
	if d.storage == nil {
		return nil
	}
	return d.storage.Close()
}

func (d *runtimeDeps) optionsStore() (*options.Store, error) {
	st, err := d.Storage()
	if err != nil {
		return nil, err
	}
	return options.NewStore(st), nil
}

func (d *runtimeDeps) Raw(ctx context.Context) (map[string]string, error) {
	store, err := d.optionsStore()
	if err != nil {
		return nil, err
	}
	return store.Raw(ctx)
}

func (d *runtimeDeps) Set(ctx context.Context, key, value string) error {
	store, err := d.optionsStore()
	if err != nil {
		return err
	}
	return store.Set(ctx, key, value)
}

func (d *runtimeDeps) MarkShown(ctx context.Context) error {
	store, err := d.optionsStore()
	if err != nil {
		return err
	}
	return store.MarkShown(ctx)
}

func (d *runtimeDeps) ListDeliveries(ctx context.Context, limit int) ([]domain.DeliveryRecord, error) {
	st, err := d.Storage()
	if err != nil {
		return nil, err
	}
	return st.ListDeliveries(ctx, limit)
}

func (d *runtimeDeps) CountDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	st, err := d.Storage()
	if err != nil {
		return 0, err
	}
	return st.CountDeliveriesBefore(ctx, cutoff)
}

func (d *runtimeDeps) PruneDeliveries(ctx context.Context, cutoff time.Time) (int64, error) {
	st, err := d.Storage()
	if err != nil {
		return 0, err
	}
	return st.PruneDeliveries(ctx, cutoff)
}

// NotifyDaemon touches the stamp file a running daemon watches.
func (d *runtimeDeps) NotifyDaemon() error {
	return control.Notify(config.Get("state_dir", ""))
}

func (d *runtimeDeps) Accounts() ([]config.AccountConfig, error) {
	return config.LoadAccounts(config.Get("accounts_file", ""))
}

func (d *runtimeDeps) Credentials() *credential.Store {
	return credential.NewStore(config.Get("keyring_backend", credential.BackendAuto), config.Get("state_dir", ""))
}
