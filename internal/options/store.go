// Package options reads and writes the persisted engine options.
package options

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/cristianoliveira/mailnotify/internal/colors"
	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/ports"
)

// Persisted option keys.
const (
	KeyScriptType       = "scriptType"
	KeyConnectionType   = "connectionType"
	KeyFoldersToCheck   = "foldersToCheck"
	KeyOptionsPageShown = "optionsPageHasBeenShown"
)

// Keys lists every option key in display order.
var Keys = []string{KeyScriptType, KeyConnectionType, KeyFoldersToCheck, KeyOptionsPageShown}

var (
	// ErrUnknownKey is returned when setting a key the engine does not know.
	ErrUnknownKey = errors.New("unknown option key")
	// ErrInvalidValue is returned when a value does not decode for its key.
	ErrInvalidValue = errors.New("invalid option value")
)

// KV is the raw key/value storage the options live in. Values are JSON documents.
type KV interface {
	GetOption(ctx context.Context, key string) (string, bool, error)
	SetOption(ctx context.Context, key, value string) error
	ListOptions(ctx context.Context) (map[string]string, error)
}

// Store decodes options from a KV, falling back to defaults for missing or malformed values.
type Store struct {
	kv KV
}

var _ ports.OptionsReader = (*Store)(nil)

// NewStore returns a Store over kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load returns the current options. Only storage failures are errors.
func (s *Store) Load(ctx context.Context) (domain.Options, error) {
	opts := domain.DefaultOptions()
	raw, err := s.kv.ListOptions(ctx)
	if err != nil {
		return opts, fmt.Errorf("load options: %w", err)
	}

	if v, ok := raw[KeyScriptType]; ok {
		if mode, err := decodeMode(v); err != nil {
			colors.Warning(fmt.Sprintf("ignoring %s: %v, using default: %s", KeyScriptType, err, opts.Mode))
		} else {
			opts.Mode = mode
		}
	}
	if v, ok := raw[KeyConnectionType]; ok {
		if tr, err := decodeTransport(v); err != nil {
			colors.Warning(fmt.Sprintf("ignoring %s: %v, using default: %s", KeyConnectionType, err, opts.Transport))
		} else {
			opts.Transport = tr
		}
	}
	if v, ok := raw[KeyFoldersToCheck]; ok {
		if folders, err := decodeFolders(v); err != nil {
			colors.Warning(fmt.Sprintf("ignoring %s: %v, watching no folders", KeyFoldersToCheck, err))
		} else {
			opts.Folders = folders
		}
	}
	if v, ok := raw[KeyOptionsPageShown]; ok {
		var shown bool
		if err := json.Unmarshal([]byte(v), &shown); err != nil {
			colors.Warning(fmt.Sprintf("ignoring %s: %v", KeyOptionsPageShown, err))
		} else {
			opts.OptionsPageShown = shown
		}
	}
	return opts, nil
}

// Set validates value against key and persists it.
func (s *Store) Set(ctx context.Context, key, value string) error {
	var err error
	switch key {
	case KeyScriptType:
		_, err = decodeMode(value)
	case KeyConnectionType:
		_, err = decodeTransport(value)
	case KeyFoldersToCheck:
		_, err = decodeFolders(value)
	case KeyOptionsPageShown:
		var b bool
		err = json.Unmarshal([]byte(value), &b)
	default:
		return fmt.Errorf("%w: %q (known keys: %v)", ErrUnknownKey, key, Keys)
	}
	if err != nil {
		return fmt.Errorf("%w for %s: %v", ErrInvalidValue, key, err)
	}
	return s.kv.SetOption(ctx, key, value)
}

// SetFolders persists the watch list.
func (s *Store) SetFolders(ctx context.Context, folders []domain.WatchedFolder) error {
	if folders == nil {
		folders = []domain.WatchedFolder{}
	}
	data, err := json.Marshal(folders)
	if err != nil {
		return fmt.Errorf("encode folders: %w", err)
	}
	return s.Set(ctx, KeyFoldersToCheck, string(data))
}

// MarkShown records that the user has seen the options.
func (s *Store) MarkShown(ctx context.Context) error {
	return s.kv.SetOption(ctx, KeyOptionsPageShown, "true")
}

// Raw returns the stored JSON for every known key that has a value.
func (s *Store) Raw(ctx context.Context) (map[string]string, error) {
	raw, err := s.kv.ListOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	for k := range raw {
		if !slices.Contains(Keys, k) {
			delete(raw, k)
		}
	}
	return raw, nil
}

func decodeMode(v string) (domain.OperatingMode, error) {
	var s string
	if err := json.Unmarshal([]byte(v), &s); err != nil {
		return "", err
	}
	return domain.ParseOperatingMode(s)
}

func decodeTransport(v string) (domain.TransportMode, error) {
	var s string
	if err := json.Unmarshal([]byte(v), &s); err != nil {
		return "", err
	}
	return domain.ParseTransportMode(s)
}

func decodeFolders(v string) ([]domain.WatchedFolder, error) {
	var folders []domain.WatchedFolder
	if err := json.Unmarshal([]byte(v), &folders); err != nil {
		return nil, err
	}
	for i, f := range folders {
		if f.AccountID == "" || f.Path == "" {
			return nil, fmt.Errorf("folder %d: accountId and path are required", i)
		}
		if f.ID == "" {
			folders[i].ID = domain.FolderID(f.AccountID, f.Path)
		}
	}
	if folders == nil {
		folders = []domain.WatchedFolder{}
	}
	return folders, nil
}
