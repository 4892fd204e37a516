package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultHostName is the consumer name used when none is configured.
const DefaultHostName = "scriptableNotifications"

// Origin is passed to native hosts to identify the caller.
const Origin = "mailnotify"

// ErrHostNotFound indicates that no manifest exists for a host name.
var ErrHostNotFound = errors.New("delivery: native host not found")

// Host is a resolved native host executable.
type Host struct {
	Name string
	Path string
	Args []string
	// Manifest is the manifest file the host was resolved from, if any.
	Manifest string
}

// Manifest is the on-disk description of a native host.
type Manifest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Type        string `json:"type"`
}

// HostResolver maps a host name to the executable to run.
type HostResolver func(name string) (Host, error)

// CommandResolver resolves every name to a fixed command line.
func CommandResolver(command string) HostResolver {
	return func(name string) (Host, error) {
		fields := strings.Fields(command)
		if len(fields) == 0 {
			return Host{}, fmt.Errorf("%w: empty consumer command", ErrHostNotFound)
		}
		return Host{Name: name, Path: fields[0], Args: fields[1:]}, nil
	}
}

// ManifestResolver resolves names through <dir>/<name>.json manifests.
// The host receives the manifest path and Origin as arguments.
func ManifestResolver(dir string) HostResolver {
	return func(name string) (Host, error) {
		if name == "" || strings.ContainsAny(name, `/\`) {
			return Host{}, fmt.Errorf("%w: invalid name %q", ErrHostNotFound, name)
		}
		manifestPath := filepath.Join(dir, name+".json")
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Host{}, fmt.Errorf("%w: %s", ErrHostNotFound, manifestPath)
			}
			return Host{}, fmt.Errorf("delivery: read manifest %s: %w", manifestPath, err)
		}
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return Host{}, fmt.Errorf("delivery: parse manifest %s: %w", manifestPath, err)
		}
		if m.Name != name {
			return Host{}, fmt.Errorf("delivery: manifest %s declares name %q, want %q", manifestPath, m.Name, name)
		}
		if m.Type != "stdio" {
			return Host{}, fmt.Errorf("delivery: manifest %s has unsupported type %q", manifestPath, m.Type)
		}
		if m.Path == "" {
			return Host{}, fmt.Errorf("delivery: manifest %s has no path", manifestPath)
		}
		path := m.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return Host{
			Name:     name,
			Path:     path,
			Args:     []string{manifestPath, Origin},
			Manifest: manifestPath,
		}, nil
	}
}
