// Package store provides key-value backends for the progress tracker.
package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dev101/coa/internal/progress"
)

// ErrNotFound is returned by Get for keys that were never written.
var ErrNotFound = progress.ErrNotFound

var (
	_ progress.Store = (*Memory)(nil)
	_ progress.Store = (*File)(nil)
	_ progress.Store = (*Redis)(nil)
)

// Opened is a progress.Store that may hold connections.
type Opened interface {
	progress.Store
	Close() error
}

// Open returns the store named by rawURL:
//
//	mem://                  in-process map
//	file:///path/to/dir     one JSON file per key
//	redis://host:6379/0     Redis (go-redis URL syntax)
//
// An empty URL opens the file store in DefaultDir.
func Open(ctx context.Context, rawURL string) (Opened, error) {
	if rawURL == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		return NewFile(dir)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing store url: %w", err)
	}

	switch u.Scheme {
	case "mem", "memory":
		return NewMemory(), nil
	case "file":
		dir := u.Path
		if u.Host != "" && u.Host != "localhost" {
			dir = filepath.Join(u.Host, u.Path)
		}
		if dir == "" {
			return nil, fmt.Errorf("file store url %q has no path", rawURL)
		}
		return NewFile(dir)
	case "redis", "rediss":
		return DialRedis(ctx, rawURL)
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}

// DefaultDir is $XDG_STATE_HOME/coa, falling back to ~/.local/state/coa.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "coa"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "coa"), nil
}
