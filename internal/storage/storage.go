// Package storage keeps a local audit log of optimization runs.
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/optimus/internal/domain"
)

// Run is one recorded optimization attempt.
type Run = domain.Run

const (
	RunStatusSucceeded = domain.RunStatusSucceeded
	RunStatusFailed    = domain.RunStatusFailed
)

// Store records runs and lists the most recent ones.
type Store interface {
	Close() error
	Record(run Run) error
	Recent(limit int) ([]Run, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RunTTL          time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRunTTL          = 30 * 24 * time.Hour
	defaultCleanupInterval = 24 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RunTTL <= 0 {
		opts.RunTTL = defaultRunTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error              { return nil }
func (noopStore) Record(Run) error          { return nil }
func (noopStore) Recent(int) ([]Run, error) { return nil, nil }
