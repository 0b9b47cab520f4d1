// Package storage tracks which source URLs have already been translated into
// vault notes, so repeat invocations can skip work.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// NoteRef points at a previously written note.
type NoteRef struct {
	Filename    string
	ProcessedAt time.Time
}

// Store maps source URLs to the notes produced from them.
type Store interface {
	Close() error
	LookupNote(sourceURL string) (NoteRef, bool, error)
	RecordNote(sourceURL string, ref NoteRef) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	NoteTTL         time.Duration
	CleanupInterval time.Duration
}

const (
	defaultNoteTTL         = 90 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
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
	if opts.NoteTTL <= 0 {
		opts.NoteTTL = defaultNoteTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                              { return nil }
func (noopStore) LookupNote(string) (NoteRef, bool, error)  { return NoteRef{}, false, nil }
func (noopStore) RecordNote(string, NoteRef) error          { return nil }
