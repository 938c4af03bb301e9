package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMaxSaveAttempts bounds how often SaveCollection rewrites a
// collection that keeps growing under it.
const DefaultMaxSaveAttempts = 8

// Store encodes values and hands them to a Backend.
type Store struct {
	backend     Backend
	logger      *slog.Logger
	maxAttempts int
}

type StoreOption func(*Store)

func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMaxSaveAttempts overrides DefaultMaxSaveAttempts. Values below one
// are ignored.
func WithMaxSaveAttempts(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewStore(backend Backend, opts ...StoreOption) *Store {
	if backend == nil {
		panic("storage: nil backend")
	}

	s := &Store{
		backend:     backend,
		logger:      slog.Default(),
		maxAttempts: DefaultMaxSaveAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Save encodes v and writes it under name.
func (s *Store) Save(ctx context.Context, name string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	return s.backend.Write(ctx, name, data)
}

// Remove deletes whatever is stored under name.
func (s *Store) Remove(ctx context.Context, name string) error {
	return s.backend.Remove(ctx, name)
}

// Load reads and decodes the value stored under name.
func Load[T any](ctx context.Context, s *Store, name string) (T, error) {
	var v T

	data, err := s.backend.Read(ctx, name)
	if err != nil {
		return v, err
	}
	if err := Decode(data, &v); err != nil {
		return v, fmt.Errorf("loading %s: %w", name, err)
	}
	return v, nil
}

// Collection is an ordered collection that can be snapshotted under its
// own lock. Revision must change on every modification, including an
// append that evicts an old record and leaves the length unchanged.
type Collection[T any] interface {
	All() []T
	Revision() uint64
}

// SaveCollection persists a snapshot of src under name. The snapshot is a
// copy taken under src's lock, so appends during the write cannot corrupt
// it. After each successful write the live revision is compared with the
// one read before the snapshot; if the collection changed meanwhile a
// fresh snapshot is written. The loop gives up with ErrSaveContention after the configured
// number of attempts; the records are still in memory and the next flush
// will pick them up.
func SaveCollection[T any](ctx context.Context, s *Store, name string, src Collection[T]) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Read before the copy: a change in between costs one extra write
		// at worst.
		rev := src.Revision()
		snapshot := src.All()
		if err := s.Save(ctx, name, snapshot); err != nil {
			return err
		}

		if src.Revision() == rev {
			return nil
		}
		s.logger.Debug("Collection changed while saving, saving again",
			"collection", name, "saved", len(snapshot), "attempt", attempt)
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrSaveContention, name, s.maxAttempts)
}

// LoadCollection returns the collection stored under name. A missing,
// unreadable or corrupt collection loads as empty; the failure is logged
// and never returned.
func LoadCollection[T any](ctx context.Context, s *Store, name string) []T {
	items, err := Load[[]T](ctx, s, name)
	switch {
	case err == nil:
		return items
	case errors.Is(err, ErrNotFound):
		s.logger.Debug("No stored collection, starting empty", "collection", name)
	default:
		s.logger.Warn("Failed to load collection, starting empty", "collection", name, "error", err)
	}
	return nil
}
