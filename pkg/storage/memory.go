package storage

import (
	"bytes"
	"context"

	"github.com/countly/countly-sdk-go/pkg/concurrent"
)

// MemoryBackend keeps collections in process memory. Nothing survives a
// restart; it is meant for tests and for hosts that opt out of persistence.
type MemoryBackend struct {
	blobs *concurrent.Map[string, []byte]
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: concurrent.NewMap[string, []byte]()}
}

func (b *MemoryBackend) Read(_ context.Context, name string) ([]byte, error) {
	data, ok := b.blobs.Load(name)
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(data), nil
}

func (b *MemoryBackend) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	b.blobs.Store(name, bytes.Clone(data))
	return nil
}

func (b *MemoryBackend) Remove(_ context.Context, name string) error {
	b.blobs.Delete(name)
	return nil
}

// Len returns the number of stored collections.
func (b *MemoryBackend) Len() int {
	return b.blobs.Length()
}
