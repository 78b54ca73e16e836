// Package storage provides the durable key-value layer. Values are opaque blobs,
// usually JSON documents stored under well-known keys.
package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key is absent.
	ErrNotFound = stderrors.New("storage: key not found")
	// ErrMalformed is returned by GetJSON when the stored value cannot be decoded.
	ErrMalformed = stderrors.New("storage: malformed value")
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// GetJSON loads the value under key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
	}

	return nil
}

// SetJSON stores v as a JSON document under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}

	return s.Set(ctx, key, b)
}
