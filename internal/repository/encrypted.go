package repository

import (
	"context"
	"fmt"

	"github.com/vcscsvcscs/medireminder/internal/security"
)

// EncryptedKV seals every value before handing it to the wrapped store
type EncryptedKV struct {
	inner     KVStore
	encryptor *security.Encryptor
}

// NewEncryptedKV wraps inner with AES-256-GCM value encryption
func NewEncryptedKV(inner KVStore, encryptor *security.Encryptor) *EncryptedKV {
	return &EncryptedKV{inner: inner, encryptor: encryptor}
}

func (e *EncryptedKV) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := e.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	value, err := e.encryptor.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	return value, nil
}

func (e *EncryptedKV) Put(ctx context.Context, key string, value []byte) error {
	sealed, err := e.encryptor.Seal(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	return e.inner.Put(ctx, key, sealed)
}

func (e *EncryptedKV) Delete(ctx context.Context, key string) error {
	return e.inner.Delete(ctx, key)
}

func (e *EncryptedKV) Keys(ctx context.Context) ([]string, error) {
	return e.inner.Keys(ctx)
}

func (e *EncryptedKV) Close() error {
	return e.inner.Close()
}
