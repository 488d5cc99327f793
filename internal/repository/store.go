package repository

import (
	"context"
	"fmt"

	"github.com/vcscsvcscs/medireminder/internal/config"
	"github.com/vcscsvcscs/medireminder/internal/security"
	"go.uber.org/zap"
)

// Open builds the KVStore selected by cfg.Driver, wrapped with encryption
// when an encryption key is configured.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (KVStore, error) {
	var (
		store KVStore
		err   error
	)

	switch cfg.Driver {
	case "memory":
		store = NewMemoryKV()
	case "postgres":
		store, err = NewPostgresKV(ctx, cfg.URL, logger)
	case "sqlite", "":
		store, err = NewSQLiteKV(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.EncryptionKey != "" {
		encryptor, err := security.NewEncryptorFromBase64(cfg.EncryptionKey)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		store = NewEncryptedKV(store, encryptor)
		logger.Info("ledger encryption enabled")
	}

	logger.Info("ledger store ready", zap.String("driver", cfg.Driver))
	return store, nil
}
