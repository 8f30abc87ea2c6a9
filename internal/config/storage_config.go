package config

import (
	"path/filepath"
	"time"
)

type StorageConfig interface {
	GetStorageDriver() string
	GetStorageDSN() string
	GetStorageRetention() time.Duration
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetStorageDriver returns "sqlite" (default) or "postgres"
func (Storage) GetStorageDriver() string {
	return GetEnv("STORAGE_DRIVER", "sqlite")
}

func (Storage) GetStorageDSN() string {
	return GetEnv("STORAGE_DSN", filepath.Join(EnvVars{}.GetDataFolder(), "client_storage.db"))
}

// GetStorageRetention is how long an idle visitor namespace is kept
func (Storage) GetStorageRetention() time.Duration {
	return time.Duration(GetEnvInt("STORAGE_RETENTION_DAYS", 45)) * 24 * time.Hour
}
