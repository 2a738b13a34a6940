package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/adoption-forecast/internal/config"
	"github.com/Veraticus/adoption-forecast/internal/storage"
	"github.com/spf13/viper"
)

// loadConfig reads the effective configuration from the global viper instance.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// initStorage opens the run history and brings its schema up to date.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}
