// Package testutil provides shared fixtures for tests that need a populated
// run history: an in-memory database and a builder for complete forecast runs.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/Veraticus/adoption-forecast/internal/service"
	"github.com/Veraticus/adoption-forecast/internal/storage"
)

// TestDB is a migrated in-memory run history.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	Runs    []*model.Run
}

// SetupTestDB creates a migrated in-memory database and saves the given runs
// into it. The database is closed when the test finishes.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewRunBuilder(t).WithLabel("baseline").Build(),
//	)
func SetupTestDB(t *testing.T, runs ...*model.Run) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Runs: runs})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	Runs           []*model.Run
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	for _, run := range opts.Runs {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("failed to seed run %q: %v", run.Label, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		Runs:    opts.Runs,
		t:       t,
	}
}

// MustGetRun loads a run by ID or prefix or fails the test.
func (db *TestDB) MustGetRun(id string) *model.Run {
	db.t.Helper()
	run, err := db.Storage.GetRun(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load run %q: %v", id, err)
	}
	return run
}
