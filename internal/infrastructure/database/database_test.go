package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

// withMigrations swaps MigrationsFS for the duration of a test.
func withMigrations(t *testing.T, fsys fstest.MapFS) {
	t.Helper()
	orig := MigrationsFS
	MigrationsFS = fsys
	t.Cleanup(func() { MigrationsFS = orig })
}

func TestOpen(t *testing.T) {
	t.Run("creates directory and file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

		db, err := Open(context.Background(), Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
	})

	t.Run("without WAL", func(t *testing.T) {
		db, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "plain.db")})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup
	})
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	db := openTestDB(t)

	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close() should fail")
	}

	var nilDB *DB
	if err := nilDB.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func TestMigrate(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20260101_000000_create_a.up.sql":   {Data: []byte("CREATE TABLE a (id INTEGER PRIMARY KEY);")},
		"20260101_000000_create_a.down.sql": {Data: []byte("DROP TABLE a;")},
		"20260102_000000_create_b.up.sql":   {Data: []byte("CREATE TABLE b (a_id INTEGER REFERENCES a(id));")},
		"README.md":                         {Data: []byte("not a migration")},
	})

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"a", "b"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}

	applied, err := db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if len(applied) != 2 || !applied["20260101_000000"] || !applied["20260102_000000"] {
		t.Errorf("applied = %v, want both versions", applied)
	}

	// Running again is a no-op.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20260101_000000_good.up.sql": {Data: []byte("CREATE TABLE good (id INTEGER);")},
		"20260102_000000_bad.up.sql":  {Data: []byte("CREATE TABLE broken (;")},
	})

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error for invalid SQL")
	}

	applied, err := db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if !applied["20260101_000000"] {
		t.Error("first migration should stay applied")
	}
	if applied["20260102_000000"] {
		t.Error("failed migration must not be recorded")
	}
}

func TestMigrate_NoMigrations(t *testing.T) {
	orig := MigrationsFS
	MigrationsFS = nil
	t.Cleanup(func() { MigrationsFS = orig })

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantName    string
		wantOk      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20260101_000000_initial_schema.up.sql",
			wantVersion: "20260101_000000",
			wantName:    "initial_schema",
			wantOk:      true,
		},
		{
			name:        "multi-word name",
			filename:    "20260301_120000_add_trigger_to_runs.up.sql",
			wantVersion: "20260301_120000",
			wantName:    "add_trigger_to_runs",
			wantOk:      true,
		},
		{name: "down migration", filename: "20260101_000000_initial_schema.down.sql"},
		{name: "not sql file", filename: "readme.txt"},
		{name: "missing direction", filename: "20260101_000000_initial_schema.sql"},
		{name: "invalid format", filename: "invalid.up.sql"},
		{name: "short version", filename: "2026_00_x.up.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (version != tt.wantVersion || name != tt.wantName) {
				t.Errorf("got (%q, %q), want (%q, %q)", version, name, tt.wantVersion, tt.wantName)
			}
		})
	}
}
