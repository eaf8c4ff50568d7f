package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

// testMigrationsDir is the directory containing test migration files.
const testMigrationsDir = "testdata"

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

// useTestMigrations swaps in the testdata SQL files for the duration of a test.
func useTestMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()

	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})

	MigrationsFS = fsys
	MigrationsDir = dir
}

// insertWidgetStep is a Go step that depends on the SQL step before it.
func insertWidgetStep(version string) Migration {
	return Migration{
		Version: version,
		Name:    "seed_widget",
		UpFunc: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "INSERT INTO widgets (name) VALUES ('first')")
			return err
		},
	}
}

func TestMigrate(t *testing.T) {
	useTestMigrations(t, testMigrationsFS, testMigrationsDir)
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, insertWidgetStep("20260301_100500")); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	var widgets int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM widgets").Scan(&widgets); err != nil {
		t.Fatalf("widgets table not created: %v", err)
	}
	if widgets != 1 {
		t.Errorf("widgets = %d, want 1", widgets)
	}

	applied, pending, err := db.GetMigrationStatus(ctx, insertWidgetStep("20260301_100500"))
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 applied migrations, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}

	// Running again must not re-apply the Go step.
	if err := db.Migrate(ctx, insertWidgetStep("20260301_100500")); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM widgets").Scan(&widgets); err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if widgets != 1 {
		t.Errorf("widgets after second run = %d, want 1", widgets)
	}
}

func TestMigrate_FailingStepStopsSequence(t *testing.T) {
	useTestMigrations(t, testMigrationsFS, testMigrationsDir)
	db := openMemoryDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	failing := Migration{
		Version: "20260301_100200",
		Name:    "failing",
		UpFunc: func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, "INSERT INTO widgets (name) VALUES ('partial')"); err != nil {
				return err
			}
			return boom
		},
	}

	err := db.Migrate(ctx, failing, insertWidgetStep("20260301_100500"))
	if !errors.Is(err, boom) {
		t.Fatalf("Migrate() error = %v, want wrapped boom", err)
	}

	var widgets int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM widgets").Scan(&widgets); err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if widgets != 0 {
		t.Errorf("failing step left %d rows, want rollback to 0", widgets)
	}

	applied, pending, err := db.GetMigrationStatus(ctx, failing, insertWidgetStep("20260301_100500"))
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 2 {
		t.Errorf("applied=%d pending=%d, want 1 and 2", len(applied), len(pending))
	}
}

func TestMigrate_InvalidSteps(t *testing.T) {
	useTestMigrations(t, testMigrationsFS, testMigrationsDir)
	db := openMemoryDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		step Migration
		want string
	}{
		{"duplicate version", insertWidgetStep("20260301_100000"), "duplicate migration version"},
		{"missing version", Migration{Name: "nameless", UpSQL: "SELECT 1"}, "has no version"},
		{"nothing to apply", Migration{Version: "20260301_100900"}, "nothing to apply"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.Migrate(ctx, tt.step)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Migrate() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestMigrateDown(t *testing.T) {
	useTestMigrations(t, testMigrationsFS, testMigrationsDir)
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='widgets'",
	).Scan(&count); err != nil {
		t.Fatalf("query error: %v", err)
	}
	if count != 0 {
		t.Error("table widgets should have been dropped")
	}

	applied, _, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied migrations after rollback, got %d", len(applied))
	}
}

func TestMigrateDown_GoStepNotReversible(t *testing.T) {
	useTestMigrations(t, testMigrationsFS, testMigrationsDir)
	db := openMemoryDB(t)
	ctx := context.Background()

	step := insertWidgetStep("20260301_100500")
	if err := db.Migrate(ctx, step); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	err := db.MigrateDown(ctx, step)
	if err == nil || !strings.Contains(err.Error(), "has no down SQL") {
		t.Errorf("MigrateDown() error = %v, want no down SQL", err)
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	tests := []struct {
		name string
		fsys fs.FS
		dir  string
	}{
		{"no filesystem", nil, ""},
		{"empty embed", embed.FS{}, "."},
		{"missing directory", fstest.MapFS{}, "migrations"},
		{"only unrelated files", fstest.MapFS{
			"migrations/README.md":    {Data: []byte("notes")},
			"migrations/seed.sql":     {Data: []byte("SELECT 1")},
			"migrations/old/x.up.sql": {Data: []byte("SELECT 1")},
		}, "migrations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useTestMigrations(t, tt.fsys, tt.dir)
			db := openMemoryDB(t)

			if err := db.Migrate(context.Background()); err != nil {
				t.Fatalf("Migrate() with no migrations error = %v", err)
			}
			if err := db.MigrateDown(context.Background()); err != nil {
				t.Fatalf("MigrateDown() with nothing applied error = %v", err)
			}
		})
	}
}

func TestGetMigrationStatus_BeforeFirstRun(t *testing.T) {
	useTestMigrations(t, testMigrationsFS, testMigrationsDir)
	db := openMemoryDB(t)

	applied, pending, err := db.GetMigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied, got %d", len(applied))
	}
	if len(pending) != 1 || pending[0].Name != "widgets" {
		t.Errorf("pending = %+v, want the widgets migration", pending)
	}
}

func TestParseMigrationFile(t *testing.T) {
	tests := []struct {
		filename string
		want     migrationFile
		wantOk   bool
	}{
		{"20260301_090000_devices.up.sql", migrationFile{"20260301_090000", "devices", true}, true},
		{"20260301_090000_devices.down.sql", migrationFile{"20260301_090000", "devices", false}, true},
		{"20260301_090500_scenes_schedules_energy.up.sql",
			migrationFile{"20260301_090500", "scenes_schedules_energy", true}, true},
		{"readme.txt", migrationFile{}, false},
		{"20260301_090000_devices.sql", migrationFile{}, false},
		{"invalid.up.sql", migrationFile{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := parseMigrationFile(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("parseMigrationFile(%q) = %+v, want %+v", tt.filename, got, tt.want)
			}
		})
	}
}
