package schema

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nerrad567/smarthome-core/internal/automation"
	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
)

// recordingLogger keeps every message so tests can check what Apply reported.
type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprint(append([]any{msg}, args...)...))
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func countRows(t *testing.T, db *database.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return n
}

func TestApply_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	logger := &recordingLogger{}

	Apply(context.Background(), db, logger)

	if len(logger.errors) != 0 {
		t.Fatalf("Apply() logged errors: %v", logger.errors)
	}

	devices, err := device.NewSQLiteRepository(db).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	catalog := device.Catalog()
	if len(devices) != len(catalog) {
		t.Fatalf("seeded %d devices, want %d", len(devices), len(catalog))
	}
	for i, d := range devices {
		if d.ID != int64(i+1) || d.Type != catalog[i].Type {
			t.Errorf("devices[%d] = id %d type %s, want id %d type %s",
				i, d.ID, d.Type, i+1, catalog[i].Type)
		}
	}
	if devices[2].Type != device.TypeSensor {
		t.Errorf("device 3 type = %s, want sensor", devices[2].Type)
	}

	if n := countRows(t, db, "SELECT COUNT(*) FROM scenes"); n != len(automation.StarterScenes()) {
		t.Errorf("seeded %d scenes, want %d", n, len(automation.StarterScenes()))
	}
	for _, table := range []string{"schedules", "energy_logs"} {
		if n := countRows(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table); n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestApply_Idempotent(t *testing.T) {
	db := openTestDB(t)
	logger := &recordingLogger{}
	ctx := context.Background()

	Apply(ctx, db, logger)
	Apply(ctx, db, logger)

	if len(logger.errors) != 0 {
		t.Fatalf("second Apply() logged errors: %v", logger.errors)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM devices"); n != len(device.Catalog()) {
		t.Errorf("devices after two runs = %d, want %d", n, len(device.Catalog()))
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM scenes"); n != len(automation.StarterScenes()) {
		t.Errorf("scenes after two runs = %d, want %d", n, len(automation.StarterScenes()))
	}
}

func TestSteps_RerunIsNoop(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	Apply(ctx, db, &recordingLogger{})

	// Each step must tolerate running against data it already produced.
	for _, step := range Steps() {
		t.Run(step.Name, func(t *testing.T) {
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("BeginTx() error = %v", err)
			}
			defer tx.Rollback() //nolint:errcheck // Test cleanup

			if err := step.UpFunc(ctx, tx); err != nil {
				t.Fatalf("%s rerun error = %v", step.Name, err)
			}
			if err := tx.Commit(); err != nil {
				t.Fatalf("Commit() error = %v", err)
			}
		})
	}

	if n := countRows(t, db, "SELECT COUNT(*) FROM devices"); n != len(device.Catalog()) {
		t.Errorf("devices after reruns = %d, want %d", n, len(device.Catalog()))
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM scenes"); n != len(automation.StarterScenes()) {
		t.Errorf("scenes after reruns = %d, want %d", n, len(automation.StarterScenes()))
	}
}

func TestApply_UpgradesLegacyTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// The first release had no mode, battery or power columns and left the
	// light effect unset.
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE devices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT 'off',
			value INTEGER,
			light_effect TEXT
		);
		INSERT INTO devices (name, type, state, value) VALUES
			('Living Room Light', 'light', 'on', 80),
			('Ceiling Fan', 'fan', 'off', 0),
			('Temperature Sensor', 'sensor', 'on', 22);
	`); err != nil {
		t.Fatalf("creating legacy table: %v", err)
	}

	logger := &recordingLogger{}
	Apply(ctx, db, logger)
	if len(logger.errors) != 0 {
		t.Fatalf("Apply() logged errors: %v", logger.errors)
	}

	repo := device.NewSQLiteRepository(db)

	light, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID(1) error = %v", err)
	}
	if light.State != "on" || light.LightEffect != "natural" {
		t.Errorf("legacy light = %+v, want state kept and effect natural", light)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM devices WHERE light_effect IS NULL AND type = 'light'"); n != 0 {
		t.Errorf("%d lights still have NULL light_effect", n)
	}

	sensor, err := repo.GetByID(ctx, 3)
	if err != nil {
		t.Fatalf("GetByID(3) error = %v", err)
	}
	if sensor.Value == nil || *sensor.Value != 22 {
		t.Errorf("legacy sensor value = %v, want 22", sensor.Value)
	}

	// Light, fan and sensor exist already; every other type is added once.
	if n := countRows(t, db, "SELECT COUNT(*) FROM devices"); n != len(device.Catalog()) {
		t.Errorf("devices after upgrade = %d, want %d", n, len(device.Catalog()))
	}
	for _, d := range device.Catalog() {
		if n, err := repo.CountByType(ctx, d.Type); err != nil || n != 1 {
			t.Errorf("CountByType(%s) = %d, %v; want 1", d.Type, n, err)
		}
	}
}

func TestApply_FailureIsLogged(t *testing.T) {
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	logger := &recordingLogger{}
	Apply(context.Background(), db, logger)

	if len(logger.errors) != 1 {
		t.Fatalf("errors logged = %v, want exactly one", logger.errors)
	}
	if len(logger.infos) != 0 {
		t.Errorf("infos logged = %v, want none after failure", logger.infos)
	}
}
