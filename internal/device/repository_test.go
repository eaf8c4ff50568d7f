package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testSchema mirrors the devices table created by migrations.
const testSchema = `
	CREATE TABLE devices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'off',
		value INTEGER,
		light_effect TEXT DEFAULT 'natural',
		ac_mode TEXT DEFAULT 'cool',
		device_mode TEXT,
		battery_level INTEGER,
		power_consumption REAL DEFAULT 0
	);
`

// setupTestDB creates an in-memory SQLite database with the devices table
// seeded from the catalog.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	repo := NewSQLiteRepository(db)
	for _, d := range Catalog() {
		if _, err := repo.Insert(context.Background(), &d); err != nil {
			t.Fatalf("seeding %s: %v", d.Name, err)
		}
	}

	return db
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	devices, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	catalog := Catalog()
	if len(devices) != len(catalog) {
		t.Fatalf("List() returned %d devices, want %d", len(devices), len(catalog))
	}
	for i, d := range devices {
		if d.ID != int64(i+1) {
			t.Errorf("devices[%d].ID = %d, want %d", i, d.ID, i+1)
		}
		if d.Type != catalog[i].Type {
			t.Errorf("devices[%d].Type = %q, want %q", i, d.Type, catalog[i].Type)
		}
	}
}

func TestSQLiteRepository_List_Empty(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	devices, err := NewSQLiteRepository(db).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if devices == nil || len(devices) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", devices)
	}
}

func TestSQLiteRepository_GetByID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	sensor, err := repo.GetByID(ctx, 3)
	if err != nil {
		t.Fatalf("GetByID(3) error = %v", err)
	}
	if sensor.Type != TypeSensor || sensor.Value == nil || *sensor.Value != 26 {
		t.Errorf("GetByID(3) = %+v, want sensor with value 26", sensor)
	}

	if _, err := repo.GetByID(ctx, 999); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID(999) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_NullColumnsUseDefaults(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.Exec(`UPDATE devices SET light_effect = NULL, ac_mode = NULL,
		device_mode = NULL, power_consumption = NULL, value = NULL WHERE id = 7`); err != nil {
		t.Fatalf("nulling columns: %v", err)
	}

	plug, err := NewSQLiteRepository(db).GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByID(7) error = %v", err)
	}
	if plug.LightEffect != "natural" || plug.ACMode != "cool" || plug.DeviceMode != "" ||
		plug.PowerConsumption != 0 || plug.Value != nil || plug.BatteryLevel != nil {
		t.Errorf("GetByID(7) = %+v, want column defaults", plug)
	}
}

func TestSQLiteRepository_Updates(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name  string
		apply func(id int64) error
		check func(d *Device) bool
	}{
		{"state", func(id int64) error { return repo.UpdateState(ctx, id, "on") },
			func(d *Device) bool { return d.State == "on" }},
		{"value", func(id int64) error { return repo.UpdateValue(ctx, id, 42) },
			func(d *Device) bool { return d.Value != nil && *d.Value == 42 }},
		{"light_effect", func(id int64) error { return repo.UpdateLightEffect(ctx, id, "dim") },
			func(d *Device) bool { return d.LightEffect == "dim" }},
		{"ac_mode", func(id int64) error { return repo.UpdateACMode(ctx, id, "heat") },
			func(d *Device) bool { return d.ACMode == "heat" }},
		{"device_mode", func(id int64) error { return repo.UpdateDeviceMode(ctx, id, "eco") },
			func(d *Device) bool { return d.DeviceMode == "eco" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.apply(1); err != nil {
				t.Fatalf("update error = %v", err)
			}
			d, err := repo.GetByID(ctx, 1)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if !tt.check(d) {
				t.Errorf("device after update = %+v", d)
			}

			if err := tt.apply(999); !errors.Is(err, ErrDeviceNotFound) {
				t.Errorf("update missing device error = %v, want ErrDeviceNotFound", err)
			}
		})
	}
}

func TestSQLiteRepository_Counts(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	n, err := repo.Count(ctx)
	if err != nil || n != len(Catalog()) {
		t.Errorf("Count() = %d, %v; want %d", n, err, len(Catalog()))
	}

	n, err = repo.CountByType(ctx, TypeLight)
	if err != nil || n != 1 {
		t.Errorf("CountByType(light) = %d, %v; want 1", n, err)
	}

	n, err = repo.CountByType(ctx, Type("toaster"))
	if err != nil || n != 0 {
		t.Errorf("CountByType(toaster) = %d, %v; want 0", n, err)
	}
}

func TestSQLiteRepository_StorageError(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	// No devices table: every query fails in the driver.
	_, err = NewSQLiteRepository(db).List(context.Background())
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("List() error = %v, want ErrStorage", err)
	}

	var se *StorageError
	if !errors.As(err, &se) || se.Op != "querying devices" {
		t.Errorf("errors.As StorageError = %+v", se)
	}
}
