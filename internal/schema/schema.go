package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nerrad567/smarthome-core/internal/automation"
	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
	_ "github.com/nerrad567/smarthome-core/migrations" // registers the table DDL
)

// Logger is the logging surface Apply needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Migrator applies versioned steps. *database.DB implements it.
type Migrator interface {
	Migrate(ctx context.Context, steps ...database.Migration) error
}

// deviceColumn is a devices column added after the first table layout.
type deviceColumn struct {
	name string
	ddl  string
}

// addedDeviceColumns are checked, in order, on every upgrade.
var addedDeviceColumns = []deviceColumn{
	{"light_effect", "TEXT DEFAULT 'natural'"},
	{"ac_mode", "TEXT DEFAULT 'cool'"},
	{"device_mode", "TEXT"},
	{"battery_level", "INTEGER"},
	{"power_consumption", "REAL DEFAULT 0"},
}

// Apply runs all pending schema steps. Failures are logged, not returned.
func Apply(ctx context.Context, db Migrator, logger Logger) {
	if err := db.Migrate(ctx, Steps()...); err != nil {
		logger.Error("schema migration failed, continuing with current schema", "error", err)
		return
	}
	logger.Info("schema up to date")
}

// Steps returns the Go migration steps in version order. They run after
// the SQL files that create the tables.
func Steps() []database.Migration {
	return []database.Migration{
		{Version: "20260301_091000", Name: "device_columns", UpFunc: addDeviceColumns},
		{Version: "20260301_091500", Name: "seed_devices", UpFunc: seedDevices},
		{Version: "20260301_091800", Name: "device_catalog", UpFunc: extendCatalog},
		{Version: "20260301_092000", Name: "seed_scenes", UpFunc: seedScenes},
	}
}

// addDeviceColumns adds any missing column from addedDeviceColumns and
// backfills the light effect on lights that predate it.
func addDeviceColumns(ctx context.Context, tx *sql.Tx) error {
	existing, err := tableColumns(ctx, tx, "devices")
	if err != nil {
		return err
	}

	for _, col := range addedDeviceColumns {
		if existing[col.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE devices ADD COLUMN %s %s", col.name, col.ddl)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("adding devices.%s: %w", col.name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE devices SET light_effect = ? WHERE type = ? AND light_effect IS NULL",
		device.DefaultLightEffect, string(device.TypeLight),
	); err != nil {
		return fmt.Errorf("backfilling light effects: %w", err)
	}
	return nil
}

// seedDevices inserts the catalog when the devices table is empty.
func seedDevices(ctx context.Context, tx *sql.Tx) error {
	repo := device.NewSQLiteRepository(tx)

	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, d := range device.Catalog() {
		if _, err := repo.Insert(ctx, &d); err != nil {
			return fmt.Errorf("seeding %s: %w", d.Name, err)
		}
	}
	return nil
}

// extendCatalog inserts each catalog device whose type has no row yet.
// Installations seeded by an older catalog pick up new types this way.
func extendCatalog(ctx context.Context, tx *sql.Tx) error {
	repo := device.NewSQLiteRepository(tx)

	for _, d := range device.Catalog() {
		n, err := repo.CountByType(ctx, d.Type)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if _, err := repo.Insert(ctx, &d); err != nil {
			return fmt.Errorf("adding %s: %w", d.Type, err)
		}
	}
	return nil
}

// seedScenes inserts the starter scenes when the scenes table is empty.
func seedScenes(ctx context.Context, tx *sql.Tx) error {
	repo := automation.NewSQLiteRepository(tx)

	n, err := repo.CountScenes(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, s := range automation.StarterScenes() {
		if _, err := repo.InsertScene(ctx, &s); err != nil {
			return fmt.Errorf("seeding scene %s: %w", s.Name, err)
		}
	}
	return nil
}

// tableColumns returns the set of column names in table.
func tableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("reading %s columns: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning %s column: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
