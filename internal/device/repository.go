package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repository needs, so the
// same queries run standalone or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository defines the interface for device persistence operations.
type Repository interface {
	// GetByID retrieves a device by its id.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id int64) (*Device, error)

	// List retrieves all devices ordered by id.
	List(ctx context.Context) ([]Device, error)

	// UpdateState, UpdateValue, UpdateLightEffect, UpdateACMode and
	// UpdateDeviceMode write a single column.
	// Each returns ErrDeviceNotFound if no row has the id.
	UpdateState(ctx context.Context, id int64, state string) error
	UpdateValue(ctx context.Context, id int64, value int) error
	UpdateLightEffect(ctx context.Context, id int64, effect string) error
	UpdateACMode(ctx context.Context, id int64, mode string) error
	UpdateDeviceMode(ctx context.Context, id int64, mode string) error
}

// deviceColumns is the select list shared by all device queries.
const deviceColumns = `id, name, type, state, value, light_effect, ac_mode,
	device_mode, battery_level, power_consumption`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db DBTX
}

// NewSQLiteRepository creates a new SQLite-backed repository over a
// connection or an open transaction.
func NewSQLiteRepository(db DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a device by its id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Device, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+deviceColumns+" FROM devices WHERE id = ?", id)
	d, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, storageError("querying device by id", err)
	}
	return d, nil
}

// List retrieves all devices ordered by id ascending.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+deviceColumns+" FROM devices ORDER BY id")
	if err != nil {
		return nil, storageError("querying devices", err)
	}
	defer rows.Close()

	devices := make([]Device, 0)
	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, storageError("scanning device", err)
		}
		devices = append(devices, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterating devices", err)
	}
	return devices, nil
}

// Insert adds a device and returns its assigned id. Empty string fields
// fall back to the column defaults.
func (r *SQLiteRepository) Insert(ctx context.Context, d *Device) (int64, error) {
	lightEffect := d.LightEffect
	if lightEffect == "" {
		lightEffect = DefaultLightEffect
	}
	acMode := d.ACMode
	if acMode == "" {
		acMode = DefaultACMode
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (name, type, state, value, light_effect, ac_mode,
			device_mode, battery_level, power_consumption)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Name,
		string(d.Type),
		d.State,
		nullableInt(d.Value),
		lightEffect,
		acMode,
		nullableString(d.DeviceMode),
		nullableInt(d.BatteryLevel),
		d.PowerConsumption,
	)
	if err != nil {
		return 0, storageError("inserting device", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageError("reading inserted id", err)
	}
	return id, nil
}

// Count returns the number of device rows.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM devices").Scan(&n); err != nil {
		return 0, storageError("counting devices", err)
	}
	return n, nil
}

// CountByType returns the number of devices of type t.
func (r *SQLiteRepository) CountByType(ctx context.Context, t Type) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM devices WHERE type = ?", string(t),
	).Scan(&n); err != nil {
		return 0, storageError("counting devices by type", err)
	}
	return n, nil
}

// UpdateState sets the state column.
func (r *SQLiteRepository) UpdateState(ctx context.Context, id int64, state string) error {
	return r.updateColumn(ctx, id, "state", state)
}

// UpdateValue sets the value column.
func (r *SQLiteRepository) UpdateValue(ctx context.Context, id int64, value int) error {
	return r.updateColumn(ctx, id, "value", value)
}

// UpdateLightEffect sets the light_effect column.
func (r *SQLiteRepository) UpdateLightEffect(ctx context.Context, id int64, effect string) error {
	return r.updateColumn(ctx, id, "light_effect", effect)
}

// UpdateACMode sets the ac_mode column.
func (r *SQLiteRepository) UpdateACMode(ctx context.Context, id int64, mode string) error {
	return r.updateColumn(ctx, id, "ac_mode", mode)
}

// UpdateDeviceMode sets the device_mode column.
func (r *SQLiteRepository) UpdateDeviceMode(ctx context.Context, id int64, mode string) error {
	return r.updateColumn(ctx, id, "device_mode", mode)
}

// updateColumn writes one column of one row. column is always a literal
// from this file, never client input.
func (r *SQLiteRepository) updateColumn(ctx context.Context, id int64, column string, value any) error {
	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE devices SET %s = ? WHERE id = ?", column),
		value, id,
	)
	if err != nil {
		return storageError("updating device "+column, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storageError("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeviceRow scans a row into a Device, applying column defaults for NULLs.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var deviceType string
	var value, batteryLevel sql.NullInt64
	var lightEffect, acMode, deviceMode sql.NullString
	var power sql.NullFloat64

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&deviceType,
		&d.State,
		&value,
		&lightEffect,
		&acMode,
		&deviceMode,
		&batteryLevel,
		&power,
	)
	if err != nil {
		return nil, err
	}

	d.Type = Type(deviceType)
	if value.Valid {
		d.Value = IntPtr(int(value.Int64))
	}
	if batteryLevel.Valid {
		d.BatteryLevel = IntPtr(int(batteryLevel.Int64))
	}

	d.LightEffect = DefaultLightEffect
	if lightEffect.Valid && lightEffect.String != "" {
		d.LightEffect = lightEffect.String
	}
	d.ACMode = DefaultACMode
	if acMode.Valid && acMode.String != "" {
		d.ACMode = acMode.String
	}
	d.DeviceMode = deviceMode.String
	d.PowerConsumption = power.Float64

	return &d, nil
}

// nullableInt converts an optional int to a value suitable for SQL.
func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// nullableString stores empty strings as NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
