package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/smarthome-core/internal/device"
)

// Repository defines the interface for scene and schedule persistence.
type Repository interface {
	// GetScene retrieves a scene by id.
	// Returns ErrSceneNotFound if the scene does not exist.
	GetScene(ctx context.Context, id int64) (*Scene, error)

	// ListScenes retrieves all scenes ordered by id.
	ListScenes(ctx context.Context) ([]Scene, error)

	// ListSchedules retrieves all schedules ordered by id.
	ListSchedules(ctx context.Context) ([]Schedule, error)
}

// createdAtLayouts are the timestamp formats found in scenes.created_at.
var createdAtLayouts = []string{time.RFC3339, "2006-01-02 15:04:05"}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db device.DBTX
}

// NewSQLiteRepository creates a new SQLite-backed repository over a
// connection or an open transaction.
func NewSQLiteRepository(db device.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetScene retrieves a scene by id.
func (r *SQLiteRepository) GetScene(ctx context.Context, id int64) (*Scene, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, device_states, created_at FROM scenes WHERE id = ?", id)
	s, err := scanSceneRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("querying scene by id: %w", err)
	}
	return s, nil
}

// ListScenes retrieves all scenes ordered by id.
func (r *SQLiteRepository) ListScenes(ctx context.Context) ([]Scene, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, device_states, created_at FROM scenes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying scenes: %w", err)
	}
	defer rows.Close()

	scenes := make([]Scene, 0)
	for rows.Next() {
		s, scanErr := scanSceneRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning scene: %w", scanErr)
		}
		scenes = append(scenes, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scenes: %w", err)
	}
	return scenes, nil
}

// InsertScene adds a scene and returns its id.
func (r *SQLiteRepository) InsertScene(ctx context.Context, s *Scene) (int64, error) {
	states, err := json.Marshal(s.DeviceStates)
	if err != nil {
		return 0, fmt.Errorf("marshalling device_states: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO scenes (name, device_states) VALUES (?, ?)",
		s.Name, string(states),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting scene: %w", err)
	}
	return result.LastInsertId()
}

// CountScenes returns the number of scene rows.
func (r *SQLiteRepository) CountScenes(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scenes").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting scenes: %w", err)
	}
	return n, nil
}

// ListSchedules retrieves all schedules ordered by id.
func (r *SQLiteRepository) ListSchedules(ctx context.Context) ([]Schedule, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, device_id, action, time, days, enabled FROM schedules ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]Schedule, 0)
	for rows.Next() {
		var s Schedule
		var deviceID sql.NullInt64
		var action, at, days sql.NullString
		var enabled int

		if err := rows.Scan(&s.ID, &s.Name, &deviceID, &action, &at, &days, &enabled); err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		if deviceID.Valid {
			id := deviceID.Int64
			s.DeviceID = &id
		}
		s.Action = action.String
		s.Time = at.String
		s.Days = parseDays(days.String)
		s.Enabled = enabled != 0

		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}
	return schedules, nil
}

// InsertSchedule adds a schedule and returns its id.
func (r *SQLiteRepository) InsertSchedule(ctx context.Context, s *Schedule) (int64, error) {
	days, err := json.Marshal(s.Days)
	if err != nil {
		return 0, fmt.Errorf("marshalling days: %w", err)
	}

	enabled := 0
	if s.Enabled {
		enabled = 1
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO schedules (name, device_id, action, time, days, enabled)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Name, s.DeviceID, s.Action, s.Time, string(days), enabled,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting schedule: %w", err)
	}
	return result.LastInsertId()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSceneRow(scanner rowScanner) (*Scene, error) {
	var s Scene
	var statesJSON sql.NullString
	var createdAt sql.NullString

	if err := scanner.Scan(&s.ID, &s.Name, &statesJSON, &createdAt); err != nil {
		return nil, err
	}

	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, createdAt.String); err == nil {
			s.CreatedAt = t.UTC()
			break
		}
	}

	s.DeviceStates = map[string]Patch{}
	if statesJSON.String != "" {
		if err := json.Unmarshal([]byte(statesJSON.String), &s.DeviceStates); err != nil {
			return nil, fmt.Errorf("%w: scene %d device_states: %w", ErrInvalidScene, s.ID, err)
		}
	}

	return &s, nil
}

// parseDays reads the days column: a JSON array, or a comma-separated list
// from hand-edited rows.
func parseDays(raw string) []string {
	days := []string{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return days
	}
	if err := json.Unmarshal([]byte(raw), &days); err == nil {
		if days == nil {
			return []string{}
		}
		return days
	}

	days = []string{}
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			days = append(days, d)
		}
	}
	return days
}
