package automation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/nerrad567/smarthome-core/internal/device"
)

// savepointName is reused for each device; savepoints are released before
// the next device starts.
const savepointName = "scene_device"

// Logger defines the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// TxBeginner starts the transaction a scene is applied in.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// DeviceAnnouncer is told which devices a committed scene changed.
type DeviceAnnouncer interface {
	Announce(ctx context.Context, ids ...int64)
}

// Engine applies scenes to devices.
//
// All patches of one activation share a transaction. Each device runs under
// its own savepoint, so a failing device rolls back only its own writes and
// is reported in the results while the others commit.
//
// Thread Safety: Activate is safe for concurrent use; SQLite serialises the
// transactions.
type Engine struct {
	db        TxBeginner
	repo      Repository
	announcer DeviceAnnouncer
	logger    Logger
}

// NewEngine creates a new scene engine.
//
// Parameters:
//   - db: Connection used to open the activation transaction
//   - repo: Scene repository
//   - announcer: Receives the ids of changed devices after commit (may be nil)
//   - logger: Logger instance (may be nil)
func NewEngine(db TxBeginner, repo Repository, announcer DeviceAnnouncer, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		db:        db,
		repo:      repo,
		announcer: announcer,
		logger:    logger,
	}
}

// ListScenes returns all scenes.
func (e *Engine) ListScenes(ctx context.Context) ([]Scene, error) {
	return e.repo.ListScenes(ctx)
}

// ListSchedules returns all stored schedules.
func (e *Engine) ListSchedules(ctx context.Context) ([]Schedule, error) {
	return e.repo.ListSchedules(ctx)
}

// Activate applies scene sceneID.
//
// For each entry in the scene's patch map, state is written only when it
// differs from the device's current state; value, light_effect and
// device_mode are written whenever present. Results are ordered by device id.
//
// Returns:
//   - *Activation: message plus one result per patch entry
//   - error: ErrSceneNotFound, or a storage failure that prevented commit
func (e *Engine) Activate(ctx context.Context, sceneID int64) (*Activation, error) {
	scene, err := e.repo.GetScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting scene transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	devices := device.NewSQLiteRepository(tx)
	results := make([]DeviceResult, 0, len(scene.DeviceStates))
	var changed []int64

	for _, key := range sortedKeys(scene.DeviceStates) {
		id, applyErr := e.applyIsolated(ctx, tx, devices, key, scene.DeviceStates[key])
		if applyErr != nil {
			e.logger.Warn("scene device update failed",
				"scene_id", scene.ID, "device_id", key, "error", applyErr)
			results = append(results, DeviceResult{
				DeviceID: key,
				Status:   ResultError,
				Message:  resultMessage(applyErr),
			})
			continue
		}
		changed = append(changed, id)
		results = append(results, DeviceResult{DeviceID: key, Status: ResultUpdated})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing scene: %w", err)
	}

	e.logger.Info("scene activated", "scene_id", scene.ID, "name", scene.Name,
		"updated", len(changed), "failed", len(results)-len(changed))

	if e.announcer != nil && len(changed) > 0 {
		e.announcer.Announce(ctx, changed...)
	}

	return &Activation{
		Message: fmt.Sprintf("Scene '%s' activated", scene.Name),
		Results: results,
	}, nil
}

// applyIsolated applies one patch inside a savepoint.
func (e *Engine) applyIsolated(ctx context.Context, tx *sql.Tx, devices *device.SQLiteRepository, key string, p Patch) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, ErrInvalidDeviceID
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepointName); err != nil {
		return 0, fmt.Errorf("opening savepoint: %w", err)
	}

	if err := applyPatch(ctx, devices, id, p); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO "+savepointName); rbErr != nil {
			return 0, errors.Join(err, fmt.Errorf("rolling back savepoint: %w", rbErr))
		}
		if _, relErr := tx.ExecContext(ctx, "RELEASE "+savepointName); relErr != nil {
			return 0, errors.Join(err, fmt.Errorf("releasing savepoint: %w", relErr))
		}
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE "+savepointName); err != nil {
		return 0, fmt.Errorf("releasing savepoint: %w", err)
	}
	return id, nil
}

// applyPatch writes the patch fields to one device.
func applyPatch(ctx context.Context, devices *device.SQLiteRepository, id int64, p Patch) error {
	current, err := devices.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if p.State != nil && *p.State != current.State {
		if err := devices.UpdateState(ctx, id, *p.State); err != nil {
			return err
		}
	}
	if p.Value != nil {
		if err := devices.UpdateValue(ctx, id, *p.Value); err != nil {
			return err
		}
	}
	if p.LightEffect != nil {
		if err := devices.UpdateLightEffect(ctx, id, *p.LightEffect); err != nil {
			return err
		}
	}
	if p.DeviceMode != nil {
		if err := devices.UpdateDeviceMode(ctx, id, *p.DeviceMode); err != nil {
			return err
		}
	}
	return nil
}

// resultMessage is the client-facing text for a failed device.
func resultMessage(err error) string {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		return "Device not found"
	case errors.Is(err, ErrInvalidDeviceID):
		return "invalid device id"
	default:
		return err.Error()
	}
}

// sortedKeys orders patch keys numerically; keys that are not integers
// sort after all numeric keys, lexically.
func sortedKeys(states map[string]Patch) []string {
	keys := make([]string, 0, len(states))
	for k := range states {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
