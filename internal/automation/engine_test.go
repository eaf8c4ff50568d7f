package automation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
	_ "github.com/nerrad567/smarthome-core/migrations"
)

// recordingAnnouncer captures the ids passed to Announce.
type recordingAnnouncer struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordingAnnouncer) Announce(_ context.Context, ids ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, ids...)
}

// setupTestDB opens an in-memory database with the migrated tables, the
// default device catalog and the starter scenes.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	devices := device.NewSQLiteRepository(db)
	for _, d := range device.Catalog() {
		if _, err := devices.Insert(ctx, &d); err != nil {
			t.Fatalf("seeding device %s: %v", d.Name, err)
		}
	}

	scenes := NewSQLiteRepository(db)
	for _, s := range StarterScenes() {
		if _, err := scenes.InsertScene(ctx, &s); err != nil {
			t.Fatalf("seeding scene %s: %v", s.Name, err)
		}
	}

	return db
}

func newTestEngine(t *testing.T) (*Engine, *database.DB, *recordingAnnouncer) {
	t.Helper()
	db := setupTestDB(t)
	ann := &recordingAnnouncer{}
	return NewEngine(db, NewSQLiteRepository(db), ann, nil), db, ann
}

func getDevice(t *testing.T, db *database.DB, id int64) *device.Device {
	t.Helper()
	d, err := device.NewSQLiteRepository(db).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%d) error = %v", id, err)
	}
	return d
}

func TestEngine_ActivateSleep(t *testing.T) {
	engine, db, ann := newTestEngine(t)

	// Turn the light on so the scene has a state change to make.
	if err := device.NewSQLiteRepository(db).UpdateState(context.Background(), 1, "on"); err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}

	result, err := engine.Activate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	if result.Message != "Scene 'Sleep' activated" {
		t.Errorf("Message = %q", result.Message)
	}

	wantIDs := []string{"1", "2", "4", "6"}
	if len(result.Results) != len(wantIDs) {
		t.Fatalf("got %d results, want %d", len(result.Results), len(wantIDs))
	}
	for i, r := range result.Results {
		if r.DeviceID != wantIDs[i] || r.Status != ResultUpdated {
			t.Errorf("results[%d] = %+v, want %s updated", i, r, wantIDs[i])
		}
	}

	for _, id := range []int64{1, 2, 4} {
		if d := getDevice(t, db, id); d.State != "off" {
			t.Errorf("device %d state = %q, want off", id, d.State)
		}
	}
	blinds := getDevice(t, db, 6)
	if blinds.State != "closed" || blinds.Value == nil || *blinds.Value != 0 {
		t.Errorf("blinds = %+v, want closed/0", blinds)
	}

	if len(ann.ids) != 4 {
		t.Errorf("announced ids = %v, want 4 devices", ann.ids)
	}
}

func TestEngine_ActivateUnknownScene(t *testing.T) {
	engine, _, ann := newTestEngine(t)

	if _, err := engine.Activate(context.Background(), 99); !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("Activate(99) error = %v, want ErrSceneNotFound", err)
	}
	if len(ann.ids) != 0 {
		t.Errorf("announced %v for unknown scene", ann.ids)
	}
}

func TestEngine_PartialFailure(t *testing.T) {
	engine, db, ann := newTestEngine(t)
	ctx := context.Background()

	scene := Scene{
		Name: "Broken",
		DeviceStates: map[string]Patch{
			"1":    {State: Str("on"), LightEffect: Str("vivid")},
			"404":  {State: Str("on")},
			"lamp": {State: Str("on")},
			"2":    {Value: device.IntPtr(3)},
		},
	}
	id, err := NewSQLiteRepository(db).InsertScene(ctx, &scene)
	if err != nil {
		t.Fatalf("InsertScene() error = %v", err)
	}

	result, err := engine.Activate(ctx, id)
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	want := []DeviceResult{
		{DeviceID: "1", Status: ResultUpdated},
		{DeviceID: "2", Status: ResultUpdated},
		{DeviceID: "404", Status: ResultError, Message: "Device not found"},
		{DeviceID: "lamp", Status: ResultError, Message: "invalid device id"},
	}
	if len(result.Results) != len(want) {
		t.Fatalf("results = %+v, want %d entries", result.Results, len(want))
	}
	for i := range want {
		if result.Results[i] != want[i] {
			t.Errorf("results[%d] = %+v, want %+v", i, result.Results[i], want[i])
		}
	}

	light := getDevice(t, db, 1)
	if light.State != "on" || light.LightEffect != "vivid" {
		t.Errorf("light = %+v, want on/vivid committed despite other failures", light)
	}
	if fan := getDevice(t, db, 2); fan.Value == nil || *fan.Value != 3 {
		t.Errorf("fan value = %v, want 3", fan.Value)
	}

	if len(ann.ids) != 2 || ann.ids[0] != 1 || ann.ids[1] != 2 {
		t.Errorf("announced ids = %v, want [1 2]", ann.ids)
	}
}

func TestEngine_StateWrittenOnlyWhenDifferent(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	ctx := context.Background()

	// A trigger counts writes to the state column.
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE state_writes (n INTEGER);
		INSERT INTO state_writes VALUES (0);
		CREATE TRIGGER count_state AFTER UPDATE OF state ON devices
		BEGIN UPDATE state_writes SET n = n + 1; END;
	`); err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	// Devices 1, 2 and 4 are already off; only the blinds change state.
	if _, err := engine.Activate(ctx, 1); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT n FROM state_writes").Scan(&n); err != nil {
		t.Fatalf("reading counter: %v", err)
	}
	if n != 1 {
		t.Errorf("state writes = %d, want 1", n)
	}
}

func TestEngine_ListScenesAndSchedules(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	ctx := context.Background()

	scenes, err := engine.ListScenes(ctx)
	if err != nil {
		t.Fatalf("ListScenes() error = %v", err)
	}
	if len(scenes) != len(StarterScenes()) || scenes[0].Name != "Sleep" {
		t.Errorf("ListScenes() = %+v", scenes)
	}
	if scenes[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not parsed")
	}
	if p := scenes[0].DeviceStates["6"]; p.State == nil || *p.State != "closed" {
		t.Errorf("Sleep patch for 6 = %+v", p)
	}

	schedules, err := engine.ListSchedules(ctx)
	if err != nil {
		t.Fatalf("ListSchedules() error = %v", err)
	}
	if schedules == nil || len(schedules) != 0 {
		t.Errorf("ListSchedules() = %#v, want empty slice", schedules)
	}

	devID := int64(7)
	if _, err := NewSQLiteRepository(db).InsertSchedule(ctx, &Schedule{
		Name: "Plug at dusk", DeviceID: &devID, Action: "on", Time: "19:30",
		Days: []string{"mon", "wed", "fri"}, Enabled: true,
	}); err != nil {
		t.Fatalf("InsertSchedule() error = %v", err)
	}

	schedules, err = engine.ListSchedules(ctx)
	if err != nil {
		t.Fatalf("ListSchedules() error = %v", err)
	}
	if len(schedules) != 1 || len(schedules[0].Days) != 3 || !schedules[0].Enabled ||
		*schedules[0].DeviceID != 7 {
		t.Errorf("ListSchedules() = %+v", schedules)
	}
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`["mon","tue"]`, 2},
		{"mon, tue ,wed", 3},
		{"", 0},
		{"null", 0},
	}
	for _, tt := range tests {
		if got := parseDays(tt.raw); len(got) != tt.want || got == nil {
			t.Errorf("parseDays(%q) = %#v, want %d entries", tt.raw, got, tt.want)
		}
	}
}

func TestSortedKeys(t *testing.T) {
	keys := sortedKeys(map[string]Patch{"10": {}, "2": {}, "b": {}, "1": {}, "a": {}})
	want := []string{"1", "2", "10", "a", "b"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("sortedKeys() = %v, want %v", keys, want)
		}
	}
}
