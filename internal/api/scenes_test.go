package api

import (
	"net/http"
	"testing"

	"github.com/nerrad567/smarthome-core/internal/automation"
	"github.com/nerrad567/smarthome-core/internal/device"
)

func TestHandleListScenes(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/scenes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	scenes := decodeBody[[]automation.Scene](t, w)
	if len(scenes) != len(automation.StarterScenes()) {
		t.Fatalf("got %d scenes, want %d", len(scenes), len(automation.StarterScenes()))
	}

	sleep := scenes[0]
	if sleep.Name != "Sleep" {
		t.Fatalf("scenes[0].Name = %q, want Sleep", sleep.Name)
	}
	blinds, ok := sleep.DeviceStates["6"]
	if !ok || blinds.State == nil || *blinds.State != "closed" || blinds.Value == nil || *blinds.Value != 0 {
		t.Errorf("Sleep device_states[6] = %+v, want closed/0", blinds)
	}
}

func TestHandleActivateScene_Sleep(t *testing.T) {
	env := testServer(t)

	// Start with the devices the scene switches off turned on.
	for _, id := range []string{"1", "2", "4"} {
		if w := env.do(t, http.MethodPost, "/api/device/"+id+"/toggle", ""); w.Code != http.StatusOK {
			t.Fatalf("toggle %s status = %d", id, w.Code)
		}
	}

	w := env.do(t, http.MethodPost, "/api/scenes/1/activate", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	activation := decodeBody[automation.Activation](t, w)
	if activation.Message != "Scene 'Sleep' activated" {
		t.Errorf("message = %q", activation.Message)
	}

	wantIDs := []string{"1", "2", "4", "6"}
	if len(activation.Results) != len(wantIDs) {
		t.Fatalf("got %d results, want %d", len(activation.Results), len(wantIDs))
	}
	for i, r := range activation.Results {
		if r.DeviceID != wantIDs[i] || r.Status != automation.ResultUpdated {
			t.Errorf("results[%d] = %+v, want device %s updated", i, r, wantIDs[i])
		}
	}

	tests := []struct {
		id        string
		wantState string
		wantValue *int
	}{
		{"1", "off", nil},
		{"2", "off", nil},
		{"4", "off", nil},
		{"6", "closed", device.IntPtr(0)},
	}
	for _, tt := range tests {
		d := decodeBody[device.Device](t, env.do(t, http.MethodGet, "/api/device/"+tt.id, ""))
		if d.State != tt.wantState {
			t.Errorf("device %s state = %q, want %q", tt.id, d.State, tt.wantState)
		}
		if tt.wantValue != nil && (d.Value == nil || *d.Value != *tt.wantValue) {
			t.Errorf("device %s value = %v, want %d", tt.id, d.Value, *tt.wantValue)
		}
	}
}

func TestHandleActivateScene_NotFound(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/scenes/99/activate", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp := decodeBody[ErrorResponse](t, w); resp.Error != "Scene not found" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestHandleListSchedules(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/schedules", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if schedules := decodeBody[[]automation.Schedule](t, w); len(schedules) != 0 {
		t.Errorf("got %d schedules, want none on a fresh install", len(schedules))
	}
}

func TestHandleEnergy(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/energy", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	report := decodeBody[device.EnergyReport](t, w)

	// Active at seed: sensor 0.5, blinds 0, camera 6, thermostat 3,
	// doorbell 4, motion 0.3.
	if report.TotalPower != 13.8 {
		t.Errorf("total_power = %v, want 13.8", report.TotalPower)
	}
	if report.DailyEnergy != 0.33 {
		t.Errorf("daily_energy = %v, want 0.33", report.DailyEnergy)
	}
	if len(report.Devices) != 16 {
		t.Errorf("got %d device entries, want 16", len(report.Devices))
	}

	// Turning the AC on adds its rated draw.
	env.do(t, http.MethodPost, "/api/device/4/toggle", "")
	report = decodeBody[device.EnergyReport](t, env.do(t, http.MethodGet, "/api/energy", ""))
	if report.TotalPower != 1213.8 {
		t.Errorf("total_power with AC on = %v, want 1213.8", report.TotalPower)
	}
}
