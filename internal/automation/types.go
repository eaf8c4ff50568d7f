package automation

import "time"

// Scene is a named bundle of device patches applied together. Scenes are
// seeded once and never modified by activation.
type Scene struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// DeviceStates maps a device id (as a decimal string) to the fields to
	// apply to that device.
	DeviceStates map[string]Patch `json:"device_states"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Patch is the subset of device fields a scene may set. Nil fields are
// left untouched.
type Patch struct {
	State       *string `json:"state,omitempty"`
	Value       *int    `json:"value,omitempty"`
	LightEffect *string `json:"light_effect,omitempty"`
	DeviceMode  *string `json:"device_mode,omitempty"`
}

// Schedule is a stored automation rule. Nothing in this system executes
// schedules; they are exposed read-only.
type Schedule struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	DeviceID *int64   `json:"device_id"`
	Action   string   `json:"action"`
	Time     string   `json:"time"`
	Days     []string `json:"days"`
	Enabled  bool     `json:"enabled"`
}

// Activation is the outcome of applying a scene.
type Activation struct {
	Message string         `json:"message"`
	Results []DeviceResult `json:"results"`
}

// DeviceResult reports what happened to one entry of a scene's patch map.
type DeviceResult struct {
	DeviceID string       `json:"device_id"`
	Status   ResultStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
}

// ResultStatus is the per-device outcome of a scene activation.
type ResultStatus string

const (
	ResultUpdated ResultStatus = "updated"
	ResultError   ResultStatus = "error"
)

// Str returns a pointer to s. Used when building patches.
func Str(s string) *string {
	return &s
}
