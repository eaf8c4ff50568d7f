package device

// Device is one simulated smart-home device row.
//
// Optional columns are always serialised: Value and BatteryLevel as null
// when absent, the string fields and PowerConsumption as their defaults.
type Device struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Type             Type    `json:"type"`
	State            string  `json:"state"`
	Value            *int    `json:"value"`
	LightEffect      string  `json:"light_effect"`
	ACMode           string  `json:"ac_mode"`
	DeviceMode       string  `json:"device_mode"`
	BatteryLevel     *int    `json:"battery_level"`
	PowerConsumption float64 `json:"power_consumption"`
}

// Type classifies a device. The set is open in storage but the catalog
// seeds exactly one device of each known type.
type Type string

// Known device types, in catalog order.
const (
	TypeLight      Type = "light"
	TypeFan        Type = "fan"
	TypeSensor     Type = "sensor"
	TypeAC         Type = "ac"
	TypeLock       Type = "lock"
	TypeBlinds     Type = "blinds"
	TypePlug       Type = "plug"
	TypeCamera     Type = "camera"
	TypeSpeaker    Type = "speaker"
	TypeGarage     Type = "garage"
	TypeThermostat Type = "thermostat"
	TypeVacuum     Type = "vacuum"
	TypeDoorbell   Type = "doorbell"
	TypeSprinkler  Type = "sprinkler"
	TypeMotion     Type = "motion"
	TypeTV         Type = "tv"
)

// State literals used by toggle and the energy summary.
const (
	StateOn  = "on"
	StateOff = "off"
)

// Column defaults applied when a row holds NULL.
const (
	DefaultLightEffect = "natural"
	DefaultACMode      = "cool"
)

// LightEffects is the closed set accepted by SetLightEffect, in the order
// reported to clients.
var LightEffects = []string{"vivid", "natural", "warm", "cool", "dim", "bright"}

// ACModes is the closed set accepted by SetACMode, in the order reported
// to clients.
var ACModes = []string{"cool", "heat", "fan", "auto"}

// activeStates are the states in which a device draws its rated power.
var activeStates = map[string]bool{
	StateOn:     true,
	"open":      true,
	"unlocked":  true,
	"recording": true,
	"playing":   true,
	"cleaning":  true,
	"running":   true,
}

// IsActive reports whether the device currently draws power.
func (d *Device) IsActive() bool {
	return activeStates[d.State]
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
