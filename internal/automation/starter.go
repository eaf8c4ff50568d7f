package automation

import "github.com/nerrad567/smarthome-core/internal/device"

// StarterScenes returns the scenes seeded into an empty installation.
// Device ids refer to the default device catalog.
func StarterScenes() []Scene {
	return []Scene{
		{
			Name: "Sleep",
			DeviceStates: map[string]Patch{
				"1": {State: Str("off")},
				"2": {State: Str("off")},
				"4": {State: Str("off")},
				"6": {State: Str("closed"), Value: device.IntPtr(0)},
			},
		},
		{
			Name: "Good Morning",
			DeviceStates: map[string]Patch{
				"1":  {State: Str("on"), LightEffect: Str("natural")},
				"6":  {State: Str("open"), Value: device.IntPtr(100)},
				"11": {State: Str("on"), Value: device.IntPtr(22)},
			},
		},
		{
			Name: "Movie Night",
			DeviceStates: map[string]Patch{
				"1":  {State: Str("on"), LightEffect: Str("dim")},
				"6":  {State: Str("closed"), Value: device.IntPtr(0)},
				"16": {State: Str("on")},
			},
		},
		{
			Name: "Away",
			DeviceStates: map[string]Patch{
				"1": {State: Str("off")},
				"2": {State: Str("off")},
				"4": {State: Str("off")},
				"5": {State: Str("locked")},
				"8": {State: Str("on"), DeviceMode: Str("recording")},
			},
		},
	}
}
