package device

// Catalog returns the default devices seeded into an empty installation,
// one per supported type. Insertion order fixes their ids, starting at 1;
// the temperature sensor is id 3.
func Catalog() []Device {
	return []Device{
		{Name: "Living Room Light", Type: TypeLight, State: StateOff, Value: IntPtr(80), LightEffect: DefaultLightEffect, PowerConsumption: 9.5},
		{Name: "Ceiling Fan", Type: TypeFan, State: StateOff, Value: IntPtr(0), PowerConsumption: 45},
		{Name: "Temperature Sensor", Type: TypeSensor, State: StateOn, Value: IntPtr(26), BatteryLevel: IntPtr(90), PowerConsumption: 0.5},
		{Name: "Air Conditioner", Type: TypeAC, State: StateOff, Value: IntPtr(24), ACMode: DefaultACMode, PowerConsumption: 1200},
		{Name: "Front Door Lock", Type: TypeLock, State: "locked", BatteryLevel: IntPtr(85), PowerConsumption: 0.2},
		{Name: "Bedroom Blinds", Type: TypeBlinds, State: "open", Value: IntPtr(100)},
		{Name: "Smart Plug", Type: TypePlug, State: StateOff, PowerConsumption: 5},
		{Name: "Security Camera", Type: TypeCamera, State: StateOn, DeviceMode: "recording", PowerConsumption: 6},
		{Name: "Smart Speaker", Type: TypeSpeaker, State: StateOff, Value: IntPtr(30), PowerConsumption: 8},
		{Name: "Garage Door", Type: TypeGarage, State: "closed", PowerConsumption: 3},
		{Name: "Thermostat", Type: TypeThermostat, State: StateOn, Value: IntPtr(22), DeviceMode: "auto", PowerConsumption: 3},
		{Name: "Robot Vacuum", Type: TypeVacuum, State: StateOff, BatteryLevel: IntPtr(100), DeviceMode: "auto", PowerConsumption: 30},
		{Name: "Video Doorbell", Type: TypeDoorbell, State: StateOn, BatteryLevel: IntPtr(75), PowerConsumption: 4},
		{Name: "Garden Sprinkler", Type: TypeSprinkler, State: StateOff, DeviceMode: "schedule", PowerConsumption: 20},
		{Name: "Motion Sensor", Type: TypeMotion, State: StateOn, BatteryLevel: IntPtr(60), PowerConsumption: 0.3},
		{Name: "Living Room TV", Type: TypeTV, State: StateOff, Value: IntPtr(15), PowerConsumption: 110},
	}
}
