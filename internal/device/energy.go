package device

import "math"

// hoursPerDay and wattsPerKilowatt convert instantaneous watts to a daily kWh
// projection.
const (
	hoursPerDay      = 24
	wattsPerKilowatt = 1000
)

// EnergyReport summarises current power draw across all devices.
type EnergyReport struct {
	Devices []EnergyUsage `json:"devices"`
	// TotalPower is the summed draw in watts.
	TotalPower float64 `json:"total_power"`
	// DailyEnergy projects TotalPower over 24 hours, in kWh.
	DailyEnergy float64 `json:"daily_energy"`
}

// EnergyUsage is one device's contribution to an EnergyReport.
type EnergyUsage struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Power float64 `json:"power"`
	State string  `json:"state"`
}

// Summarize builds an EnergyReport. Inactive devices draw 0 W.
func Summarize(devices []Device) EnergyReport {
	report := EnergyReport{Devices: make([]EnergyUsage, 0, len(devices))}

	var total float64
	for i := range devices {
		d := &devices[i]
		power := d.Power()
		total += power
		report.Devices = append(report.Devices, EnergyUsage{
			ID:    d.ID,
			Name:  d.Name,
			Power: power,
			State: d.State,
		})
	}

	report.TotalPower = round2(total)
	report.DailyEnergy = round2(report.TotalPower * hoursPerDay / wattsPerKilowatt)
	return report
}

// Power is the device's current draw in watts: its rated consumption when
// active, otherwise 0.
func (d *Device) Power() float64 {
	if d.IsActive() {
		return d.PowerConsumption
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
