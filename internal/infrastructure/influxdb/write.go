package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	measurementDevice = "device_metrics"
	measurementEnergy = "energy"
)

// WriteDeviceMetric records one reading for a device, for example the
// simulated sensor temperature:
//
//	client.WriteDeviceMetric(3, "temperature_c", 26)
func (c *Client) WriteDeviceMetric(deviceID int64, metric string, value float64) {
	c.writePoint(measurementDevice, deviceID, "measurement", metric, "value", value)
}

// WriteEnergyMetric records a device's current power draw in watts.
func (c *Client) WriteEnergyMetric(deviceID int64, deviceType string, powerWatts float64) {
	c.writePoint(measurementEnergy, deviceID, "type", deviceType, "power_watts", powerWatts)
}

// writePoint queues a single-field point tagged with the device id and
// one extra tag.
func (c *Client) writePoint(measurement string, deviceID int64, tagKey, tagValue, field string, value float64) {
	if !c.IsConnected() {
		return
	}
	p := write.NewPointWithMeasurement(measurement).
		AddTag("device_id", strconv.FormatInt(deviceID, 10)).
		AddTag(tagKey, tagValue).
		AddField(field, value).
		SetTime(time.Now())
	c.writeAPI.WritePoint(p)
}
