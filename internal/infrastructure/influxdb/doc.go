// Package influxdb writes smart home telemetry to InfluxDB 2.x.
//
// It wraps the official influxdb-client-go v2 library. Two series are written:
//   - device_metrics: sensor readings, currently the simulated temperature
//   - energy: a device's power draw, written on every device change
//
// The integration is optional. Connect returns ErrDisabled when the config
// section is off, and every write on a disconnected client is a no-op.
//
// Writes are non-blocking and batched per the batch_size and flush_interval
// settings. Batch failures are delivered to the SetOnError callback.
package influxdb
