package simulator

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/nerrad567/smarthome-core/internal/device"
)

// Default settings.
const (
	DefaultInterval = 5 * time.Second
	DefaultSensorID = 3

	// metricTemperature is the telemetry name for simulated readings.
	metricTemperature = "temperature_c"
)

// Store is the device access the simulator needs. *device.Store implements it.
type Store interface {
	Get(ctx context.Context, id int64) (*device.Device, error)
	SetValue(ctx context.Context, id int64, value int) (*device.Device, error)
}

// MetricWriter receives each new reading. *influxdb.Client implements it.
type MetricWriter interface {
	WriteDeviceMetric(deviceID int64, metric string, value float64)
}

// Logger is the logging surface the simulator uses.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Config controls the simulator.
type Config struct {
	// Interval is the pause between updates. Zero means DefaultInterval.
	Interval time.Duration
	// SensorID is the device to perturb. Zero means DefaultSensorID.
	SensorID int64
}

// Simulator nudges one temperature sensor's value by a random step in
// [-1, +1] on every tick.
type Simulator struct {
	store    Store
	metrics  MetricWriter
	logger   Logger
	interval time.Duration
	sensorID int64

	// step returns the next perturbation. Tests replace it.
	step func() int
}

// New creates a Simulator. metrics and logger may be nil.
func New(store Store, cfg Config, metrics MetricWriter, logger Logger) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SensorID == 0 {
		cfg.SensorID = DefaultSensorID
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Simulator{
		store:    store,
		metrics:  metrics,
		logger:   logger,
		interval: cfg.Interval,
		sensorID: cfg.SensorID,
		step:     func() int { return rand.IntN(3) - 1 }, //nolint:gosec // Simulation, not security
	}
}

// Run updates the sensor once per interval until ctx is cancelled.
// It always returns nil; a failed tick is logged and the loop carries on.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("temperature update failed", "device_id", s.sensorID, "error", err)
			}
		}
	}
}

// Tick performs one update. It reports false without error when the
// sensor is missing, is not a sensor, or has no value to perturb.
func (s *Simulator) Tick(ctx context.Context) (bool, error) {
	sensor, err := s.store.Get(ctx, s.sensorID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return false, nil
		}
		return false, err
	}
	if sensor.Type != device.TypeSensor || sensor.Value == nil {
		return false, nil
	}

	from := *sensor.Value
	to := from + s.step()

	if _, err := s.store.SetValue(ctx, s.sensorID, to); err != nil {
		return false, err
	}

	s.logger.Debug("temperature updated", "device_id", s.sensorID, "from", from, "to", to)
	if s.metrics != nil {
		s.metrics.WriteDeviceMetric(s.sensorID, metricTemperature, float64(to))
	}
	return true, nil
}
