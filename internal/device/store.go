package device

import (
	"context"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store applies the device operations exposed by the API on top of a
// Repository. It holds no cached state: every call reads storage.
//
// Each mutation checks the device exists, writes one column, re-reads the
// row and returns it. Concurrent writers to the same device are last
// writer wins.
//
// All public methods are safe for concurrent use.
type Store struct {
	repo     Repository
	notifier ChangeNotifier
	logger   Logger
}

// NewStore creates a Device Store over repo.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:     repo,
		notifier: Notifiers(nil),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetNotifier sets the receiver of device change notifications.
func (s *Store) SetNotifier(n ChangeNotifier) {
	s.notifier = n
}

// List returns all devices ordered by id.
func (s *Store) List(ctx context.Context) ([]Device, error) {
	return s.repo.List(ctx)
}

// Get returns one device or ErrDeviceNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*Device, error) {
	return s.repo.GetByID(ctx, id)
}

// Toggle flips state: "off" becomes "on", anything else becomes "off".
// The rule is applied to every device type.
func (s *Store) Toggle(ctx context.Context, id int64) (*Device, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := StateOff
	if current.State == StateOff {
		next = StateOn
	}

	return s.mutate(ctx, id, "state", func() error {
		return s.repo.UpdateState(ctx, id, next)
	})
}

// SetValue writes the integer value of a device.
func (s *Store) SetValue(ctx context.Context, id int64, value int) (*Device, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, "value", func() error {
		return s.repo.UpdateValue(ctx, id, value)
	})
}

// SetLightEffect sets the effect of a light. A device that is missing or
// is not a light is reported as ErrDeviceNotFound before the effect is
// validated.
func (s *Store) SetLightEffect(ctx context.Context, id int64, effect string) (*Device, error) {
	if _, err := s.getTyped(ctx, id, TypeLight); err != nil {
		return nil, err
	}
	if err := ValidateLightEffect(effect); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, "light_effect", func() error {
		return s.repo.UpdateLightEffect(ctx, id, effect)
	})
}

// SetACMode sets the mode of an air conditioner, with the same not-found
// rule as SetLightEffect.
func (s *Store) SetACMode(ctx context.Context, id int64, mode string) (*Device, error) {
	if _, err := s.getTyped(ctx, id, TypeAC); err != nil {
		return nil, err
	}
	if err := ValidateACMode(mode); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, "ac_mode", func() error {
		return s.repo.UpdateACMode(ctx, id, mode)
	})
}

// SetDeviceMode sets the free-form mode of any device.
func (s *Store) SetDeviceMode(ctx context.Context, id int64, mode string) (*Device, error) {
	if err := ValidateDeviceMode(mode); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, "device_mode", func() error {
		return s.repo.UpdateDeviceMode(ctx, id, mode)
	})
}

// Energy computes the current power draw summary.
func (s *Store) Energy(ctx context.Context) (*EnergyReport, error) {
	devices, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	report := Summarize(devices)
	return &report, nil
}

// Announce re-reads the given devices and notifies listeners. Used after
// writes made outside the Store, such as a committed scene.
func (s *Store) Announce(ctx context.Context, ids ...int64) {
	for _, id := range ids {
		d, err := s.repo.GetByID(ctx, id)
		if err != nil {
			s.logger.Warn("reading device for change notification failed", "id", id, "error", err)
			continue
		}
		s.notifier.DeviceChanged(ctx, *d)
	}
}

// getTyped returns the device only when it has type t.
func (s *Store) getTyped(ctx context.Context, id int64, t Type) (*Device, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Type != t {
		return nil, ErrDeviceNotFound
	}
	return d, nil
}

// mutate runs write, re-reads the device and notifies listeners.
func (s *Store) mutate(ctx context.Context, id int64, field string, write func() error) (*Device, error) {
	if err := write(); err != nil {
		return nil, err
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("device updated", "id", id, "field", field)
	s.notifier.DeviceChanged(ctx, *d)
	return d, nil
}
