package device

import "context"

// ChangeNotifier receives the fresh row after every successful device
// mutation. Implementations must not block for long; they run on the
// caller's goroutine.
type ChangeNotifier interface {
	DeviceChanged(ctx context.Context, d Device)
}

// NotifierFunc adapts a function to ChangeNotifier.
type NotifierFunc func(ctx context.Context, d Device)

// DeviceChanged calls f.
func (f NotifierFunc) DeviceChanged(ctx context.Context, d Device) {
	f(ctx, d)
}

// Notifiers fans a change out to every member in order. Nil members are
// skipped.
type Notifiers []ChangeNotifier

// DeviceChanged notifies each member.
func (n Notifiers) DeviceChanged(ctx context.Context, d Device) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.DeviceChanged(ctx, d)
		}
	}
}
