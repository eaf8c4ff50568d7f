// Package device provides the Device Store for the smart home backend.
//
// Devices are rows in the devices table, keyed by an integer id assigned
// when the default catalog is seeded. The package is split into:
//
//   - SQLiteRepository: single-column SQL reads and writes, usable on a
//     connection or inside a transaction (repository.go)
//   - Store: the operations exposed over HTTP with their existence, type
//     and input checks (store.go)
//   - Validation of client values (validation.go)
//   - Energy summary over current device states (energy.go)
//   - Change notification fan-out (notifier.go)
//
// # Usage
//
//	store := device.NewStore(device.NewSQLiteRepository(db))
//	store.SetLogger(log)
//	store.SetNotifier(device.Notifiers{hub, publisher})
//
//	d, err := store.Toggle(ctx, 1)
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // 404
//	}
package device
