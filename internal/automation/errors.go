package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrSceneNotFound) {
//	    // handle not found case
//	}
var (
	// ErrSceneNotFound is returned when a scene ID does not exist.
	ErrSceneNotFound = errors.New("scene: not found")

	// ErrInvalidScene is returned when a stored scene cannot be decoded.
	ErrInvalidScene = errors.New("scene: invalid")

	// ErrInvalidDeviceID is reported for a patch key that is not a device id.
	ErrInvalidDeviceID = errors.New("scene: invalid device id")
)
