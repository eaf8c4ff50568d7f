package mqtt

import "fmt"

// DefaultTopicPrefix is used when the config leaves topic_prefix empty.
const DefaultTopicPrefix = "smarthome"

// Topics builds the smart home topic names under a common prefix.
//
//	topics := mqtt.NewTopics("smarthome")
//	topics.DeviceState(3) // "smarthome/state/device/3"
type Topics struct {
	Prefix string
}

// NewTopics returns topic builders rooted at prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// DeviceState is where a device's current row is published, retained.
//
// Example: smarthome/state/device/3
func (t Topics) DeviceState(deviceID int64) string {
	return fmt.Sprintf("%s/state/device/%d", t.Prefix, deviceID)
}

// DeviceCommand is where commands for one device are received.
//
// Example: smarthome/command/device/3
func (t Topics) DeviceCommand(deviceID int64) string {
	return fmt.Sprintf("%s/command/device/%d", t.Prefix, deviceID)
}

// AllDeviceCommands matches the command topic of every device.
//
// Pattern: smarthome/command/device/+
func (t Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/device/+", t.Prefix)
}

// SystemStatus carries the online/offline status of this process.
//
// Example: smarthome/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.Prefix)
}
