// Package mqttbridge links the device store to an MQTT broker.
//
// Outbound, the Bridge is a device.ChangeNotifier: every change made
// through the API, a scene or the simulator is published as the device's
// JSON row, retained, on {prefix}/state/device/{id}.
//
// Inbound, it accepts commands on {prefix}/command/device/{id} with the
// same actions as the HTTP API:
//
//	{"action": "toggle"}
//	{"action": "set_value", "value": 21}
//	{"action": "set_effect", "effect": "warm"}
//	{"action": "set_ac_mode", "mode": "heat"}
//	{"action": "set_mode", "mode": "eco"}
//
// Commands go through the same validation as HTTP requests. Rejected
// commands are logged; nothing is published back for them.
package mqttbridge
