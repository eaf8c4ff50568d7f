// Package mqtt connects the smart home backend to an MQTT broker.
//
// The broker link is optional. When enabled it is used to:
//   - publish every device change as a retained message on
//     {prefix}/state/device/{id}
//   - receive device commands on {prefix}/command/device/{id}
//   - announce this process on {prefix}/system/status, with a last will
//     so subscribers see "offline" after a crash
//
// The client reconnects with backoff and replays its subscriptions after
// each reconnect.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().DeviceState(3)
//	err = client.PublishRetained(topic, payload)
package mqtt
