// Package simulator drives the simulated temperature sensor.
//
// A single Simulator runs for the life of the process, owned by the
// caller's errgroup, and stops when its context is cancelled. Each tick
// reads the sensor through the device store and writes back its value
// plus a random step of -1, 0 or +1. Writing through the store means the
// change reaches WebSocket clients and the MQTT publisher like any other.
//
// Serverless deployments do not start it.
package simulator
