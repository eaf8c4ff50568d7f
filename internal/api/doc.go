// Package api implements the HTTP REST API and WebSocket server for the
// smart home backend.
//
// This package provides:
//   - REST endpoints for reading and controlling devices
//   - Scene activation, schedule listing and the energy summary
//   - WebSocket hub for real-time device change broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - The dashboard shell for every path outside /api
//
// # Errors
//
// Every /api response is JSON. Missing resources give 404 {"error": ...},
// rejected input gives 400 {"error": ...}, and any other failure gives
// 500 {"error": ..., "message": ...} carrying the underlying error text.
//
// # Graceful Degradation
//
// MQTT and InfluxDB are optional. When they are not configured the health
// endpoint simply omits them.
package api
