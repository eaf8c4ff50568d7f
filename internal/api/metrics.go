package api

import (
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/smarthome-core/internal/device"
)

const mebibyte = 1 << 20

// SystemMetrics is the body of GET /api/metrics.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	Devices       DeviceMetrics   `json:"devices"`
	Database      DatabaseMetrics `json:"database"`
}

type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// DeviceMetrics counts devices by type and state. TotalPower matches
// the figure reported by /api/energy.
type DeviceMetrics struct {
	Total      int            `json:"total"`
	Active     int            `json:"active"`
	ByType     map[string]int `json:"by_type"`
	TotalPower float64        `json:"total_power"`
}

type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

func readRuntimeMetrics() RuntimeMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return RuntimeMetrics{
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: float64(ms.Alloc) / mebibyte,
		MemoryTotalMB: float64(ms.TotalAlloc) / mebibyte,
		NumGC:         ms.NumGC,
	}
}

func summarizeDevices(devices []device.Device) DeviceMetrics {
	m := DeviceMetrics{
		Total:      len(devices),
		ByType:     make(map[string]int),
		TotalPower: device.Summarize(devices).TotalPower,
	}
	for _, d := range devices {
		m.ByType[string(d.Type)]++
		if d.IsActive() {
			m.Active++
		}
	}
	return m
}

func poolMetrics(st sql.DBStats) DatabaseMetrics {
	return DatabaseMetrics{
		OpenConnections: st.OpenConnections,
		InUse:           st.InUse,
		Idle:            st.Idle,
		WaitCount:       st.WaitCount,
	}
}

// handleMetrics serves GET /api/metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices for metrics", "error", err)
		writeInternalError(w, "Failed to collect metrics", err)
		return
	}

	writeJSON(w, http.StatusOK, SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Runtime:       readRuntimeMetrics(),
		WebSocket:     WSMetrics{ConnectedClients: s.hub.ClientCount()},
		Devices:       summarizeDevices(devices),
		Database:      poolMetrics(s.db.Stats()),
	})
}
