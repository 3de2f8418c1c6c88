package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          *ConnMetrics     `json:"mqtt,omitempty"`
	InfluxDB      *ConnMetrics     `json:"influxdb,omitempty"`
	Outputs       OutputMetrics    `json:"outputs"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int   `json:"connected_clients"`
	EventsDelivered  int64 `json:"events_delivered"`
	EventsDropped    int64 `json:"events_dropped"`
}

// ConnMetrics reports an optional client's connection state.
type ConnMetrics struct {
	Connected bool `json:"connected"`
}

// OutputMetrics counts controllable outputs.
type OutputMetrics struct {
	Total     int            `json:"total"`
	ByBackend map[string]int `json:"by_backend"`
	Failing   int            `json:"failing"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

const bytesPerMB = 1024 * 1024

// handleMetrics returns system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(memStats.TotalAlloc) / bytesPerMB,
			NumGC:         memStats.NumGC,
		},
		WebSocket: s.hub.Metrics(),
		Outputs: OutputMetrics{ByBackend: make(map[string]int)},
	}

	if s.mqtt != nil {
		metrics.MQTT = &ConnMetrics{Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		metrics.InfluxDB = &ConnMetrics{Connected: s.influx.IsConnected()}
	}

	if outputs, err := s.service.Outputs(r.Context()); err == nil {
		metrics.Outputs.Total = len(outputs)
		for _, o := range outputs {
			metrics.Outputs.ByBackend[o.Backend]++
			if o.Error != "" {
				metrics.Outputs.Failing++
			}
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
