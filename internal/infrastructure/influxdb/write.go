package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementSaturation = "saturation"
)

// WriteSaturation records a saturation change for an output.
//
// The write is non-blocking and silently skipped when the client is not
// connected.
//
// Parameters:
//   - output: Output name (e.g. "DP-1")
//   - backend: Backend name ("ctm" or "nvidia")
//   - value: Saturation that was applied
//   - source: What caused the change ("cli", "api", "mqtt", "restore")
func (c *Client) WriteSaturation(output, backend string, value float64, source string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(saturationPoint(output, backend, value, source, time.Now()))
}

// saturationPoint builds the point written by WriteSaturation.
func saturationPoint(output, backend string, value float64, source string, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementSaturation,
		map[string]string{
			"output":  output,
			"backend": backend,
			"source":  source,
		},
		map[string]any{
			"value": value,
		},
		ts,
	)
}
