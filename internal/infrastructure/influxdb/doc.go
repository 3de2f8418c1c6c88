// Package influxdb records saturation changes as time-series points.
//
// Each successful change becomes one "saturation" point tagged with the
// output, backend and source, carrying the applied value. Writes are batched
// and never block the caller; failures go to the callback given to Connect.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, onError)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSaturation("DP-1", "ctm", 1.5, "api")
package influxdb
