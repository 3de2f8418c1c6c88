// Package saturation is the caller-side service around a display.Instance.
//
// The display core is single-threaded, so the Service serialises every call
// into it behind one mutex. Successful changes are fanned out to an optional
// profile store, an optional telemetry sink and any registered listeners.
// Failures in those side channels are logged and never returned to the
// caller that changed the saturation.
//
// Consumers: the CLI shell, the MQTT bridge and the HTTP API.
package saturation
