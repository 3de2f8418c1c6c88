// Package logging provides structured logging for vibrant.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("saturation changed", "output", "DP-1", "value", 1.5)
//	logger.Error("failed to connect", "error", err)
//
// Never log secrets such as MQTT passwords or InfluxDB tokens.
package logging
