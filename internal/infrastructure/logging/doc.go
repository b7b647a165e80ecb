// Package logging provides structured logging for the MQTT event publisher.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same handler, level and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("delivery complete", "published", 3)
//	logger.Warn("delivery attempt failed", "error", err)
//
// # Security
//
// Never log broker passwords or TLS key material. Connection options are
// logged by host, port and client ID only.
package logging
