// Package logging provides structured logging for Homesynth.
//
// It wraps log/slog so every component logs through one configuration:
// JSON for production, text for development, a level filter, and service
// plus version fields stamped on every line.
//
// Configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("entity snapshot loaded", "entities", store.Count())
//
// Never log the Home Assistant token or broker credentials. Domain
// packages that need optional logging accept a small Logger interface
// with a noop default rather than importing this package.
package logging
