// Package config handles loading and validating Homesynth configuration.
//
// A single YAML file describes the whole service: the SQLite store, the
// Home Assistant connection, the optional MQTT statestream ingest and
// InfluxDB archive, the HTTP API, and the synthesis and suggestion knobs.
// Defaults are applied first, then the file, then HOMESYNTH_* environment
// variables, so a container deployment can run with env vars alone.
//
// Security considerations:
//   - Sensitive values (the Home Assistant token, broker credentials)
//     should be set via environment variables rather than the file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.HomeAssistant.BaseURL)
package config
