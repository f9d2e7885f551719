// Homesynth - Configuration Synthesis & Validation Pipeline
//
// This is the main entry point for the homesynth service. It turns
// structured requests into validated smart-home configuration documents:
// synthesize from templates, validate against the live entity population,
// test-deploy with automatic rollback, and mine the state-event history
// for automation suggestions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/dwrignell/homesynth/migrations"

	"github.com/dwrignell/homesynth/internal/api"
	"github.com/dwrignell/homesynth/internal/audit"
	"github.com/dwrignell/homesynth/internal/deploy"
	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/entity"
	"github.com/dwrignell/homesynth/internal/infrastructure/config"
	"github.com/dwrignell/homesynth/internal/infrastructure/database"
	"github.com/dwrignell/homesynth/internal/infrastructure/influxdb"
	"github.com/dwrignell/homesynth/internal/infrastructure/logging"
	"github.com/dwrignell/homesynth/internal/infrastructure/mqtt"
	"github.com/dwrignell/homesynth/internal/suggest"
	"github.com/dwrignell/homesynth/internal/synth"
	"github.com/dwrignell/homesynth/internal/template"
	"github.com/dwrignell/homesynth/internal/validate"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting homesynth",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Entity state store over the external runtime
	haClient := entity.NewClient(cfg.HomeAssistant)
	history := entity.NewSQLiteHistory(db.DB)
	store := entity.NewStore(haClient, history, cfg.HomeAssistant.CacheStaleness())
	store.SetLogger(log)

	if refreshErr := store.Refresh(ctx); refreshErr != nil {
		// The runtime may be briefly unreachable at boot; the store
		// refreshes lazily on first read.
		log.Warn("initial entity snapshot failed", "error", refreshErr)
	} else {
		log.Info("entity snapshot loaded", "entities", store.Count())
	}

	// Connect to MQTT broker for statestream ingest (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		// Feed every statestream state change into the event log
		ingestor := entity.NewIngestor(store, cfg.MQTT.StatestreamPrefix)
		ingestor.SetLogger(log)
		if subErr := mqttClient.Subscribe(ingestor.Topic(), byte(cfg.MQTT.QoS), ingestor.HandleMessage); subErr != nil {
			return fmt.Errorf("subscribing to statestream: %w", subErr)
		}
		log.Info("statestream ingest subscribed", "topic", ingestor.Topic())
	} else {
		log.Info("MQTT disabled — statestream ingest off")
	}

	// Connect to InfluxDB for the long-term event archive (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		store.SetArchiver(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Pipeline components
	documents := document.NewSQLiteRepository(db.DB)
	synthesizer := synth.New(store, template.Builtin(), cfg.Synthesis)

	validator := validate.New(store)
	if services, svcErr := haClient.Services(ctx); svcErr != nil {
		// Without the registry the dependency pass is skipped, not failed.
		log.Warn("service registry unavailable — dependency validation disabled", "error", svcErr)
	} else {
		validator.SetServices(services)
		log.Info("service registry loaded", "domains", len(services))
	}

	auditRepo := audit.NewSQLiteRepository(db.DB)
	tester := deploy.NewTester(documents, haClient, auditRepo)
	tester.SetLogger(log)
	if influxClient != nil {
		tester.SetRecorder(influxClient)
	}

	miner := suggest.NewMiner(cfg.Suggestions)
	suggestionRepo := suggest.NewSQLiteRepository(db.DB)
	engine := suggest.NewEngine(miner, synthesizer, store, suggestionRepo, cfg.Suggestions.Window())
	engine.SetLogger(log)

	// HTTP API
	deps := api.Deps{
		Config:      cfg.API,
		Logger:      log,
		Entities:    store,
		Documents:   documents,
		Synth:       synthesizer,
		Validator:   validator,
		Tester:      tester,
		Suggestions: engine,
		AuditRepo:   auditRepo,
		Version:     version,
	}
	if mqttClient != nil {
		deps.Events = mqttClient
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("homesynth stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMESYNTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMESYNTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
