// Ensto Bridge - BLE floor heating thermostat to MQTT
//
// This is the main entry point for the Ensto bridge. The bridge polls
// Ensto ECO-series thermostats over Bluetooth Low Energy and publishes
// their telemetry to MQTT, with optional Home Assistant discovery,
// SQLite reading history, and InfluxDB export.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/ensto-bridge/internal/ble"
	"github.com/nerrad567/ensto-bridge/internal/bridges/ensto"
	"github.com/nerrad567/ensto-bridge/internal/credential"
	"github.com/nerrad567/ensto-bridge/internal/infrastructure/config"
	"github.com/nerrad567/ensto-bridge/internal/infrastructure/database"
	"github.com/nerrad567/ensto-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/ensto-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/ensto-bridge/internal/infrastructure/mqtt"
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
	// Cancel on interrupt signals for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Ensto bridge",
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
	log.Info("configuration loaded", "path", configPath, "devices", len(cfg.Bridge.Devices))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Load stored device credentials
	creds := credential.NewStore(cfg.Storage.CredentialsPath, log)
	log.Info("credential store loaded",
		"path", cfg.Storage.CredentialsPath,
		"credentials", creds.Count(),
	)

	// Open reading history database (optional)
	var history *ensto.History
	if cfg.Storage.HistoryEnabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.Storage.DatabasePath,
			BusyTimeout: cfg.Storage.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		history, err = ensto.NewHistory(db.DB)
		if err != nil {
			return fmt.Errorf("initialising reading history: %w", err)
		}
		log.Info("reading history enabled", "path", cfg.Storage.DatabasePath)
	} else {
		log.Info("reading history disabled")
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	// Connect to InfluxDB (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the device list
	devices := make([]ensto.Device, 0, len(cfg.Bridge.Devices))
	for _, d := range cfg.Bridge.Devices {
		devices = append(devices, ensto.Device{
			Name:    d.Name,
			Address: d.Address,
			Layout:  ensto.ParseLayout(d.Layout),
		})
	}

	// BLE transport and session runner
	transport := ble.New()
	transport.SetLogger(log)

	session, err := ensto.NewSession(ensto.SessionOptions{
		Transport:   transport,
		Credentials: creds,
		Config: ensto.SessionConfig{
			DiscoverTimeout:  cfg.GetDiscoverTimeout(),
			ConnectTimeout:   cfg.GetConnectTimeout(),
			SettleDelay:      cfg.GetSettleDelay(),
			HandshakeRetries: cfg.BLE.HandshakeRetries,
			HandshakeBackoff: cfg.GetHandshakeBackoff(),
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating session runner: %w", err)
	}

	// Home Assistant discovery (optional). Configs are announced by the
	// scheduler after a device's first successful poll, once its hardware
	// address is known.
	var announcer ensto.DeviceAnnouncer
	if cfg.Bridge.DiscoveryEnabled {
		a := ensto.NewAnnouncer(mqttClient, cfg.Bridge.DiscoveryPrefix)
		a.SetLogger(log)
		announcer = a
		log.Info("Home Assistant discovery enabled", "prefix", cfg.Bridge.DiscoveryPrefix)
	} else {
		log.Info("Home Assistant discovery disabled")
	}

	// Poll scheduler
	var recorder ensto.Recorder
	if history != nil {
		recorder = history
	}
	var metrics ensto.MetricsWriter
	if influxClient != nil {
		metrics = influxClient
	}

	scheduler, err := ensto.NewScheduler(ensto.SchedulerOptions{
		Session:   session,
		Publisher: mqttClient,
		Recorder:  recorder,
		Metrics:   metrics,
		Announcer: announcer,
		Config: ensto.SchedulerConfig{
			Devices:      devices,
			PollInterval: cfg.GetPollInterval(),
			QoS:          byte(cfg.MQTT.QoS),
		},
	})
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	scheduler.SetLogger(log)

	// Health reporter
	health := ensto.NewHealthReporter(ensto.HealthReporterConfig{
		Version:   version,
		Interval:  cfg.GetHealthInterval(),
		Publisher: mqttClient,
		Stats:     scheduler,
	})
	health.SetLogger(log)

	// Verify infrastructure is healthy before starting the loops
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if err := health.PublishStarting(); err != nil {
		log.Warn("failed to publish starting status", "error", err)
	}

	scheduler.Start(ctx)
	defer func() {
		log.Info("stopping scheduler")
		scheduler.Stop()
	}()

	health.Start(ctx)
	defer func() {
		log.Info("stopping health reporter")
		health.Stop()
	}()

	log.Info("initialisation complete, polling",
		"devices", len(devices),
		"interval", cfg.GetPollInterval().String(),
	)

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("Ensto bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ENSTO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ENSTO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
