// Smart Home Core - simulated smart home backend
//
// This is the main entry point. It serves the device, scene, schedule and
// energy API plus the dashboard, keeps the simulated temperature sensor
// moving, and optionally mirrors device changes to MQTT and InfluxDB.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/smarthome-core/internal/api"
	"github.com/nerrad567/smarthome-core/internal/automation"
	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smarthome-core/internal/mqttbridge"
	"github.com/nerrad567/smarthome-core/internal/schema"
	"github.com/nerrad567/smarthome-core/internal/simulator"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Smart Home Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(getConfigPath(), log)
	if err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"serverless", cfg.Deployment.Serverless,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.StoragePath(),
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
	log.Info("database connected", "path", db.Path())

	// Schema problems are logged inside Apply and never stop startup.
	schema.Apply(ctx, db, log.With("component", "schema"))

	store := device.NewStore(device.NewSQLiteRepository(db))
	store.SetLogger(log.With("component", "devices"))
	engine := automation.NewEngine(db, automation.NewSQLiteRepository(db), store, log.With("component", "scenes"))

	hub := api.NewHub(cfg.WebSocket, log)
	notifiers := device.Notifiers{hub}
	checks := make(map[string]api.HealthChecker)
	var metrics simulator.MetricWriter

	if mqttClient := connectMQTT(cfg, log); mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()

		bridge := mqttbridge.New(mqttClient, store, log.With("component", "mqttbridge"))
		if startErr := bridge.Start(); startErr != nil {
			log.Warn("MQTT command subscription failed", "error", startErr)
		}
		notifiers = append(notifiers, bridge)
		checks["mqtt"] = mqttClient
	}

	if influxClient := connectInfluxDB(cfg, log); influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()

		notifiers = append(notifiers, energyRecorder(influxClient))
		metrics = influxClient
		checks["influxdb"] = influxClient
	}

	store.SetNotifier(notifiers)

	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.With("component", "api"),
		DB:      db,
		Devices: store,
		Scenes:  engine,
		Hub:     hub,
		Checks:  checks,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.SimulatorEnabled() {
		sim := simulator.New(store, simulator.Config{
			Interval: cfg.GetSimulatorInterval(),
			SensorID: cfg.Simulator.SensorID,
		}, metrics, log.With("component", "simulator"))

		g.Go(func() error { return sim.Run(gctx) })
		log.Info("temperature simulator started",
			"device_id", cfg.Simulator.SensorID,
			"interval", cfg.GetSimulatorInterval(),
		)
	} else {
		log.Info("temperature simulator disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		return server.Close()
	})

	log.Info("initialisation complete, waiting for shutdown signal")
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Smart Home Core stopped")
	return nil
}

// getConfigPath returns the config file path from SMARTHOME_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv("SMARTHOME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads the config file, falling back to the built-in defaults
// when it does not exist. Any other read, parse or validation error is fatal.
func loadConfig(path string, log *logging.Logger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		log.Info("configuration loaded", "path", path)
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err = config.Defaults()
	if err != nil {
		return nil, fmt.Errorf("loading default config: %w", err)
	}
	log.Info("configuration file not found, using defaults", "path", path)
	return cfg, nil
}

// connectMQTT returns a connected client, or nil when MQTT is disabled or
// the broker cannot be reached. The backend runs without it.
func connectMQTT(cfg *config.Config, log *logging.Logger) *mqtt.Client {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, continuing without it", "error", err)
		return nil
	}
	client.SetLogger(log.With("component", "mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client
}

// connectInfluxDB returns a connected client, or nil when InfluxDB is
// disabled or unreachable.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) *influxdb.Client {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil
	}

	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		log.Warn("InfluxDB unavailable, continuing without it", "error", err)
		return nil
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})

	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client
}

// energyWriter is the part of *influxdb.Client used for power telemetry.
type energyWriter interface {
	WriteEnergyMetric(deviceID int64, deviceType string, powerWatts float64)
}

// energyRecorder writes each changed device's current draw.
func energyRecorder(w energyWriter) device.ChangeNotifier {
	return device.NotifierFunc(func(_ context.Context, d device.Device) {
		w.WriteEnergyMetric(d.ID, string(d.Type), d.Power())
	})
}
