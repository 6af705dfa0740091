// Gray Logic Toshiba Bridge
//
// This is the entry point for the Toshiba air-conditioner bridge. It keeps
// the unit catalogue in SQLite, exchanges raw states with the units over the
// vendor channel relay on MQTT, and exposes decoded state to Gray Logic Core.
// Telemetry goes to InfluxDB when enabled; Prometheus metrics are served on
// the configured address.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-toshiba/internal/bridges/toshiba"
	"github.com/nerrad567/gray-logic-toshiba/internal/device"
	"github.com/nerrad567/gray-logic-toshiba/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-toshiba/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-toshiba/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-toshiba/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-toshiba/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-toshiba/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	metricsReadHeaderTimeout = 5 * time.Second
	metricsShutdownTimeout   = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the infrastructure and the bridge, then blocks until ctx is
// cancelled. Deferred closes run in reverse start order.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Toshiba bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("catalogue"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device catalogue: %w", refreshErr)
	}
	log.Info("device catalogue loaded", "devices", registry.GetDeviceCount())

	// The bridge config is needed before MQTT connects so the broker can
	// hold this bridge's offline status as the will.
	var bridgeCfg *toshiba.Config
	var will *mqtt.Will
	if cfg.Protocols.Toshiba.Enabled {
		bridgeCfg, err = toshiba.LoadConfig(cfg.Protocols.Toshiba.ConfigFile)
		if err != nil {
			return fmt.Errorf("loading Toshiba bridge config: %w", err)
		}
		log.Info("Toshiba bridge config loaded",
			"path", cfg.Protocols.Toshiba.ConfigFile,
			"devices", len(bridgeCfg.Devices),
		)

		will, err = bridgeWill(bridgeCfg.Bridge.ID)
		if err != nil {
			return err
		}
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, will)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	reg := newMetricsRegistry()
	metrics := toshiba.NewMetrics()
	if regErr := metrics.Register(reg); regErr != nil {
		return fmt.Errorf("registering metrics: %w", regErr)
	}

	if cfg.Metrics.Enabled {
		srv := newMetricsServer(cfg, reg)
		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", serveErr)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				log.Error("error stopping metrics server", "error", shutdownErr)
			}
		}()
		log.Info("metrics server listening", "addr", srv.Addr, "path", cfg.Metrics.Path)
	}

	if bridgeCfg != nil {
		opts := toshiba.BridgeOptions{
			Config:     bridgeCfg,
			MQTTClient: &mqttBridgeAdapter{client: mqttClient},
			Version:    version,
			Logger:     log.Component("toshiba"),
			Catalogue:  &catalogueAdapter{registry: registry},
			Metrics:    metrics,
		}
		if influxClient != nil {
			opts.Telemetry = influxClient
		}

		bridge, bridgeErr := toshiba.NewBridge(opts)
		if bridgeErr != nil {
			return fmt.Errorf("creating Toshiba bridge: %w", bridgeErr)
		}
		if startErr := bridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting Toshiba bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping Toshiba bridge")
			bridge.Stop()
		}()
	} else {
		log.Info("Toshiba bridge disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns GRAYLOGIC_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// bridgeWill builds the retained offline status the broker publishes if
// the bridge drops without a clean disconnect.
func bridgeWill(bridgeID string) (*mqtt.Will, error) {
	payload, err := json.Marshal(toshiba.NewLWTMessage(bridgeID))
	if err != nil {
		return nil, fmt.Errorf("marshalling last will: %w", err)
	}
	return &mqtt.Will{Topic: toshiba.HealthTopic(), Payload: payload}, nil
}

// newMetricsRegistry returns a registry with the Go runtime and process
// collectors already registered.
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newMetricsServer(cfg *config.Config, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}
}

// healthCheck verifies the database, MQTT and (if enabled) InfluxDB
// connections. It returns the first failure.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
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
