package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/vibrant/internal/api"
	"github.com/nerrad567/vibrant/internal/bridge"
	"github.com/nerrad567/vibrant/internal/history"
	"github.com/nerrad567/vibrant/internal/infrastructure/database"
	"github.com/nerrad567/vibrant/internal/infrastructure/influxdb"
	"github.com/nerrad567/vibrant/internal/infrastructure/mqtt"
	"github.com/nerrad567/vibrant/internal/saturation"
)

// cmdServe runs the daemon: saturation service plus whichever of the
// profile store, MQTT bridge, telemetry and HTTP API are enabled.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func (a *app) cmdServe(ctx context.Context) error {
	if err := a.loadConfig(true); err != nil {
		return err
	}
	log := a.logger
	cfg := a.cfg

	log.Info("starting vibrant",
		"version", version,
		"commit", commit,
		"build_date", date,
	)
	log.Info("configuration loaded", "path", a.configPath())

	// Display
	inst, err := a.openInstance()
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing display")
		if closeErr := inst.Close(); closeErr != nil {
			log.Error("error closing display", "error", closeErr)
		}
	}()
	log.Info("display connected",
		"target", a.displayTarget(),
		"outputs", len(inst.Controllers()),
	)

	// Profile store (optional)
	db, repo, closeDB, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDB()
	if db != nil {
		log.Info("database connected", "path", db.Path())
	} else {
		log.Info("database disabled, saturation profiles will not persist")
	}

	// Telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
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
	} else {
		log.Info("InfluxDB disabled")
	}

	opts := saturation.Options{Logger: log.Component("saturation")}
	if repo != nil {
		opts.Store = repo
	}
	if influxClient != nil {
		opts.Telemetry = influxClient
	}
	svc := saturation.NewService(saturation.FromInstance(inst), opts)

	var historyRepo *history.SQLiteRepository
	if db != nil {
		historyRepo = history.NewSQLiteRepository(db.DB)
		rec := a.startHistory(ctx, db)
		defer func() {
			log.Info("flushing change history")
			rec.Stop()
		}()
		svc.OnChange(rec.Record)
	}

	if cfg.Display.RestoreOnStart && repo != nil {
		if _, restoreErr := svc.Restore(ctx); restoreErr != nil {
			return fmt.Errorf("restoring profiles: %w", restoreErr)
		}
	}

	// MQTT bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, mqtt.Hooks{
			Logger: log.Component("mqtt"),
			OnConnect: func() {
				log.Info("MQTT reconnected")
			},
			OnDisconnect: func(err error) {
				log.Warn("MQTT disconnected", "error", err)
			},
		})
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

		b, bridgeErr := bridge.New(bridge.Options{
			ID:             cfg.Bridge.ID,
			Version:        version,
			HealthInterval: cfg.GetHealthInterval(),
			MQTT:           mqttClient,
			Service:        svc,
			Changes:        svc,
			Logger:         log.Component("bridge"),
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating bridge: %w", bridgeErr)
		}
		if startErr := b.Start(ctx); startErr != nil {
			return fmt.Errorf("starting bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping bridge")
			b.Stop()
		}()
	} else {
		log.Info("MQTT bridge disabled")
	}

	// HTTP API (optional)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log.Component("api"),
			Service: svc,
			Version: version,
		}
		if repo != nil {
			deps.Profiles = repo
		}
		if historyRepo != nil {
			deps.History = historyRepo
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		if influxClient != nil {
			deps.InfluxDB = influxClient
		}
		if db != nil {
			deps.DB = db
		}

		srv, srvErr := api.New(deps)
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
		log.Info("API server listening", "addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))
	} else {
		log.Info("HTTP API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("vibrant stopped")
	return nil
}

// healthCheck verifies the enabled infrastructure connections.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection (nil if disabled)
//   - mqttClient: MQTT client (nil if disabled)
//   - influxClient: InfluxDB client (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
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
