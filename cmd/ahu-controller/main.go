package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/senselive/ahu-controller/db"
	"github.com/senselive/ahu-controller/internal/api"
	"github.com/senselive/ahu-controller/internal/config"
	"github.com/senselive/ahu-controller/internal/controllers/schedulecontroller"
	"github.com/senselive/ahu-controller/internal/datadog"
	"github.com/senselive/ahu-controller/internal/ingest"
	"github.com/senselive/ahu-controller/internal/logging"
	"github.com/senselive/ahu-controller/internal/mqtt"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel)
	datadog.InitMetrics(cfg)

	log.Info().
		Str("db_path", cfg.DBPath).
		Str("broker", cfg.BrokerURL).
		Strs("devices", cfg.DeviceIDs).
		Msg("Starting AHU controller")

	dbConn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer dbConn.Close()

	client, err := mqtt.NewRealClient(cfg.BrokerURL, cfg.ClientID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MQTT broker")
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reducer := ingest.NewReducer(dbConn)
	if err := client.Subscribe(cfg.TelemetryTopic, reducer.HandleMessage); err != nil {
		log.Fatal().Err(err).Str("topic", cfg.TelemetryTopic).Msg("Failed to subscribe to telemetry topic")
	}
	go reducer.Run(ctx)

	controller := schedulecontroller.New(
		dbConn,
		client,
		cfg.CommandTopic,
		cfg.DeviceIDs,
		time.Duration(cfg.PollIntervalSeconds)*time.Second,
	)
	go controller.Run(ctx)

	server := api.NewServer(dbConn, cfg)
	go func() {
		if err := server.Start(cfg.HTTPPort); err != nil {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down AHU controller")
}
