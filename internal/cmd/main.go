package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/glougarou/backend/internal/gateway"
	"github.com/glougarou/backend/internal/outbox"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dbCfg := databaseConfigFromEnv()
	db, err := setupDatabase(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	log.Info().
		Str("nats_url", cfg.natsURL()).
		Str("port", cfg.port()).
		Msg("starting glou garou backend")

	// REST services
	services := setupServices(db, cfg.publicURL())

	// WebSocket relay
	connManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), clockwork.NewRealClock())
	wsHandler := gateway.NewWebSocketHandler(connManager)

	// Outbox pipeline. The publisher creates the event stream, so it
	// must come up before the consumer that subscribes to it.
	publisherCfg := outbox.DefaultJetStreamConfig()
	publisherCfg.URL = cfg.natsURL()
	publisherCfg.StreamName = cfg.streamName()
	publisher, err := outbox.NewJetStreamPublisher(publisherCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox publisher")
	}
	defer publisher.Close()

	consumerCfg := gateway.DefaultJetStreamConsumerConfig()
	consumerCfg.URL = cfg.natsURL()
	consumerCfg.StreamName = cfg.streamName()
	consumer, err := gateway.NewEventConsumer(connManager, consumerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event consumer")
	}
	defer consumer.Close()

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbCfg.DSN()
	listenerCfg.FallbackInterval = cfg.outboxFallbackInterval()
	listenerCfg.MaxRetries = cfg.outboxMaxRetries()
	listener, err := outbox.NewListener(db, publisher, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox listener")
	}

	server := setupServer(cfg, services, wsHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go connManager.Start(ctx)

	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	go func() {
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox listener failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()

	if err := listener.Stop(); err != nil {
		log.Error().Err(err).Msg("outbox listener stop failed")
	}

	// Give in-flight broadcasts time to drain
	time.Sleep(1 * time.Second)

	log.Info().Msg("shutdown complete")
}
