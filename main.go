package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"microposts/cache"
	"microposts/crud"
	"microposts/database"
	"microposts/domain"
	"microposts/events"
	"microposts/http"
	pkglog "microposts/log"
)

// main is the app's entry point.
func main() {
	// Check if the flag "-prod" has been provided. It means that we're running in production.
	productionBool := flag.Bool("prod", false, "Provide this flag in production to ensure that a .config.json file is provided before the application starts.")
	flag.Parse()

	// Load configuration from a .config.json file if present, otherwise use the default dev setup.
	config, err := LoadConfig(*productionBool)
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(config.Log)
	logger := pkglog.L()

	// Open a database connection and execute migrations.
	db, err := database.Open(config.Database, config.IsProd())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", config.Database.Driver).Msg("database migration completed")

	// The count cache and the event publisher are optional.
	var counts domain.CountCache
	if config.Redis.Enabled() {
		counter, err := cache.NewRedisCounter(config.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer counter.Close()
		counts = counter
		logger.Info().Str("addr", config.Redis.Address).Msg("redis connected")
	} else {
		logger.Warn().Msg("redis not configured; relationship counts are read from the database")
	}

	var publisher domain.EventPublisher
	pub, err := events.New(config.Events)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to event broker")
	}
	if pub != nil {
		defer pub.Close()
		publisher = pub
		logger.Info().Str("driver", config.Events.Driver).Msg("event publisher connected")
	}

	// Start the crud services.
	services, err := crud.NewServices(
		db,
		crud.WithUser(config.Pepper, config.HMACKey),
		crud.WithRelation(counts, publisher),
		crud.WithMicropost(),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start services")
	}

	// Set up a webserver.
	server := http.NewServer(services, http.Config{
		Port:    config.Port,
		IsProd:  config.IsProd(),
		CSRFKey: config.CSRFKey,
	})

	go func() {
		logger.Info().Int("port", config.Port).Msg("microposts starting")
		if err := server.Run(); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for a shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
	}
	logger.Info().Msg("microposts stopped")
}
