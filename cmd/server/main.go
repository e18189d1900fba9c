package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"immopilot/server/config"
	"immopilot/server/internal/analysis"
	"immopilot/server/internal/api"
	"immopilot/server/internal/geocoding"
	"immopilot/server/internal/loader"
	"immopilot/server/internal/processor"
	"immopilot/server/internal/queue"
	"immopilot/server/internal/scheduler"
	"immopilot/server/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// Ensure the snapshot database directory exists
	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.WithError(err).Fatal("Failed to create database directory")
		}
	}

	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize snapshot store")
	}

	// Shared caches, one per process
	batchCache := loader.NewBatchCache(time.Duration(cfg.Loader.CacheTTLMinutes) * time.Minute)
	geocoder := geocoding.NewGeocoder(
		logger,
		cfg.Geocoding.BaseURL,
		time.Duration(cfg.Geocoding.CacheTTLHours)*time.Hour,
		time.Duration(cfg.Geocoding.TimeoutSeconds)*time.Second,
	)

	source := loader.NewHTTPSource(2 * time.Minute)
	txLoader := loader.NewLoader(logger, cfg, source, batchCache, config.GetVintages())
	analyzer := analysis.NewAnalyzer(logger, cfg, geocoder)

	// Snapshot pipeline: queue -> retrying processor -> sqlite
	txQueue := queue.NewTransactionQueue(cfg.Store.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(st.DB(), txQueue, cfg, logger)
	batchProcessor.Start()
	txQueue.Start()
	defer func() {
		txQueue.Close()
		batchProcessor.Stop()
	}()

	refreshScheduler := scheduler.NewScheduler(txLoader, txQueue, cfg, logger)
	refreshScheduler.Start()
	defer refreshScheduler.Stop()

	handler := api.NewHandler(logger, txLoader, analyzer, geocoder, st)

	router := gin.Default()
	router.Use(cors.Default())
	api.SetupRoutes(router, handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Infof("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
