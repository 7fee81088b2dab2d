package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"eduadmin_go/apiclient"
	"eduadmin_go/config"
	"eduadmin_go/database"
	"eduadmin_go/handlers"
	"eduadmin_go/routes"
	"eduadmin_go/services"
	"eduadmin_go/services/documents"
	"eduadmin_go/services/notifications"
	"eduadmin_go/services/websocket"

	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	setupLogging(cfg)

	database.Connect(cfg)
	defer database.Close()
	db, rdb := database.GetDB(), database.GetRedisClient()

	api := apiclient.New(cfg.APIBaseURL,
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithReadRetries(cfg.APIReadRetries),
	)

	wsHub := websocket.NewHub()
	go wsHub.Run()
	defer wsHub.Stop()

	notifOpts := []notifications.Option{notifications.WithHub(wsHub), notifications.WithRedis(rdb)}
	line, err := notifications.NewLineMessenger(cfg.LineChannelSecret, cfg.LineChannelToken)
	if err != nil {
		logrus.WithError(err).Error("LINE notifications disabled")
	}
	var groupNamer handlers.GroupNamer
	if line != nil {
		notifOpts = append(notifOpts, notifications.WithLine(line, cfg.LinePaymentGroupID))
		groupNamer = line
	}
	events := notifications.NewService(notifOpts...)

	docStore, err := documents.NewDocumentStore(cfg)
	if err != nil {
		logrus.WithError(err).Warn("Document store unavailable, keeping documents in memory")
		docStore = documents.NewInMemoryFallbackStore()
	}

	var archives services.ArchiveStore
	if cfg.S3BucketName != "" {
		store, err := services.NewS3ArchiveStore(context.Background(), cfg.AWSRegion, cfg.S3BucketName)
		if err != nil {
			logrus.WithError(err).Warn("Log archives disabled")
		} else {
			archives = store
		}
	}
	logArchive := services.NewLogArchiveService(db, rdb, archives, cfg.LogArchiveDays)
	if err := logArchive.Start(cfg.LogArchiveCron); err != nil {
		logrus.WithError(err).Error("Log maintenance not scheduled")
	}
	defer logArchive.Stop()

	loc, err := time.LoadLocation(os.Getenv("TZ"))
	if err != nil {
		loc = time.Local
	}

	app := routes.NewApp(routes.Dependencies{
		API:               api,
		PageSize:          cfg.DefaultPageSize,
		Location:          loc,
		Lock:              services.NewSubmitLock(rdb, cfg.SubmitLockTTL),
		Events:            events,
		Hub:               wsHub,
		Documents:         docStore,
		MaxFileSize:       cfg.MaxFileSize,
		AllowedExtensions: cfg.AllowedExtensionList(),
		Activity:          services.NewActivityRecorder(db, rdb),
		Archive:           logArchive,
		Health:            services.NewHealthService("", version, api, db, rdb),
		Webhook:           handlers.NewLineWebhookHandler(cfg.LineChannelSecret, groupNamer, events),
	}, int(cfg.MaxFileSize)+1<<20)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logrus.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Error("Server shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.AppEnv,
		"api":         cfg.APIBaseURL,
		"version":     version,
	}).Info("Server starting")

	if err := app.Listen(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

// setupLogging configures the logging system
func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.AppEnv == "development" || cfg.LogFile == "" {
		logrus.SetOutput(os.Stdout)
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		logrus.WithError(err).Warn("Could not create logs directory")
		return
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logrus.WithError(err).Warn("Could not open log file, logging to stdout")
		return
	}
	logrus.SetOutput(file)
}
