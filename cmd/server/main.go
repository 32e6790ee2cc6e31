package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmarkov/electrostore/internal/config"
	"github.com/dmarkov/electrostore/internal/db"
	"github.com/dmarkov/electrostore/internal/events"
	"github.com/dmarkov/electrostore/internal/handlers"
	"github.com/dmarkov/electrostore/internal/logging"
	loggingmw "github.com/dmarkov/electrostore/internal/middleware/logging"
	"github.com/dmarkov/electrostore/internal/search"
	"github.com/dmarkov/electrostore/internal/token"
	httpserver "github.com/dmarkov/electrostore/internal/transport/http"
	"github.com/dmarkov/electrostore/internal/upload"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LogLevel)

	database, err := db.Open(context.Background(), configuration.DatabaseURL)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	if err := db.EnsureAdmin(database,
		configuration.AdminUsername,
		configuration.AdminEmail,
		configuration.AdminPassword,
	); err != nil {
		log.Fatalf("admin bootstrap error: %v", err)
	}

	var producer *events.Producer
	if configuration.KafkaAddress != "" {
		producer = events.NewProducer(configuration.KafkaAddress)
	}

	var searchClient *search.Client
	if configuration.ESURL != "" {
		searchClient, err = search.NewClient(
			configuration.ESURL,
			configuration.ESUser,
			configuration.ESPassword,
			"products",
		)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
	}

	tokens := &token.Service{
		Secret:  []byte(configuration.JWTSecret),
		Expires: configuration.JWTExpires,
	}
	store := upload.NewStore(configuration.UploadDir)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))
	e.HTTPErrorHandler = httpserver.ErrorHandler(logger, configuration.Development())

	deps := httpserver.Deps{
		JWTSecret:  []byte(configuration.JWTSecret),
		UploadDir:  configuration.UploadDir,
		Auth:       &handlers.AuthHandler{DB: database, Tokens: tokens, Producer: producer},
		Products:   &handlers.ProductHandler{DB: database, Store: store, Producer: producer, Search: searchClient},
		Categories: &handlers.CategoryHandler{DB: database, Store: store, Producer: producer},
		Users:      &handlers.UserHandler{DB: database},
		Contact:    &handlers.ContactHandler{DB: database, Producer: producer},
	}
	if searchClient != nil {
		deps.Search = &handlers.SearchHandler{Search: searchClient}
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", configuration.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
