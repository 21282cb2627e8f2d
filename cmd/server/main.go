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

	"github.com/Skotchmaster/vidstream/internal/config"
	"github.com/Skotchmaster/vidstream/internal/handlers"
	"github.com/Skotchmaster/vidstream/internal/logging"
	"github.com/Skotchmaster/vidstream/internal/media"
	loggingmw "github.com/Skotchmaster/vidstream/internal/middleware/logging"
	"github.com/Skotchmaster/vidstream/internal/mykafka"
	"github.com/Skotchmaster/vidstream/internal/service"
	httpserver "github.com/Skotchmaster/vidstream/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	config.MustNonEmpty(configuration.DB_HOST, "DB_HOST")
	config.MustNonEmpty(configuration.DB_NAME, "DB_NAME")
	config.MustNonEmpty(configuration.ACCESS_TOKEN_SECRET, "ACCESS_TOKEN_SECRET")
	config.MustNonEmpty(configuration.REFRESH_TOKEN_SECRET, "REFRESH_TOKEN_SECRET")
	config.MustNonEmpty(configuration.MINIO_ENDPOINT, "MINIO_ENDPOINT")
	config.MustNonEmpty(configuration.MINIO_BUCKET, "MINIO_BUCKET")

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startupCancel()

	mediaStore, err := media.NewMinioStore(startupCtx, configuration)
	if err != nil {
		log.Fatalf("media store init failed: %v", err)
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatal(err)
		}
	}

	svc := &service.SessionService{
		DB:            db,
		AccessSecret:  []byte(configuration.ACCESS_TOKEN_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_TOKEN_SECRET),
		AccessTTL:     configuration.AccessTokenTTL,
		RefreshTTL:    configuration.RefreshTokenTTL,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.BodyLimit("50M"))
	if configuration.CORS_ORIGIN != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{configuration.CORS_ORIGIN},
			AllowCredentials: true,
		}))
	}
	e.Use(loggingmw.RequestLogger(logger))
	e.Static("/public", "public")

	deps := httpserver.Deps{
		DB:           db,
		AuthHandler:  &handlers.AuthHandler{Svc: svc, Media: mediaStore, Producer: prod},
		AccessSecret: []byte(configuration.ACCESS_TOKEN_SECRET),
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
