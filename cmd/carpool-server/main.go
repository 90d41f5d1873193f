package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jezdimedoprace/carpool/pkg/carpool/auth"
	"github.com/jezdimedoprace/carpool/pkg/carpool/config"
	"github.com/jezdimedoprace/carpool/pkg/carpool/database"
	"github.com/jezdimedoprace/carpool/pkg/carpool/logging"
	"github.com/jezdimedoprace/carpool/pkg/carpool/models"
	"github.com/jezdimedoprace/carpool/pkg/carpool/server"
)

// @title Carpool API
// @version 1.0
// @description Car-sharing groups with a rolling week of rides and ordered pickup waypoints.

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	auth.Configure(cfg.JWTSecret, cfg.TokenDuration)

	if err := database.Connect(cfg.DBDriver, cfg.DBSource); err != nil {
		slog.Error("failed to connect to database", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}

	if err := models.AutoMigrate(database.GetDB()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations completed", "driver", cfg.DBDriver)

	router := server.New(database.GetDB(), server.Options{
		Logger:         slog.Default(),
		MaxOwnedGroups: cfg.MaxOwnedGroups,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting carpool server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
