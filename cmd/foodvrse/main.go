package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/25x8/foodvrse/internal/foodvrse/config"
	"github.com/25x8/foodvrse/internal/foodvrse/logger"
	"github.com/25x8/foodvrse/internal/foodvrse/server"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer logg.Sync()

	if cfg.JWTSecret == "" {
		logg.Fatal("JWT secret is required (-secret or JWT_SECRET)")
	}

	srv, err := server.NewServer(context.Background(), cfg, logg)
	if err != nil {
		logg.Fatal("server setup failed", "error", err)
	}

	go func() {
		if err := srv.Run(); err != nil {
			logg.Fatal("server error", "error", err)
		}
	}()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logg.Fatal("server shutdown error", "error", err)
	}

	logg.Info("server stopped")
}
