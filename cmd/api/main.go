package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"fin-analysis/internal/analysis"
	"fin-analysis/internal/handler"
	"fin-analysis/internal/logger"
	"fin-analysis/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (defaults are used when it does not exist)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := store.LoadConfig(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = store.Default(), nil
	}
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	if err := logger.Init(); err != nil {
		log.Fatalf("error initializing logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, cache, err := analysis.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("error creating providers: %v", err)
	}
	defer cache.Close()

	r := gin.New()
	r.Use(gin.Recovery())

	allowedOrigins := []string{"http://localhost:3000"}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	handler.NewAnalysisHandler(analyzer, cfg.Analysis.Periods).Register(r)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(ctx, "API server listening", "addr", cfg.Server.Addr, "origins", allowedOrigins)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "API server failed", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(shutdownCtx, "API server shutdown failed", err)
	}
	_ = logger.Shutdown(shutdownCtx)
}
