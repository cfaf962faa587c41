package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sajjadurrahman1/Wealth-Navigator/internal/app"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/config"
)

func main() {
	// Optional local overrides; the environment wins over the file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	result, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			log.Printf("cleanup: %v", err)
		}
	}()

	log.Printf("conversation store: %s", result.StoreBackend)
	if result.BackendOnline {
		log.Printf("generation backend: online (%s)", cfg.OpenAIModel)
	} else {
		log.Printf("generation backend: offline, answers use calculators and templates")
	}
	if result.IndexWarning != nil {
		log.Printf("retrieval index unusable, knowledge answers will be ungrounded: %v", result.IndexWarning)
	} else {
		log.Printf("retrieval index: %d chunks", result.IndexChunks)
	}

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: result.API.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
