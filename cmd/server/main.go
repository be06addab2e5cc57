package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/rpattn/verledger/internal/config"
	"github.com/rpattn/verledger/internal/db"
	"github.com/rpattn/verledger/internal/export"
	"github.com/rpattn/verledger/internal/history"
	"github.com/rpattn/verledger/internal/middleware"
	"github.com/rpattn/verledger/internal/repository"
	"github.com/rpattn/verledger/internal/versioning"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Run migrations before opening the pool
	if err := db.RunMigrations(cfg.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	conn, err := db.NewConnection(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	ledger := repository.NewVersionRepository(conn.Pool)
	client := versioning.New(conn, repository.NewRowMutator(), ledger, cfg.Versioning)
	exportService := export.NewService(ledger)

	mux := http.NewServeMux()
	mux.Handle("/versions", history.NewHTTPHandler(client))
	mux.Handle("/versions/", history.NewHTTPHandler(client))
	mux.Handle("/export", export.NewHTTPHandler(exportService))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := middleware.LoggingMiddleware(
		middleware.OriginatorMiddleware(corsHandler.Handler(mux)),
	)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[HTTP] History viewer listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[HTTP] Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[HTTP] Forced shutdown: %v", err)
	}
}
