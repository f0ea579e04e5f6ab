// proctord runs the gaze analysis service: a JSON API for session
// ingestion plus HTML debug charts for operators.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sightline-data/gaze.report/internal/api"
	"github.com/sightline-data/gaze.report/internal/config"
	"github.com/sightline-data/gaze.report/internal/db"
	"github.com/sightline-data/gaze.report/internal/monitor"
	"github.com/sightline-data/gaze.report/internal/monitoring"
	"github.com/sightline-data/gaze.report/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbPath        = flag.String("db", "proctor.db", "Path to the SQLite session store")
	migrationsDir = flag.String("migrations", "internal/db/migrations", "Path to the migrations directory")
	tuningPath    = flag.String("config", "", "Optional tuning config JSON file")
)

func main() {
	flag.Parse()

	monitoring.Logf("proctord %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	var tuning *config.TuningConfig
	if *tuningPath != "" {
		loaded, err := config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		tuning = loaded
		monitoring.Logf("loaded tuning overrides from %s", *tuningPath)
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()

	apiServer := api.NewServer(store, tuning)
	apiServer.RegisterRoutes(mux)

	// debug charts are unauthenticated; keep them off public listeners
	monitor.NewWebServer(apiServer).RegisterRoutes(mux)

	server := &http.Server{
		Addr:    *listen,
		Handler: mux,
	}

	go func() {
		monitoring.Logf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
