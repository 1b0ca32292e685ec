package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ambientloop/internal/manifest"
	"ambientloop/internal/platform/config"
	"ambientloop/internal/platform/logger"
	"ambientloop/internal/platform/metrics"
	"ambientloop/internal/probe"
	"ambientloop/internal/rotation"
	"ambientloop/internal/settings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	manifestURL := config.GetEnv("MANIFEST_URL", "")
	settingsPath := config.GetEnv("SETTINGS_FILE", "data/settings.json")
	probeTimeout := config.GetEnvMillis("PROBE_TIMEOUT_MS", probe.DefaultTimeout)
	screenW := config.GetEnvInt("SCREEN_WIDTH", 1920)
	screenH := config.GetEnvInt("SCREEN_HEIGHT", 1080)

	log := logger.New(logLevel, logFormat)

	if manifestURL == "" {
		log.Error("MANIFEST_URL is required")
		os.Exit(1)
	}

	met := metrics.New()
	client := &http.Client{Timeout: 30 * time.Second}

	// Manifest failure is the one fatal startup error; a single bad clip
	// only degrades to the square bucket.
	entries, err := manifest.Fetch(context.Background(), client, manifestURL)
	if err != nil {
		log.Error("manifest load failed", "error", err)
		os.Exit(1)
	}

	prober := &probe.FFProbe{Timeout: probeTimeout, Log: log, OnFailure: met.IncProbeFailures}
	clips := probe.Library(context.Background(), prober, entries)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	index := rotation.BuildIndex(clips, rng)

	log.Info("library ready",
		"clips", index.Len(),
		"landscape", index.BucketLen(rotation.Landscape),
		"portrait", index.BucketLen(rotation.Portrait),
		"square", index.BucketLen(rotation.Square),
	)

	hub := rotation.NewHub()
	store := settings.NewStore(settingsPath)
	engine := rotation.NewEngine(
		index,
		rotation.NewRemoteSurface(rotation.RoleA, hub),
		rotation.NewRemoteSurface(rotation.RoleB, hub),
		store, log, met,
		rotation.EngineConfig{ScreenW: screenW, ScreenH: screenH},
	)
	defer engine.Close()

	h := rotation.NewHandler(engine, hub, log)

	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)
	r.Use(logger.RequestLogger(log, "/api/surfaces/", "/api/events"))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetLibraryClips(index.Len()) }).ServeHTTP(w, r)
	})
	r.Route("/api", func(r chi.Router) {
		h.Routes(r)
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	engine.Start()

	log.Info("server starting",
		"port", port,
		"manifest_url", manifestURL,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
