package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"otterseal/internal/sweeper"
	"otterseal/pkg/api"
	"otterseal/pkg/banner"
	"otterseal/pkg/config"
	"otterseal/pkg/logger"
	"otterseal/pkg/rooms"
	"otterseal/pkg/security"
	"otterseal/pkg/store"
	"otterseal/pkg/telemetry"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, _, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Logging.Level)

	// Flags win over config/env when explicitly provided.
	addr := addrVal
	if !setFlags["addr"] {
		addr = cfg.Addr()
	}
	dbPath := dbVal
	if !setFlags["db"] {
		if p := cfg.Storage.DBPath; p != "" {
			dbPath = p
		}
	}

	if err := store.Open(dbPath); err != nil {
		log.Fatalf("failed to open pebble at %s: %v", dbPath, err)
	}

	hub := rooms.NewHub(rooms.PebbleStore{})

	sweepCancel, err := sweeper.Start(context.Background(), sweeper.Config{
		Enabled:  !cfg.Sweep.Disabled,
		Interval: cfg.SweepInterval(),
		Cron:     cfg.Sweep.Cron,
	})
	if err != nil {
		log.Fatalf("failed to start sweeper: %v", err)
	}

	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	if buildDate != "unknown" {
		verStr = verStr + " @ " + buildDate
	}
	banner.Print(cfg, addr, dbPath, verStr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api.Handler(hub, verStr))

	secCfg := security.Config{
		AllowedOrigins: append([]string{}, cfg.Security.CORS.AllowedOrigins...),
	}
	if cfg.Security.RateLimit.RPS > 0 {
		secCfg.RPS = cfg.Security.RateLimit.RPS
	}
	if cfg.Security.RateLimit.Burst > 0 {
		secCfg.Burst = cfg.Security.RateLimit.Burst
	}
	wrapped := security.Middleware(secCfg)(telemetry.Middleware(mux))

	srv := &http.Server{Addr: addr, Handler: wrapped}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		logger.Info("shutdown_signal_received", "signal", s.String())
		sweepCancel()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		if err := store.Close(); err != nil {
			logger.Error("store_close_failed", "error", err)
		}
	}()

	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	var errServe error
	if cert != "" && key != "" {
		errServe = srv.ListenAndServeTLS(cert, key)
	} else {
		errServe = srv.ListenAndServe()
	}
	if errServe != nil && errServe != http.ErrServerClosed {
		log.Fatal(errServe)
	}
}
