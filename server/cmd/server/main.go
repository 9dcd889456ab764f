package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/thermavg/thermavg/server/internal/api"
	"github.com/thermavg/thermavg/server/internal/auth"
	"github.com/thermavg/thermavg/server/internal/config"
	"github.com/thermavg/thermavg/server/internal/metrics"
	"github.com/thermavg/thermavg/server/internal/stream"
)

const (
	routeMetrics = "/metrics"
	routeStream  = "/ws/stream"
)

func main() {
	configPath := flag.String("config", "", "path to config file; leave empty to run on defaults and $PORT")
	flag.Parse()

	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	slog.Info("thermavg-server starting", "config", *configPath)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Server.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"log_level", cfg.Server.LogLevel,
		"stream_window", cfg.Server.Stream.DefaultWindow,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Only the log level is applied on reload; everything else needs a restart.
	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				level.Set(updated.Server.Level())
				slog.Info("config hot-reloaded", "log_level", updated.Server.LogLevel)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	reg := metrics.New(append(append([]string{}, api.Routes...), routeMetrics, routeStream)...)

	// Stream hub: rolling moving averages over live readings.
	hub := stream.New(cfg.Server.Stream.DefaultWindow, cfg.Server.Stream.MaxWindow, cfg.Server.Stream.Heartbeat)
	go hub.Run(ctx)
	reg.SetStreamClients(hub.Count)

	httpMux := http.NewServeMux()
	httpMux.Handle(routeMetrics, reg)
	httpMux.Handle(routeStream, hub)
	httpMux.Handle("/", api.New(cfg.Server.Banner, reg, hub))

	requireKey := auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		api.RouteRoot, api.RouteHealth, routeMetrics,
	)
	if cfg.Server.Auth.Mode == "apikey" && cfg.Server.Auth.Key() == "" {
		slog.Warn("auth mode is apikey but no key is set; requests are not checked",
			"key_env", cfg.Server.Auth.KeyEnv)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: reg.Middleware(requireKey(httpMux)),
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("thermavg-server shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown", "err", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}
