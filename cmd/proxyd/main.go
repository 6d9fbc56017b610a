package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ncecere/image_studio/internal/app"
	"github.com/ncecere/image_studio/internal/config"
	"github.com/ncecere/image_studio/internal/httpserver"
	"github.com/ncecere/image_studio/internal/providers"
	"github.com/ncecere/image_studio/internal/redisclient"
)

func main() {
	configFile := flag.String("config", "", "path to proxy.yaml (defaults to PROXY_CONFIG_FILE or ./proxy.yaml)")
	envFile := flag.String("env-file", "", "optional .env file to load before reading configuration")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	upstream, err := providers.New(ctx, cfg.Upstream)
	if err != nil {
		log.Fatalf("build upstream: %v", err)
	}

	redisClient := redisclient.New(cfg.Redis)
	if err := redisclient.Ping(ctx, redisClient); err != nil {
		log.Fatalf("connect redis: %v", err)
	}

	container, err := app.NewContainer(ctx, cfg, upstream, redisClient, logger)
	if err != nil {
		log.Fatalf("build container: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(shutdownCtx); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	server, err := httpserver.New(container)
	if err != nil {
		log.Fatalf("construct server: %v", err)
	}

	logger.Info("image studio proxy listening",
		"addr", cfg.Server.ListenAddr,
		"provider", cfg.Upstream.Provider,
		"edit_transport", cfg.Images.EditTransport,
		"redis", cfg.Redis.Enabled(),
	)
	if err := server.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
