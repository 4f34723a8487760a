package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Portal3D/internal/config"
	"Portal3D/internal/engine"
	"Portal3D/internal/logger"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	check := flag.Bool("check", false, "load the assets, verify the scene and exit without opening a window")
	flag.Parse()

	if err := run(*configPath, *check); err != nil {
		logger.Log.Error("Portal stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(configPath string, check bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		// the logger is not configured yet
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if check {
		return engine.Check(ctx, cfg)
	}
	logger.Log.Info("Portal starting", zap.String("config", configPath))
	return engine.NewApp(cfg).Run(ctx)
}
