package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"volexplorer/internal/app"
	"volexplorer/internal/config"
	"volexplorer/internal/infrastructure"
	"volexplorer/internal/panel"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "YAML config file (defaults to $VX_CONFIG or ./config.yaml)")
	dataPath := flag.String("data", "", "volatility panel (.csv or .xlsx), overrides dataset.path")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "volexplorer: %v\n", err)
		return 1
	}
	if *dataPath != "" {
		cfg.Dataset.Path = *dataPath
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "volexplorer: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		var loadErr *panel.DataLoadError
		if errors.As(err, &loadErr) {
			logger.Error("Dataset could not be loaded",
				slog.String("source", loadErr.Source),
				slog.String("reason", loadErr.Reason),
				slog.Int("row", loadErr.Row),
				slog.String("column", loadErr.Column),
				slog.String("error", err.Error()))
		} else {
			infrastructure.WithError(logger, err).Error("Failed to initialize application")
		}
		return 1
	}

	if err := application.Run(ctx); err != nil {
		infrastructure.WithError(logger, err).Error("Application error")
		return 1
	}
	return 0
}
