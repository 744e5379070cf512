package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"healthtrack/internal/config"
)

func configureLogger(cfg *config.Config) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           level,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
		ReportCaller:    level == log.DebugLevel,
	})

	slog.SetDefault(slog.New(handler))
	return nil
}
