package service

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/kruthinvinay/live-tracker/internal/config"
	"github.com/kruthinvinay/live-tracker/internal/logging"
)

func logger(cfg *config.Config) *slog.Logger {
	return logging.New(cfg.LogLevel, cfg.LogFormat)
}

var LoggerModule = fx.Module("logger", fx.Provide(
	logger,
))
