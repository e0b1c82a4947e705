package service

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/kruthinvinay/live-tracker/internal/config"
	"github.com/kruthinvinay/live-tracker/internal/relay"
)

type hub_Params struct {
	fx.In

	Config *config.Config
	Table  *relay.Table
	Logger *slog.Logger
}

func hub(params hub_Params) *relay.Hub {
	cfg := params.Config
	params.Logger.Info("relay heartbeat",
		slog.Duration("ping_interval", cfg.PingInterval),
		slog.Duration("ping_timeout", cfg.PingTimeout),
	)

	return relay.NewHub(params.Table, relay.Options{
		PingInterval:   cfg.PingInterval,
		PingTimeout:    cfg.PingTimeout,
		WriteWait:      cfg.WriteWait,
		MaxMessageSize: cfg.MaxMessageSize,
		SendBuffer:     cfg.SendBuffer,
	}, params.Logger.With(slog.String("component", "relay")))
}

var RelayModule = fx.Module("relay", fx.Provide(
	relay.NewTable,
	hub,
))
