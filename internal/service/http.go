package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/kruthinvinay/live-tracker/internal/config"
	"github.com/kruthinvinay/live-tracker/internal/relay"
	"github.com/kruthinvinay/live-tracker/internal/server"
)

type httpServer_Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Hub       *relay.Hub
	Logger    *slog.Logger
}

func httpServer(params httpServer_Params) *echo.Echo {
	router := server.NewRouter(params.Hub, params.Logger)
	logger := params.Logger

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Bind before returning so a taken port fails startup.
			ln, err := net.Listen("tcp", params.Config.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", params.Config.Addr, err)
			}
			router.Listener = ln

			logger.Info("relay server listening", slog.String("addr", ln.Addr().String()))
			go func() {
				if err := router.Start(params.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("relay server stopped", slog.Any("err", err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("relay server shutting down")
			return router.Shutdown(ctx)
		},
	})

	return router
}

var HTTPModule = fx.Module("http",
	fx.Provide(httpServer),
	fx.Invoke(func(*echo.Echo) {}),
)
