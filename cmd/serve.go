package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/kruthinvinay/live-tracker/internal/config"
	"github.com/kruthinvinay/live-tracker/internal/service"
)

var (
	flagServeAddr         string
	flagServePingInterval time.Duration
	flagServePingTimeout  time.Duration
	flagServeMaxMessage   int64
	flagServeSendBuffer   int
	flagServeLogLevel     string
	flagServeLogFormat    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the room relay",
	Long: `Run the room relay server.

Endpoints:
  GET /ws       websocket (subprotocols live-tracker.json, live-tracker.msgpack)
  GET /health   health check
  GET /rooms    active rooms

Examples:
  live-tracker serve
  live-tracker serve --addr :3000 --ping-interval 10s --ping-timeout 15s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{
			Addr:           flagServeAddr,
			PingInterval:   flagServePingInterval,
			PingTimeout:    flagServePingTimeout,
			MaxMessageSize: flagServeMaxMessage,
			SendBuffer:     flagServeSendBuffer,
			LogLevel:       flagServeLogLevel,
			LogFormat:      flagServeLogFormat,
		})
		if err != nil {
			return NewError("load config", err)
		}

		app := fx.New(
			fx.NopLogger,
			fx.Supply(cfg),
			service.LoggerModule,
			service.RelayModule,
			service.HTTPModule,
		)
		if err := app.Err(); err != nil {
			return NewError("build relay", err)
		}

		app.Run()
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "listen address (env ADDR, default "+config.DefaultAddr+")")
	serveCmd.Flags().DurationVar(&flagServePingInterval, "ping-interval", 0, "heartbeat ping interval (env PING_INTERVAL, default 10s)")
	serveCmd.Flags().DurationVar(&flagServePingTimeout, "ping-timeout", 0, "drop a connection silent for this long (env PING_TIMEOUT, default 15s)")
	serveCmd.Flags().Int64Var(&flagServeMaxMessage, "max-message-size", 0, "largest accepted frame in bytes (env MAX_MESSAGE_SIZE)")
	serveCmd.Flags().IntVar(&flagServeSendBuffer, "send-buffer", 0, "outbound queue length per connection (env SEND_BUFFER)")
	serveCmd.Flags().StringVar(&flagServeLogLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	serveCmd.Flags().StringVar(&flagServeLogFormat, "log-format", "", "text or json (env LOG_FORMAT)")

	rootCmd.AddCommand(serveCmd)
}
