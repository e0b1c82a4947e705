package service

import (
	"io"
	"net/http"
	"testing"
	"time"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/kruthinvinay/live-tracker/internal/config"
	"github.com/kruthinvinay/live-tracker/internal/relay"
)

func TestModulesStartAndServe(t *testing.T) {
	cfg := &config.Config{
		Addr:           "127.0.0.1:0",
		PingInterval:   config.DefaultPingInterval,
		PingTimeout:    config.DefaultPingTimeout,
		WriteWait:      config.DefaultWriteWait,
		MaxMessageSize: config.DefaultMaxMessageSize,
		SendBuffer:     config.DefaultSendBuffer,
		RelayURL:       config.DefaultRelayURL,
		LogLevel:       "error",
		LogFormat:      "text",
	}

	var (
		router *echo.Echo
		hub    *relay.Hub
	)
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(cfg),
		LoggerModule,
		RelayModule,
		HTTPModule,
		fx.Populate(&router, &hub),
	)
	app.RequireStart()
	defer app.RequireStop()

	if hub == nil {
		t.Fatalf("hub not provided")
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + router.Listener.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
}
