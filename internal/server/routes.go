package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	echo "github.com/labstack/echo/v4"

	"github.com/kruthinvinay/live-tracker/internal/relay"
)

// newUpgrader configures the websocket upgrader.
func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		Subprotocols:    relay.Subprotocols(),

		// Peers are mobile apps and the CLI, not browsers on a known origin.
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

type routes struct {
	hub      *relay.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewRouter returns the relay's HTTP handler: the websocket endpoint plus
// health and room listing.
func NewRouter(hub *relay.Hub, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler(e, logger)

	r := &routes{
		hub:      hub,
		upgrader: newUpgrader(),
		logger:   logger,
	}

	e.GET("/ws", r.serveWs)
	e.GET("/health", r.health)
	e.GET("/rooms", r.rooms)

	return e
}

func httpErrorHandler(e *echo.Echo, logger *slog.Logger) func(err error, c echo.Context) {
	return func(err error, c echo.Context) {
		logger.Error(err.Error(),
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
		)
		e.DefaultHTTPErrorHandler(err, c)
	}
}

// serveWs upgrades the request and hands the connection to the hub.
func (r *routes) serveWs(c echo.Context) error {
	conn, err := r.upgrader.Upgrade(c.Response().Writer, c.Request(), nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		r.logger.Warn("failed to upgrade connection", slog.Any("err", err))
		return nil
	}

	client := relay.NewClient(r.hub, conn, relay.CodecFor(conn.Subprotocol()))
	r.hub.Register(client)

	// The pumps own the connection from here on.
	go client.WritePump()
	go client.ReadPump()
	return nil
}

func (r *routes) health(c echo.Context) error {
	return c.String(http.StatusOK, "Relay server is healthy.")
}

func (r *routes) rooms(c echo.Context) error {
	rooms := r.hub.Rooms()
	c.Response().Header().Set("X-Connections", fmt.Sprint(r.hub.Connections()))
	return c.JSON(http.StatusOK, rooms)
}
