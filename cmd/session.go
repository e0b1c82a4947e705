package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kruthinvinay/live-tracker/internal/config"
	"github.com/kruthinvinay/live-tracker/internal/peer"
	"github.com/kruthinvinay/live-tracker/internal/relay"
	"github.com/kruthinvinay/live-tracker/internal/ui"
)

const joinTimeout = 10 * time.Second

type ConnectionContext struct {
	Client  *peer.Client
	Handler *peer.Handler
	Config  *config.Config
	Room    string
}

// NewConnectionContext dials the relay and starts routing its messages.
func NewConnectionContext(ctx context.Context, cfg *config.Config, codec string) (*ConnectionContext, error) {
	subprotocol := relay.SubprotocolJSON
	if codec == "msgpack" {
		subprotocol = relay.SubprotocolMsgpack
	}

	stopSpinner := ui.Spin(os.Stdout, "Connecting to relay...")
	client := peer.NewClient(cfg.RelayURL, subprotocol)
	err := client.Connect(ctx)
	stopSpinner()
	if err != nil {
		return nil, WrapError("connect to relay", err, cfg.RelayURL)
	}

	handler := peer.NewHandler(client)
	go handler.Start()

	return &ConnectionContext{
		Client:  client,
		Handler: handler,
		Config:  cfg,
	}, nil
}

// JoinRoom joins room and waits for the relay's verdict.
func (c *ConnectionContext) JoinRoom(ctx context.Context, room string) error {
	if err := c.Client.Join(room); err != nil {
		return NewError("join room", err)
	}

	timer := time.NewTimer(joinTimeout)
	defer timer.Stop()

	select {
	case <-c.Handler.JoinSuccess:
		c.Room = room
		ui.PrintSuccessf("%s Joined room %s", ui.IconRoom, ui.TitleStyle.Render(room))
		return nil
	case msg := <-c.Handler.Error:
		return WrapError("join room", ErrRoomRejected, msg)
	case <-c.Handler.Done:
		return NewError("join room", ErrRelayClosed)
	case <-timer.C:
		return NewError("join room", ErrJoinTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

func LoadConfig(relayURL string) (*config.Config, error) {
	cfg, err := config.Load(config.Options{RelayURL: relayURL})
	if err != nil {
		return nil, NewError("load config", err)
	}
	return cfg, nil
}

func validateCodec(codec string) error {
	switch codec {
	case "json", "msgpack":
		return nil
	default:
		return fmt.Errorf("unknown codec %q (want json or msgpack)", codec)
	}
}
