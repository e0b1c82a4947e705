package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kruthinvinay/live-tracker/internal/ui"
)

var (
	flagTrackRelay string
	flagTrackCodec string
	flagTrackEvery time.Duration
)

var trackCmd = &cobra.Command{
	Use:     "track <room>",
	Aliases: []string{"t"},
	Short:   "Follow your partner's location",
	Long: `Join a room as the tracker. The partner is asked for a fresh location
every --every and whenever it (re)connects; updates and emergency alerts are
printed as they arrive. Ctrl+C sends stop_tracking before leaving.

Examples:
  live-tracker track 007
  live-tracker track 007 --every 30s --relay wss://relay.example.com/ws`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateCodec(flagTrackCodec); err != nil {
			return err
		}
		if flagTrackEvery <= 0 {
			return fmt.Errorf("--every must be positive, got %s", flagTrackEvery)
		}

		cfg, err := LoadConfig(flagTrackRelay)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		conn, err := NewConnectionContext(ctx, cfg, flagTrackCodec)
		if err != nil {
			return err
		}
		defer conn.Close()

		room := args[0]
		if err := conn.JoinRoom(ctx, room); err != nil {
			return err
		}

		return trackLoop(ctx, conn, flagTrackEvery)
	},
}

func trackLoop(ctx context.Context, conn *ConnectionContext, every time.Duration) error {
	events := conn.Handler
	room := conn.Room

	request := func() error {
		if err := conn.Client.RequestLocation(room); err != nil {
			return NewError("request location", err)
		}
		return nil
	}

	if err := request(); err != nil {
		return err
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Client.StopTracking(room)
			ui.PrintInfo("Stopped tracking")
			return nil

		case <-ticker.C:
			if err := request(); err != nil {
				return err
			}

		case <-events.PartnerConnected:
			ui.PrintSuccessf("%s Partner connected", ui.IconPeer)
			if err := request(); err != nil {
				return err
			}

		case <-events.PartnerDisconnected:
			ui.PrintWarning("Partner disconnected, waiting for them to rejoin")

		case loc := <-events.Location:
			ui.PrintLocation(loc.Latitude, loc.Longitude)

		case alert := <-events.Alert:
			ui.PrintAlert(alert.Location.Latitude, alert.Location.Longitude, alert.PhoneNumber)

		case <-events.Sleep:
			ui.PrintInfof("%s Tracking stopped by partner", ui.IconSleep)
			return nil

		case msg := <-events.Error:
			ui.PrintError(msg)

		case <-events.Done:
			return NewError("track", ErrRelayClosed)
		}
	}
}

func init() {
	trackCmd.Flags().StringVar(&flagTrackRelay, "relay", "", "relay websocket URL (env RELAY_URL)")
	trackCmd.Flags().StringVar(&flagTrackCodec, "codec", "json", "frame codec: json or msgpack")
	trackCmd.Flags().DurationVar(&flagTrackEvery, "every", time.Minute, "how often to ask for a fresh location")

	rootCmd.AddCommand(trackCmd)
}
