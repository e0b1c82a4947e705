package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kruthinvinay/live-tracker/internal/relay"
	"github.com/kruthinvinay/live-tracker/internal/ui"
)

var (
	flagShareRelay string
	flagShareCodec string
	flagShareLat   float64
	flagShareLon   float64
	flagShareSOS   bool
	flagSharePhone string
)

var shareCmd = &cobra.Command{
	Use:     "share <room>",
	Aliases: []string{"s"},
	Short:   "Share a location with whoever tracks this room",
	Long: `Join a room as the target. Every wake-up request from the tracker is
answered with the given coordinates. With --sos an emergency alert carrying
the coordinates and --phone is sent once right after joining. The command
exits when the tracker sends stop_tracking.

Examples:
  live-tracker share 007 --lat 12.9716 --lon 77.5946
  live-tracker share 007 --lat 12.9716 --lon 77.5946 --sos --phone "+91 98450 00000"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateCodec(flagShareCodec); err != nil {
			return err
		}
		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
			return ErrMissingCoordinates
		}
		if flagShareSOS && flagSharePhone == "" {
			return ErrMissingPhoneForSOS
		}

		cfg, err := LoadConfig(flagShareRelay)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		conn, err := NewConnectionContext(ctx, cfg, flagShareCodec)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.JoinRoom(ctx, args[0]); err != nil {
			return err
		}

		loc := relay.Location{Latitude: flagShareLat, Longitude: flagShareLon}
		if flagShareSOS {
			if err := conn.Client.EmergencyAlert(conn.Room, loc, flagSharePhone); err != nil {
				return NewError("send alert", err)
			}
			ui.PrintWarning(ui.IconSOS + " Emergency alert sent")
		}

		return shareLoop(ctx, conn, loc)
	},
}

func shareLoop(ctx context.Context, conn *ConnectionContext, loc relay.Location) error {
	events := conn.Handler

	stopSpinner := ui.Spin(os.Stdout, "Waiting for location requests...")
	defer func() { stopSpinner() }()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-events.WakeUp:
			if err := conn.Client.SendLocation(conn.Room, loc); err != nil {
				return NewError("send location", err)
			}
			stopSpinner()
			ui.PrintInfof("Shared %s", ui.FormatCoords(loc.Latitude, loc.Longitude))
			stopSpinner = ui.Spin(os.Stdout, "Waiting for location requests...")

		case <-events.PartnerConnected:
			stopSpinner()
			ui.PrintSuccessf("%s Tracker connected", ui.IconPeer)
			stopSpinner = ui.Spin(os.Stdout, "Waiting for location requests...")

		case <-events.PartnerDisconnected:
			stopSpinner()
			ui.PrintWarning("Tracker disconnected")
			stopSpinner = ui.Spin(os.Stdout, "Waiting for the tracker to rejoin...")

		case <-events.Sleep:
			stopSpinner()
			ui.PrintInfof("%s Tracking stopped", ui.IconSleep)
			return nil

		case msg := <-events.Error:
			stopSpinner()
			ui.PrintError(msg)
			stopSpinner = ui.Spin(os.Stdout, "Waiting for location requests...")

		case <-events.Done:
			return NewError("share", ErrRelayClosed)
		}
	}
}

func init() {
	shareCmd.Flags().StringVar(&flagShareRelay, "relay", "", "relay websocket URL (env RELAY_URL)")
	shareCmd.Flags().StringVar(&flagShareCodec, "codec", "json", "frame codec: json or msgpack")
	shareCmd.Flags().Float64Var(&flagShareLat, "lat", 0, "latitude to report")
	shareCmd.Flags().Float64Var(&flagShareLon, "lon", 0, "longitude to report")
	shareCmd.Flags().BoolVar(&flagShareSOS, "sos", false, "send an emergency alert after joining")
	shareCmd.Flags().StringVar(&flagSharePhone, "phone", "", "phone number included in the emergency alert")

	rootCmd.AddCommand(shareCmd)
}
