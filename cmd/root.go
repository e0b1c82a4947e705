package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kruthinvinay/live-tracker/internal/ui"
	"github.com/kruthinvinay/live-tracker/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "live-tracker",
	Short: "Pair two devices in a room and relay live location and SOS alerts between them",
	Long: `live-tracker runs the room relay that pairs exactly two devices by a shared
room code and forwards location requests, location updates and emergency
alerts between them. The same binary ships small client commands to track a
partner, share a location, or inspect the relay's rooms.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
