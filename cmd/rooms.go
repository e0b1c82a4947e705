package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kruthinvinay/live-tracker/internal/relay"
	"github.com/kruthinvinay/live-tracker/internal/ui"
)

var flagRoomsRelay string

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the relay's active rooms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(flagRoomsRelay)
		if err != nil {
			return err
		}

		rooms, err := fetchRooms(cmd, cfg.RoomsURL())
		if err != nil {
			return err
		}

		rows := make([]ui.RoomRow, 0, len(rooms))
		for _, r := range rooms {
			rows = append(rows, ui.RoomRow{Code: r.Code, Members: r.Members})
		}
		ui.RenderRooms(os.Stdout, rows)
		return nil
	},
}

func fetchRooms(cmd *cobra.Command, url string) ([]relay.RoomInfo, error) {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, NewError("build request", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, WrapError("fetch rooms", err, url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, WrapError("fetch rooms", ErrUnexpectedStatus, fmt.Sprintf("%s returned %d", url, resp.StatusCode))
	}

	var rooms []relay.RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, NewError("decode rooms", err)
	}
	return rooms, nil
}

func init() {
	roomsCmd.Flags().StringVar(&flagRoomsRelay, "relay", "", "relay websocket URL (env RELAY_URL)")

	rootCmd.AddCommand(roomsCmd)
}
