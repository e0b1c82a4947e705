package ui

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RoomRow is one line of the room listing.
type RoomRow struct {
	Code    string
	Members int
}

// RenderRooms writes the room listing as a table.
func RenderRooms(w io.Writer, rows []RoomRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("No active rooms"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignCenter},
	})

	t.AppendHeader(table.Row{"#", "Room", "Members", "Status"})
	full := 0
	for i, r := range rows {
		status := "waiting"
		if r.Members >= 2 {
			status = "paired"
			full++
		}
		t.AppendRow(table.Row{i + 1, r.Code, fmt.Sprintf("%d/2", r.Members), status})
	}
	t.AppendFooter(table.Row{"", "Total", len(rows), fmt.Sprintf("%d paired", full)})

	t.Render()
}
