package main

import (
	"encoding/json"
	"fmt"
	"io"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type frame struct {
	Event event.Name      `json:"event"`
	Data  json.RawMessage `json:"data"`
}

var eventColours = map[event.Name]color.Style{
	event.RoomUsersName:       color.New(color.FgCyan),
	event.NotificationName:    color.New(color.FgYellow),
	event.MessageReceivedName: color.New(color.FgGreen, color.OpBold),
	event.TypingName:          color.New(color.FgGray),
	event.StopTypingName:      color.New(color.FgGray),
}

func printFrame(w io.Writer, f frame, colours bool) {
	name := fmt.Sprintf("%-16s", f.Event)
	if style, ok := eventColours[f.Event]; ok && colours {
		name = style.Render(name)
	}
	fmt.Fprintf(w, "%s %s %s\n", time.Now().Format("15:04:05.000"), name, string(f.Data))
}

func header(w io.Writer, title string, colours bool) {
	title = fmt.Sprintf("  ====== %s ======", title)
	if colours {
		title = color.New(color.BgBlack, color.FgGreen).Render(title)
	}
	fmt.Fprintln(w, title)
}

func newTable(w io.Writer, columns ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(columns)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

func renderRoster(w io.Writer, users []domain.Identity) {
	table := newTable(w, "User ID", "Display name")
	for _, u := range users {
		table.Append([]string{u.ID, u.DisplayName})
	}
	table.Render()
}

func renderHistory(w io.Writer, messages []domain.ChatMessage) {
	table := newTable(w, "Sent at", "From", "Content", "ID")
	for _, m := range messages {
		table.Append([]string{m.SentAt.Format(time.RFC3339), m.Sender.DisplayName, m.Content, m.ID})
	}
	table.Render()
}
