// Command inspect prints the rooms, participants and messages stored in a
// relay database. The database is opened read-only so it can run next to a
// live server.
package main

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	// INSPECT_ROOM restricts the output to a single room
	Room string `envconfig:"INSPECT_ROOM"`
	// INSPECT_COLOURS enables colorized section headers
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
	// INSPECT_CONTENT_WIDTH truncates message content in the table
	ContentWidth int `envconfig:"INSPECT_CONTENT_WIDTH" default:"60"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	db, err := badger.Open(badger.DefaultOptions(cfg.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	inspector := inspector{
		cfg:      cfg,
		out:      os.Stdout,
		rooms:    repositories.NewReadOnlyRoomRepository(db),
		users:    repositories.NewUserRepository(db),
		messages: repositories.NewMessageRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil)), nil),
	}
	if err := inspector.run(); err != nil {
		log.Fatal(err)
	}
}

type inspector struct {
	cfg      Config
	out      io.Writer
	rooms    *repositories.RoomRepository
	users    repositories.UserRepository
	messages repositories.MessageRepository
}

func (i inspector) run() error {
	rooms, err := i.rooms.ListRooms()
	if err != nil {
		return err
	}
	if i.cfg.Room != "" {
		id, err := domain.ParseRoomID(i.cfg.Room)
		if err != nil {
			return fmt.Errorf("INSPECT_ROOM: %w", err)
		}
		rooms = lo.Filter(rooms, func(r domain.Room, _ int) bool { return r.ID == id })
	}

	i.header(fmt.Sprintf("Rooms (%d)", len(rooms)))
	table := i.table("ID", "Name", "Group", "Created")
	for _, r := range rooms {
		table.Append([]string{
			r.ID.String(),
			lo.FromPtrOr(r.Name, "-"),
			strconv.FormatBool(r.IsGroup),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()

	for _, r := range rooms {
		if err := i.room(r); err != nil {
			return err
		}
	}
	return nil
}

func (i inspector) room(r domain.Room) error {
	participants, err := i.rooms.Participants(r.ID)
	if err != nil {
		return err
	}
	users, err := i.users.GetUsers(lo.Map(participants, func(p domain.Participant, _ int) domain.UserID { return p.UserID }))
	if err != nil {
		return err
	}

	i.header(fmt.Sprintf("Room %s participants", r.ID))
	table := i.table("User", "Name", "Email", "Joined")
	for _, p := range participants {
		u := users[p.UserID]
		table.Append([]string{string(p.UserID), u.DisplayName(), u.Email, p.JoinedAt.Format("2006-01-02 15:04:05")})
	}
	table.Render()

	messages, _, err := i.messages.GetMessages(r.ID, nil)
	if err != nil {
		return err
	}
	i.header(fmt.Sprintf("Room %s messages (%d)", r.ID, len(messages)))
	table = i.table("At", "Sender", "Content", "Attachment")
	for _, m := range messages {
		attachment := "-"
		if m.Attachment != nil {
			attachment = fmt.Sprintf("%s (%s, %d B)", m.Attachment.OriginalName, m.Attachment.MimeType, m.Attachment.SizeBytes)
		}
		table.Append([]string{
			m.CreatedAt.Format("15:04:05.000"),
			m.SenderName,
			i.truncate(m.Content),
			attachment,
		})
	}
	table.Render()
	return nil
}

func (i inspector) header(title string) {
	if i.cfg.Colours {
		title = color.New(color.BgBlack, color.FgGreen).Render(title)
	}
	_, _ = fmt.Fprintf(i.out, "\n%s\n", title)
}

func (i inspector) table(headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(i.out)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func (i inspector) truncate(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if i.cfg.ContentWidth <= 0 || len(runes) <= i.cfg.ContentWidth {
		return content
	}
	return string(runes[:i.cfg.ContentWidth]) + "…"
}
