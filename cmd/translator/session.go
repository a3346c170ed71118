package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/petasbytes/go-translator/memory"
)

const (
	historyLimit   = 10
	previewRunes   = 100
	helpText       = "Hola! I'm your Argentine Spanish translator.\n\nType any text and I'll translate it to Argentine Spanish.\n\nCommands:\n- /new - Start a new conversation\n- /history - Show recent translations\n- /conversations - List your conversations"
	noHistoryText  = "No hay historial todavia."
	translateError = "Error al traducir. Intenta de nuevo."
)

type textTranslator interface {
	Translate(ctx context.Context, userID int64, text string) (string, error)
}

// session answers the lines one user types in the chat loop.
type session struct {
	store      *memory.Store
	translator textTranslator
	userID     int64
	out        io.Writer
}

// handle processes one input line. Blank lines are ignored.
func (s *session) handle(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	switch command(line) {
	case "/start", "/help":
		fmt.Fprintln(s.out, helpText)
	case "/new":
		fmt.Fprintln(s.out, newConversationText(s.store.StartNewConversation(ctx, s.userID)))
	case "/history":
		fmt.Fprintln(s.out, formatHistory(s.store.RecentMessages(ctx, s.userID, historyLimit)))
	case "/conversations":
		writeConversations(s.out, s.store.ListConversations(ctx, s.userID))
	default:
		translation, err := s.translator.Translate(ctx, s.userID, line)
		if err != nil {
			log.WithError(err).WithField("user", s.userID).Error("translation failed")
			fmt.Fprintln(s.out, translateError)
			return
		}
		fmt.Fprintln(s.out, translation)
	}
}

// command returns the leading slash command of line, or "" for plain text.
func command(line string) string {
	if !strings.HasPrefix(line, "/") {
		return ""
	}
	name, _, _ := strings.Cut(line, " ")
	return name
}

func newConversationText(id string) string {
	return fmt.Sprintf("Nueva conversacion! (ID: %s)", id)
}

// formatHistory renders messages oldest first with long contents shortened.
func formatHistory(msgs []memory.Message) string {
	if len(msgs) == 0 {
		return noHistoryText
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		label := "Traduccion"
		if m.Role == memory.RoleUser {
			label = "Tu"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, preview(m.Content, previewRunes)))
	}
	return strings.Join(lines, "\n\n")
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func writeConversations(out io.Writer, convs []memory.Summary) {
	if len(convs) == 0 {
		fmt.Fprintln(out, noHistoryText)
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tENDED\tMESSAGES")
	for _, c := range convs {
		ended := "active"
		if c.Ended != nil {
			ended = formatInstant(*c.Ended)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.ID, formatInstant(c.Started), ended, c.MessageCount)
	}
	w.Flush()
}

// formatInstant shows unparsed stored values as they are and missing ones as "-".
func formatInstant(i memory.Instant) string {
	switch {
	case i.Raw() != "":
		return i.Raw()
	case i.IsZero():
		return "-"
	}
	return i.Format(time.DateTime)
}
