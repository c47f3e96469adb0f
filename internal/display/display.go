// Package display provides terminal formatting for scoutboard CLI output.
package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/jpalmerr/scoutboard/internal/freescout"
	"github.com/jpalmerr/scoutboard/internal/htmlstrip"
	"github.com/jpalmerr/scoutboard/internal/store"
)

// Styles
var (
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	Warn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))

	valueStyle = lipgloss.NewStyle().Bold(true).Width(6).Align(lipgloss.Right)
	labelStyle = lipgloss.NewStyle().Width(22)
)

// Row is one metric line. A nil Value renders as disabled.
type Row struct {
	Label string
	Value *int
}

// Metrics prints a titled metric table.
func Metrics(w io.Writer, title string, rows []Row, collectedAt time.Time) {
	fmt.Fprintln(w, Bold.Render(title))
	if !collectedAt.IsZero() {
		fmt.Fprintln(w, Muted.Render("collected "+collectedAt.Format("2006-01-02 15:04:05 MST")))
	}
	for _, r := range rows {
		value := Dim.Render(valueStyle.Render("-"))
		if r.Value != nil {
			value = valueStyle.Render(strconv.Itoa(*r.Value))
		}
		fmt.Fprintf(w, "  %s%s\n", labelStyle.Render(r.Label), value)
	}
}

// Arrivals prints new-conversation events, one per line with a preview.
func Arrivals(w io.Writer, arrivals []store.Arrival) {
	if len(arrivals) == 0 {
		fmt.Fprintln(w, Muted.Render("  no new conversations"))
		return
	}
	for _, a := range arrivals {
		number := a.Number
		if number == 0 {
			number = a.ConversationID
		}
		when := ""
		if !a.DetectedAt.IsZero() {
			when = "  " + Dim.Render(TimeAgo(a.DetectedAt))
		}
		fmt.Fprintf(w, "  %s %s%s\n", Warn.Render(fmt.Sprintf("#%d", number)), Bold.Render(Truncate(a.Subject, 60)), when)
		if preview := htmlstrip.Preview(a.Preview, 100); preview != "" {
			fmt.Fprintf(w, "     %s\n", Muted.Render(preview))
		}
		if a.URL != "" {
			fmt.Fprintf(w, "     %s\n", Dim.Render(a.URL))
		}
	}
}

// Mailboxes prints the mailboxes visible to an API key.
func Mailboxes(w io.Writer, mailboxes []freescout.Mailbox) {
	for _, mb := range mailboxes {
		fmt.Fprintf(w, "  %s  %s %s\n",
			Bold.Render(fmt.Sprintf("%5d", mb.ID)),
			mb.Name,
			Dim.Render(mb.Email),
		)
	}
}

// TimeAgo formats t relative to now.
func TimeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// Truncate shortens s to maxRunes runes, adding an ellipsis if needed.
func Truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	rs := []rune(s)
	if maxRunes <= 3 {
		return string(rs[:maxRunes])
	}
	return strings.TrimRight(string(rs[:maxRunes-3]), " ") + "..."
}

// SuccessMsg prints a green checkmark + message.
func SuccessMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, Success.Render("✓")+" "+fmt.Sprintf(format, args...))
}

// WarnMsg prints an amber bang + message.
func WarnMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, Warn.Render("!")+" "+fmt.Sprintf(format, args...))
}

// ErrorMsg prints a red X + message.
func ErrorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, ErrStyle.Render("✗")+" "+fmt.Sprintf(format, args...))
}
