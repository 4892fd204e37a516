// Package render formats delivery history and options for the terminal with lipgloss.
package render

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/cristianoliveira/mailnotify/internal/colors"
	"github.com/cristianoliveira/mailnotify/internal/domain"
)

const (
	ageWidth             = 5
	statusWidth          = 10
	eventWidth           = 6
	modeWidth            = 8
	transportWidth       = 16
	spacesBetweenColumns = 10
	defaultErrorWidth    = 40
	optionKeyWidth       = 24
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ansiColorNumber(colors.Blue)))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ansiColorNumber(colors.Red)))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	keyStyle    = lipgloss.NewStyle().Bold(true)
)

// HistoryHeader renders the delivery history header.
func HistoryHeader(width int) string {
	header := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %-*s  %s",
		ageWidth, "AGE",
		statusWidth, "STATUS",
		eventWidth, "EVENT",
		modeWidth, "MODE",
		transportWidth, "TRANSPORT",
		"ERROR",
	)
	return headerStyle.Render(truncate(header, width))
}

// HistoryRow renders one delivery record. Failed deliveries are highlighted.
func HistoryRow(rec domain.DeliveryRecord, now time.Time, width int) string {
	errWidth := errorWidth(width)
	row := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %-*s  %s",
		ageWidth, calculateAge(rec.Timestamp, now),
		statusWidth, statusIcon(rec.Status),
		eventWidth, string(rec.Event),
		modeWidth, string(rec.Mode),
		transportWidth, string(rec.Transport),
		truncate(rec.Error, errWidth),
	)
	row = strings.TrimRight(row, " ")
	if rec.Status == domain.DeliveryFailed {
		return failedStyle.Render(row)
	}
	return row
}

// HistoryFooter summarizes the rendered records.
func HistoryFooter(records []domain.DeliveryRecord) string {
	failed := 0
	for _, rec := range records {
		if rec.Status == domain.DeliveryFailed {
			failed++
		}
	}
	return mutedStyle.Render(fmt.Sprintf("%d deliveries, %d failed", len(records), failed))
}

// History renders header, rows and footer, or a placeholder when there are no records.
func History(records []domain.DeliveryRecord, now time.Time, width int) string {
	if len(records) == 0 {
		return "No deliveries recorded\n"
	}
	var b strings.Builder
	b.WriteString(HistoryHeader(width))
	b.WriteByte('\n')
	for _, rec := range records {
		b.WriteString(HistoryRow(rec, now, width))
		b.WriteByte('\n')
	}
	b.WriteString(HistoryFooter(records))
	b.WriteByte('\n')
	return b.String()
}

// Options renders stored option values sorted by key. Keys without a stored value show
// "(default)".
func Options(keys []string, raw map[string]string) string {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	var b strings.Builder
	for _, key := range sorted {
		value, ok := raw[key]
		shown := value
		if !ok {
			shown = mutedStyle.Render("(default)")
		}
		fmt.Fprintf(&b, "%s  %s\n", keyStyle.Render(fmt.Sprintf("%-*s", optionKeyWidth, key)), shown)
	}
	return b.String()
}

func errorWidth(width int) int {
	if width <= 0 {
		return defaultErrorWidth
	}
	fixed := ageWidth + statusWidth + eventWidth + modeWidth + transportWidth
	if w := width - fixed - spacesBetweenColumns; w >= 10 {
		return w
	}
	return defaultErrorWidth
}

func statusIcon(status domain.DeliveryStatus) string {
	switch status {
	case domain.DeliveryDelivered:
		return "● sent"
	case domain.DeliveryFailed:
		return "✗ failed"
	default:
		return "? " + string(status)
	}
}

func calculateAge(ts time.Time, now time.Time) string {
	if ts.IsZero() {
		return ""
	}
	if now.IsZero() {
		now = time.Now()
	}
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// truncate shortens value to width runes, ending with "...". A non-positive width keeps it.
func truncate(value string, width int) string {
	if width <= 0 || utf8.RuneCountInString(value) <= width {
		return value
	}
	if width <= 3 {
		return string([]rune(value)[:width])
	}
	return string([]rune(value)[:width-3]) + "..."
}

// ansiColorNumber extracts the color number from an ANSI escape sequence.
// Example: "\033[0;34m" -> "34"
func ansiColorNumber(ansi string) string {
	lastSemicolon := strings.LastIndex(ansi, ";")
	if lastSemicolon == -1 || len(ansi) < 2 {
		return ""
	}
	return ansi[lastSemicolon+1 : len(ansi)-1]
}
