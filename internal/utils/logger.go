package utils

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Log is the process logger, set up by Init.
var Log = log.New(os.Stderr)

func levelStyle(label, bg, fg string) lipgloss.Style {
	return lipgloss.NewStyle().
		SetString(label).
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color(fg)).
		Bold(true)
}

// NewLogger returns a timestamped logger with the table service's level badges.
func NewLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
	styles := log.DefaultStyles()
	styles.Levels[log.DebugLevel] = levelStyle("DEBUG", "#444444FF", "#DDDDDDFF")
	styles.Levels[log.InfoLevel] = levelStyle("INFO", "#90EE9080", "#006400FF")
	styles.Levels[log.WarnLevel] = levelStyle("WARN", "#FFD70080", "#000000FF")
	styles.Levels[log.ErrorLevel] = levelStyle("ERROR", "#FF0000FF", "#00FFFF00")
	styles.Levels[log.FatalLevel] = levelStyle("FATAL", "#000000FF", "#00FFFF00")
	l.SetStyles(styles)
	return l
}

// Init replaces Log with a styled stderr logger.
func Init(level log.Level) {
	Log = NewLogger(os.Stderr, level)
}

// Discard is a logger for tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
