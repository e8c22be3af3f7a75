// Package display renders the measurement and trend as text.
// The OLED driver lives with the firmware; hosts log the same lines.
package display

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/sweeney/tempcycle/internal/trend"
)

// Lines returns the text laid out on the 128x64 OLED, one entry per row.
func Lines(value float64, t trend.Trend) []string {
	return []string{
		"TempCycle",
		fmt.Sprintf("Temp: %.2f C", value),
		"Tend: " + t.String(),
	}
}

// Logger renders to a log.Logger, for hosts without a panel.
type Logger struct {
	log *log.Logger
}

// NewLogger writes frames to w with the standard log flags.
// A nil w uses the default logger's output.
func NewLogger(w io.Writer) *Logger {
	l := log.Default()
	if w != nil {
		l = log.New(w, "", log.LstdFlags)
	}
	return &Logger{log: l}
}

// Render logs one line per frame.
func (l *Logger) Render(value float64, t trend.Trend) error {
	lines := Lines(value, t)
	l.log.Printf("display: %s", strings.Join(lines[1:], " | "))
	return nil
}
