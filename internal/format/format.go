// Package format renders sizes, timestamps and untrusted text for display.
package format

import (
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

// Size formats a byte count with binary units: "0 B", "512 B", "1.5 KiB".
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Clock formats the local time of day, 24-hour.
func Clock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.Local().Format("15:04:05")
}

// DateTime formats the local date and time, day first.
func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("02/01/2006, 15:04:05")
}

// Age describes how long ago t was, e.g. "3 minutes ago".
func Age(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// Escape makes untrusted text safe to print on a terminal: escape sequences
// are removed, carriage returns dropped and any other control character
// except newline and tab replaced with U+FFFD.
func Escape(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return -1
		case r < 0x20, r == 0x7f, r >= 0x80 && r < 0xa0:
			return '�'
		}
		return r
	}, s)
}
