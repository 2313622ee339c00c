package nav

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultRefreshInterval is how often listings are re-pulled.
const DefaultRefreshInterval = 30 * time.Second

// RefreshTickMsg is delivered by Every.
type RefreshTickMsg struct {
	At time.Time
}

// Every schedules one RefreshTickMsg on the next wall-clock multiple of
// interval. The receiver re-arms it on every tick.
func Every(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return tea.Every(interval, func(t time.Time) tea.Msg {
		return RefreshTickMsg{At: t}
	})
}
