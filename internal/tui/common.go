package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/studylog/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewTimer
	viewHistory
	viewAnalytics
	viewSubjects
	viewSettings
)

var viewNames = []string{"Dashboard", "Timer", "History", "Analytics", "Subjects", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// sessionsChangedMsg is sent after a session is saved or deleted.
type sessionsChangedMsg struct{}

// catalogChangedMsg is sent after subjects or todos change.
type catalogChangedMsg struct{}

type settingsChangedMsg struct {
	settings store.Settings
}

// --- Helpers ---

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

func errorCmd(prefix string, err error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: fmt.Sprintf("%s: %v", prefix, err), isError: true}
	}
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatMinutes renders a minute count as "1h 05m" or "25m".
func formatMinutes(mins int) string {
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %02dm", mins/60, mins%60)
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.1fh", h)
}

func ratingStars(r int) string {
	if r < 0 {
		r = 0
	}
	if r > 5 {
		r = 5
	}
	stars := ""
	for i := 0; i < 5; i++ {
		if i < r {
			stars += "★"
		} else {
			stars += "☆"
		}
	}
	return stars
}

func subjectLookup(list []store.Subject) map[string]store.Subject {
	m := make(map[string]store.Subject, len(list))
	for _, s := range list {
		m[s.ID] = s
	}
	return m
}

func subjectLabel(subjects map[string]store.Subject, id string) (name, color string) {
	if s, ok := subjects[id]; ok {
		return s.Name, s.Color
	}
	return "Unknown", string(colorMuted)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
