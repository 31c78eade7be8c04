package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studylog/internal/store"
)

type historyModel struct {
	repo   store.Repository
	loc    *time.Location
	width  int
	height int

	sessions []store.Session
	subjects map[string]store.Subject
	cursor   int
}

func newHistoryModel(repo store.Repository, loc *time.Location) historyModel {
	return historyModel{repo: repo, loc: loc}
}

func (h *historyModel) setSize(w, hgt int) {
	h.width = w
	h.height = hgt
}

type historyDataMsg struct {
	sessions []store.Session
	subjects []store.Subject
	err      error
}

func (h historyModel) refresh() tea.Cmd {
	repo := h.repo
	return func() tea.Msg {
		ctx := context.Background()
		sessions, err := repo.ListSessions(ctx)
		if err != nil {
			return historyDataMsg{err: err}
		}
		subjects, err := repo.ListSubjects(ctx)
		if err != nil {
			return historyDataMsg{err: err}
		}
		return historyDataMsg{sessions: sessions, subjects: subjects}
	}
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		if msg.err != nil {
			return h, errorCmd("Load error", msg.err)
		}
		h.sessions = msg.sessions
		h.subjects = subjectLookup(msg.subjects)
		if h.cursor >= len(h.sessions) {
			h.cursor = max(0, len(h.sessions)-1)
		}
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if h.cursor > 0 {
				h.cursor--
			}
		case key.Matches(msg, keys.Down):
			if h.cursor < len(h.sessions)-1 {
				h.cursor++
			}
		case key.Matches(msg, keys.Delete):
			if len(h.sessions) == 0 {
				return h, nil
			}
			s := h.sessions[h.cursor]
			if err := h.repo.DeleteSession(context.Background(), s.ID); err != nil {
				return h, errorCmd("Delete failed", err)
			}
			return h, tea.Batch(statusCmd("Session deleted"), emit(sessionsChangedMsg{}))
		}
	}
	return h, nil
}

// visibleRange returns the window of rows that fits the panel around the cursor.
func (h historyModel) visibleRange() (int, int) {
	rows := h.height - 10
	if rows < 3 {
		rows = 3
	}
	start := 0
	if h.cursor >= rows {
		start = h.cursor - rows + 1
	}
	end := min(len(h.sessions), start+rows)
	return start, end
}

func (h historyModel) view() string {
	w := h.width - 4
	title := titleStyle.Render(fmt.Sprintf("History  %s", mutedStyle.Render(fmt.Sprintf("%d sessions", len(h.sessions)))))

	if len(h.sessions) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No sessions recorded yet."),
		))
	}

	loc := h.loc
	if loc == nil {
		loc = time.Local
	}

	rows := []string{title, ""}
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-17s %-16s %-24s %7s %5s  %s", "Completed", "Subject", "Topic", "Time", "Pomo", "Rating")))

	start, end := h.visibleRange()
	for i := start; i < end; i++ {
		s := h.sessions[i]
		name, color := subjectLabel(h.subjects, s.SubjectID)
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		line := style.Render(fmt.Sprintf("%s%-17s ", cursor, s.CompletedAt.In(loc).Format("2006-01-02 15:04"))) +
			dot + style.Render(fmt.Sprintf(" %-14s %-24s %7s %5d  ", truncate(name, 14), truncate(s.Topic, 24), formatMinutes(s.DurationMinutes), s.WorkSessionsCompleted)) +
			starStyle.Render(ratingStars(s.ProductivityRating))
		rows = append(rows, line)
	}

	if sel := h.sessions[h.cursor]; sel.Notes != "" {
		rows = append(rows, "", mutedStyle.Render("  Notes: ")+sel.Notes)
	}
	rows = append(rows, "", mutedStyle.Render("  ↑/↓: move  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
