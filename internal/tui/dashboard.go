package tui

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studylog/internal/analytics"
	"github.com/sadopc/studylog/internal/clock"
	"github.com/sadopc/studylog/internal/store"
)

const recentLimit = 5

type dashboardModel struct {
	repo   store.Repository
	clock  clock.Clock
	loc    *time.Location
	rng    *rand.Rand
	width  int
	height int

	quote    string
	today    analytics.Stats
	current  int
	longest  int
	recent   []store.Session
	subjects map[string]store.Subject
	todos    []store.Todo
}

func newDashboardModel(repo store.Repository, clk clock.Clock, loc *time.Location, rng *rand.Rand) dashboardModel {
	return dashboardModel{
		repo:  repo,
		clock: clk,
		loc:   loc,
		rng:   rng,
		quote: randomQuote(rng),
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

type dashboardDataMsg struct {
	sessions []store.Session
	subjects []store.Subject
	todos    []store.Todo
	err      error
}

func (d dashboardModel) loadData() tea.Cmd {
	repo := d.repo
	return func() tea.Msg {
		ctx := context.Background()
		sessions, err := repo.ListSessions(ctx)
		if err != nil {
			return dashboardDataMsg{err: err}
		}
		subjects, err := repo.ListSubjects(ctx)
		if err != nil {
			return dashboardDataMsg{err: err}
		}
		open := false
		todos, err := repo.ListTodos(ctx, store.TodoFilter{Completed: &open})
		if err != nil {
			return dashboardDataMsg{err: err}
		}
		return dashboardDataMsg{sessions: sessions, subjects: subjects, todos: todos}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		if msg.err != nil {
			return d, errorCmd("Load error", msg.err)
		}
		now := d.clock.Now()
		d.today = analytics.Today(msg.sessions, now, d.loc)
		d.current = analytics.CurrentStreak(msg.sessions, now, d.loc)
		d.longest = analytics.Streak(msg.sessions, d.loc)
		d.subjects = subjectLookup(msg.subjects)
		d.todos = msg.todos
		d.recent = msg.sessions
		if len(d.recent) > recentLimit {
			d.recent = d.recent[:recentLimit]
		}
		return d, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quote) {
			d.quote = randomQuote(d.rng)
		}
	}
	return d, nil
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	w := d.width - 4

	quote := panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			accentStyle.Italic(true).Render("“"+d.quote+"”"),
			mutedStyle.Render("o: another quote"),
		),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderToday(w),
		quote,
		d.renderRecent(w),
		d.renderTodos(w),
	)
}

func (d dashboardModel) renderToday(w int) string {
	title := titleStyle.Render("Today")
	stats := fmt.Sprintf("%s  %s  %s",
		highlightStyle.Render(fmt.Sprintf("%d sessions", d.today.TotalSessions)),
		highlightStyle.Render(formatHours(d.today.TotalHours)),
		highlightStyle.Render(fmt.Sprintf("avg %.1f", d.today.AvgProductivity)),
	)

	streak := mutedStyle.Render("No streak yet. Finish a session to start one.")
	if d.current > 0 {
		streak = successStyle.Render(fmt.Sprintf("🔥 %d day streak", d.current)) +
			mutedStyle.Render(fmt.Sprintf("  (best %d)", d.longest))
	} else if d.longest > 0 {
		streak = warningStyle.Render("Streak broken") + mutedStyle.Render(fmt.Sprintf("  (best %d)", d.longest))
	}

	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, stats, streak))
}

func (d dashboardModel) renderRecent(w int) string {
	title := titleStyle.Render("Recent Sessions")
	if len(d.recent) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No sessions yet. Press 2 to start the timer."),
		))
	}

	rows := []string{title}
	for _, s := range d.recent {
		name, color := subjectLabel(d.subjects, s.SubjectID)
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
		rows = append(rows, fmt.Sprintf("  %s %s  %-14s %-22s %6s  %s",
			dot,
			s.CompletedAt.In(d.location()).Format("Jan 02 15:04"),
			truncate(name, 14),
			truncate(s.Topic, 22),
			formatMinutes(s.DurationMinutes),
			starStyle.Render(ratingStars(s.ProductivityRating)),
		))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderTodos(w int) string {
	title := titleStyle.Render("Open Todos")
	if len(d.todos) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render("Nothing on the list")))
	}
	rows := []string{title}
	for i, td := range d.todos {
		if i == recentLimit {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … and %d more", len(d.todos)-recentLimit)))
			break
		}
		line := "  ☐ " + td.Text
		if td.SubjectID != nil {
			name, _ := subjectLabel(d.subjects, *td.SubjectID)
			line += mutedStyle.Render("  " + name)
		}
		rows = append(rows, line)
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) location() *time.Location {
	if d.loc == nil {
		return time.Local
	}
	return d.loc
}
