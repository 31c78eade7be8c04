package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studylog/internal/analytics"
	"github.com/sadopc/studylog/internal/clock"
	"github.com/sadopc/studylog/internal/store"
)

// rangeOptions are the day windows the analytics view cycles through.
var rangeOptions = []int{7, 14, 30}

const topTopics = 5

type analyticsModel struct {
	repo   store.Repository
	clock  clock.Clock
	loc    *time.Location
	width  int
	height int

	rangeIdx int
	report   analytics.Report

	chart barchart.Model
}

func newAnalyticsModel(repo store.Repository, clk clock.Clock, loc *time.Location) analyticsModel {
	return analyticsModel{
		repo:  repo,
		clock: clk,
		loc:   loc,
		chart: barchart.New(60, 12),
	}
}

func (r *analyticsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

func (r analyticsModel) days() int { return rangeOptions[r.rangeIdx] }

type analyticsDataMsg struct {
	report analytics.Report
	err    error
}

func (r analyticsModel) refresh() tea.Cmd {
	repo, days, now, loc := r.repo, r.days(), r.clock.Now(), r.loc
	return func() tea.Msg {
		ctx := context.Background()
		sessions, err := repo.ListSessions(ctx)
		if err != nil {
			return analyticsDataMsg{err: err}
		}
		subjects, err := repo.ListSubjects(ctx)
		if err != nil {
			return analyticsDataMsg{err: err}
		}
		return analyticsDataMsg{report: analytics.BuildReport(sessions, subjects, days, topTopics, now, loc)}
	}
}

func (r analyticsModel) update(msg tea.Msg) (analyticsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case analyticsDataMsg:
		if msg.err != nil {
			return r, errorCmd("Load error", msg.err)
		}
		r.report = msg.report
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			if r.rangeIdx > 0 {
				r.rangeIdx--
				return r, r.refresh()
			}
		case key.Matches(msg, keys.Right):
			if r.rangeIdx < len(rangeOptions)-1 {
				r.rangeIdx++
				return r, r.refresh()
			}
		}
	}
	return r, nil
}

func (r *analyticsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if r.height > 36 {
		chartHeight = 14
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	label := "Mon 02"
	if len(r.report.Daily) > 7 {
		label = "02"
	}
	var bars []barchart.BarData
	for _, b := range r.report.Daily {
		day, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			continue
		}
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		if b.Sessions == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label:  day.Format(label),
			Values: []barchart.BarValue{{Name: b.Date, Value: b.TotalHours, Style: style}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r analyticsModel) view() string {
	w := r.width - 4

	var tabs []string
	for i, d := range rangeOptions {
		name := fmt.Sprintf("%dd", d)
		if i == r.rangeIdx {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Analytics"), "  ", lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...),
	)

	s := r.report.Summary
	summary := fmt.Sprintf("  %s sessions   %s total   %s avg rating   %s longest streak   %s current",
		highlightStyle.Render(fmt.Sprintf("%d", s.TotalSessions)),
		highlightStyle.Render(formatHours(s.TotalHours)),
		highlightStyle.Render(fmt.Sprintf("%.1f", s.AvgProductivity)),
		highlightStyle.Render(fmt.Sprintf("%dd", r.report.LongestStreak)),
		highlightStyle.Render(fmt.Sprintf("%dd", r.report.CurrentStreak)),
	)

	tables := lipgloss.JoinHorizontal(lipgloss.Top,
		r.renderTopics(),
		"    ",
		r.renderSubjects(),
	)

	nav := mutedStyle.Render("  ←/→: change range")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", summary, "", r.chart.View(), "", tables, "", nav,
		),
	)
}

func (r analyticsModel) renderTopics() string {
	rows := []string{titleStyle.Render("  Top Topics")}
	if len(r.report.Topics) == 0 {
		return strings.Join(append(rows, mutedStyle.Render("  No data yet")), "\n")
	}
	for i, t := range r.report.Topics {
		rows = append(rows, fmt.Sprintf("  %d. %-24s %6s  %d sessions", i+1, truncate(t.Topic, 24), formatHours(t.TotalHours), t.SessionCount))
	}
	return strings.Join(rows, "\n")
}

func (r analyticsModel) renderSubjects() string {
	rows := []string{titleStyle.Render("By Subject")}
	if len(r.report.Subjects) == 0 {
		return strings.Join(append(rows, mutedStyle.Render("No data yet")), "\n")
	}
	for _, s := range r.report.Subjects {
		color := s.Color
		if color == "" {
			color = string(colorMuted)
		}
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
		rows = append(rows, fmt.Sprintf("%s %-18s %6s %4d", dot, truncate(s.Name, 18), formatHours(s.TotalHours), s.Sessions))
	}
	return strings.Join(rows, "\n")
}
