package tui

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hashicorp/go-hclog"

	"github.com/sadopc/studylog/internal/clock"
	"github.com/sadopc/studylog/internal/export"
	"github.com/sadopc/studylog/internal/recorder"
	"github.com/sadopc/studylog/internal/store"
	"github.com/sadopc/studylog/internal/timer"
)

// Options configures the TUI. Zero values fall back to the system clock, a
// discarding logger, local time and the user's home directory for exports.
type Options struct {
	Clock     clock.Clock
	Logger    hclog.Logger
	Rand      *rand.Rand
	Policy    timer.Policy
	Location  *time.Location
	ExportDir string
}

// App is the root Bubble Tea model.
type App struct {
	repo      store.Repository
	clock     clock.Clock
	log       hclog.Logger
	exportDir string
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	timer     timerModel
	history   historyModel
	analytics analyticsModel
	subjects  subjectsModel
	settings  settingsModel

	help   help.Model
	status string
	isErr  bool
}

func NewApp(repo store.Repository, opts Options) App {
	if opts.Clock == nil {
		opts.Clock = clock.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(opts.Clock.Now().UnixNano()))
	}
	if opts.Policy == "" {
		opts.Policy = timer.PolicyAwaitRating
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	cfg := engineConfig(store.DefaultSettings(), opts.Policy)
	engine := timer.New(cfg, opts.Clock)
	rec := recorder.New(engine, repo, opts.Clock, opts.Logger)

	h := help.New()
	h.ShowAll = false

	return App{
		repo:       repo,
		clock:      opts.Clock,
		log:        opts.Logger.Named("tui"),
		exportDir:  opts.ExportDir,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(repo, opts.Clock, opts.Location, opts.Rand),
		timer:      newTimerModel(repo, engine, rec, opts.Policy, opts.Logger),
		history:    newHistoryModel(repo, opts.Location),
		analytics:  newAnalyticsModel(repo, opts.Clock, opts.Location),
		subjects:   newSubjectsModel(repo, opts.Rand),
		settings:   newSettingsModel(repo),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.loadData(),
		a.timer.refresh(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.timer.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.analytics.setSize(a.width, contentHeight)
		a.subjects.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		if a.activeView == viewAnalytics {
			a.analytics.buildChart()
		}
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewDashboard)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewTimer)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewHistory)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewAnalytics)
		case key.Matches(msg, keys.Tab5):
			return a.switchTo(viewSubjects)
		case key.Matches(msg, keys.Tab6):
			return a.switchTo(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		// The timer keeps counting whichever view is showing.
		a.timer, cmd = a.timer.update(msg)
		return a, tea.Batch(tickCmd(), cmd)

	// Data messages go to their owner even when another view is active.
	case dashboardDataMsg:
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd
	case timerDataMsg:
		if msg.settings != nil {
			lipgloss.SetHasDarkBackground(msg.settings.DarkMode)
		}
		a.timer, cmd = a.timer.update(msg)
		return a, cmd
	case historyDataMsg:
		a.history, cmd = a.history.update(msg)
		return a, cmd
	case analyticsDataMsg:
		a.analytics, cmd = a.analytics.update(msg)
		return a, cmd
	case subjectsDataMsg:
		a.subjects, cmd = a.subjects.update(msg)
		return a, cmd
	case settingsDataMsg:
		a.settings, cmd = a.settings.update(msg)
		return a, cmd

	case sessionsChangedMsg:
		return a, tea.Batch(a.dashboard.loadData(), a.history.refresh(), a.analytics.refresh())

	case catalogChangedMsg:
		return a, tea.Batch(a.dashboard.loadData(), a.timer.refresh(), a.history.refresh(), a.analytics.refresh())

	case settingsChangedMsg:
		lipgloss.SetHasDarkBackground(msg.settings.DarkMode)
		a.timer, cmd = a.timer.update(msg)
		return a, cmd

	case statusMsg:
		a.status = msg.text
		a.isErr = msg.isError
		if msg.isError {
			a.log.Warn("status", "message", msg.text)
		}
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.isErr = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewTimer:
		a.timer, cmd = a.timer.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewAnalytics:
		a.analytics, cmd = a.analytics.update(msg)
	case viewSubjects:
		a.subjects, cmd = a.subjects.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTimer:
		return a.timer.formActive
	case viewSubjects:
		return a.subjects.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.loadData()
	case viewTimer:
		return a.timer.refresh()
	case viewHistory:
		return a.history.refresh()
	case viewAnalytics:
		return a.analytics.refresh()
	case viewSubjects:
		return a.subjects.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewTimer:
		content = a.timer.view()
	case viewHistory:
		content = a.history.view()
	case viewAnalytics:
		content = a.analytics.view()
	case viewSubjects:
		content = a.subjects.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("studylog")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.isErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Timer indicator in footer
	timerInfo := ""
	if s := a.timer.engine.Snapshot(); s.InProgress() {
		label := fmt.Sprintf("%s %s", s.Phase, timer.FormatClock(s.Remaining))
		switch {
		case s.AwaitingRating:
			timerInfo = accentStyle.Render(" ★ rate session")
		case s.Running:
			timerInfo = phaseStyle(s.Phase).Render(" ● " + label)
		default:
			timerInfo = warningStyle.Render(" ⏸ " + label)
		}
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	rows := []string{titleStyle.Render("Export Sessions"), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	repo, dir, now := a.repo, a.exportDir, a.clock.Now()
	return func() tea.Msg {
		ctx := context.Background()
		sessions, err := repo.ListSessions(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		subjects, err := repo.ListSubjects(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		index := export.SubjectIndex(subjects)

		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		dateStr := now.Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("studylog-export-%s.csv", dateStr))
			if err := export.ToCSV(sessions, index, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("studylog-export-%s.json", dateStr))
			if err := export.ToJSON(sessions, index, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
