package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studylog/internal/store"
)

type settingsModel struct {
	repo   store.Repository
	width  int
	height int

	settings   store.Settings
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	workDuration     *string
	shortBreak       *string
	longBreak        *string
	sessionsBeforeLB *string
	soundEnabled     *bool
	darkMode         *bool
}

func newSettingsModel(repo store.Repository) settingsModel {
	wd, sb, lb, n := "", "", "", ""
	sound, dark := false, false
	return settingsModel{
		repo:             repo,
		settings:         store.DefaultSettings(),
		workDuration:     &wd,
		shortBreak:       &sb,
		longBreak:        &lb,
		sessionsBeforeLB: &n,
		soundEnabled:     &sound,
		darkMode:         &dark,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings *store.Settings
	err      error
}

func (s settingsModel) refresh() tea.Cmd {
	repo := s.repo
	return func() tea.Msg {
		settings, err := repo.GetSettings(context.Background())
		return settingsDataMsg{settings: settings, err: err}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		if msg.err != nil {
			return s, errorCmd("Load error", msg.err)
		}
		s.settings = *msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

// positiveInt validates a whole number of at least 1.
func positiveInt(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("enter a whole number")
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.workDuration = strconv.Itoa(s.settings.WorkDuration)
	*s.shortBreak = strconv.Itoa(s.settings.ShortBreakDuration)
	*s.longBreak = strconv.Itoa(s.settings.LongBreakDuration)
	*s.sessionsBeforeLB = strconv.Itoa(s.settings.SessionsBeforeLongBreak)
	*s.soundEnabled = s.settings.SoundEnabled
	*s.darkMode = s.settings.DarkMode

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Work duration (min)").Value(s.workDuration).Validate(positiveInt),
			huh.NewInput().Title("Short break (min)").Value(s.shortBreak).Validate(positiveInt),
			huh.NewInput().Title("Long break (min)").Value(s.longBreak).Validate(positiveInt),
			huh.NewInput().Title("Work sessions before long break").Value(s.sessionsBeforeLB).Validate(positiveInt),
		).Title("Timer"),
		huh.NewGroup(
			huh.NewConfirm().Title("Sound notifications").Value(s.soundEnabled),
			huh.NewConfirm().Title("Dark mode").Value(s.darkMode),
		).Title("General"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		return s.saveSettings()
	}

	return s, cmd
}

func (s settingsModel) patch() store.SettingsPatch {
	atoi := func(v string) *int {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return &n
	}
	sound, dark := *s.soundEnabled, *s.darkMode
	return store.SettingsPatch{
		WorkDuration:            atoi(*s.workDuration),
		ShortBreakDuration:      atoi(*s.shortBreak),
		LongBreakDuration:       atoi(*s.longBreak),
		SessionsBeforeLongBreak: atoi(*s.sessionsBeforeLB),
		SoundEnabled:            &sound,
		DarkMode:                &dark,
	}
}

func (s settingsModel) saveSettings() (settingsModel, tea.Cmd) {
	updated, err := s.repo.UpdateSettings(context.Background(), s.patch())
	if err != nil {
		return s, errorCmd("Settings not saved", err)
	}
	s.settings = *updated
	return s, tea.Batch(statusCmd("Settings saved"), emit(settingsChangedMsg{settings: *updated}))
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	entries := []struct{ label, value string }{
		{"Work duration", fmt.Sprintf("%d min", s.settings.WorkDuration)},
		{"Short break", fmt.Sprintf("%d min", s.settings.ShortBreakDuration)},
		{"Long break", fmt.Sprintf("%d min", s.settings.LongBreakDuration)},
		{"Long break every", fmt.Sprintf("%d work sessions", s.settings.SessionsBeforeLongBreak)},
		{"Sound", onOff(s.settings.SoundEnabled)},
		{"Dark mode", onOff(s.settings.DarkMode)},
	}

	rows := []string{title, ""}
	for _, e := range entries {
		label := lipgloss.NewStyle().Width(24).Render(e.label)
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(e.value)))
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
