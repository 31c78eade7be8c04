package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/hashicorp/go-hclog"

	"github.com/sadopc/studylog/internal/apperrors"
	"github.com/sadopc/studylog/internal/recorder"
	"github.com/sadopc/studylog/internal/store"
	"github.com/sadopc/studylog/internal/timer"
)

type timerForm int

const (
	formNone timerForm = iota
	formSelect
	formRate
)

// timerModel is the Timer view. It owns the engine and the recorder; every engine
// call happens on the Bubble Tea update loop.
type timerModel struct {
	repo   store.Repository
	engine *timer.Engine
	rec    *recorder.Recorder
	log    hclog.Logger
	policy timer.Policy
	width  int
	height int

	subjects []store.Subject
	todos    []store.Todo // open todos only
	settings store.Settings

	formActive bool
	formKind   timerForm
	form       *huh.Form

	// Form field pointers (survive value copies)
	formSubject *string
	formTopic   *string
	formTodo    *string
	formRating  *int
	formNotes   *string
}

func newTimerModel(repo store.Repository, engine *timer.Engine, rec *recorder.Recorder, policy timer.Policy, logger hclog.Logger) timerModel {
	subject, topic, todo, notes := "", "", "", ""
	rating := 3
	return timerModel{
		repo:        repo,
		engine:      engine,
		rec:         rec,
		log:         logger.Named("timer"),
		policy:      policy,
		settings:    store.DefaultSettings(),
		formSubject: &subject,
		formTopic:   &topic,
		formTodo:    &todo,
		formRating:  &rating,
		formNotes:   &notes,
	}
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

func engineConfig(s store.Settings, policy timer.Policy) timer.Config {
	return timer.Config{
		Work:                    time.Duration(s.WorkDuration) * time.Minute,
		ShortBreak:              time.Duration(s.ShortBreakDuration) * time.Minute,
		LongBreak:               time.Duration(s.LongBreakDuration) * time.Minute,
		SessionsBeforeLongBreak: s.SessionsBeforeLongBreak,
		Policy:                  policy,
	}
}

type timerDataMsg struct {
	subjects []store.Subject
	todos    []store.Todo
	settings *store.Settings
	err      error
}

func (t timerModel) refresh() tea.Cmd {
	repo := t.repo
	return func() tea.Msg {
		ctx := context.Background()
		subjects, err := repo.ListSubjects(ctx)
		if err != nil {
			return timerDataMsg{err: err}
		}
		open := false
		todos, err := repo.ListTodos(ctx, store.TodoFilter{Completed: &open})
		if err != nil {
			return timerDataMsg{err: err}
		}
		settings, err := repo.GetSettings(ctx)
		if err != nil {
			return timerDataMsg{err: err}
		}
		return timerDataMsg{subjects: subjects, todos: todos, settings: settings}
	}
}

func (t timerModel) running() bool { return t.engine.Running() }

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case timerDataMsg:
		if msg.err != nil {
			t.log.Error("load timer data", "error", msg.err)
			return t, errorCmd("Load error", msg.err)
		}
		t.subjects = msg.subjects
		t.todos = msg.todos
		t.applySettings(*msg.settings)
		return t, nil

	case settingsChangedMsg:
		t.applySettings(msg.settings)
		return t, nil

	case tickMsg:
		return t.handleTick()
	}

	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			return t.start()
		case key.Matches(msg, keys.Pause):
			if err := t.engine.Toggle(); err != nil {
				return t, t.engineError(err)
			}
			return t, nil
		case key.Matches(msg, keys.Stop):
			return t.stop()
		case key.Matches(msg, keys.Skip):
			if err := t.engine.SkipBreak(); err != nil {
				return t, t.engineError(err)
			}
			return t, statusCmd("Break skipped")
		case key.Matches(msg, keys.Reset):
			t.rec.Skip()
			return t, statusCmd("Timer reset")
		case key.Matches(msg, keys.Enter):
			if t.engine.Snapshot().InProgress() {
				return t, statusCmd("Finish or reset the current session first")
			}
			return t.showSelectForm()
		}
	}
	return t, nil
}

func (t *timerModel) applySettings(s store.Settings) {
	t.settings = s
	t.engine.ApplySettings(engineConfig(s, t.policy))
}

func (t timerModel) handleTick() (timerModel, tea.Cmd) {
	ev := t.engine.Tick()
	if !ev.PhaseChanged() {
		return t, nil
	}
	bell := ""
	if t.settings.SoundEnabled {
		bell = "\a"
	}
	t.log.Debug("phase changed", "event", ev.Type, "phase", ev.Phase, "completed", ev.CompletedWorkPeriods)

	switch ev.Type {
	case timer.EventWorkComplete:
		next, cmd := t.showRateForm()
		return next, tea.Batch(cmd, statusCmd("Work session complete! Rate your focus."+bell))
	case timer.EventBreakStarted:
		return t, statusCmd(fmt.Sprintf("%s time!%s", ev.Phase, bell))
	case timer.EventBreakComplete:
		return t, statusCmd("Break over, back to work."+bell)
	}
	return t, nil
}

func (t timerModel) start() (timerModel, tea.Cmd) {
	s := t.engine.Snapshot()
	if s.AwaitingRating {
		return t.showRateForm()
	}
	if !s.InProgress() && s.Selection.SubjectID == "" {
		if len(t.subjects) == 0 {
			return t, func() tea.Msg {
				return statusMsg{text: "No subjects yet. Press 5 to go to Subjects and create one.", isError: true}
			}
		}
		return t.showSelectForm()
	}
	if err := t.engine.Start(); err != nil {
		return t, t.engineError(err)
	}
	return t, statusCmd("Timer started")
}

func (t timerModel) stop() (timerModel, tea.Cmd) {
	if !t.engine.Snapshot().InProgress() {
		return t, nil
	}
	if !t.engine.StopAndRate() {
		return t, statusCmd("Session discarded: no work period completed")
	}
	return t.showRateForm()
}

func (t timerModel) engineError(err error) tea.Cmd {
	switch {
	case errors.Is(err, apperrors.ErrNoSession), errors.Is(err, apperrors.ErrNotRunning):
		return nil
	}
	return func() tea.Msg { return statusMsg{text: err.Error(), isError: true} }
}

// --- Forms ---

func (t timerModel) showSelectForm() (timerModel, tea.Cmd) {
	if len(t.subjects) == 0 {
		return t, statusCmd("No subjects yet. Press 5 to go to Subjects and create one.")
	}
	sel := t.engine.Snapshot().Selection
	*t.formSubject = sel.SubjectID
	if *t.formSubject == "" {
		*t.formSubject = t.subjects[0].ID
	}
	*t.formTopic = sel.Topic
	*t.formTodo = ""
	if sel.TodoID != nil {
		*t.formTodo = *sel.TodoID
	}

	subjectOptions := make([]huh.Option[string], len(t.subjects))
	for i, s := range t.subjects {
		subjectOptions[i] = huh.NewOption("● "+s.Name, s.ID)
	}
	names := subjectLookup(t.subjects)
	todoOptions := []huh.Option[string]{huh.NewOption("None", "")}
	for _, td := range t.todos {
		label := td.Text
		if td.SubjectID != nil {
			name, _ := subjectLabel(names, *td.SubjectID)
			label = fmt.Sprintf("%s (%s)", td.Text, name)
		}
		todoOptions = append(todoOptions, huh.NewOption(label, td.ID))
	}

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Subject").Options(subjectOptions...).Value(t.formSubject),
			huh.NewInput().Title("Topic").Placeholder("What are you studying?").Value(t.formTopic).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("topic is required")
					}
					return nil
				}),
			huh.NewSelect[string]().Title("Todo").Options(todoOptions...).Value(t.formTodo),
		),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	t.formKind = formSelect
	return t, t.form.Init()
}

func (t timerModel) showRateForm() (timerModel, tea.Cmd) {
	*t.formRating = 3
	*t.formTopic = t.engine.Snapshot().Selection.Topic
	*t.formNotes = ""

	ratingOptions := []huh.Option[int]{
		huh.NewOption("★★★★★  5 - excellent", 5),
		huh.NewOption("★★★★☆  4 - good", 4),
		huh.NewOption("★★★☆☆  3 - okay", 3),
		huh.NewOption("★★☆☆☆  2 - distracted", 2),
		huh.NewOption("★☆☆☆☆  1 - unproductive", 1),
		huh.NewOption("Skip (don't save)", 0),
	}

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().Title("How productive was this session?").Options(ratingOptions...).Value(t.formRating),
			huh.NewInput().Title("Topic").Value(t.formTopic),
			huh.NewInput().Title("Notes").Placeholder("optional").Value(t.formNotes),
		),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	t.formKind = formRate
	return t, t.form.Init()
}

func (t timerModel) updateForm(msg tea.Msg) (timerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		t.formActive = false
		t.form = nil
		if t.formKind == formRate {
			t.rec.Skip()
			return t, statusCmd("Session discarded")
		}
		return t, nil
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	if t.form.State == huh.StateCompleted {
		t.formActive = false
		t.form = nil
		switch t.formKind {
		case formSelect:
			return t.applySelection()
		case formRate:
			return t.finishRating()
		}
	}
	return t, cmd
}

// applySelection hands the select form values to the engine and starts the countdown.
func (t timerModel) applySelection() (timerModel, tea.Cmd) {
	var todoID *string
	if *t.formTodo != "" {
		id := *t.formTodo
		todoID = &id
	}
	err := t.engine.Select(timer.Selection{SubjectID: *t.formSubject, Topic: *t.formTopic, TodoID: todoID})
	if err != nil {
		return t, t.engineError(err)
	}
	if err := t.engine.Start(); err != nil {
		return t, t.engineError(err)
	}
	return t, statusCmd("Timer started")
}

// finishRating saves or skips the pending session from the rate form values.
func (t timerModel) finishRating() (timerModel, tea.Cmd) {
	if *t.formRating == 0 {
		t.rec.Skip()
		return t, statusCmd("Session skipped")
	}
	sess, err := t.rec.Finalize(context.Background(), recorder.FinalizeInput{
		Rating: *t.formRating,
		Topic:  *t.formTopic,
		Notes:  *t.formNotes,
	})
	if err != nil {
		// A bad rating keeps the session pending; anything else has reset the engine.
		if errors.Is(err, apperrors.ErrValidation) && t.engine.Snapshot().AwaitingRating {
			return t, t.engineError(err)
		}
		return t, tea.Batch(errorCmd("Session not saved", err), emit(sessionsChangedMsg{}))
	}
	if sess == nil {
		return t, statusCmd("Nothing to save")
	}
	return t, tea.Batch(
		statusCmd(fmt.Sprintf("Saved %s of %s", formatMinutes(sess.DurationMinutes), sess.Topic)),
		emit(sessionsChangedMsg{}),
		t.refresh(),
	)
}

// --- View ---

func (t timerModel) view() string {
	w := t.width - 4

	if t.formActive && t.form != nil {
		title := titleStyle.Render("Start a Session")
		if t.formKind == formRate {
			title = titleStyle.Render("Session Complete")
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", t.form.View()))
	}

	s := t.engine.Snapshot()
	clock := timer.FormatClock(s.Remaining)

	style := phaseStyle(s.Phase)
	timeDisplay := style.Bold(true).Width(w - 6).Align(lipgloss.Center).Render(clock)
	phaseLabel := style.Bold(true).Render(strings.ToUpper(s.Phase.String()))

	var indicator string
	switch {
	case s.AwaitingRating:
		indicator = warningStyle.Render("■  AWAITING RATING")
	case s.Running:
		indicator = successStyle.Render("●  RUNNING")
	case s.Paused():
		indicator = warningStyle.Render("⏸  PAUSED")
	default:
		indicator = mutedStyle.Render("■  READY")
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Pomodoro Timer"),
		"",
		t.renderSelection(s.Selection),
		"",
		timeDisplay,
		phaseLabel,
		t.renderPhaseBar(w-10),
		"",
		indicator,
		t.renderProgress(s),
		mutedStyle.Render("Focus time "+formatDuration(t.engine.Elapsed())),
	)

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", mutedStyle.Render(t.controls(s))),
	)
}

func (t timerModel) renderSelection(sel timer.Selection) string {
	if sel.SubjectID == "" {
		return mutedStyle.Render("No subject selected. Press enter to choose one.")
	}
	name, color := subjectLabel(subjectLookup(t.subjects), sel.SubjectID)
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
	line := fmt.Sprintf("%s %s / %s", dot, highlightStyle.Render(name), sel.Topic)
	if sel.TodoID != nil {
		for _, td := range t.todos {
			if td.ID == *sel.TodoID {
				line += mutedStyle.Render("  ☐ " + td.Text)
			}
		}
	}
	return line
}

func (t timerModel) renderPhaseBar(w int) string {
	if w < 10 {
		w = 10
	}
	if w > 50 {
		w = 50
	}
	filled := int(t.engine.Progress() * float64(w))
	return successStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", w-filled))
}

func (t timerModel) renderProgress(s timer.State) string {
	every := t.engine.Config().SessionsBeforeLongBreak
	if every < 1 {
		every = 1
	}
	inCycle := s.CompletedWorkPeriods % every
	if s.CompletedWorkPeriods > 0 && inCycle == 0 && s.Phase == timer.PhaseLongBreak {
		inCycle = every
	}
	var parts []string
	for i := 0; i < every; i++ {
		switch {
		case i < inCycle:
			parts = append(parts, successStyle.Render("●"))
		case i == inCycle && s.Phase == timer.PhaseWork && s.InProgress():
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d completed, next: %s", s.CompletedWorkPeriods, t.engine.NextBreak()))
	return strings.Join(parts, " ") + counter
}

func (t timerModel) controls(s timer.State) string {
	switch {
	case s.AwaitingRating:
		return "s: rate session  r: discard"
	case s.Running && s.Phase.IsBreak():
		return "space: pause  b: skip break  x: stop & rate  r: reset"
	case s.Running:
		return "space: pause  x: stop & rate  r: reset"
	case s.Paused():
		return "space: resume  x: stop & rate  r: reset"
	}
	return "enter: choose subject  s: start"
}
