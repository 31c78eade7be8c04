package tui

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-hclog"

	"github.com/sadopc/studylog/internal/clock"
	"github.com/sadopc/studylog/internal/recorder"
	"github.com/sadopc/studylog/internal/store"
	"github.com/sadopc/studylog/internal/timer"
)

var epoch = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newTestRepo(t *testing.T) (*store.Memory, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(epoch)
	repo := store.NewMemoryRepository().WithClock(clk)
	t.Cleanup(func() { repo.Close() })
	return repo, clk
}

func newTestApp(t *testing.T) (App, *store.Memory, *clock.Fake) {
	t.Helper()
	repo, clk := newTestRepo(t)
	app := NewApp(repo, Options{
		Clock:     clk,
		Rand:      rand.New(rand.NewSource(1)),
		Location:  time.UTC,
		ExportDir: t.TempDir(),
	})
	return app, repo, clk
}

func createSubject(t *testing.T, repo store.Repository, name string) *store.Subject {
	t.Helper()
	s, err := repo.CreateSubject(context.Background(), name, "#6C63FF")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// drain runs cmd, expanding batches, and returns every message produced.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func hasMsg[T any](msgs []tea.Msg) bool {
	for _, m := range msgs {
		if _, ok := m.(T); ok {
			return true
		}
	}
	return false
}

func statusOf(msgs []tea.Msg) (statusMsg, bool) {
	for _, m := range msgs {
		if s, ok := m.(statusMsg); ok {
			return s, true
		}
	}
	return statusMsg{}, false
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// ============================================================
// Timer view
// ============================================================

func newTestTimer(t *testing.T, repo store.Repository, clk clock.Clock, policy timer.Policy) timerModel {
	t.Helper()
	engine := timer.New(timer.DefaultConfig(), clk)
	rec := recorder.New(engine, repo, clk, hclog.NewNullLogger())
	tm := newTimerModel(repo, engine, rec, policy, hclog.NewNullLogger())
	tm, _ = tm.update(tm.refresh()())
	return tm
}

// oneMinuteWork shortens the work phase so tests can tick through it.
func oneMinuteWork(t *testing.T, repo store.Repository) {
	t.Helper()
	if _, err := repo.UpdateSettings(context.Background(), store.SettingsPatch{WorkDuration: ptr(1)}); err != nil {
		t.Fatal(err)
	}
}

func selectAndStart(t *testing.T, tm timerModel, subjectID, topic, todoID string) timerModel {
	t.Helper()
	*tm.formSubject = subjectID
	*tm.formTopic = topic
	*tm.formTodo = todoID
	tm, _ = tm.applySelection()
	if !tm.running() {
		t.Fatal("timer should be running after selection")
	}
	return tm
}

func tickThroughWork(tm timerModel, clk *clock.Fake, seconds int) (timerModel, tea.Cmd) {
	var cmd tea.Cmd
	for i := 0; i < seconds; i++ {
		clk.Advance(time.Second)
		tm, cmd = tm.handleTick()
	}
	return tm, cmd
}

func TestTimerLoadsSettings(t *testing.T) {
	repo, clk := newTestRepo(t)
	oneMinuteWork(t, repo)
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)

	if tm.settings.WorkDuration != 1 {
		t.Fatalf("expected 1 min work, got %d", tm.settings.WorkDuration)
	}
	if got := tm.engine.Snapshot().Remaining; got != 60 {
		t.Fatalf("expected 60s remaining, got %d", got)
	}
}

func TestTimerStartWithoutSubjects(t *testing.T) {
	repo, clk := newTestRepo(t)
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)

	tm, cmd := tm.start()
	if tm.running() || tm.formActive {
		t.Fatal("start without subjects should do nothing")
	}
	st, ok := statusOf(drain(cmd))
	if !ok || !st.isError {
		t.Fatalf("expected error status, got %+v", st)
	}
}

func TestTimerStartOpensSelectForm(t *testing.T) {
	repo, clk := newTestRepo(t)
	createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)

	tm, _ = tm.start()
	if !tm.formActive || tm.formKind != formSelect {
		t.Fatal("start with no selection should open the select form")
	}
	if tm.running() {
		t.Fatal("timer should not run until the form is submitted")
	}
}

func TestTimerApplySelection(t *testing.T) {
	repo, clk := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)

	tm = selectAndStart(t, tm, subj.ID, "  Limits ", "")
	sel := tm.engine.Snapshot().Selection
	if sel.SubjectID != subj.ID || sel.Topic != "Limits" || sel.TodoID != nil {
		t.Fatalf("unexpected selection: %+v", sel)
	}
}

func TestTimerApplySelectionBlankTopic(t *testing.T) {
	repo, clk := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)

	*tm.formSubject = subj.ID
	*tm.formTopic = "   "
	tm, cmd := tm.applySelection()
	if tm.running() {
		t.Fatal("blank topic must not start the timer")
	}
	st, ok := statusOf(drain(cmd))
	if !ok || !st.isError {
		t.Fatal("expected an error status")
	}
}

func TestTimerPauseKey(t *testing.T) {
	repo, clk := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)
	tm = selectAndStart(t, tm, subj.ID, "Limits", "")

	tm, _ = tm.update(tea.KeyMsg{Type: tea.KeySpace})
	if tm.running() || !tm.engine.Snapshot().Paused() {
		t.Fatal("space should pause")
	}
	tm, _ = tm.update(tea.KeyMsg{Type: tea.KeySpace})
	if !tm.running() {
		t.Fatal("space should resume")
	}
}

func TestTimerTickIgnoredWhilePaused(t *testing.T) {
	repo, clk := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)
	tm = selectAndStart(t, tm, subj.ID, "Limits", "")
	if err := tm.engine.Pause(); err != nil {
		t.Fatal(err)
	}

	before := tm.engine.Snapshot().Remaining
	tm, _ = tm.update(tickMsg(clk.Now()))
	if tm.engine.Snapshot().Remaining != before {
		t.Fatal("tick while paused should not count down")
	}
}

func TestTimerWorkCompleteOpensRateForm(t *testing.T) {
	repo, clk := newTestRepo(t)
	oneMinuteWork(t, repo)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)
	tm = selectAndStart(t, tm, subj.ID, "Limits", "")

	tm, _ = tickThroughWork(tm, clk, 60)
	if !tm.formActive || tm.formKind != formRate {
		t.Fatal("completing work should open the rate form")
	}
	s := tm.engine.Snapshot()
	if !s.AwaitingRating || s.CompletedWorkPeriods != 1 {
		t.Fatalf("unexpected state: %+v", s)
	}
	if *tm.formTopic != "Limits" {
		t.Fatalf("rate form should prefill the topic, got %q", *tm.formTopic)
	}
}

func TestTimerFinishRatingSaves(t *testing.T) {
	repo, clk := newTestRepo(t)
	oneMinuteWork(t, repo)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)
	tm = selectAndStart(t, tm, subj.ID, "Limits", "")
	tm, _ = tickThroughWork(tm, clk, 60)

	*tm.formRating = 4
	*tm.formNotes = "good focus"
	tm.formActive = false
	tm, cmd := tm.finishRating()

	sessions, _ := repo.ListSessions(context.Background())
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	s := sessions[0]
	if s.ProductivityRating != 4 || s.DurationMinutes != 1 || s.Topic != "Limits" || s.Notes != "good focus" {
		t.Fatalf("unexpected session: %+v", s)
	}
	if tm.engine.Snapshot().InProgress() {
		t.Fatal("engine should reset after saving")
	}
	if !hasMsg[sessionsChangedMsg](drain(cmd)) {
		t.Fatal("saving should announce sessionsChangedMsg")
	}
}

func TestTimerFinishRatingSkip(t *testing.T) {
	repo, clk := newTestRepo(t)
	oneMinuteWork(t, repo)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)
	tm = selectAndStart(t, tm, subj.ID, "Limits", "")
	tm, _ = tickThroughWork(tm, clk, 60)

	*tm.formRating = 0
	tm, _ = tm.finishRating()

	sessions, _ := repo.ListSessions(context.Background())
	if len(sessions) != 0 {
		t.Fatal("skip should not save")
	}
	if tm.engine.Snapshot().InProgress() {
		t.Fatal("skip should reset the engine")
	}
}

func TestTimerEscDiscardsRating(t *testing.T) {
	repo, clk := newTestRepo(t)
	oneMinuteWork(t, repo)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)
	tm = selectAndStart(t, tm, subj.ID, "Limits", "")
	tm, _ = tickThroughWork(tm, clk, 60)

	tm, _ = tm.update(tea.KeyMsg{Type: tea.KeyEsc})
	if tm.formActive {
		t.Fatal("esc should close the form")
	}
	if tm.engine.Snapshot().InProgress() {
		t.Fatal("esc on the rate form should discard the session")
	}
	sessions, _ := repo.ListSessions(context.Background())
	if len(sessions) != 0 {
		t.Fatal("nothing should be saved")
	}
}

func TestTimerCompletesTodo(t *testing.T) {
	repo, clk := newTestRepo(t)
	oneMinuteWork(t, repo)
	subj := createSubject(t, repo, "Math")
	todo, err := repo.CreateTodo(context.Background(), "Chapter 3", &subj.ID)
	if err != nil {
		t.Fatal(err)
	}
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)
	if len(tm.todos) != 1 {
		t.Fatalf("expected 1 open todo, got %d", len(tm.todos))
	}
	tm = selectAndStart(t, tm, subj.ID, "Limits", todo.ID)
	tm, _ = tickThroughWork(tm, clk, 60)

	*tm.formRating = 5
	tm, cmd := tm.finishRating()
	for _, m := range drain(cmd) {
		if data, ok := m.(timerDataMsg); ok {
			tm, _ = tm.update(data)
		}
	}

	todos, _ := repo.ListTodos(context.Background(), store.TodoFilter{})
	if !todos[0].Completed {
		t.Fatal("linked todo should be completed")
	}
	if len(tm.todos) != 0 {
		t.Fatal("completed todo should drop out of the open list")
	}
	sessions, _ := repo.ListSessions(context.Background())
	if sessions[0].TodoID == nil || *sessions[0].TodoID != todo.ID {
		t.Fatal("session should reference the todo")
	}
}

func TestTimerDeletedTodoStillSaves(t *testing.T) {
	repo, clk := newTestRepo(t)
	oneMinuteWork(t, repo)
	subj := createSubject(t, repo, "Math")
	todo, err := repo.CreateTodo(context.Background(), "Chapter 3", &subj.ID)
	if err != nil {
		t.Fatal(err)
	}
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)
	tm = selectAndStart(t, tm, subj.ID, "Limits", todo.ID)
	tm, _ = tickThroughWork(tm, clk, 60)
	if err := repo.DeleteTodo(context.Background(), todo.ID); err != nil {
		t.Fatal(err)
	}

	*tm.formRating = 3
	tm.formActive = false
	_, cmd := tm.finishRating()

	sessions, _ := repo.ListSessions(context.Background())
	if len(sessions) != 1 || sessions[0].TodoID != nil {
		t.Fatalf("session should be saved without the todo, got %+v", sessions)
	}
	if s, ok := statusOf(drain(cmd)); !ok || s.isError {
		t.Fatalf("expected a success status, got %+v", s)
	}
}

func TestTimerStopBeforeWorkDiscards(t *testing.T) {
	repo, clk := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)
	tm = selectAndStart(t, tm, subj.ID, "Limits", "")
	tm, _ = tickThroughWork(tm, clk, 10)

	tm, _ = tm.update(runes("x"))
	if tm.formActive {
		t.Fatal("no rate form without a completed work period")
	}
	if tm.engine.Snapshot().InProgress() {
		t.Fatal("session should be discarded")
	}
	if tm.engine.Snapshot().Selection.Topic != "Limits" {
		t.Fatal("selection should survive a reset")
	}
}

func TestTimerAutoAdvance(t *testing.T) {
	repo, clk := newTestRepo(t)
	oneMinuteWork(t, repo)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAutoAdvance)
	tm = selectAndStart(t, tm, subj.ID, "Limits", "")

	tm, _ = tickThroughWork(tm, clk, 60)
	s := tm.engine.Snapshot()
	if tm.formActive {
		t.Fatal("auto-advance should not prompt for a rating")
	}
	if s.Phase != timer.PhaseShortBreak || !s.Running {
		t.Fatalf("expected running short break, got %+v", s)
	}

	tm, _ = tm.update(runes("b"))
	if tm.engine.Snapshot().Phase != timer.PhaseWork {
		t.Fatal("b should skip the break")
	}
}

func TestTimerSettingsChangedWhileIdle(t *testing.T) {
	repo, clk := newTestRepo(t)
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)

	s := store.DefaultSettings()
	s.WorkDuration = 50
	tm, _ = tm.update(settingsChangedMsg{settings: s})
	if got := tm.engine.Snapshot().Remaining; got != 50*60 {
		t.Fatalf("expected 3000s, got %d", got)
	}
}

func TestTimerView(t *testing.T) {
	repo, clk := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	tm := newTestTimer(t, repo, clk, timer.PolicyAwaitRating)
	tm.setSize(100, 30)
	tm = selectAndStart(t, tm, subj.ID, "Limits", "")

	v := tm.view()
	if !strings.Contains(v, "25:00") || !strings.Contains(v, "Limits") {
		t.Fatalf("view missing clock or topic:\n%s", v)
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Second, "00:00:01"},
		{time.Minute, "00:01:00"},
		{time.Hour, "01:00:00"},
		{2*time.Hour + 30*time.Minute + 15*time.Second, "02:30:15"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		mins int
		want string
	}{
		{0, "0m"},
		{25, "25m"},
		{60, "1h 00m"},
		{125, "2h 05m"},
	}
	for _, tt := range tests {
		if got := formatMinutes(tt.mins); got != tt.want {
			t.Errorf("formatMinutes(%d) = %q, want %q", tt.mins, got, tt.want)
		}
	}
}

func TestRatingStars(t *testing.T) {
	if got := ratingStars(3); got != "★★★☆☆" {
		t.Fatalf("got %q", got)
	}
	if got := ratingStars(9); got != "★★★★★" {
		t.Fatalf("got %q", got)
	}
	if got := ratingStars(-1); got != "☆☆☆☆☆" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("calculus", 20); got != "calculus" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("calculus", 5); got != "calc…" {
		t.Fatalf("got %q", got)
	}
}

func TestSubjectLabelUnknown(t *testing.T) {
	subjects := subjectLookup([]store.Subject{{ID: "a", Name: "Math", Color: "#112233"}})
	if name, color := subjectLabel(subjects, "a"); name != "Math" || color != "#112233" {
		t.Fatalf("got %q %q", name, color)
	}
	if name, _ := subjectLabel(subjects, "gone"); name != "Unknown" {
		t.Fatalf("deleted subject should render as Unknown, got %q", name)
	}
}

// ============================================================
// Dashboard, history and analytics
// ============================================================

func saveSession(t *testing.T, repo store.Repository, subjectID, topic string, mins int, at time.Time) *store.Session {
	t.Helper()
	s, err := repo.CreateSession(context.Background(), store.SessionInput{
		SubjectID:             subjectID,
		Topic:                 topic,
		DurationMinutes:       mins,
		WorkSessionsCompleted: 1,
		ProductivityRating:    4,
		CompletedAt:           at,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDashboardLoadsToday(t *testing.T) {
	repo, clk := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	saveSession(t, repo, subj.ID, "Limits", 30, epoch.Add(-time.Hour))
	saveSession(t, repo, subj.ID, "Series", 30, epoch.Add(-24*time.Hour))

	d := newDashboardModel(repo, clk, time.UTC, rand.New(rand.NewSource(1)))
	d, _ = d.update(d.loadData()())

	if d.today.TotalSessions != 1 {
		t.Fatalf("expected 1 session today, got %d", d.today.TotalSessions)
	}
	if d.current != 2 || d.longest != 2 {
		t.Fatalf("expected streak 2/2, got %d/%d", d.current, d.longest)
	}
	if len(d.recent) != 2 {
		t.Fatalf("expected 2 recent sessions, got %d", len(d.recent))
	}
	if d.quote == "" {
		t.Fatal("quote should be set")
	}
}

func TestHistoryDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	saveSession(t, repo, subj.ID, "Limits", 25, epoch.Add(-2*time.Hour))
	saveSession(t, repo, subj.ID, "Series", 25, epoch.Add(-time.Hour))

	h := newHistoryModel(repo, time.UTC)
	h.setSize(100, 30)
	h, _ = h.update(h.refresh()())
	if len(h.sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(h.sessions))
	}

	h, _ = h.update(runes("j"))
	if h.cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", h.cursor)
	}
	h, cmd := h.update(runes("d"))
	if !hasMsg[sessionsChangedMsg](drain(cmd)) {
		t.Fatal("delete should announce sessionsChangedMsg")
	}
	sessions, _ := repo.ListSessions(context.Background())
	if len(sessions) != 1 || sessions[0].Topic != "Series" {
		t.Fatalf("wrong session deleted: %+v", sessions)
	}

	h, _ = h.update(h.refresh()())
	if h.cursor != 0 {
		t.Fatal("cursor should clamp after delete")
	}
}

func TestHistoryUnknownSubject(t *testing.T) {
	repo, _ := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	saveSession(t, repo, subj.ID, "Limits", 25, epoch)
	if err := repo.DeleteSubject(context.Background(), subj.ID); err != nil {
		t.Fatal(err)
	}

	h := newHistoryModel(repo, time.UTC)
	h.setSize(100, 30)
	h, _ = h.update(h.refresh()())
	if !strings.Contains(h.view(), "Unknown") {
		t.Fatal("orphaned session should show Unknown subject")
	}
}

func TestAnalyticsRange(t *testing.T) {
	repo, clk := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	saveSession(t, repo, subj.ID, "Limits", 90, epoch.Add(-time.Hour))

	a := newAnalyticsModel(repo, clk, time.UTC)
	a.setSize(100, 40)
	a, _ = a.update(a.refresh()())

	if a.report.Summary.TotalSessions != 1 || a.report.Summary.TotalHours != 1.5 {
		t.Fatalf("unexpected summary: %+v", a.report.Summary)
	}
	if len(a.report.Daily) != 7 {
		t.Fatalf("expected 7 daily buckets, got %d", len(a.report.Daily))
	}

	a, cmd := a.update(tea.KeyMsg{Type: tea.KeyRight})
	if a.days() != 14 || cmd == nil {
		t.Fatal("right should widen the range and reload")
	}
	a, _ = a.update(cmd())
	if len(a.report.Daily) != 14 {
		t.Fatalf("expected 14 daily buckets, got %d", len(a.report.Daily))
	}

	a.rangeIdx = len(rangeOptions) - 1
	if _, cmd := a.update(tea.KeyMsg{Type: tea.KeyRight}); cmd != nil {
		t.Fatal("right at the widest range should be a no-op")
	}
	if v := a.view(); !strings.Contains(v, "Limits") || !strings.Contains(v, "Math") {
		t.Fatal("view should list topics and subjects")
	}
}

// ============================================================
// Subjects and todos
// ============================================================

// submit closes the open form the way updateForm does and saves it.
func submit(p subjectsModel) (subjectsModel, tea.Cmd) {
	p.formActive = false
	p.form = nil
	return p.submitForm()
}

func TestSubjectsCreateEditDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	p := newSubjectsModel(repo, rand.New(rand.NewSource(1)))
	p.setSize(100, 30)

	p, _ = p.showSubjectForm(nil)
	if !p.formActive || p.formKind != formNewSubject {
		t.Fatal("n should open the new subject form")
	}
	*p.formName = "Physics"
	p, cmd := submit(p)
	if !hasMsg[catalogChangedMsg](drain(cmd)) {
		t.Fatal("create should announce catalogChangedMsg")
	}
	p, _ = p.update(p.refresh()())
	if len(p.subjects) != 1 || p.subjects[0].Name != "Physics" {
		t.Fatalf("unexpected subjects: %+v", p.subjects)
	}

	p, _ = p.showSubjectForm(&p.subjects[0])
	*p.formName = "Mechanics"
	p, _ = submit(p)
	p, _ = p.update(p.refresh()())
	if p.subjects[0].Name != "Mechanics" {
		t.Fatal("edit should rename the subject")
	}

	p, _ = p.update(runes("d"))
	subjects, _ := repo.ListSubjects(context.Background())
	if len(subjects) != 0 {
		t.Fatal("d should delete the subject")
	}
}

func TestSubjectsGeneralRowNotDeletable(t *testing.T) {
	repo, _ := newTestRepo(t)
	createSubject(t, repo, "Math")
	p := newSubjectsModel(repo, rand.New(rand.NewSource(1)))
	p, _ = p.update(p.refresh()())

	p, _ = p.update(runes("j"))
	if !p.general() {
		t.Fatal("cursor should reach the General row")
	}
	p, _ = p.update(runes("d"))
	subjects, _ := repo.ListSubjects(context.Background())
	if len(subjects) != 1 {
		t.Fatal("General row must not delete anything")
	}
}

func TestSubjectsTodos(t *testing.T) {
	repo, _ := newTestRepo(t)
	subj := createSubject(t, repo, "Math")
	p := newSubjectsModel(repo, rand.New(rand.NewSource(1)))
	p, _ = p.update(p.refresh()())

	p, _ = p.update(tea.KeyMsg{Type: tea.KeyEnter})
	if !p.viewingTodos {
		t.Fatal("enter should open the todo list")
	}
	p, _ = p.showTodoForm()
	*p.formName = "Read chapter 3"
	p, _ = submit(p)
	p, _ = p.update(p.refresh()())

	todos := p.selectedTodos()
	if len(todos) != 1 || todos[0].SubjectID == nil || *todos[0].SubjectID != subj.ID {
		t.Fatalf("todo should be filed under the subject: %+v", todos)
	}

	p, _ = p.update(runes("c"))
	p, _ = p.update(p.refresh()())
	if !p.selectedTodos()[0].Completed {
		t.Fatal("c should complete the todo")
	}

	p, _ = p.update(runes("d"))
	p, _ = p.update(p.refresh()())
	if len(p.selectedTodos()) != 0 {
		t.Fatal("d should delete the todo")
	}

	p, _ = p.update(tea.KeyMsg{Type: tea.KeyEsc})
	if p.viewingTodos {
		t.Fatal("esc should return to subjects")
	}
}

func TestSubjectsGeneralTodos(t *testing.T) {
	repo, _ := newTestRepo(t)
	if _, err := repo.CreateTodo(context.Background(), "Buy notebook", nil); err != nil {
		t.Fatal(err)
	}
	p := newSubjectsModel(repo, rand.New(rand.NewSource(1)))
	p, _ = p.update(p.refresh()())

	if !p.general() {
		t.Fatal("with no subjects the cursor sits on General")
	}
	if len(p.selectedTodos()) != 1 {
		t.Fatal("General should list todos without a subject")
	}
}

// ============================================================
// Settings view
// ============================================================

func TestPositiveInt(t *testing.T) {
	for _, v := range []string{"", "abc", "0", "-3", "1.5"} {
		if positiveInt(v) == nil {
			t.Errorf("positiveInt(%q) should fail", v)
		}
	}
	for _, v := range []string{"1", " 25 "} {
		if err := positiveInt(v); err != nil {
			t.Errorf("positiveInt(%q) = %v", v, err)
		}
	}
}

func TestSettingsSave(t *testing.T) {
	repo, _ := newTestRepo(t)
	s := newSettingsModel(repo)
	s, _ = s.update(s.refresh()())

	s, _ = s.showForm()
	if !s.formActive || *s.workDuration != "25" || !*s.soundEnabled {
		t.Fatal("form should be prefilled from the stored settings")
	}
	*s.workDuration = "50"
	*s.darkMode = true
	s.formActive = false
	s, cmd := s.saveSettings()

	stored, _ := repo.GetSettings(context.Background())
	if stored.WorkDuration != 50 || !stored.DarkMode || stored.ShortBreakDuration != 5 {
		t.Fatalf("unexpected stored settings: %+v", stored)
	}
	var changed *settingsChangedMsg
	for _, m := range drain(cmd) {
		if c, ok := m.(settingsChangedMsg); ok {
			changed = &c
		}
	}
	if changed == nil || changed.settings.WorkDuration != 50 {
		t.Fatal("save should announce the new settings")
	}
	if !strings.Contains(s.view(), "50 min") {
		t.Fatal("view should show the saved value")
	}
}

// ============================================================
// App model
// ============================================================

func TestNewApp(t *testing.T) {
	app, _, _ := newTestApp(t)

	if app.activeView != viewDashboard {
		t.Fatal("default view should be dashboard")
	}
	if app.showHelp || app.exportPicking {
		t.Fatal("overlays should be hidden by default")
	}
	if app.timer.engine.Snapshot().Remaining != 25*60 {
		t.Fatal("engine should start from the default settings")
	}
}

func TestViewNames(t *testing.T) {
	if len(viewNames) != int(viewSettings)+1 {
		t.Fatalf("expected %d view names, got %d", viewSettings+1, len(viewNames))
	}
}

func TestAppTabSwitching(t *testing.T) {
	app, _, _ := newTestApp(t)

	for i, want := range []viewState{viewDashboard, viewTimer, viewHistory, viewAnalytics, viewSubjects, viewSettings} {
		m, cmd := app.Update(runes(string(rune('1' + i))))
		app = m.(App)
		if app.activeView != want {
			t.Fatalf("key %d: expected view %d, got %d", i+1, want, app.activeView)
		}
		if cmd == nil {
			t.Fatalf("key %d: switching should refresh the view", i+1)
		}
	}

	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.(App).activeView != viewDashboard {
		t.Fatal("tab should wrap around to the dashboard")
	}
}

func TestAppRoutesDataToOwner(t *testing.T) {
	app, repo, _ := newTestApp(t)
	subj := createSubject(t, repo, "Math")
	saveSession(t, repo, subj.ID, "Limits", 25, epoch)

	m, _ := app.Update(app.history.refresh()())
	app = m.(App)
	if len(app.history.sessions) != 1 {
		t.Fatal("history data should reach the history view while the dashboard is active")
	}
}

func TestAppFormCapturesKeys(t *testing.T) {
	app, _, _ := newTestApp(t)
	m, _ := app.Update(runes("6"))
	app = m.(App)
	app.settings, _ = app.settings.showForm()

	m, _ = app.Update(runes("1"))
	if m.(App).activeView != viewSettings {
		t.Fatal("keys should go to the open form")
	}
}

func TestAppTickRearms(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, cmd := app.Update(tickMsg(epoch))
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
}

func TestAppStatusMessage(t *testing.T) {
	app, _, _ := newTestApp(t)
	m, _ := app.Update(statusMsg{text: "Saved"})
	app = m.(App)
	if app.status != "Saved" || app.isErr {
		t.Fatalf("unexpected status %q err=%v", app.status, app.isErr)
	}
}

func TestAppLoadingState(t *testing.T) {
	app, _, _ := newTestApp(t)
	if app.View() != "Loading..." {
		t.Fatal("view before the first resize should be a loading message")
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app, _, _ := newTestApp(t)
	m, _ := app.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	header := m.(App).renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing %q", name)
		}
	}
}

func TestAppFooterShowsTimer(t *testing.T) {
	app, repo, _ := newTestApp(t)
	subj := createSubject(t, repo, "Math")
	if err := app.timer.engine.Select(timer.Selection{SubjectID: subj.ID, Topic: "Limits"}); err != nil {
		t.Fatal(err)
	}
	if err := app.timer.engine.Start(); err != nil {
		t.Fatal(err)
	}
	m, _ := app.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	if footer := m.(App).renderFooter(); !strings.Contains(footer, "25:00") {
		t.Fatalf("footer should show the countdown: %q", footer)
	}
}

func TestAppExport(t *testing.T) {
	app, repo, _ := newTestApp(t)
	subj := createSubject(t, repo, "Math")
	saveSession(t, repo, subj.ID, "Limits", 25, epoch)

	for i, ext := range []string{"csv", "json"} {
		msg := app.doExport(i)()
		done, ok := msg.(exportDoneMsg)
		if !ok {
			t.Fatalf("%s export failed: %+v", ext, msg)
		}
		if filepath.Base(done.path) != "studylog-export-2024-03-10."+ext {
			t.Fatalf("unexpected path %s", done.path)
		}
		data, err := os.ReadFile(done.path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "Limits") {
			t.Fatalf("%s export missing session", ext)
		}
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should not be empty")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should not be empty")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles
// ============================================================

func TestPhaseStyleDistinct(t *testing.T) {
	work := phaseStyle(timer.PhaseWork).GetForeground()
	short := phaseStyle(timer.PhaseShortBreak).GetForeground()
	long := phaseStyle(timer.PhaseLongBreak).GetForeground()
	if work == short || short == long || work == long {
		t.Fatal("each phase should have its own color")
	}
}
