// Package timer implements the Pomodoro countdown: a work / short break / long break
// state machine advanced by an external once-per-second tick.
//
// The engine is not safe for concurrent use. It is owned by a single controller which
// calls every method from one goroutine; the transitions themselves are pure functions
// over State.
package timer

import (
	"strings"
	"time"

	"github.com/sadopc/studylog/internal/apperrors"
	"github.com/sadopc/studylog/internal/clock"
)

type Engine struct {
	cfg   Config
	clock clock.Clock
	state State
}

func New(cfg Config, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyAwaitRating
	}
	return &Engine{cfg: cfg, clock: clk, state: initialState(cfg, Selection{})}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	s := e.state
	s.Selection = s.Selection.clone()
	return s
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Running() bool { return e.state.Running }

// Select sets subject, topic and optional todo for the next session.
func (e *Engine) Select(sel Selection) error {
	next, err := selectTransition(e.state, sel)
	if err != nil {
		return err
	}
	e.state = next
	return nil
}

func (e *Engine) Start() error {
	next, err := startTransition(e.state, e.clock.Now())
	if err != nil {
		return err
	}
	e.state = next
	return nil
}

func (e *Engine) Pause() error {
	next, err := pauseTransition(e.state, e.clock.Now())
	if err != nil {
		return err
	}
	e.state = next
	return nil
}

func (e *Engine) Resume() error {
	next, err := resumeTransition(e.state, e.clock.Now())
	if err != nil {
		return err
	}
	e.state = next
	return nil
}

// Toggle pauses a running countdown and resumes a paused one.
func (e *Engine) Toggle() error {
	if e.state.Running {
		return e.Pause()
	}
	if e.state.InProgress() {
		return e.Resume()
	}
	return e.Start()
}

// Tick advances the countdown by one second. Ticks while stopped are ignored.
func (e *Engine) Tick() Event {
	next, ev := tickTransition(e.state, e.cfg, e.clock.Now())
	e.state = next
	return ev
}

// StopAndRate ends the session early. It returns true when at least one work period
// was completed and the engine now awaits a rating; otherwise the engine was reset.
func (e *Engine) StopAndRate() bool {
	if e.state.CompletedWorkPeriods == 0 {
		e.Reset()
		return false
	}
	e.state = awaitRating(e.state, e.clock.Now())
	return true
}

// SkipBreak ends the current break and starts the next work phase.
func (e *Engine) SkipBreak() error {
	if !e.state.Phase.IsBreak() {
		return apperrors.Validation("not on a break")
	}
	e.state.Phase = PhaseWork
	e.state.Remaining = e.cfg.Seconds(PhaseWork)
	return nil
}

// Reset clears the session counters and returns to a stopped work phase. The
// subject and topic stay selected.
func (e *Engine) Reset() {
	e.state = initialState(e.cfg, e.state.Selection)
}

// ClearTodo drops the todo from the selection once it is completed or gone.
func (e *Engine) ClearTodo() {
	e.state.Selection.TodoID = nil
}

// NextBreak is the break that follows the work periods completed so far.
func (e *Engine) NextBreak() Phase {
	return e.cfg.breakAfter(e.state.CompletedWorkPeriods)
}

// ApplySettings installs a new schedule. The visible countdown is only rewritten while
// the engine is idle, so an active or paused countdown keeps its remaining time.
// Resuming a paused countdown after a settings change continues where the user
// paused; the new length applies from the next phase.
func (e *Engine) ApplySettings(cfg Config) {
	if cfg.Policy == "" {
		cfg.Policy = e.cfg.Policy
	}
	e.cfg = cfg
	if !e.state.Running && !e.state.InProgress() {
		e.state.Remaining = cfg.Seconds(e.state.Phase)
	}
}

// Elapsed is the focus time of the current session: wall clock since the first start
// minus every pause, floored at zero.
func (e *Engine) Elapsed() time.Duration {
	return elapsed(e.state, e.clock.Now())
}

// Progress is the completed fraction of the current phase, between 0 and 1.
func (e *Engine) Progress() float64 {
	total := e.cfg.Seconds(e.state.Phase)
	if total <= 0 {
		return 0
	}
	p := 1 - float64(e.state.Remaining)/float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Transitions

func selectTransition(s State, sel Selection) (State, error) {
	if s.InProgress() {
		return s, apperrors.ErrSessionInProgress
	}
	sel.Topic = strings.TrimSpace(sel.Topic)
	if sel.TodoID != nil && *sel.TodoID == "" {
		sel.TodoID = nil
	}
	s.Selection = sel.clone()
	return s, nil
}

func startTransition(s State, now time.Time) (State, error) {
	if s.Selection.SubjectID == "" {
		return s, apperrors.Validation("select a subject before starting")
	}
	if strings.TrimSpace(s.Selection.Topic) == "" {
		return s, apperrors.Validation("enter a topic before starting")
	}
	if s.AwaitingRating {
		return s, apperrors.ErrAwaitingRating
	}
	if s.Running {
		return s, apperrors.ErrAlreadyRunning
	}
	if s.InProgress() {
		return resumeTransition(s, now)
	}
	s.Running = true
	s.SessionStart = now
	return s, nil
}

func pauseTransition(s State, now time.Time) (State, error) {
	if !s.Running {
		return s, apperrors.ErrNotRunning
	}
	s.Running = false
	s.PauseStart = now
	return s, nil
}

func resumeTransition(s State, now time.Time) (State, error) {
	if s.Running {
		return s, apperrors.ErrAlreadyRunning
	}
	if !s.InProgress() {
		return s, apperrors.ErrNoSession
	}
	if s.AwaitingRating {
		return s, apperrors.ErrAwaitingRating
	}
	s = closePause(s, now)
	s.Running = true
	return s, nil
}

func tickTransition(s State, cfg Config, now time.Time) (State, Event) {
	if !s.Running {
		return s, Event{Type: EventNone, Phase: s.Phase, CompletedWorkPeriods: s.CompletedWorkPeriods}
	}
	s.Remaining--
	if s.Remaining > 0 {
		return s, Event{Type: EventNone, Phase: s.Phase, CompletedWorkPeriods: s.CompletedWorkPeriods}
	}
	s.Remaining = 0
	if s.Phase == PhaseWork {
		return completeWork(s, cfg, now)
	}
	return completeBreak(s, cfg)
}

func completeWork(s State, cfg Config, now time.Time) (State, Event) {
	s.CompletedWorkPeriods++
	if cfg.Policy == PolicyAutoAdvance {
		s.Phase = cfg.breakAfter(s.CompletedWorkPeriods)
		s.Remaining = cfg.Seconds(s.Phase)
		return s, Event{Type: EventBreakStarted, Phase: s.Phase, CompletedWorkPeriods: s.CompletedWorkPeriods}
	}
	s = awaitRating(s, now)
	return s, Event{Type: EventWorkComplete, Phase: s.Phase, CompletedWorkPeriods: s.CompletedWorkPeriods}
}

func completeBreak(s State, cfg Config) (State, Event) {
	s.Phase = PhaseWork
	s.Remaining = cfg.Seconds(PhaseWork)
	return s, Event{Type: EventBreakComplete, Phase: s.Phase, CompletedWorkPeriods: s.CompletedWorkPeriods}
}

// awaitRating stops the countdown; time spent waiting for the rating counts as paused.
func awaitRating(s State, now time.Time) State {
	if s.Running {
		s.Running = false
		s.PauseStart = now
	}
	s.AwaitingRating = true
	return s
}

func closePause(s State, now time.Time) State {
	if !s.PauseStart.IsZero() {
		if gap := now.Sub(s.PauseStart); gap > 0 {
			s.TotalPaused += gap
		}
		s.PauseStart = time.Time{}
	}
	return s
}

func elapsed(s State, now time.Time) time.Duration {
	if !s.InProgress() {
		return 0
	}
	paused := s.TotalPaused
	if !s.PauseStart.IsZero() {
		paused += now.Sub(s.PauseStart)
	}
	d := now.Sub(s.SessionStart) - paused
	if d < 0 {
		return 0
	}
	return d
}
