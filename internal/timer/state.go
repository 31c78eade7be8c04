package timer

import (
	"fmt"
	"strings"
	"time"
)

type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

func (p Phase) IsBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak
}

func (p Phase) String() string {
	switch p {
	case PhaseWork:
		return "Work Session"
	case PhaseShortBreak:
		return "Short Break"
	case PhaseLongBreak:
		return "Long Break"
	}
	return string(p)
}

// Policy decides what happens when a work phase runs out.
type Policy string

const (
	// PolicyAwaitRating stops the countdown and waits for the user to rate or skip.
	PolicyAwaitRating Policy = "await_rating"
	// PolicyAutoAdvance rolls straight into the next break and keeps counting.
	PolicyAutoAdvance Policy = "auto_advance"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyAwaitRating, "":
		return PolicyAwaitRating, nil
	case PolicyAutoAdvance:
		return PolicyAutoAdvance, nil
	}
	return "", fmt.Errorf("unknown completion policy %q", s)
}

// Config holds the schedule the engine counts against.
type Config struct {
	Work                    time.Duration
	ShortBreak              time.Duration
	LongBreak               time.Duration
	SessionsBeforeLongBreak int
	Policy                  Policy
}

func DefaultConfig() Config {
	return Config{
		Work:                    25 * time.Minute,
		ShortBreak:              5 * time.Minute,
		LongBreak:               15 * time.Minute,
		SessionsBeforeLongBreak: 4,
		Policy:                  PolicyAwaitRating,
	}
}

// Seconds returns the full countdown length of phase p.
func (c Config) Seconds(p Phase) int {
	switch p {
	case PhaseShortBreak:
		return int(c.ShortBreak / time.Second)
	case PhaseLongBreak:
		return int(c.LongBreak / time.Second)
	}
	return int(c.Work / time.Second)
}

// breakAfter applies the long-break rule to a count of completed work periods.
func (c Config) breakAfter(completed int) Phase {
	every := c.SessionsBeforeLongBreak
	if every < 1 {
		every = 1
	}
	if completed > 0 && completed%every == 0 {
		return PhaseLongBreak
	}
	return PhaseShortBreak
}

// Selection is what the upcoming session is about.
type Selection struct {
	SubjectID string
	Topic     string
	TodoID    *string
}

func (s Selection) clone() Selection {
	if s.TodoID != nil {
		id := *s.TodoID
		s.TodoID = &id
	}
	return s
}

// State is the engine's value object. Zero SessionStart means no session in progress.
type State struct {
	Phase                Phase
	Running              bool
	Remaining            int // seconds
	CompletedWorkPeriods int
	SessionStart         time.Time
	PauseStart           time.Time
	TotalPaused          time.Duration
	AwaitingRating       bool
	Selection            Selection
}

func (s State) InProgress() bool {
	return !s.SessionStart.IsZero()
}

func (s State) Paused() bool {
	return s.InProgress() && !s.Running && !s.AwaitingRating
}

func initialState(cfg Config, sel Selection) State {
	return State{
		Phase:     PhaseWork,
		Remaining: cfg.Seconds(PhaseWork),
		Selection: sel,
	}
}
