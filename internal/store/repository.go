package store

import (
	"context"
	"regexp"
	"strings"

	"github.com/sadopc/studylog/internal/apperrors"
)

// Repository is the storage collaborator used by the recorder, the API server and the TUI.
// Store (SQLite), Memory and client.Client implement it.
type Repository interface {
	ListSubjects(ctx context.Context) ([]Subject, error)
	CreateSubject(ctx context.Context, name, color string) (*Subject, error)
	UpdateSubject(ctx context.Context, id string, patch SubjectPatch) (*Subject, error)
	DeleteSubject(ctx context.Context, id string) error

	ListSessions(ctx context.Context) ([]Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	CreateSession(ctx context.Context, in SessionInput) (*Session, error)
	DeleteSession(ctx context.Context, id string) error

	GetSettings(ctx context.Context) (*Settings, error)
	UpdateSettings(ctx context.Context, patch SettingsPatch) (*Settings, error)

	ListTodos(ctx context.Context, f TodoFilter) ([]Todo, error)
	CreateTodo(ctx context.Context, text string, subjectID *string) (*Todo, error)
	UpdateTodo(ctx context.Context, id string, patch TodoPatch) (*Todo, error)
	DeleteTodo(ctx context.Context, id string) error

	Close() error
}

const DefaultSubjectColor = "#FF6B9D"

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func validateSubject(name, color string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.Validation("subject name is required")
	}
	if !hexColor.MatchString(color) {
		return apperrors.Validation("color %q must be #RRGGBB", color)
	}
	return nil
}

func validateSession(in SessionInput) error {
	if in.SubjectID == "" {
		return apperrors.Validation("session subject is required")
	}
	if strings.TrimSpace(in.Topic) == "" {
		return apperrors.Validation("session topic is required")
	}
	if in.ProductivityRating < 1 || in.ProductivityRating > 5 {
		return apperrors.Validation("productivity rating %d must be between 1 and 5", in.ProductivityRating)
	}
	if in.DurationMinutes < 0 {
		return apperrors.Validation("duration must not be negative")
	}
	if in.WorkSessionsCompleted < 0 {
		return apperrors.Validation("work sessions must not be negative")
	}
	return nil
}

func validateSettings(s Settings) error {
	switch {
	case s.WorkDuration < 1:
		return apperrors.Validation("work duration must be at least 1 minute")
	case s.ShortBreakDuration < 1:
		return apperrors.Validation("short break must be at least 1 minute")
	case s.LongBreakDuration < 1:
		return apperrors.Validation("long break must be at least 1 minute")
	case s.SessionsBeforeLongBreak < 1:
		return apperrors.Validation("sessions before long break must be at least 1")
	}
	return nil
}

func (p SettingsPatch) apply(s Settings) Settings {
	if p.WorkDuration != nil {
		s.WorkDuration = *p.WorkDuration
	}
	if p.ShortBreakDuration != nil {
		s.ShortBreakDuration = *p.ShortBreakDuration
	}
	if p.LongBreakDuration != nil {
		s.LongBreakDuration = *p.LongBreakDuration
	}
	if p.SessionsBeforeLongBreak != nil {
		s.SessionsBeforeLongBreak = *p.SessionsBeforeLongBreak
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	return s
}

func (p SubjectPatch) apply(s Subject) Subject {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	return s
}

func (p TodoPatch) apply(t Todo) Todo {
	if p.Text != nil {
		t.Text = strings.TrimSpace(*p.Text)
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.SubjectID != nil {
		if *p.SubjectID == "" {
			t.SubjectID = nil
		} else {
			id := *p.SubjectID
			t.SubjectID = &id
		}
	}
	return t
}
