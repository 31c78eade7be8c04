package store

import "time"

type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

type Todo struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	SubjectID *string   `json:"subjectId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is an immutable record of a finished study session.
type Session struct {
	ID                    string    `json:"id"`
	SubjectID             string    `json:"subjectId"`
	Topic                 string    `json:"topic"`
	TodoID                *string   `json:"todoId"`
	DurationMinutes       int       `json:"durationMinutes"`
	WorkSessionsCompleted int       `json:"workSessionsCompleted"`
	ProductivityRating    int       `json:"productivityRating"`
	Notes                 string    `json:"notes"`
	CompletedAt           time.Time `json:"completedAt"`
}

// Settings is the singleton preferences row. Durations are in minutes.
type Settings struct {
	WorkDuration            int  `json:"workDuration"`
	ShortBreakDuration      int  `json:"shortBreakDuration"`
	LongBreakDuration       int  `json:"longBreakDuration"`
	SessionsBeforeLongBreak int  `json:"sessionsBeforeLongBreak"`
	SoundEnabled            bool `json:"soundEnabled"`
	DarkMode                bool `json:"darkMode"`
}

func DefaultSettings() Settings {
	return Settings{
		WorkDuration:            25,
		ShortBreakDuration:      5,
		LongBreakDuration:       15,
		SessionsBeforeLongBreak: 4,
		SoundEnabled:            true,
		DarkMode:                false,
	}
}

// SessionInput carries the caller-provided fields of a new session.
type SessionInput struct {
	SubjectID             string  `json:"subjectId"`
	Topic                 string  `json:"topic"`
	TodoID                *string `json:"todoId"`
	DurationMinutes       int     `json:"durationMinutes"`
	WorkSessionsCompleted int     `json:"workSessionsCompleted"`
	ProductivityRating    int     `json:"productivityRating"`
	Notes                 string  `json:"notes"`
	// CompletedAt defaults to the store's current time when zero.
	CompletedAt time.Time `json:"completedAt"`
}

// Patch types: nil fields are left untouched.

type SubjectPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

type TodoPatch struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	// SubjectID set to a pointer to "" clears the subject.
	SubjectID *string `json:"subjectId,omitempty"`
}

type SettingsPatch struct {
	WorkDuration            *int  `json:"workDuration,omitempty"`
	ShortBreakDuration      *int  `json:"shortBreakDuration,omitempty"`
	LongBreakDuration       *int  `json:"longBreakDuration,omitempty"`
	SessionsBeforeLongBreak *int  `json:"sessionsBeforeLongBreak,omitempty"`
	SoundEnabled            *bool `json:"soundEnabled,omitempty"`
	DarkMode                *bool `json:"darkMode,omitempty"`
}

// TodoFilter is used to filter todos in queries.
type TodoFilter struct {
	Completed *bool
}
