package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sadopc/studylog/internal/apperrors"
	"github.com/sadopc/studylog/internal/clock"
)

// Memory is a Repository kept entirely in process memory. It backs the --memory
// flag and serves as the fake in recorder, API and TUI tests.
type Memory struct {
	mu    sync.RWMutex
	clock clock.Clock
	seq   int64

	subjects map[string]memSubject
	todos    map[string]memTodo
	sessions map[string]memSession
	settings *Settings
}

var _ Repository = (*Memory)(nil)

// seq records insertion order so equal timestamps still list deterministically.
type memSubject struct {
	Subject
	seq int64
}

type memTodo struct {
	Todo
	seq int64
}

type memSession struct {
	Session
	seq int64
}

func NewMemoryRepository() *Memory {
	return &Memory{
		clock:    clock.SystemClock{},
		subjects: make(map[string]memSubject),
		todos:    make(map[string]memTodo),
		sessions: make(map[string]memSession),
	}
}

// WithClock replaces the clock used for server-assigned timestamps.
func (m *Memory) WithClock(c clock.Clock) *Memory {
	m.clock = c
	return m
}

func (m *Memory) Close() error { return nil }

func (m *Memory) next() int64 {
	m.seq++
	return m.seq
}

// Subjects

func (m *Memory) ListSubjects(_ context.Context) ([]Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]memSubject, 0, len(m.subjects))
	for _, s := range m.subjects {
		rows = append(rows, s)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := strings.ToLower(rows[i].Name), strings.ToLower(rows[j].Name)
		if a != b {
			return a < b
		}
		return rows[i].seq < rows[j].seq
	})

	var out []Subject
	for _, r := range rows {
		out = append(out, r.Subject)
	}
	return out, nil
}

func (m *Memory) CreateSubject(_ context.Context, name, color string) (*Subject, error) {
	name = strings.TrimSpace(name)
	if color == "" {
		color = DefaultSubjectColor
	}
	if err := validateSubject(name, color); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := Subject{ID: newID(), Name: name, Color: color, CreatedAt: m.clock.Now().UTC()}
	m.subjects[s.ID] = memSubject{Subject: s, seq: m.next()}
	return &s, nil
}

func (m *Memory) UpdateSubject(_ context.Context, id string, patch SubjectPatch) (*Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.subjects[id]
	if !ok {
		return nil, apperrors.NotFound("subject", id)
	}
	next := patch.apply(cur.Subject)
	if err := validateSubject(next.Name, next.Color); err != nil {
		return nil, err
	}
	cur.Subject = next
	m.subjects[id] = cur
	return &next, nil
}

func (m *Memory) DeleteSubject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subjects[id]; !ok {
		return apperrors.NotFound("subject", id)
	}
	delete(m.subjects, id)
	return nil
}

// Sessions

func (m *Memory) ListSessions(_ context.Context) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]memSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		rows = append(rows, s)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].CompletedAt, rows[j].CompletedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return rows[i].seq > rows[j].seq
	})

	var out []Session
	for _, r := range rows {
		out = append(out, r.Session)
	}
	return out, nil
}

func (m *Memory) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("session", id)
	}
	out := s.Session
	return &out, nil
}

func (m *Memory) CreateSession(_ context.Context, in SessionInput) (*Session, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := validateSession(in); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subjects[in.SubjectID]; !ok {
		return nil, apperrors.Validation("unknown subject %q", in.SubjectID)
	}
	var todoID *string
	if in.TodoID != nil && *in.TodoID != "" {
		if _, ok := m.todos[*in.TodoID]; !ok {
			return nil, apperrors.Validation("unknown todo %q", *in.TodoID)
		}
		id := *in.TodoID
		todoID = &id
	}

	completedAt := in.CompletedAt
	if completedAt.IsZero() {
		completedAt = m.clock.Now()
	}
	s := Session{
		ID:                    newID(),
		SubjectID:             in.SubjectID,
		Topic:                 in.Topic,
		TodoID:                todoID,
		DurationMinutes:       in.DurationMinutes,
		WorkSessionsCompleted: in.WorkSessionsCompleted,
		ProductivityRating:    in.ProductivityRating,
		Notes:                 in.Notes,
		CompletedAt:           completedAt.UTC(),
	}
	m.sessions[s.ID] = memSession{Session: s, seq: m.next()}
	return &s, nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return apperrors.NotFound("session", id)
	}
	delete(m.sessions, id)
	return nil
}

// Settings

func (m *Memory) GetSettings(_ context.Context) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings == nil {
		d := DefaultSettings()
		m.settings = &d
	}
	out := *m.settings
	return &out, nil
}

func (m *Memory) UpdateSettings(_ context.Context, patch SettingsPatch) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := DefaultSettings()
	if m.settings != nil {
		cur = *m.settings
	}
	next := patch.apply(cur)
	if err := validateSettings(next); err != nil {
		return nil, err
	}
	m.settings = &next
	out := next
	return &out, nil
}

// Todos

func (m *Memory) ListTodos(_ context.Context, f TodoFilter) ([]Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]memTodo, 0, len(m.todos))
	for _, t := range m.todos {
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		rows = append(rows, t)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].CreatedAt, rows[j].CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return rows[i].seq > rows[j].seq
	})

	var out []Todo
	for _, r := range rows {
		out = append(out, r.Todo)
	}
	return out, nil
}

func (m *Memory) CreateTodo(_ context.Context, text string, subjectID *string) (*Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("todo text is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var sid *string
	if subjectID != nil && *subjectID != "" {
		if _, ok := m.subjects[*subjectID]; !ok {
			return nil, apperrors.Validation("unknown subject %q", *subjectID)
		}
		v := *subjectID
		sid = &v
	}
	t := Todo{ID: newID(), Text: text, SubjectID: sid, CreatedAt: m.clock.Now().UTC()}
	m.todos[t.ID] = memTodo{Todo: t, seq: m.next()}
	return &t, nil
}

func (m *Memory) UpdateTodo(_ context.Context, id string, patch TodoPatch) (*Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.todos[id]
	if !ok {
		return nil, apperrors.NotFound("todo", id)
	}
	next := patch.apply(cur.Todo)
	if next.Text == "" {
		return nil, apperrors.Validation("todo text is required")
	}
	if patch.SubjectID != nil && next.SubjectID != nil {
		if _, ok := m.subjects[*next.SubjectID]; !ok {
			return nil, apperrors.Validation("unknown subject %q", *next.SubjectID)
		}
	}
	cur.Todo = next
	m.todos[id] = cur
	return &next, nil
}

func (m *Memory) DeleteTodo(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.todos[id]; !ok {
		return apperrors.NotFound("todo", id)
	}
	delete(m.todos, id)
	return nil
}
