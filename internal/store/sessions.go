package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sadopc/studylog/internal/apperrors"
)

const sessionColumns = `id, subject_id, topic, todo_id, duration_minutes, work_sessions,
	productivity_rating, notes, completed_at`

func (s *Store) CreateSession(ctx context.Context, in SessionInput) (*Session, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := validateSession(in); err != nil {
		return nil, err
	}
	if _, err := s.GetSubject(ctx, in.SubjectID); err != nil {
		return nil, referenceError("subject", in.SubjectID, err)
	}
	if in.TodoID != nil && *in.TodoID != "" {
		if _, err := s.GetTodo(ctx, *in.TodoID); err != nil {
			return nil, referenceError("todo", *in.TodoID, err)
		}
	}

	completedAt := in.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.now()
	}

	id := newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.SubjectID, in.Topic, nullString(in.TodoID), in.DurationMinutes,
		in.WorkSessionsCompleted, in.ProductivityRating, in.Notes, formatTime(completedAt),
	)
	if err != nil {
		return nil, apperrors.Storage("insert session", err)
	}
	return s.GetSession(ctx, id)
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if isNoRows(err) {
		return nil, apperrors.NotFound("session", id)
	}
	if err != nil {
		return nil, apperrors.Storage("get session", err)
	}
	return sess, nil
}

// ListSessions returns every session, most recent first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY completed_at DESC, rowid DESC`)
	if err != nil {
		return nil, apperrors.Storage("list sessions", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return apperrors.Storage("delete session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("session", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*Session, error) {
	sess := &Session{}
	var todoID sql.NullString
	var completedAt string
	err := r.Scan(&sess.ID, &sess.SubjectID, &sess.Topic, &todoID, &sess.DurationMinutes,
		&sess.WorkSessionsCompleted, &sess.ProductivityRating, &sess.Notes, &completedAt)
	if err != nil {
		return nil, err
	}
	sess.TodoID = stringPtr(todoID)
	sess.CompletedAt = parseTime(completedAt)
	return sess, nil
}
