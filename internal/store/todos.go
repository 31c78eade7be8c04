package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sadopc/studylog/internal/apperrors"
)

func (s *Store) CreateTodo(ctx context.Context, text string, subjectID *string) (*Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("todo text is required")
	}
	if subjectID != nil && *subjectID != "" {
		if _, err := s.GetSubject(ctx, *subjectID); err != nil {
			return nil, referenceError("subject", *subjectID, err)
		}
	}

	id := newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO todos (id, text, completed, subject_id, created_at) VALUES (?, ?, 0, ?, ?)`,
		id, text, nullString(subjectID), formatTime(s.now()),
	)
	if err != nil {
		return nil, apperrors.Storage("insert todo", err)
	}
	return s.GetTodo(ctx, id)
}

func (s *Store) GetTodo(ctx context.Context, id string) (*Todo, error) {
	t := &Todo{}
	var createdAt string
	var completed int
	var subjectID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, completed, subject_id, created_at FROM todos WHERE id = ?`, id,
	).Scan(&t.ID, &t.Text, &completed, &subjectID, &createdAt)
	if isNoRows(err) {
		return nil, apperrors.NotFound("todo", id)
	}
	if err != nil {
		return nil, apperrors.Storage("get todo", err)
	}
	t.Completed = completed == 1
	t.SubjectID = stringPtr(subjectID)
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

func (s *Store) ListTodos(ctx context.Context, f TodoFilter) ([]Todo, error) {
	query := `SELECT id, text, completed, subject_id, created_at FROM todos WHERE 1=1`
	var args []any

	if f.Completed != nil {
		query += ` AND completed = ?`
		args = append(args, boolInt(*f.Completed))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage("list todos", err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		var t Todo
		var createdAt string
		var completed int
		var subjectID sql.NullString
		if err := rows.Scan(&t.ID, &t.Text, &completed, &subjectID, &createdAt); err != nil {
			return nil, err
		}
		t.Completed = completed == 1
		t.SubjectID = stringPtr(subjectID)
		t.CreatedAt = parseTime(createdAt)
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

func (s *Store) UpdateTodo(ctx context.Context, id string, patch TodoPatch) (*Todo, error) {
	current, err := s.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	next := patch.apply(*current)
	if next.Text == "" {
		return nil, apperrors.Validation("todo text is required")
	}
	if patch.SubjectID != nil && next.SubjectID != nil {
		if _, err := s.GetSubject(ctx, *next.SubjectID); err != nil {
			return nil, referenceError("subject", *next.SubjectID, err)
		}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE todos SET text = ?, completed = ?, subject_id = ? WHERE id = ?`,
		next.Text, boolInt(next.Completed), nullString(next.SubjectID), id,
	)
	if err != nil {
		return nil, apperrors.Storage("update todo", err)
	}
	return &next, nil
}

func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return apperrors.Storage("delete todo", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("todo", id)
	}
	return nil
}
