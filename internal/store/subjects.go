package store

import (
	"context"
	"strings"

	"github.com/sadopc/studylog/internal/apperrors"
)

func (s *Store) CreateSubject(ctx context.Context, name, color string) (*Subject, error) {
	name = strings.TrimSpace(name)
	if color == "" {
		color = DefaultSubjectColor
	}
	if err := validateSubject(name, color); err != nil {
		return nil, err
	}

	id := newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (id, name, color, created_at) VALUES (?, ?, ?, ?)`,
		id, name, color, formatTime(s.now()),
	)
	if err != nil {
		return nil, apperrors.Storage("insert subject", err)
	}
	return s.GetSubject(ctx, id)
}

func (s *Store) GetSubject(ctx context.Context, id string) (*Subject, error) {
	sub := &Subject{}
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, color, created_at FROM subjects WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.Name, &sub.Color, &createdAt)
	if isNoRows(err) {
		return nil, apperrors.NotFound("subject", id)
	}
	if err != nil {
		return nil, apperrors.Storage("get subject", err)
	}
	sub.CreatedAt = parseTime(createdAt)
	return sub, nil
}

func (s *Store) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, created_at FROM subjects ORDER BY name COLLATE NOCASE, created_at`)
	if err != nil {
		return nil, apperrors.Storage("list subjects", err)
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var sub Subject
		var createdAt string
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Color, &createdAt); err != nil {
			return nil, err
		}
		sub.CreatedAt = parseTime(createdAt)
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

func (s *Store) UpdateSubject(ctx context.Context, id string, patch SubjectPatch) (*Subject, error) {
	current, err := s.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	next := patch.apply(*current)
	if err := validateSubject(next.Name, next.Color); err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE subjects SET name = ?, color = ? WHERE id = ?`,
		next.Name, next.Color, id,
	)
	if err != nil {
		return nil, apperrors.Storage("update subject", err)
	}
	return &next, nil
}

// DeleteSubject removes the subject only; sessions and todos keep their reference.
func (s *Store) DeleteSubject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = ?`, id)
	if err != nil {
		return apperrors.Storage("delete subject", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("subject", id)
	}
	return nil
}
