package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/studylog/internal/store"
)

type jsonExport struct {
	ExportedAt string        `json:"exported_at"`
	Count      int           `json:"count"`
	Sessions   []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID              string `json:"id"`
	Subject         string `json:"subject"`
	SubjectID       string `json:"subject_id"`
	Topic           string `json:"topic"`
	TodoID          string `json:"todo_id,omitempty"`
	CompletedAt     string `json:"completed_at"`
	DurationMinutes int    `json:"duration_minutes"`
	Duration        string `json:"duration"`
	WorkSessions    int    `json:"work_sessions"`
	Rating          int    `json:"rating"`
	Notes           string `json:"notes,omitempty"`
}

func ToJSON(sessions []store.Session, subjects map[string]*store.Subject, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, sessions, subjects, time.Now()); err != nil {
		return err
	}
	return f.Close()
}

func WriteJSON(w io.Writer, sessions []store.Session, subjects map[string]*store.Subject, now time.Time) error {
	export := jsonExport{
		ExportedAt: now.UTC().Format(time.RFC3339),
		Count:      len(sessions),
	}

	for _, s := range sessions {
		todo := ""
		if s.TodoID != nil {
			todo = *s.TodoID
		}
		export.Sessions = append(export.Sessions, jsonSession{
			ID:              s.ID,
			Subject:         subjectName(subjects, s.SubjectID),
			SubjectID:       s.SubjectID,
			Topic:           s.Topic,
			TodoID:          todo,
			CompletedAt:     s.CompletedAt.Local().Format(time.RFC3339),
			DurationMinutes: s.DurationMinutes,
			Duration:        formatDuration(int64(s.DurationMinutes) * 60),
			WorkSessions:    s.WorkSessionsCompleted,
			Rating:          s.ProductivityRating,
			Notes:           s.Notes,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
