// Package export writes stored sessions to CSV or JSON files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/studylog/internal/store"
)

const unknownSubject = "Unknown"

var csvHeader = []string{"ID", "Subject", "Topic", "Completed", "Duration (min)", "Duration", "Work Sessions", "Rating", "Notes"}

func subjectName(subjects map[string]*store.Subject, id string) string {
	if s, ok := subjects[id]; ok && s != nil {
		return s.Name
	}
	return unknownSubject
}

// SubjectIndex builds the id lookup the exporters take.
func SubjectIndex(list []store.Subject) map[string]*store.Subject {
	m := make(map[string]*store.Subject, len(list))
	for i := range list {
		m[list[i].ID] = &list[i]
	}
	return m
}

func ToCSV(sessions []store.Session, subjects map[string]*store.Subject, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, sessions, subjects); err != nil {
		return err
	}
	return f.Close()
}

func WriteCSV(out io.Writer, sessions []store.Session, subjects map[string]*store.Subject) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range sessions {
		row := []string{
			s.ID,
			subjectName(subjects, s.SubjectID),
			s.Topic,
			s.CompletedAt.Local().Format(time.RFC3339),
			strconv.Itoa(s.DurationMinutes),
			formatDuration(int64(s.DurationMinutes) * 60),
			strconv.Itoa(s.WorkSessionsCompleted),
			strconv.Itoa(s.ProductivityRating),
			s.Notes,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
