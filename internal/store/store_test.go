package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sadopc/studylog/internal/apperrors"
	"github.com/sadopc/studylog/internal/clock"
)

var epoch = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachRepo runs fn against the SQLite store and the in-memory repository,
// both driven by a fake clock that the test can advance.
func forEachRepo(t *testing.T, fn func(t *testing.T, repo Repository, clk *clock.Fake)) {
	t.Run("sqlite", func(t *testing.T) {
		clk := clock.NewFake(epoch)
		fn(t, newTestStore(t).WithClock(clk), clk)
	})
	t.Run("memory", func(t *testing.T) {
		clk := clock.NewFake(epoch)
		fn(t, NewMemoryRepository().WithClock(clk), clk)
	})
}

func ptr[T any](v T) *T { return &v }

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/studylog.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateSubject(context.Background(), "Math", "#112233"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: data survives and migrations are not re-run destructively.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	subjects, err := s2.ListSubjects(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(subjects) != 1 || subjects[0].Name != "Math" {
		t.Fatalf("expected persisted subject, got %+v", subjects)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestRatingCheckConstraint(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec(`INSERT INTO sessions (id, subject_id, topic, productivity_rating, completed_at)
		VALUES ('x', 's', 't', 9, '2024-01-01T00:00:00Z')`)
	if err == nil {
		t.Fatal("expected CHECK constraint to reject rating 9")
	}
}

// ============================================================
// Subjects
// ============================================================

func TestCreateAndListSubjects(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		ctx := context.Background()
		b, err := repo.CreateSubject(ctx, "  physics ", "#00FF00")
		if err != nil {
			t.Fatal(err)
		}
		if b.ID == "" || b.Name != "physics" || b.Color != "#00FF00" {
			t.Fatalf("unexpected subject: %+v", b)
		}
		if !b.CreatedAt.Equal(epoch) {
			t.Fatalf("expected server timestamp %v, got %v", epoch, b.CreatedAt)
		}
		repo.CreateSubject(ctx, "Algebra", "")

		subjects, err := repo.ListSubjects(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(subjects) != 2 {
			t.Fatalf("expected 2 subjects, got %d", len(subjects))
		}
		if subjects[0].Name != "Algebra" || subjects[1].Name != "physics" {
			t.Fatalf("expected case-insensitive name order, got %s, %s", subjects[0].Name, subjects[1].Name)
		}
		if subjects[0].Color != DefaultSubjectColor {
			t.Fatalf("expected default color, got %s", subjects[0].Color)
		}
	})
}

func TestListSubjectsEmpty(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		subjects, err := repo.ListSubjects(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if subjects != nil {
			t.Fatalf("expected nil slice, got %d items", len(subjects))
		}
	})
}

func TestCreateSubjectValidation(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		ctx := context.Background()
		if _, err := repo.CreateSubject(ctx, "   ", "#000000"); !errors.Is(err, apperrors.ErrValidation) {
			t.Fatalf("blank name: expected ErrValidation, got %v", err)
		}
		if _, err := repo.CreateSubject(ctx, "Art", "red"); !errors.Is(err, apperrors.ErrValidation) {
			t.Fatalf("bad color: expected ErrValidation, got %v", err)
		}
	})
}

func TestUpdateSubjectPartial(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		ctx := context.Background()
		s, _ := repo.CreateSubject(ctx, "Chem", "#111111")

		updated, err := repo.UpdateSubject(ctx, s.ID, SubjectPatch{Color: ptr("#222222")})
		if err != nil {
			t.Fatal(err)
		}
		if updated.Name != "Chem" || updated.Color != "#222222" {
			t.Fatalf("partial update failed: %+v", updated)
		}
		if !updated.CreatedAt.Equal(s.CreatedAt) {
			t.Fatal("createdAt must not change on update")
		}

		if _, err := repo.UpdateSubject(ctx, "missing", SubjectPatch{Name: ptr("x")}); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteSubjectTwice(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		ctx := context.Background()
		s, _ := repo.CreateSubject(ctx, "Bio", "#333333")
		if err := repo.DeleteSubject(ctx, s.ID); err != nil {
			t.Fatal(err)
		}
		if err := repo.DeleteSubject(ctx, s.ID); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("second delete: expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteSubjectKeepsSessions(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		ctx := context.Background()
		s, _ := repo.CreateSubject(ctx, "History", "#444444")
		if _, err := repo.CreateSession(ctx, SessionInput{SubjectID: s.ID, Topic: "Rome", ProductivityRating: 4}); err != nil {
			t.Fatal(err)
		}
		repo.DeleteSubject(ctx, s.ID)

		sessions, _ := repo.ListSessions(ctx)
		if len(sessions) != 1 || sessions[0].SubjectID != s.ID {
			t.Fatalf("session should survive with orphaned subject ref: %+v", sessions)
		}
	})
}

// ============================================================
// Todos
// ============================================================

func TestTodoLifecycle(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, clk *clock.Fake) {
		ctx := context.Background()
		first, err := repo.CreateTodo(ctx, "read chapter 1", nil)
		if err != nil {
			t.Fatal(err)
		}
		if first.Completed || first.SubjectID != nil {
			t.Fatalf("unexpected new todo: %+v", first)
		}
		clk.Advance(time.Minute)
		second, _ := repo.CreateTodo(ctx, "read chapter 2", nil)

		all, _ := repo.ListTodos(ctx, TodoFilter{})
		if len(all) != 2 || all[0].ID != second.ID {
			t.Fatalf("expected newest first, got %+v", all)
		}

		done, err := repo.UpdateTodo(ctx, first.ID, TodoPatch{Completed: ptr(true)})
		if err != nil {
			t.Fatal(err)
		}
		if !done.Completed || done.Text != "read chapter 1" {
			t.Fatalf("partial update failed: %+v", done)
		}

		open, _ := repo.ListTodos(ctx, TodoFilter{Completed: ptr(false)})
		if len(open) != 1 || open[0].ID != second.ID {
			t.Fatalf("completed=false filter: got %+v", open)
		}
		closed, _ := repo.ListTodos(ctx, TodoFilter{Completed: ptr(true)})
		if len(closed) != 1 || closed[0].ID != first.ID {
			t.Fatalf("completed=true filter: got %+v", closed)
		}

		if err := repo.DeleteTodo(ctx, first.ID); err != nil {
			t.Fatal(err)
		}
		if err := repo.DeleteTodo(ctx, first.ID); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTodoSubjectReference(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		ctx := context.Background()
		if _, err := repo.CreateTodo(ctx, "orphan", ptr("nope")); !errors.Is(err, apperrors.ErrValidation) {
			t.Fatalf("expected ErrValidation for unknown subject, got %v", err)
		}

		s, _ := repo.CreateSubject(ctx, "Math", "#123456")
		todo, err := repo.CreateTodo(ctx, "integrals", &s.ID)
		if err != nil {
			t.Fatal(err)
		}
		if todo.SubjectID == nil || *todo.SubjectID != s.ID {
			t.Fatalf("subject not linked: %+v", todo)
		}

		cleared, err := repo.UpdateTodo(ctx, todo.ID, TodoPatch{SubjectID: ptr("")})
		if err != nil {
			t.Fatal(err)
		}
		if cleared.SubjectID != nil {
			t.Fatal("empty subjectId should clear the link")
		}
	})
}

func TestCreateTodoBlank(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		if _, err := repo.CreateTodo(context.Background(), "  ", nil); !errors.Is(err, apperrors.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

// ============================================================
// Sessions
// ============================================================

func TestCreateSession(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		ctx := context.Background()
		s, _ := repo.CreateSubject(ctx, "Math", "#123456")
		todo, _ := repo.CreateTodo(ctx, "limits", nil)

		sess, err := repo.CreateSession(ctx, SessionInput{
			SubjectID:             s.ID,
			Topic:                 " limits ",
			TodoID:                &todo.ID,
			DurationMinutes:       50,
			WorkSessionsCompleted: 2,
			ProductivityRating:    5,
			Notes:                 "good",
		})
		if err != nil {
			t.Fatal(err)
		}
		if sess.ID == "" || sess.Topic != "limits" || sess.DurationMinutes != 50 || sess.WorkSessionsCompleted != 2 {
			t.Fatalf("unexpected session: %+v", sess)
		}
		if sess.TodoID == nil || *sess.TodoID != todo.ID {
			t.Fatal("todo reference lost")
		}
		if !sess.CompletedAt.Equal(epoch) {
			t.Fatalf("expected completedAt %v, got %v", epoch, sess.CompletedAt)
		}

		got, err := repo.GetSession(ctx, sess.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Notes != "good" || got.ProductivityRating != 5 {
			t.Fatalf("GetSession mismatch: %+v", got)
		}
	})
}

func TestCreateSessionValidation(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		ctx := context.Background()
		s, _ := repo.CreateSubject(ctx, "Math", "#123456")

		cases := map[string]SessionInput{
			"no subject":      {Topic: "x", ProductivityRating: 3},
			"blank topic":     {SubjectID: s.ID, Topic: "  ", ProductivityRating: 3},
			"rating zero":     {SubjectID: s.ID, Topic: "x", ProductivityRating: 0},
			"rating six":      {SubjectID: s.ID, Topic: "x", ProductivityRating: 6},
			"negative":        {SubjectID: s.ID, Topic: "x", ProductivityRating: 3, DurationMinutes: -1},
			"unknown subject": {SubjectID: "ghost", Topic: "x", ProductivityRating: 3},
			"unknown todo":    {SubjectID: s.ID, Topic: "x", ProductivityRating: 3, TodoID: ptr("ghost")},
		}
		for name, in := range cases {
			if _, err := repo.CreateSession(ctx, in); !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("%s: expected ErrValidation, got %v", name, err)
			}
		}
	})
}

func TestListSessionsNewestFirst(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, clk *clock.Fake) {
		ctx := context.Background()
		s, _ := repo.CreateSubject(ctx, "Math", "#123456")
		old, _ := repo.CreateSession(ctx, SessionInput{SubjectID: s.ID, Topic: "a", ProductivityRating: 3})
		clk.Advance(time.Hour)
		recent, _ := repo.CreateSession(ctx, SessionInput{SubjectID: s.ID, Topic: "b", ProductivityRating: 3})

		sessions, err := repo.ListSessions(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(sessions) != 2 || sessions[0].ID != recent.ID || sessions[1].ID != old.ID {
			t.Fatalf("expected newest first, got %+v", sessions)
		}
	})
}

func TestDeleteSession(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		ctx := context.Background()
		s, _ := repo.CreateSubject(ctx, "Math", "#123456")
		sess, _ := repo.CreateSession(ctx, SessionInput{SubjectID: s.ID, Topic: "a", ProductivityRating: 3})

		if err := repo.DeleteSession(ctx, sess.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.GetSession(ctx, sess.ID); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.DeleteSession(ctx, sess.ID); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("second delete: expected ErrNotFound, got %v", err)
		}
	})
}

// ============================================================
// Settings
// ============================================================

func TestSettingsLazyDefaults(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		st, err := repo.GetSettings(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if *st != DefaultSettings() {
			t.Fatalf("expected defaults, got %+v", st)
		}
	})
}

func TestUpdateSettingsMerge(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, _ *clock.Fake) {
		ctx := context.Background()
		st, err := repo.UpdateSettings(ctx, SettingsPatch{WorkDuration: ptr(50), DarkMode: ptr(true)})
		if err != nil {
			t.Fatal(err)
		}
		if st.WorkDuration != 50 || !st.DarkMode || st.ShortBreakDuration != 5 || !st.SoundEnabled {
			t.Fatalf("merge failed: %+v", st)
		}

		again, _ := repo.GetSettings(ctx)
		if *again != *st {
			t.Fatalf("settings not persisted: %+v vs %+v", again, st)
		}

		if _, err := repo.UpdateSettings(ctx, SettingsPatch{SessionsBeforeLongBreak: ptr(0)}); !errors.Is(err, apperrors.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		unchanged, _ := repo.GetSettings(ctx)
		if unchanged.SessionsBeforeLongBreak != 4 {
			t.Fatal("rejected update must not be applied")
		}
	})
}
