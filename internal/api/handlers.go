package api

import (
	"net/http"
	"strconv"

	"github.com/sadopc/studylog/internal/analytics"
	"github.com/sadopc/studylog/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK", "message": "studylog API is running"})
}

// Subjects

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.repo.ListSubjects(r.Context())
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	if subjects == nil {
		subjects = []store.Subject{}
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (s *Server) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Color == "" {
		req.Color = store.DefaultSubjectColor
	}
	subj, err := s.repo.CreateSubject(r.Context(), req.Name, req.Color)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, subj)
}

func (s *Server) handleUpdateSubject(w http.ResponseWriter, r *http.Request) {
	var patch store.SubjectPatch
	if !decode(w, r, &patch) {
		return
	}
	subj, err := s.repo.UpdateSubject(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subj)
}

func (s *Server) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteSubject(r.Context(), r.PathValue("id")); err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sessions

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.repo.ListSessions(r.Context())
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.repo.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var in store.SessionInput
	if !decode(w, r, &in) {
		return
	}
	sess, err := s.repo.CreateSession(r.Context(), in)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Settings

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.repo.GetSettings(r.Context())
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch store.SettingsPatch
	if !decode(w, r, &patch) {
		return
	}
	settings, err := s.repo.UpdateSettings(r.Context(), patch)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Todos

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	var f store.TodoFilter
	if v := r.URL.Query().Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "completed must be true or false")
			return
		}
		f.Completed = &b
	}
	todos, err := s.repo.ListTodos(r.Context(), f)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	if todos == nil {
		todos = []store.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string  `json:"text"`
		SubjectID *string `json:"subjectId"`
	}
	if !decode(w, r, &req) {
		return
	}
	todo, err := s.repo.CreateTodo(r.Context(), req.Text, req.SubjectID)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	var patch store.TodoPatch
	if !decode(w, r, &patch) {
		return
	}
	todo, err := s.repo.UpdateTodo(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteTodo(r.Context(), r.PathValue("id")); err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", 7)
	if !ok {
		return
	}
	top, ok := intParam(w, r, "top", 5)
	if !ok {
		return
	}

	sessions, err := s.repo.ListSessions(r.Context())
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	subjects, err := s.repo.ListSubjects(r.Context())
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.BuildReport(sessions, subjects, days, top, s.clock.Now(), s.loc))
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 366 {
		writeError(w, http.StatusBadRequest, name+" must be between 1 and 366")
		return 0, false
	}
	return n, true
}
