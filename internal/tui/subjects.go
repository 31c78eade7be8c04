package tui

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studylog/internal/store"
)

type subjectsForm int

const (
	formNewSubject subjectsForm = iota
	formEditSubject
	formNewTodo
)

// subjectsModel lists subjects and, on enter, the todos filed under one of them.
// The row after the last subject holds the todos that have no subject.
type subjectsModel struct {
	repo   store.Repository
	rng    *rand.Rand
	width  int
	height int

	subjects     []store.Subject
	todos        []store.Todo
	cursor       int
	todoCursor   int
	viewingTodos bool

	formActive bool
	form       *huh.Form
	formKind   subjectsForm

	// Form field pointers (survive value copies)
	formName  *string
	formColor *string

	editingID string
}

func newSubjectsModel(repo store.Repository, rng *rand.Rand) subjectsModel {
	name, color := "", subjectColors[0]
	return subjectsModel{
		repo:      repo,
		rng:       rng,
		formName:  &name,
		formColor: &color,
	}
}

func (p *subjectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type subjectsDataMsg struct {
	subjects []store.Subject
	todos    []store.Todo
	err      error
}

func (p subjectsModel) refresh() tea.Cmd {
	repo := p.repo
	return func() tea.Msg {
		ctx := context.Background()
		subjects, err := repo.ListSubjects(ctx)
		if err != nil {
			return subjectsDataMsg{err: err}
		}
		todos, err := repo.ListTodos(ctx, store.TodoFilter{})
		if err != nil {
			return subjectsDataMsg{err: err}
		}
		return subjectsDataMsg{subjects: subjects, todos: todos}
	}
}

// general reports whether the cursor is on the "no subject" row.
func (p subjectsModel) general() bool { return p.cursor == len(p.subjects) }

// selectedTodos returns the todos filed under the row at the cursor.
func (p subjectsModel) selectedTodos() []store.Todo {
	var out []store.Todo
	for _, td := range p.todos {
		switch {
		case p.general() && td.SubjectID == nil:
			out = append(out, td)
		case !p.general() && td.SubjectID != nil && *td.SubjectID == p.subjects[p.cursor].ID:
			out = append(out, td)
		}
	}
	return out
}

func (p subjectsModel) update(msg tea.Msg) (subjectsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case subjectsDataMsg:
		if msg.err != nil {
			return p, errorCmd("Load error", msg.err)
		}
		p.subjects = msg.subjects
		p.todos = msg.todos
		if p.cursor > len(p.subjects) {
			p.cursor = len(p.subjects)
		}
		if n := len(p.selectedTodos()); p.todoCursor >= n {
			p.todoCursor = max(0, n-1)
		}
		return p, nil

	case tea.KeyMsg:
		if p.viewingTodos {
			return p.updateTodoView(msg)
		}
		return p.updateSubjectList(msg)
	}
	return p, nil
}

func (p subjectsModel) updateSubjectList(msg tea.KeyMsg) (subjectsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.subjects) {
			p.cursor++
		}
	case key.Matches(msg, keys.Enter):
		p.viewingTodos = true
		p.todoCursor = 0
		return p, nil
	case key.Matches(msg, keys.New):
		return p.showSubjectForm(nil)
	case key.Matches(msg, keys.Edit):
		if !p.general() {
			s := p.subjects[p.cursor]
			return p.showSubjectForm(&s)
		}
	case key.Matches(msg, keys.Delete):
		if p.general() {
			return p, nil
		}
		s := p.subjects[p.cursor]
		if err := p.repo.DeleteSubject(context.Background(), s.ID); err != nil {
			return p, errorCmd("Delete failed", err)
		}
		return p, p.changed(fmt.Sprintf("Deleted %s", s.Name))
	}
	return p, nil
}

func (p subjectsModel) updateTodoView(msg tea.KeyMsg) (subjectsModel, tea.Cmd) {
	todos := p.selectedTodos()
	switch {
	case key.Matches(msg, keys.Back):
		p.viewingTodos = false
		return p, nil
	case key.Matches(msg, keys.Up):
		if p.todoCursor > 0 {
			p.todoCursor--
		}
	case key.Matches(msg, keys.Down):
		if p.todoCursor < len(todos)-1 {
			p.todoCursor++
		}
	case key.Matches(msg, keys.New):
		return p.showTodoForm()
	case key.Matches(msg, keys.Complete), key.Matches(msg, keys.Enter):
		if len(todos) == 0 {
			return p, nil
		}
		td := todos[p.todoCursor]
		done := !td.Completed
		if _, err := p.repo.UpdateTodo(context.Background(), td.ID, store.TodoPatch{Completed: &done}); err != nil {
			return p, errorCmd("Update failed", err)
		}
		return p, p.changed("")
	case key.Matches(msg, keys.Delete):
		if len(todos) == 0 {
			return p, nil
		}
		if err := p.repo.DeleteTodo(context.Background(), todos[p.todoCursor].ID); err != nil {
			return p, errorCmd("Delete failed", err)
		}
		return p, p.changed("Todo deleted")
	}
	return p, nil
}

// changed reloads this view and tells the others the catalog moved.
func (p subjectsModel) changed(status string) tea.Cmd {
	cmds := []tea.Cmd{p.refresh(), emit(catalogChangedMsg{})}
	if status != "" {
		cmds = append(cmds, statusCmd(status))
	}
	return tea.Batch(cmds...)
}

func requireText(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func (p subjectsModel) showSubjectForm(editing *store.Subject) (subjectsModel, tea.Cmd) {
	*p.formName = ""
	*p.formColor = randomColor(p.rng)
	p.formKind = formNewSubject
	if editing != nil {
		*p.formName = editing.Name
		*p.formColor = editing.Color
		p.formKind = formEditSubject
		p.editingID = editing.ID
	}

	colors := subjectColors
	if !slices.Contains(colors, *p.formColor) {
		colors = append([]string{*p.formColor}, colors...)
	}
	colorOptions := make([]huh.Option[string], len(colors))
	for i, c := range colors {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Render("●")
		colorOptions[i] = huh.NewOption(fmt.Sprintf("%s %s", dot, c), c)
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Subject Name").Value(p.formName).Validate(requireText("name")),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(p.formColor),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p subjectsModel) showTodoForm() (subjectsModel, tea.Cmd) {
	*p.formName = ""
	p.formKind = formNewTodo

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Todo").Value(p.formName).Validate(requireText("text")),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p subjectsModel) updateForm(msg tea.Msg) (subjectsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		p.formActive = false
		p.form = nil
		return p, nil
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		p.form = nil
		return p.submitForm()
	}
	return p, cmd
}

func (p subjectsModel) submitForm() (subjectsModel, tea.Cmd) {
	ctx := context.Background()
	switch p.formKind {
	case formNewSubject:
		s, err := p.repo.CreateSubject(ctx, *p.formName, *p.formColor)
		if err != nil {
			return p, errorCmd("Create failed", err)
		}
		return p, p.changed("Created " + s.Name)
	case formEditSubject:
		name, color := *p.formName, *p.formColor
		if _, err := p.repo.UpdateSubject(ctx, p.editingID, store.SubjectPatch{Name: &name, Color: &color}); err != nil {
			return p, errorCmd("Update failed", err)
		}
		return p, p.changed("Subject updated")
	case formNewTodo:
		var subjectID *string
		if !p.general() {
			id := p.subjects[p.cursor].ID
			subjectID = &id
		}
		if _, err := p.repo.CreateTodo(ctx, *p.formName, subjectID); err != nil {
			return p, errorCmd("Create failed", err)
		}
		return p, p.changed("Todo added")
	}
	return p, nil
}

func (p subjectsModel) view() string {
	w := p.width - 4
	if p.formActive && p.form != nil {
		var title string
		switch p.formKind {
		case formNewSubject:
			title = "New Subject"
		case formEditSubject:
			title = "Edit Subject"
		case formNewTodo:
			title = "New Todo"
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", p.form.View()))
	}

	if p.viewingTodos {
		return p.renderTodoView()
	}
	return p.renderSubjectList()
}

func (p subjectsModel) openCount(subjectID *string) int {
	n := 0
	for _, td := range p.todos {
		if td.Completed {
			continue
		}
		if (subjectID == nil && td.SubjectID == nil) || (subjectID != nil && td.SubjectID != nil && *td.SubjectID == *subjectID) {
			n++
		}
	}
	return n
}

func (p subjectsModel) renderSubjectList() string {
	w := p.width - 4
	rows := []string{titleStyle.Render("Subjects"), ""}

	if len(p.subjects) == 0 {
		rows = append(rows, mutedStyle.Render("No subjects yet. Press n to create one."), "")
	} else {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %-10s %s", "", "Name", "Color", "Open todos")))
	}

	for i, s := range p.subjects {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("●")
		cursor, style := "  ", normalItemStyle
		if i == p.cursor {
			cursor, style = "> ", selectedItemStyle
		}
		id := s.ID
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %-24s %-10s %d", cursor, dot, truncate(s.Name, 24), s.Color, p.openCount(&id))))
	}

	cursor, style := "  ", mutedStyle
	if p.general() {
		cursor, style = "> ", selectedItemStyle
	}
	rows = append(rows, style.Render(fmt.Sprintf("%s  %-24s %-10s %d", cursor, "General", "", p.openCount(nil))))

	rows = append(rows, "", mutedStyle.Render("  n: new  m: edit  d: delete  enter: todos"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (p subjectsModel) renderTodoView() string {
	w := p.width - 4
	name, color := "General", string(colorMuted)
	if !p.general() {
		name, color = p.subjects[p.cursor].Name, p.subjects[p.cursor].Color
	}
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
	rows := []string{titleStyle.Render(fmt.Sprintf("%s %s  Todos", dot, name)), ""}

	todos := p.selectedTodos()
	if len(todos) == 0 {
		rows = append(rows, mutedStyle.Render("No todos. Press n to add one."))
	}
	for i, td := range todos {
		cursor, style := "  ", normalItemStyle
		if i == p.todoCursor {
			cursor, style = "> ", selectedItemStyle
		}
		box := "[ ]"
		if td.Completed {
			box = successStyle.Render("[x]")
			if i != p.todoCursor {
				style = mutedStyle
			}
		}
		rows = append(rows, style.Render(cursor)+box+" "+style.Render(td.Text))
	}

	rows = append(rows, "", mutedStyle.Render("  n: new todo  c: toggle done  d: delete  esc: back"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
