// Package app holds the view state shared by the presentation surfaces.
package app

import (
	"math"
	"strings"

	"todo-notes/internal/model"
)

type Tab string

const (
	TabTasks Tab = "tasks"
	TabNotes Tab = "notes"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// TaskFilter is the active search and category selection for the task list.
// An empty Category means all categories.
type TaskFilter struct {
	Search   string
	Category model.Category
}

// Match reports whether the task is shown under the filter.
func (f TaskFilter) Match(task model.Task) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(task.Title), strings.ToLower(f.Search)) {
		return false
	}
	if f.Category != "" && task.Category != f.Category {
		return false
	}
	return true
}

// Apply returns the visible subsequence of tasks in their stored order.
func (f TaskFilter) Apply(tasks []model.Task) []model.Task {
	visible := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if f.Match(task) {
			visible = append(visible, task)
		}
	}
	return visible
}

// NoteFilter is a case-insensitive title search.
type NoteFilter struct {
	Search string
}

func (f NoteFilter) Apply(notes []model.Note) []model.Note {
	visible := make([]model.Note, 0, len(notes))
	needle := strings.ToLower(f.Search)
	for _, note := range notes {
		if needle == "" || strings.Contains(strings.ToLower(note.Title), needle) {
			visible = append(visible, note)
		}
	}
	return visible
}

// State is the view model. Update methods return a modified copy.
type State struct {
	Tab          Tab
	Tasks        TaskFilter
	Notes        NoteFilter
	FocusMode    bool
	Theme        model.Theme
	AutoTheme    bool
	Notification Permission
}

func NewState() State {
	return State{
		Tab:          TabTasks,
		Theme:        model.ThemeDefault,
		Notification: PermissionDefault,
	}
}

func (s State) WithTab(tab Tab) State {
	s.Tab = tab
	return s
}

func (s State) WithSearch(query string) State {
	s.Tasks.Search = strings.TrimSpace(query)
	return s
}

func (s State) WithCategory(category model.Category) State {
	s.Tasks.Category = category
	return s
}

func (s State) WithNoteSearch(query string) State {
	s.Notes.Search = strings.TrimSpace(query)
	return s
}

func (s State) ToggleFocus() State {
	s.FocusMode = !s.FocusMode
	return s
}

func (s State) WithTheme(theme model.Theme) State {
	s.Theme = theme
	return s
}

func (s State) WithAutoTheme(on bool) State {
	s.AutoTheme = on
	return s
}

func (s State) WithPermission(p Permission) State {
	s.Notification = p
	return s
}

// VisibleTasks is the filtered list used for reordering.
func (s State) VisibleTasks(tasks []model.Task) []model.Task {
	return s.Tasks.Apply(tasks)
}

// RenderedTasks additionally hides completed tasks in focus mode.
func (s State) RenderedTasks(tasks []model.Task) []model.Task {
	visible := s.VisibleTasks(tasks)
	if !s.FocusMode {
		return visible
	}
	open := visible[:0:0]
	for _, task := range visible {
		if !task.Completed {
			open = append(open, task)
		}
	}
	return open
}

func (s State) VisibleNotes(notes []model.Note) []model.Note {
	return s.Notes.Apply(notes)
}

type CategoryCount struct {
	Category model.Category
	Count    int
}

// Stats summarizes progress over the whole task collection.
type Stats struct {
	Total      int
	Completed  int
	Progress   int
	Categories []CategoryCount
}

func ComputeStats(tasks []model.Task) Stats {
	stats := Stats{Total: len(tasks)}
	counts := make(map[model.Category]int, len(model.Categories))
	for _, task := range tasks {
		if task.Completed {
			stats.Completed++
		}
		counts[task.Category]++
	}
	if stats.Total > 0 {
		stats.Progress = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	for _, cat := range model.Categories {
		stats.Categories = append(stats.Categories, CategoryCount{Category: cat, Count: counts[cat]})
	}
	return stats
}
