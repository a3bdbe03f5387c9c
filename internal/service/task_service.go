package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"todo-notes/internal/app"
	"todo-notes/internal/model"
	"todo-notes/internal/reorder"
	"todo-notes/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title      string
	Category   model.Category
	ReminderAt *time.Time
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store     *repository.RecordStore
	reminders *ReminderService
	newID     func() string
}

func NewTaskService(store *repository.RecordStore, reminders *ReminderService) *TaskService {
	return &TaskService{store: store, reminders: reminders, newID: uuid.NewString}
}

func (s *TaskService) Add(ctx context.Context, input TaskInput) (model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	category := input.Category
	if category == "" {
		category = model.CategoryWork
	}
	if !category.Valid() {
		return model.Task{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	var reminder *time.Time
	if input.ReminderAt != nil {
		at := input.ReminderAt.UTC()
		reminder = &at
	}

	task := model.Task{
		ID:         s.newID(),
		Title:      title,
		Category:   category,
		Completed:  false,
		ReminderAt: reminder,
	}
	created, err := s.store.Tasks.Create(ctx, task)
	if err != nil {
		return model.Task{}, err
	}
	log.WithField("task", created.ID).Debug("task created")
	return created, nil
}

func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.store.Tasks.All(ctx)
}

// Toggle flips the completed flag. A vanished id returns ok=false without error.
func (s *TaskService) Toggle(ctx context.Context, id string) (model.Task, bool, error) {
	return s.store.Tasks.Patch(ctx, id, func(t *model.Task) {
		t.Completed = !t.Completed
	})
}

func (s *TaskService) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.store.Tasks.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed && s.reminders != nil {
		s.reminders.Rearm(id)
	}
	return removed, nil
}

// SetReminder sets or clears (nil) the reminder and rearms its notification.
func (s *TaskService) SetReminder(ctx context.Context, id string, at *time.Time) (model.Task, bool, error) {
	var reminder *time.Time
	if at != nil {
		utc := at.UTC()
		reminder = &utc
	}
	task, ok, err := s.store.Tasks.Patch(ctx, id, func(t *model.Task) {
		t.ReminderAt = reminder
	})
	if err != nil || !ok {
		return task, ok, err
	}
	if s.reminders != nil {
		s.reminders.Rearm(id)
	}
	return task, true, nil
}

// Reorder moves a task inside the filtered view. The view is recomputed from the stored
// collection, so a filter change between render and drop cannot point at stale items.
func (s *TaskService) Reorder(ctx context.Context, filter app.TaskFilter, mv reorder.Move) ([]model.Task, bool, error) {
	full, err := s.store.Tasks.All(ctx)
	if err != nil {
		return nil, false, err
	}
	next, changed := reorder.Apply(full, filter.Apply(full), taskKey, mv)
	if !changed {
		return full, false, nil
	}
	saved, err := s.store.Tasks.ReplaceAll(ctx, next)
	if err != nil {
		return nil, false, err
	}
	return saved, true, nil
}

// Seed writes the starter tasks when the collection is empty.
func (s *TaskService) Seed(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.store.Tasks.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(tasks) > 0 {
		return tasks, nil
	}
	starter := []model.Task{
		{ID: s.newID(), Title: "Learn Go generics", Category: model.CategoryStudy},
		{ID: s.newID(), Title: "Workout 20 minutes", Category: model.CategorySport},
	}
	return s.store.Tasks.ReplaceAll(ctx, starter)
}

func taskKey(t model.Task) string {
	return t.ID
}
