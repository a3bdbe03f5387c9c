package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"todo-notes/internal/app"
	"todo-notes/internal/model"
)

// Notification is a desktop-style message for a due reminder.
type Notification struct {
	TaskID string
	Title  string
	Body   string
}

// Notifier delivers notifications once the user granted permission.
type Notifier interface {
	Permission() app.Permission
	Notify(ctx context.Context, n Notification) error
}

type taskLister interface {
	All(ctx context.Context) ([]model.Task, error)
}

// ReminderService fires one notification per due task until the reminder is rearmed.
type ReminderService struct {
	tasks    taskLister
	notifier Notifier

	mu       sync.Mutex
	notified map[string]struct{}
}

func NewReminderService(tasks taskLister, notifier Notifier) *ReminderService {
	return &ReminderService{
		tasks:    tasks,
		notifier: notifier,
		notified: make(map[string]struct{}),
	}
}

// Due returns tasks whose reminder has been reached and that were not notified yet.
func (s *ReminderService) Due(tasks []model.Task, now time.Time) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []model.Task
	for _, task := range tasks {
		if !task.Due(now) {
			continue
		}
		if _, done := s.notified[task.ID]; done {
			continue
		}
		due = append(due, task)
	}
	return due
}

// SetNotifier replaces the delivery target.
func (s *ReminderService) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Scan notifies every due task once. Without granted permission it does nothing.
func (s *ReminderService) Scan(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	notifier := s.notifier
	s.mu.Unlock()
	if notifier == nil || notifier.Permission() != app.PermissionGranted {
		return 0, nil
	}
	tasks, err := s.tasks.All(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, task := range s.Due(tasks, now) {
		if err := notifier.Notify(ctx, ReminderNotification(task)); err != nil {
			log.WithError(err).WithField("task", task.ID).Warn("reminder notification failed")
			continue
		}
		s.markNotified(task.ID)
		sent++
	}
	if sent > 0 {
		log.WithField("count", sent).Info("reminders sent")
	}
	return sent, nil
}

// Rearm forgets that a task was notified so a new reminder fires again.
func (s *ReminderService) Rearm(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notified, taskID)
}

func (s *ReminderService) markNotified(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified[taskID] = struct{}{}
}

func ReminderNotification(task model.Task) Notification {
	return Notification{
		TaskID: task.ID,
		Title:  "Task Reminder",
		Body:   fmt.Sprintf("%s (📌 %s)", task.Title, task.Category),
	}
}
