package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"todo-notes/internal/model"
)

// Persisted key layout.
const (
	TasksKey = "todo_tasks_v1"
	NotesKey = "todo_notes_v1"
	ThemeKey = "todo_theme_v1"
)

// RecordStore is the persistence facade over the tasks and notes collections and the theme scalar.
type RecordStore struct {
	Tasks *Collection[model.Task]
	Notes *Collection[model.Note]

	kv      KeyValue
	latency time.Duration
	themeMu sync.Mutex
}

func NewRecordStore(kv KeyValue, latency time.Duration) *RecordStore {
	return &RecordStore{
		Tasks:   NewCollection[model.Task](kv, TasksKey, latency),
		Notes:   NewCollection[model.Note](kv, NotesKey, latency),
		kv:      kv,
		latency: latency,
	}
}

// Theme returns the stored theme, falling back to the default for missing or unknown values.
func (s *RecordStore) Theme(ctx context.Context) (model.Theme, error) {
	if err := simulateLatency(ctx, s.latency); err != nil {
		return "", err
	}
	s.themeMu.Lock()
	defer s.themeMu.Unlock()

	raw, ok, err := s.kv.Get(ctx, ThemeKey)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return model.ThemeDefault, nil
	}
	theme, valid := model.ParseTheme(raw)
	if !valid {
		log.WithField("theme", raw).Warn("unknown stored theme, using default")
		return model.ThemeDefault, nil
	}
	return theme, nil
}

func (s *RecordStore) SetTheme(ctx context.Context, theme model.Theme) error {
	if err := simulateLatency(ctx, s.latency); err != nil {
		return err
	}
	s.themeMu.Lock()
	defer s.themeMu.Unlock()
	return s.kv.Set(ctx, ThemeKey, string(theme))
}
