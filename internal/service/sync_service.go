package service

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"todo-notes/internal/model"
	"todo-notes/internal/repository"
)

// SyncService copies a snapshot to the mirror and pulls it back over the primary store.
// There is no conflict detection: whatever the mirror holds after the push wins.
type SyncService struct {
	store  *repository.RecordStore
	mirror repository.KeyValue
}

func NewSyncService(store *repository.RecordStore, mirror repository.KeyValue) *SyncService {
	return &SyncService{store: store, mirror: mirror}
}

func (s *SyncService) Sync(ctx context.Context) (Snapshot, error) {
	if s.mirror == nil {
		return Snapshot{}, ErrMirrorUnavailable
	}

	current, err := loadSnapshot(ctx, s.store)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if err := s.push(ctx, current); err != nil {
		return Snapshot{}, fmt.Errorf("push snapshot: %w", err)
	}
	pulled, err := s.pull(ctx, current)
	if err != nil {
		return Snapshot{}, fmt.Errorf("pull snapshot: %w", err)
	}
	log.WithFields(log.Fields{"tasks": len(pulled.Tasks), "notes": len(pulled.Notes), "theme": pulled.Theme}).Info("sync complete")
	return pulled, nil
}

func (s *SyncService) push(ctx context.Context, snap Snapshot) error {
	tasks, err := sonic.MarshalString(snap.Tasks)
	if err != nil {
		return err
	}
	notes, err := sonic.MarshalString(snap.Notes)
	if err != nil {
		return err
	}
	if err := s.mirror.Set(ctx, repository.TasksKey, tasks); err != nil {
		return err
	}
	if err := s.mirror.Set(ctx, repository.NotesKey, notes); err != nil {
		return err
	}
	return s.mirror.Set(ctx, repository.ThemeKey, string(snap.Theme))
}

// pull overwrites the primary store with every value present in the mirror.
func (s *SyncService) pull(ctx context.Context, fallback Snapshot) (Snapshot, error) {
	result := fallback

	var tasks []model.Task
	if ok, err := s.readMirror(ctx, repository.TasksKey, &tasks); err != nil {
		return Snapshot{}, err
	} else if ok {
		if result.Tasks, err = s.store.Tasks.ReplaceAll(ctx, tasks); err != nil {
			return Snapshot{}, err
		}
	}

	var notes []model.Note
	if ok, err := s.readMirror(ctx, repository.NotesKey, &notes); err != nil {
		return Snapshot{}, err
	} else if ok {
		if result.Notes, err = s.store.Notes.ReplaceAll(ctx, notes); err != nil {
			return Snapshot{}, err
		}
	}

	raw, ok, err := s.mirror.Get(ctx, repository.ThemeKey)
	if err != nil {
		return Snapshot{}, err
	}
	if theme, valid := model.ParseTheme(raw); ok && valid {
		if err := s.store.SetTheme(ctx, theme); err != nil {
			return Snapshot{}, err
		}
		result.Theme = theme
	}
	return result, nil
}

func (s *SyncService) readMirror(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.mirror.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := sonic.UnmarshalString(raw, dst); err != nil {
		log.WithError(err).WithField("key", key).Warn("mirror value is corrupt, keeping local copy")
		return false, nil
	}
	return true, nil
}
