package service

import (
	"context"

	"github.com/bytedance/sonic"

	"todo-notes/internal/model"
	"todo-notes/internal/repository"
)

const ExportFileName = "todo_notes_export.json"

// Snapshot is the full user data set.
type Snapshot struct {
	Tasks []model.Task `json:"tasks"`
	Notes []model.Note `json:"notes"`
	Theme model.Theme  `json:"theme"`
}

type ExportService struct {
	store *repository.RecordStore
}

func NewExportService(store *repository.RecordStore) *ExportService {
	return &ExportService{store: store}
}

func (s *ExportService) Export(ctx context.Context) (Snapshot, error) {
	return loadSnapshot(ctx, s.store)
}

// EncodeSnapshot renders the snapshot as indented JSON.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(snap, "", "  ")
}

func loadSnapshot(ctx context.Context, store *repository.RecordStore) (Snapshot, error) {
	tasks, err := store.Tasks.All(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	notes, err := store.Notes.All(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	theme, err := store.Theme(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Tasks: tasks, Notes: notes, Theme: theme}, nil
}
