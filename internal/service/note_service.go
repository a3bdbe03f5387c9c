package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"todo-notes/internal/app"
	"todo-notes/internal/model"
	"todo-notes/internal/reorder"
	"todo-notes/internal/repository"
)

const DefaultAutosaveDelay = 800 * time.Millisecond

type NoteInput struct {
	Title   string
	Color   model.Color
	Sticker model.Sticker
}

// NoteService manages notes and their debounced editing sessions.
type NoteService struct {
	store    *repository.RecordStore
	mirror   repository.KeyValue
	debounce *Debouncer
	delay    time.Duration
	newID    func() string

	mu      sync.Mutex
	drafts  map[string]model.Note
	onSaved func(model.Note, error)
}

// NewNoteService builds the service. mirror may be nil.
func NewNoteService(store *repository.RecordStore, mirror repository.KeyValue, autosaveDelay time.Duration) *NoteService {
	if autosaveDelay <= 0 {
		autosaveDelay = DefaultAutosaveDelay
	}
	return &NoteService{
		store:    store,
		mirror:   mirror,
		debounce: NewDebouncer(),
		delay:    autosaveDelay,
		newID:    uuid.NewString,
		drafts:   make(map[string]model.Note),
	}
}

// OnSaved registers a callback invoked after every autosave attempt.
func (s *NoteService) OnSaved(fn func(model.Note, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSaved = fn
}

func (s *NoteService) Create(ctx context.Context, input NoteInput) (model.Note, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return model.Note{}, ErrEmptyTitle
	}
	color := input.Color
	if color == "" {
		color = model.ColorYellow
	}
	if !color.Valid() {
		return model.Note{}, fmt.Errorf("%w: %q", ErrUnknownColor, color)
	}
	sticker := input.Sticker
	if sticker == "" {
		sticker = model.Stickers[0]
	}
	if !sticker.Valid() {
		return model.Note{}, fmt.Errorf("%w: %q", ErrUnknownSticker, sticker)
	}

	return s.store.Notes.Create(ctx, model.Note{
		ID:      s.newID(),
		Title:   title,
		Content: "",
		Color:   color,
		Sticker: sticker,
	})
}

func (s *NoteService) List(ctx context.Context) ([]model.Note, error) {
	return s.store.Notes.All(ctx)
}

func (s *NoteService) Delete(ctx context.Context, id string) (bool, error) {
	s.debounce.Cancel(id)
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	return s.store.Notes.Delete(ctx, id)
}

// CycleColor advances the note to the next palette color.
func (s *NoteService) CycleColor(ctx context.Context, id string) (model.Note, bool, error) {
	return s.store.Notes.Patch(ctx, id, func(n *model.Note) {
		n.Color = n.Color.Next()
	})
}

func (s *NoteService) Reorder(ctx context.Context, filter app.NoteFilter, mv reorder.Move) ([]model.Note, bool, error) {
	full, err := s.store.Notes.All(ctx)
	if err != nil {
		return nil, false, err
	}
	next, changed := reorder.Apply(full, filter.Apply(full), noteKey, mv)
	if !changed {
		return full, false, nil
	}
	saved, err := s.store.Notes.ReplaceAll(ctx, next)
	if err != nil {
		return nil, false, err
	}
	return saved, true, nil
}

// Edit records the latest content of a note and (re)starts its autosave timer.
// Only the content is saved; other fields keep whatever is stored when the timer fires.
func (s *NoteService) Edit(note model.Note) {
	s.mu.Lock()
	s.drafts[note.ID] = note
	s.mu.Unlock()

	id := note.ID
	s.debounce.Schedule(id, s.delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.persistDraft(ctx, id); err != nil {
			log.WithError(err).WithField("note", id).Error("autosave failed")
		}
	})
}

// Pending reports whether an edit for the note is waiting to be saved.
func (s *NoteService) Pending(id string) bool {
	return s.debounce.Pending(id)
}

// Flush saves a pending draft immediately.
func (s *NoteService) Flush(ctx context.Context, id string) error {
	if !s.debounce.Cancel(id) {
		return nil
	}
	return s.persistDraft(ctx, id)
}

// Close stops all pending autosave timers without saving.
func (s *NoteService) Close() {
	s.debounce.Stop()
}

func (s *NoteService) persistDraft(ctx context.Context, id string) error {
	s.mu.Lock()
	draft, ok := s.drafts[id]
	delete(s.drafts, id)
	onSaved := s.onSaved
	s.mu.Unlock()
	if !ok {
		return nil
	}

	content := draft.Content
	saved, found, err := s.store.Notes.Patch(ctx, id, func(n *model.Note) {
		n.Content = content
	})
	if err != nil {
		if onSaved != nil {
			onSaved(draft, err)
		}
		return err
	}
	if !found {
		// deleted while the edit was pending
		return nil
	}
	s.mirrorNotes(ctx)
	if onSaved != nil {
		onSaved(saved, nil)
	}
	return nil
}

// mirrorNotes copies the notes snapshot to the mirror. Failures are only logged.
func (s *NoteService) mirrorNotes(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	notes, err := s.store.Notes.All(ctx)
	if err != nil {
		log.WithError(err).Debug("skip notes mirror")
		return
	}
	data, err := sonic.MarshalString(notes)
	if err != nil {
		return
	}
	if err := s.mirror.Set(ctx, repository.NotesKey, data); err != nil {
		log.WithError(err).Debug("notes mirror write failed")
	}
}

// Seed writes the starter note when the collection is empty.
func (s *NoteService) Seed(ctx context.Context) ([]model.Note, error) {
	notes, err := s.store.Notes.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(notes) > 0 {
		return notes, nil
	}
	starter := []model.Note{{
		ID:      s.newID(),
		Title:   "Project ideas",
		Content: "Write the project details here.",
		Color:   model.ColorYellow,
		Sticker: "✨",
	}}
	return s.store.Notes.ReplaceAll(ctx, starter)
}

func noteKey(n model.Note) string {
	return n.ID
}
