package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"todo-notes/internal/model"
	"todo-notes/internal/reorder"
	"todo-notes/internal/service"
)

func (b *Bot) handleNewNote(ctx context.Context, chatID int64, args string) error {
	input := parseNoteArgs(args)
	note, err := b.notes.Create(ctx, input)
	switch {
	case errors.Is(err, service.ErrEmptyTitle):
		return b.sendText(chatID, "Give the note a title: /note Ideas blue ✨")
	case err != nil:
		return b.storageNotice(chatID, "save the note", err)
	}
	log.WithField("note", note.ID).Info("note created")
	return b.sendNoteList(ctx, chatID)
}

func (b *Bot) sendNoteList(ctx context.Context, chatID int64) error {
	all, err := b.notes.List(ctx)
	if err != nil {
		return b.storageNotice(chatID, "load notes", err)
	}
	state := b.snapshot()
	return b.sendText(chatID, formatNoteList(state.VisibleNotes(all), state.Notes.Search))
}

func (b *Bot) visibleNote(ctx context.Context, args string) (model.Note, error) {
	n, err := parseIndex(args)
	if err != nil {
		return model.Note{}, err
	}
	all, err := b.notes.List(ctx)
	if err != nil {
		return model.Note{}, err
	}
	visible := b.snapshot().VisibleNotes(all)
	if n > len(visible) {
		return model.Note{}, errIndexRange
	}
	return visible[n-1], nil
}

// handleEditNote replaces the note content. The write happens after the autosave delay.
func (b *Bot) handleEditNote(ctx context.Context, chatID int64, args string) error {
	index, content, _ := strings.Cut(strings.TrimSpace(args), " ")
	note, err := b.visibleNote(ctx, index)
	if err != nil {
		return b.indexNotice(chatID, "edit", err)
	}
	note.Content = strings.TrimSpace(content)
	b.notes.Edit(note)
	return b.sendText(chatID, fmt.Sprintf("✏️ «%s» will be saved in a moment.", escape(note.Title)))
}

func (b *Bot) handleCycleColor(ctx context.Context, chatID int64, args string) error {
	note, err := b.visibleNote(ctx, args)
	if err != nil {
		return b.indexNotice(chatID, "color", err)
	}
	if _, ok, err := b.notes.CycleColor(ctx, note.ID); err != nil {
		return b.storageNotice(chatID, "change the color", err)
	} else if !ok {
		return b.sendText(chatID, "Note not found. It may have been deleted.")
	}
	return b.sendNoteList(ctx, chatID)
}

func (b *Bot) handleDeleteNote(ctx context.Context, chatID int64, args string) error {
	note, err := b.visibleNote(ctx, args)
	if err != nil {
		return b.indexNotice(chatID, "delnote", err)
	}
	removed, err := b.notes.Delete(ctx, note.ID)
	if err != nil {
		return b.storageNotice(chatID, "delete the note", err)
	}
	if !removed {
		return b.sendText(chatID, "Note not found. It may have been deleted.")
	}
	log.WithField("note", note.ID).Info("note deleted")
	return b.sendNoteList(ctx, chatID)
}

func (b *Bot) handleMoveNote(ctx context.Context, chatID int64, args string) error {
	from, to, err := parseMoveArgs(args)
	if err != nil {
		return b.sendText(chatID, "Usage: /movenote &lt;from&gt; &lt;to&gt;")
	}
	state := b.snapshot()
	_, changed, err := b.notes.Reorder(ctx, state.Notes, reorder.To(from-1, to-1))
	if err != nil {
		return b.storageNotice(chatID, "reorder notes", err)
	}
	if !changed {
		return b.sendText(chatID, "Nothing to move.")
	}
	return b.sendNoteList(ctx, chatID)
}
