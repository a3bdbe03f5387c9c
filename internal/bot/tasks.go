package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"todo-notes/internal/app"
	"todo-notes/internal/model"
	"todo-notes/internal/reorder"
	"todo-notes/internal/service"
)

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) error {
	input, err := parseAddArgs(args, b.loc)
	if err != nil {
		return b.sendText(chatID, "⚠️ "+escape(err.Error()))
	}
	task, err := b.tasks.Add(ctx, input)
	switch {
	case errors.Is(err, service.ErrEmptyTitle):
		return b.sendText(chatID, "Give the task a title: /add Buy milk #Food")
	case err != nil:
		return b.storageNotice(chatID, "save the task", err)
	}

	log.WithFields(log.Fields{"task": task.ID, "category": task.Category}).Info("task created")
	if err := b.sendText(chatID, fmt.Sprintf("✅ Added «%s».", escape(task.Title))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	all, err := b.tasks.List(ctx)
	if err != nil {
		return b.storageNotice(chatID, "load tasks", err)
	}
	state := b.snapshot()
	rendered := state.RenderedTasks(all)
	text := formatTaskList(rendered, state, app.ComputeStats(all), b.loc)

	if len(rendered) == 0 {
		return b.sendText(chatID, text)
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, task := range rendered {
		mark := "✅"
		if task.Completed {
			mark = "↩️"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d · %s", mark, i+1, shortTitle(task.Title, 24)), cbTogglePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		))
	}
	return b.sendWithReplyMarkup(chatID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// renderedTask resolves a 1-based position in the rendered task list.
func (b *Bot) renderedTask(ctx context.Context, args string) (model.Task, error) {
	n, err := parseIndex(args)
	if err != nil {
		return model.Task{}, err
	}
	all, err := b.tasks.List(ctx)
	if err != nil {
		return model.Task{}, err
	}
	rendered := b.snapshot().RenderedTasks(all)
	if n > len(rendered) {
		return model.Task{}, errIndexRange
	}
	return rendered[n-1], nil
}

func (b *Bot) handleDone(ctx context.Context, chatID int64, args string) error {
	task, err := b.renderedTask(ctx, args)
	if err != nil {
		return b.indexNotice(chatID, "done", err)
	}
	return b.toggleTask(ctx, chatID, task.ID)
}

func (b *Bot) toggleTask(ctx context.Context, chatID int64, id string) error {
	task, ok, err := b.tasks.Toggle(ctx, id)
	if err != nil {
		return b.storageNotice(chatID, "update the task", err)
	}
	if !ok {
		return b.sendText(chatID, "Task not found. It may have been deleted.")
	}
	status := "reopened"
	if task.Completed {
		status = "completed"
	}
	if err := b.sendText(chatID, fmt.Sprintf("«%s» %s.", escape(task.Title), status)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleDeleteTask(ctx context.Context, chatID int64, args string) error {
	task, err := b.renderedTask(ctx, args)
	if err != nil {
		return b.indexNotice(chatID, "del", err)
	}
	return b.deleteTask(ctx, chatID, task.ID)
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, id string) error {
	removed, err := b.tasks.Delete(ctx, id)
	if err != nil {
		return b.storageNotice(chatID, "delete the task", err)
	}
	if !removed {
		return b.sendText(chatID, "Task not found. It may have been deleted.")
	}
	log.WithField("task", id).Info("task deleted")
	if err := b.sendText(chatID, "🗑 Task deleted."); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleRemind(ctx context.Context, chatID int64, args string) error {
	index, when, _ := strings.Cut(strings.TrimSpace(args), " ")
	task, err := b.renderedTask(ctx, index)
	if err != nil {
		return b.indexNotice(chatID, "remind", err)
	}

	var at *time.Time
	if when = strings.TrimSpace(when); when != "" {
		parsed, err := parseWhen(when, b.loc)
		if err != nil {
			return b.sendText(chatID, "Use the format <code>2025-01-31T09:00</code>.")
		}
		at = &parsed
	}

	updated, ok, err := b.tasks.SetReminder(ctx, task.ID, at)
	if err != nil {
		return b.storageNotice(chatID, "set the reminder", err)
	}
	if !ok {
		return b.sendText(chatID, "Task not found. It may have been deleted.")
	}
	if updated.ReminderAt == nil {
		return b.sendText(chatID, fmt.Sprintf("🔕 Reminder cleared for «%s».", escape(updated.Title)))
	}
	text := fmt.Sprintf("⏰ Reminder for «%s» at %s.", escape(updated.Title), formatWhen(*updated.ReminderAt, b.loc))
	if b.Permission() != app.PermissionGranted {
		text += "\nSend /notify to receive it."
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleCategory(ctx context.Context, chatID int64, args string) error {
	var category model.Category
	if args != "" && !strings.EqualFold(args, "all") {
		parsed, ok := model.ParseCategory(args)
		if !ok {
			return b.sendText(chatID, fmt.Sprintf("Unknown category. Choose one of: %s or all.", categoryNames()))
		}
		category = parsed
	}
	b.update(func(s app.State) app.State { return s.WithTab(app.TabTasks).WithCategory(category) })
	return b.sendTaskList(ctx, chatID)
}

// handleMoveTask maps rendered positions to the filtered view used for reordering.
func (b *Bot) handleMoveTask(ctx context.Context, chatID int64, args string) error {
	from, to, err := parseMoveArgs(args)
	if err != nil {
		return b.sendText(chatID, "Usage: /move &lt;from&gt; &lt;to&gt;")
	}
	all, err := b.tasks.List(ctx)
	if err != nil {
		return b.storageNotice(chatID, "load tasks", err)
	}
	state := b.snapshot()
	rendered := state.RenderedTasks(all)
	if from > len(rendered) || to > len(rendered) {
		return b.indexNotice(chatID, "move", errIndexRange)
	}
	visible := state.VisibleTasks(all)
	src := indexByID(visible, rendered[from-1].ID, taskID)
	dst := indexByID(visible, rendered[to-1].ID, taskID)

	_, changed, err := b.tasks.Reorder(ctx, state.Tasks, reorder.To(src, dst))
	if err != nil {
		return b.storageNotice(chatID, "reorder tasks", err)
	}
	if !changed {
		return b.sendText(chatID, "Nothing to move.")
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) error {
	all, err := b.tasks.List(ctx)
	if err != nil {
		return b.storageNotice(chatID, "load tasks", err)
	}
	return b.sendText(chatID, formatStats(app.ComputeStats(all)))
}

func (b *Bot) indexNotice(chatID int64, command string, err error) error {
	if errors.Is(err, errIndexRange) || errors.Is(err, errIndexFormat) {
		return b.sendText(chatID, fmt.Sprintf("Give a position from the list: /%s 1", command))
	}
	return b.storageNotice(chatID, "load the list", err)
}

func taskID(t model.Task) string {
	return t.ID
}

func indexByID[T any](items []T, id string, key func(T) string) int {
	for i, item := range items {
		if key(item) == id {
			return i
		}
	}
	return -1
}
