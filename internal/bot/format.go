package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"todo-notes/internal/app"
	"todo-notes/internal/model"
	"todo-notes/internal/service"
)

const whenLayout = "2006-01-02T15:04"

var (
	errIndexFormat = errors.New("position must be a positive number")
	errIndexRange  = errors.New("position is outside the list")
)

// parseAddArgs splits "/add" arguments into title, #category and @time.
func parseAddArgs(args string, loc *time.Location) (service.TaskInput, error) {
	var input service.TaskInput
	var title []string
	for _, field := range strings.Fields(args) {
		switch {
		case strings.HasPrefix(field, "#") && len(field) > 1:
			category, ok := model.ParseCategory(field[1:])
			if !ok {
				return input, fmt.Errorf("unknown category %s, choose one of: %s", field, categoryNames())
			}
			input.Category = category
		case strings.HasPrefix(field, "@") && len(field) > 1:
			at, err := parseWhen(field[1:], loc)
			if err != nil {
				return input, fmt.Errorf("cannot read the time %s, use @2025-01-31T09:00", field)
			}
			input.ReminderAt = &at
		default:
			title = append(title, field)
		}
	}
	input.Title = strings.Join(title, " ")
	return input, nil
}

// parseNoteArgs takes a trailing color and sticker off the note title.
func parseNoteArgs(args string) service.NoteInput {
	fields := strings.Fields(args)
	var input service.NoteInput
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		if input.Sticker == "" && model.Sticker(last).Valid() {
			input.Sticker = model.Sticker(last)
		} else if color, ok := model.ParseColor(last); ok && input.Color == "" {
			input.Color = color
		} else {
			break
		}
		fields = fields[:len(fields)-1]
	}
	input.Title = strings.Join(fields, " ")
	return input
}

func parseWhen(raw string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(whenLayout, strings.TrimSpace(raw), loc)
}

func formatWhen(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02 15:04")
}

// parseIndex reads a 1-based list position.
func parseIndex(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, errIndexFormat
	}
	return n, nil
}

// parseMoveArgs reads "<from> <to>" as 1-based positions.
func parseMoveArgs(args string) (int, int, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, errIndexFormat
	}
	from, err := parseIndex(fields[0])
	if err != nil {
		return 0, 0, err
	}
	to, err := parseIndex(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func formatTaskList(tasks []model.Task, state app.State, stats app.Stats, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📋 <b>Tasks</b>")
	var filters []string
	if state.Tasks.Category != "" {
		filters = append(filters, string(state.Tasks.Category))
	}
	if state.Tasks.Search != "" {
		filters = append(filters, fmt.Sprintf("“%s”", escape(state.Tasks.Search)))
	}
	if state.FocusMode {
		filters = append(filters, "focus")
	}
	if len(filters) > 0 {
		b.WriteString(" · " + strings.Join(filters, " · "))
	}
	b.WriteString("\n\n")

	if len(tasks) == 0 {
		b.WriteString("No tasks here. Add one with /add.")
		return b.String()
	}
	for i, task := range tasks {
		b.WriteString(formatTaskLine(i+1, task, loc))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nProgress: %d/%d (%d%%)", stats.Completed, stats.Total, stats.Progress)
	return b.String()
}

func formatTaskLine(n int, task model.Task, loc *time.Location) string {
	box := "⬜"
	title := escape(task.Title)
	if task.Completed {
		box = "✅"
		title = "<s>" + title + "</s>"
	}
	line := fmt.Sprintf("%d. %s %s · %s %s", n, box, title, categoryIcon(task.Category), task.Category)
	if task.ReminderAt != nil {
		line += " · ⏰ " + formatWhen(*task.ReminderAt, loc)
	}
	return line
}

func formatNoteList(notes []model.Note, search string) string {
	var b strings.Builder
	b.WriteString("🗒 <b>Notes</b>")
	if search != "" {
		fmt.Fprintf(&b, " · “%s”", escape(search))
	}
	b.WriteString("\n\n")
	if len(notes) == 0 {
		b.WriteString("No notes here. Create one with /note.")
		return b.String()
	}
	for i, note := range notes {
		fmt.Fprintf(&b, "%d. %s %s <b>%s</b>\n", i+1, colorIcon(note.Color), note.Sticker, escape(note.Title))
		if content := strings.TrimSpace(note.Content); content != "" {
			fmt.Fprintf(&b, "   %s\n", escape(shortTitle(content, 120)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStats(stats app.Stats) string {
	var b strings.Builder
	b.WriteString("📊 <b>Stats</b>\n")
	fmt.Fprintf(&b, "Total: %d\nCompleted: %d\nProgress: %d%%\n\n", stats.Total, stats.Completed, stats.Progress)
	for _, c := range stats.Categories {
		fmt.Fprintf(&b, "%s %s: %d\n", categoryIcon(c.Category), c.Category, c.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func categoryIcon(c model.Category) string {
	switch c {
	case model.CategoryWork:
		return "💼"
	case model.CategoryStudy:
		return "🎓"
	case model.CategoryPersonal:
		return "🏠"
	case model.CategoryFood:
		return "🍎"
	case model.CategorySport:
		return "🏃"
	default:
		return "🏷️"
	}
}

func colorIcon(c model.Color) string {
	switch c {
	case model.ColorBlue:
		return "🟦"
	case model.ColorPink:
		return "🟪"
	case model.ColorGreen:
		return "🟩"
	default:
		return "🟨"
	}
}

func categoryNames() string {
	names := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func themeNames() string {
	names := make([]string, 0, len(model.Themes))
	for _, t := range model.Themes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
