package bot

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-notes/internal/app"
	"todo-notes/internal/model"
	"todo-notes/internal/repository"
	"todo-notes/internal/service"
)

const testChat int64 = 100

type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeAPI) lastText() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

// switchKV fails every write while failWrites is set.
type switchKV struct {
	repository.KeyValue
	failWrites atomic.Bool
}

func (s *switchKV) Set(ctx context.Context, key, value string) error {
	if s.failWrites.Load() {
		return errors.Join(repository.ErrStorage, errors.New("quota exceeded"))
	}
	return s.KeyValue.Set(ctx, key, value)
}

type harness struct {
	bot   *Bot
	api   *fakeAPI
	kv    *switchKV
	store *repository.RecordStore
	svc   Services
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	primary, err := repository.NewSQLiteKV(db, repository.PrimaryTable)
	if err != nil {
		t.Fatalf("primary kv: %v", err)
	}
	mirror, err := repository.NewSQLiteKV(db, repository.MirrorTable)
	if err != nil {
		t.Fatalf("mirror kv: %v", err)
	}
	kv := &switchKV{KeyValue: primary}
	store := repository.NewRecordStore(kv, 0)
	notes := service.NewNoteService(store, mirror, time.Hour)
	t.Cleanup(notes.Close)

	svc := Services{
		Tasks:  service.NewTaskService(store, nil),
		Notes:  notes,
		Themes: service.NewThemeService(store),
		Export: service.NewExportService(store),
		Sync:   service.NewSyncService(store, mirror),
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	api := &fakeAPI{}
	return &harness{bot: newBot(api, svc, opts), api: api, kv: kv, store: store, svc: svc}
}

func (h *harness) send(t *testing.T, chatID int64, text string) {
	t.Helper()
	cmd := strings.Fields(text)[0]
	msg := &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID, Type: "private"},
		From:     &tgbotapi.User{ID: chatID, FirstName: "Sam"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
	if err := h.bot.handleMessage(context.Background(), msg); err != nil {
		t.Fatalf("%s: %v", text, err)
	}
}

func (h *harness) tasks(t *testing.T) []model.Task {
	t.Helper()
	tasks, err := h.store.Tasks.All(context.Background())
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	return tasks
}

func TestAddAndToggleTask(t *testing.T) {
	h := newHarness(t, Options{})

	h.send(t, testChat, "/add Buy milk #Personal")
	tasks := h.tasks(t)
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" || tasks[0].Category != model.CategoryPersonal {
		t.Fatalf("unexpected tasks %#v", tasks)
	}
	if !strings.Contains(h.api.lastText(), "1. ⬜ Buy milk") {
		t.Fatalf("expected refreshed list, got %q", h.api.lastText())
	}

	h.send(t, testChat, "/done 1")
	if !h.tasks(t)[0].Completed {
		t.Fatalf("expected task completed")
	}

	h.send(t, testChat, "/done 5")
	if !strings.Contains(h.api.lastText(), "Give a position") {
		t.Fatalf("expected position notice, got %q", h.api.lastText())
	}
}

func TestAddRejectsBadInput(t *testing.T) {
	h := newHarness(t, Options{})

	h.send(t, testChat, "/add Plan #Chores")
	h.send(t, testChat, "/add")
	if len(h.tasks(t)) != 0 {
		t.Fatalf("expected no tasks to be stored")
	}
	if !strings.Contains(h.api.lastText(), "Give the task a title") {
		t.Fatalf("unexpected reply %q", h.api.lastText())
	}
}

func TestFocusModeIndexesRenderedList(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.store.Tasks.ReplaceAll(ctx, []model.Task{
		{ID: "a", Title: "done already", Category: model.CategoryWork, Completed: true},
		{ID: "b", Title: "still open", Category: model.CategoryWork},
	})

	h.send(t, testChat, "/focus")
	if !h.bot.snapshot().FocusMode {
		t.Fatalf("expected focus mode on")
	}
	h.send(t, testChat, "/del 1")

	tasks := h.tasks(t)
	if len(tasks) != 1 || tasks[0].ID != "a" {
		t.Fatalf("expected the open task to be deleted, got %#v", tasks)
	}
}

func TestMoveInsideCategoryFilter(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.store.Tasks.ReplaceAll(ctx, []model.Task{
		{ID: "A", Title: "A", Category: model.CategoryWork},
		{ID: "B", Title: "B", Category: model.CategoryFood},
		{ID: "C", Title: "C", Category: model.CategoryWork},
		{ID: "D", Title: "D", Category: model.CategoryFood},
		{ID: "E", Title: "E", Category: model.CategoryWork},
	})

	h.send(t, testChat, "/category work")
	h.send(t, testChat, "/move 1 3")

	var order []string
	for _, task := range h.tasks(t) {
		order = append(order, task.ID)
	}
	if got := strings.Join(order, ""); got != "CBEDA" {
		t.Fatalf("expected CBEDA, got %s", got)
	}

	h.send(t, testChat, "/move 2 2")
	if h.api.lastText() != "Nothing to move." {
		t.Fatalf("expected no-op reply, got %q", h.api.lastText())
	}
}

func TestNotifyGrantsPermission(t *testing.T) {
	h := newHarness(t, Options{})
	if h.bot.Permission() != app.PermissionDefault {
		t.Fatalf("expected default permission")
	}

	h.send(t, testChat, "/notify")
	if h.bot.Permission() != app.PermissionGranted {
		t.Fatalf("expected granted permission")
	}

	h.api.reset()
	task := model.Task{ID: "t", Title: "Call <mom>", Category: model.CategoryPersonal}
	if err := h.bot.Notify(context.Background(), service.ReminderNotification(task)); err != nil {
		t.Fatalf("notify: %v", err)
	}
	want := "🔔 <b>Task Reminder</b>\nCall &lt;mom&gt; (📌 Personal)"
	if h.api.lastText() != want {
		t.Fatalf("expected %q, got %q", want, h.api.lastText())
	}
}

func TestOwnerOnly(t *testing.T) {
	h := newHarness(t, Options{OwnerChatID: testChat})
	if h.bot.Permission() != app.PermissionGranted {
		t.Fatalf("owner chat should be granted notifications")
	}

	h.send(t, 999, "/add Intruder task")
	if len(h.tasks(t)) != 0 || len(h.api.texts()) != 0 {
		t.Fatalf("expected messages from other chats to be ignored")
	}
}

func TestNotesFlow(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	h.send(t, testChat, "/note Trip plan blue ✨")
	notes, _ := h.store.Notes.All(ctx)
	if len(notes) != 1 || notes[0].Title != "Trip plan" || notes[0].Color != model.ColorBlue || notes[0].Sticker != "✨" {
		t.Fatalf("unexpected notes %#v", notes)
	}

	h.send(t, testChat, "/edit 1 pack the tent")
	if err := h.svc.Notes.Flush(ctx, notes[0].ID); err != nil {
		t.Fatalf("flush: %v", err)
	}
	notes, _ = h.store.Notes.All(ctx)
	if notes[0].Content != "pack the tent" {
		t.Fatalf("expected edited content, got %q", notes[0].Content)
	}

	h.send(t, testChat, "/color 1")
	notes, _ = h.store.Notes.All(ctx)
	if notes[0].Color != model.ColorPink {
		t.Fatalf("expected blue to cycle to pink, got %s", notes[0].Color)
	}

	h.send(t, testChat, "/delnote 1")
	notes, _ = h.store.Notes.All(ctx)
	if len(notes) != 0 {
		t.Fatalf("expected note deleted, got %#v", notes)
	}
}

func TestThemeCommands(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	h.send(t, testChat, "/theme pastel")
	if theme, _ := h.store.Theme(ctx); theme != model.ThemePastel {
		t.Fatalf("expected pastel stored, got %s", theme)
	}
	if h.bot.snapshot().Theme != model.ThemePastel {
		t.Fatalf("expected state theme pastel")
	}

	h.send(t, testChat, "/theme auto")
	if !h.svc.Themes.Auto() || !h.bot.snapshot().AutoTheme {
		t.Fatalf("expected auto theme on")
	}

	h.send(t, testChat, "/theme neon")
	if !strings.Contains(h.api.lastText(), "Unknown theme") {
		t.Fatalf("unexpected reply %q", h.api.lastText())
	}
	if !h.svc.Themes.Auto() {
		t.Fatalf("rejected theme must not change auto mode")
	}
}

func TestExportSendsDocument(t *testing.T) {
	h := newHarness(t, Options{})
	h.send(t, testChat, "/add Read a book #Study")
	h.api.reset()

	h.send(t, testChat, "/export")

	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	if len(h.api.sent) != 1 {
		t.Fatalf("expected one upload, got %d", len(h.api.sent))
	}
	doc, ok := h.api.sent[0].(tgbotapi.DocumentConfig)
	if !ok {
		t.Fatalf("expected document, got %T", h.api.sent[0])
	}
	file, ok := doc.File.(tgbotapi.FileBytes)
	if !ok || file.Name != service.ExportFileName {
		t.Fatalf("unexpected file %#v", doc.File)
	}
	if !strings.Contains(string(file.Bytes), "Read a book") {
		t.Fatalf("expected task in export, got %s", file.Bytes)
	}
}

func TestSyncCommand(t *testing.T) {
	h := newHarness(t, Options{})
	h.send(t, testChat, "/add Sync me")
	h.send(t, testChat, "/sync")
	if !strings.Contains(h.api.lastText(), "Synced 1 tasks and 0 notes") {
		t.Fatalf("unexpected reply %q", h.api.lastText())
	}
}

func TestCallbackToggle(t *testing.T) {
	h := newHarness(t, Options{})
	h.send(t, testChat, "/add Stretch #Sport")
	id := h.tasks(t)[0].ID

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: testChat},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChat, Type: "private"}},
		Data:    cbTogglePrefix + id,
	}
	if err := h.bot.handleCallback(context.Background(), cb); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if !h.tasks(t)[0].Completed {
		t.Fatalf("expected callback to toggle the task")
	}

	cb.Data = cbDeletePrefix + id
	if err := h.bot.handleCallback(context.Background(), cb); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if len(h.tasks(t)) != 0 {
		t.Fatalf("expected callback to delete the task")
	}
}

func TestStorageFailureShowsNoticeAndKeepsState(t *testing.T) {
	h := newHarness(t, Options{})
	h.send(t, testChat, "/add Keep me #Work")
	h.send(t, testChat, "/search keep")
	before := h.bot.snapshot()
	h.api.reset()

	h.kv.failWrites.Store(true)
	h.send(t, testChat, "/add x")
	if got := h.api.lastText(); got != "⚠️ Could not save the task. Please try again." {
		t.Fatalf("expected storage notice, got %q", got)
	}
	h.send(t, testChat, "/done 1")
	if got := h.api.lastText(); !strings.HasPrefix(got, "⚠️ Could not update the task") {
		t.Fatalf("expected toggle notice, got %q", got)
	}

	if after := h.bot.snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("state changed on failed writes:\n%#v\n%#v", before, after)
	}
	h.kv.failWrites.Store(false)
	tasks := h.tasks(t)
	if len(tasks) != 1 || tasks[0].Title != "Keep me" || tasks[0].Completed {
		t.Fatalf("stored tasks changed on failed writes: %#v", tasks)
	}
}
