package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"todo-notes/internal/app"
	"todo-notes/internal/model"
	"todo-notes/internal/service"
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
)

var errNoChat = errors.New("no chat to notify")

// botAPI is the part of tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Services groups the application services driven by the bot.
type Services struct {
	Tasks  *service.TaskService
	Notes  *service.NoteService
	Themes *service.ThemeService
	Export *service.ExportService
	Sync   *service.SyncService
}

type Options struct {
	// OwnerChatID restricts the bot to one chat and grants it notifications.
	OwnerChatID int64
	Location    *time.Location
}

// Bot aggregates Telegram API with services. It serves a single owner.
type Bot struct {
	api      botAPI
	tasks    *service.TaskService
	notes    *service.NoteService
	themes   *service.ThemeService
	exporter *service.ExportService
	syncer   *service.SyncService
	loc      *time.Location
	owner    int64

	mu     sync.Mutex
	state  app.State
	chatID int64
}

func New(token string, svc Services, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.WithField("account", api.Self.UserName).Info("bot authorized")
	return newBot(api, svc, opts), nil
}

func newBot(api botAPI, svc Services, opts Options) *Bot {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	state := app.NewState()
	if svc.Themes != nil {
		state = state.WithAutoTheme(svc.Themes.Auto())
	}
	b := &Bot{
		api:      api,
		tasks:    svc.Tasks,
		notes:    svc.Notes,
		themes:   svc.Themes,
		exporter: svc.Export,
		syncer:   svc.Sync,
		loc:      loc,
		owner:    opts.OwnerChatID,
		state:    state,
	}
	if opts.OwnerChatID != 0 {
		b.chatID = opts.OwnerChatID
		b.state = b.state.WithPermission(app.PermissionGranted)
	}
	return b
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.themes != nil {
		if theme, err := b.themes.Get(ctx); err == nil {
			b.update(func(s app.State) app.State { return s.WithTheme(theme) })
		}
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.WithError(err).Error("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.WithError(err).Error("handle message")
			}
		}
	}

	return nil
}

// Permission reports whether reminders may be delivered.
func (b *Bot) Permission() app.Permission {
	return b.snapshot().Notification
}

// Notify sends a reminder to the owner chat.
func (b *Bot) Notify(_ context.Context, n service.Notification) error {
	chatID := b.currentChat()
	if chatID == 0 {
		return errNoChat
	}
	return b.sendText(chatID, fmt.Sprintf("🔔 <b>%s</b>\n%s", escape(n.Title), escape(n.Body)))
}

// NoteSaved reports failed autosaves to the owner.
func (b *Bot) NoteSaved(note model.Note, err error) {
	if err == nil {
		log.WithField("note", note.ID).Debug("note autosaved")
		return
	}
	chatID := b.currentChat()
	if chatID == 0 {
		return
	}
	if sendErr := b.sendText(chatID, fmt.Sprintf("⚠️ Could not save note «%s». Try /edit again.", escape(note.Title))); sendErr != nil {
		log.WithError(sendErr).Warn("send autosave notice")
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || !b.allowed(msg.Chat.ID) {
		return nil
	}
	b.rememberChat(msg.Chat.ID)

	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "I only understand commands. Send /help for the list.")
	}

	log.WithFields(log.Fields{"chat": msg.Chat.ID, "command": msg.Command()}).Debug("command received")
	return b.handleCommand(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.sendText(chatID, helpText)
	case "add":
		return b.handleAdd(ctx, chatID, args)
	case "tasks":
		return b.sendTaskList(ctx, chatID)
	case "done":
		return b.handleDone(ctx, chatID, args)
	case "del":
		return b.handleDeleteTask(ctx, chatID, args)
	case "remind":
		return b.handleRemind(ctx, chatID, args)
	case "search":
		b.update(func(s app.State) app.State { return s.WithTab(app.TabTasks).WithSearch(args) })
		return b.sendTaskList(ctx, chatID)
	case "category":
		return b.handleCategory(ctx, chatID, args)
	case "focus":
		b.update(func(s app.State) app.State { return s.ToggleFocus() })
		return b.sendTaskList(ctx, chatID)
	case "move":
		return b.handleMoveTask(ctx, chatID, args)
	case "note":
		return b.handleNewNote(ctx, chatID, args)
	case "notes":
		b.update(func(s app.State) app.State { return s.WithTab(app.TabNotes).WithNoteSearch(args) })
		return b.sendNoteList(ctx, chatID)
	case "edit":
		return b.handleEditNote(ctx, chatID, args)
	case "color":
		return b.handleCycleColor(ctx, chatID, args)
	case "delnote":
		return b.handleDeleteNote(ctx, chatID, args)
	case "movenote":
		return b.handleMoveNote(ctx, chatID, args)
	case "theme":
		return b.handleTheme(ctx, chatID, args)
	case "stats":
		return b.handleStats(ctx, chatID)
	case "export":
		return b.handleExport(ctx, chatID)
	case "sync":
		return b.handleSync(ctx, chatID)
	case "notify":
		b.update(func(s app.State) app.State { return s.WithPermission(app.PermissionGranted) })
		return b.sendText(chatID, "🔔 Reminders are on for this chat.")
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your tasks and sticky notes.</b>\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.WithError(err).Warn("callback ack")
	}
	chatID := cb.Message.Chat.ID
	if !b.allowed(chatID) {
		return nil
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		id := strings.TrimPrefix(data, cbTogglePrefix)
		log.WithFields(log.Fields{"chat": chatID, "task": id}).Debug("callback toggle")
		return b.toggleTask(ctx, chatID, id)
	case strings.HasPrefix(data, cbDeletePrefix):
		id := strings.TrimPrefix(data, cbDeletePrefix)
		log.WithFields(log.Fields{"chat": chatID, "task": id}).Debug("callback delete")
		return b.deleteTask(ctx, chatID, id)
	default:
		return nil
	}
}

func (b *Bot) snapshot() app.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bot) update(fn func(app.State) app.State) app.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = fn(b.state)
	return b.state
}

func (b *Bot) allowed(chatID int64) bool {
	return b.owner == 0 || b.owner == chatID
}

func (b *Bot) rememberChat(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chatID = chatID
}

func (b *Bot) currentChat() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chatID
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// storageNotice turns a failed operation into a short notice for the user.
func (b *Bot) storageNotice(chatID int64, action string, err error) error {
	log.WithError(err).WithField("action", action).Error("operation failed")
	return b.sendText(chatID, fmt.Sprintf("⚠️ Could not %s. Please try again.", action))
}

func escape(s string) string {
	return html.EscapeString(s)
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"<b>Tasks</b>\n" +
	"• /add &lt;title&gt; [#Category] [@2025-01-31T09:00] — new task\n" +
	"• /tasks — show tasks\n" +
	"• /done &lt;n&gt; — toggle completed\n" +
	"• /del &lt;n&gt; — delete task\n" +
	"• /remind &lt;n&gt; [2025-01-31T09:00] — set or clear reminder\n" +
	"• /search &lt;text&gt; — filter by title\n" +
	"• /category &lt;Work|Study|Personal|Food|Sport|Other|all&gt;\n" +
	"• /focus — hide completed tasks\n" +
	"• /move &lt;from&gt; &lt;to&gt; — reorder\n" +
	"<b>Notes</b>\n" +
	"• /note &lt;title&gt; [color] [sticker] — new note\n" +
	"• /notes [text] — show notes\n" +
	"• /edit &lt;n&gt; &lt;content&gt; — edit content\n" +
	"• /color &lt;n&gt; — next color\n" +
	"• /delnote &lt;n&gt; — delete note\n" +
	"• /movenote &lt;from&gt; &lt;to&gt; — reorder\n" +
	"<b>Other</b>\n" +
	"• /theme [name|auto] — theme\n" +
	"• /stats — progress\n" +
	"• /export — download data\n" +
	"• /sync — copy data to the mirror and back\n" +
	"• /notify — enable reminders"
