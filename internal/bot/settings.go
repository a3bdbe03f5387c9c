package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-notes/internal/app"
	"todo-notes/internal/model"
	"todo-notes/internal/service"
)

func (b *Bot) handleTheme(ctx context.Context, chatID int64, args string) error {
	switch {
	case args == "":
		theme, err := b.themes.Get(ctx)
		if err != nil {
			return b.storageNotice(chatID, "load the theme", err)
		}
		auto := "off"
		if b.themes.Auto() {
			auto = "on"
		}
		return b.sendText(chatID, fmt.Sprintf("🎨 Theme: <b>%s</b> (auto %s)\nAvailable: %s, auto", theme, auto, themeNames()))
	case strings.EqualFold(args, "auto"):
		on := !b.themes.Auto()
		b.themes.SetAuto(on)
		b.update(func(s app.State) app.State { return s.WithAutoTheme(on) })
		if on {
			return b.sendText(chatID, "🌗 Auto theme on: dark from 19:00 to 06:00.")
		}
		return b.sendText(chatID, "Auto theme off.")
	}

	theme, ok := model.ParseTheme(args)
	if !ok {
		return b.sendText(chatID, fmt.Sprintf("Unknown theme. Available: %s, auto", themeNames()))
	}
	if err := b.themes.Set(ctx, theme); err != nil {
		return b.storageNotice(chatID, "save the theme", err)
	}
	b.themes.SetAuto(false)
	b.update(func(s app.State) app.State { return s.WithTheme(theme).WithAutoTheme(false) })
	return b.sendText(chatID, fmt.Sprintf("🎨 Theme set to <b>%s</b>.", theme))
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) error {
	snap, err := b.exporter.Export(ctx)
	if err != nil {
		return b.storageNotice(chatID, "export your data", err)
	}
	data, err := service.EncodeSnapshot(snap)
	if err != nil {
		return b.storageNotice(chatID, "export your data", err)
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: service.ExportFileName, Bytes: data})
	doc.Caption = fmt.Sprintf("%d tasks, %d notes", len(snap.Tasks), len(snap.Notes))
	_, err = b.api.Send(doc)
	return err
}

func (b *Bot) handleSync(ctx context.Context, chatID int64) error {
	snap, err := b.syncer.Sync(ctx)
	if errors.Is(err, service.ErrMirrorUnavailable) {
		return b.sendText(chatID, "Sync is not configured.")
	}
	if err != nil {
		return b.storageNotice(chatID, "sync", err)
	}
	b.update(func(s app.State) app.State { return s.WithTheme(snap.Theme) })
	return b.sendText(chatID, fmt.Sprintf("🔄 Synced %d tasks and %d notes.", len(snap.Tasks), len(snap.Notes)))
}
