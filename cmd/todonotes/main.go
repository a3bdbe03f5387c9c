package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"todo-notes/internal/api"
	"todo-notes/internal/bot"
	"todo-notes/internal/config"
	"todo-notes/internal/repository"
	"todo-notes/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	primary, err := repository.NewSQLiteKV(db, repository.PrimaryTable)
	if err != nil {
		log.Fatalf("primary store: %v", err)
	}
	mirror, closeMirror, err := openMirror(ctx, cfg, db)
	if err != nil {
		log.Fatalf("mirror: %v", err)
	}
	defer closeMirror()

	store := repository.NewRecordStore(primary, cfg.StoreLatency)

	reminderSvc := service.NewReminderService(store.Tasks, nil)
	taskSvc := service.NewTaskService(store, reminderSvc)
	noteSvc := service.NewNoteService(store, mirror, cfg.NoteAutosaveDelay)
	defer noteSvc.Close()
	themeSvc := service.NewThemeService(store)
	themeSvc.SetAuto(cfg.AutoTheme)
	exportSvc := service.NewExportService(store)
	syncSvc := service.NewSyncService(store, mirror)

	if _, err := taskSvc.Seed(ctx); err != nil {
		log.WithError(err).Warn("seed tasks")
	}
	if _, err := noteSvc.Seed(ctx); err != nil {
		log.WithError(err).Warn("seed notes")
	}

	var telegramBot *bot.Bot
	if !cfg.BotDisabled {
		telegramBot, err = bot.New(cfg.TelegramToken, bot.Services{
			Tasks:  taskSvc,
			Notes:  noteSvc,
			Themes: themeSvc,
			Export: exportSvc,
			Sync:   syncSvc,
		}, bot.Options{OwnerChatID: cfg.OwnerChatID, Location: time.Local})
		if err != nil {
			log.Fatalf("bot: %v", err)
		}
		reminderSvc.SetNotifier(telegramBot)
		noteSvc.OnSaved(telegramBot.NoteSaved)
	}

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleInterval(cfg.ReminderScanInterval, func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := reminderSvc.Scan(jobCtx, time.Now()); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("reminder scan")
		}
	}); err != nil {
		log.Fatalf("schedule reminders: %v", err)
	}
	if _, err := scheduler.ScheduleInterval(cfg.AutoThemeInterval, func() {
		jobCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := themeSvc.Tick(jobCtx, time.Now()); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("auto theme")
		}
	}); err != nil {
		log.Fatalf("schedule auto theme: %v", err)
	}
	if cfg.AutoTheme {
		if _, err := themeSvc.Tick(ctx, time.Now()); err != nil {
			log.WithError(err).Warn("auto theme")
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.HTTPAddr != "" {
		server := api.New(api.Services{Tasks: taskSvc, Notes: noteSvc, Themes: themeSvc, Export: exportSvc})
		go func() {
			log.WithField("addr", cfg.HTTPAddr).Info("http api listening")
			if err := server.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("http api stopped")
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("http shutdown")
			}
		}()
	}

	log.Info("todo-notes started")
	if telegramBot != nil {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("bot stopped with error: %v", err)
		}
	} else {
		<-ctx.Done()
	}
	log.Info("shutdown complete")
}

// openMirror picks Redis when REDIS_URL is set, otherwise a second table in the primary database.
func openMirror(ctx context.Context, cfg config.Config, db *gorm.DB) (repository.KeyValue, func(), error) {
	if cfg.RedisURL == "" {
		kv, err := repository.NewSQLiteKV(db, repository.MirrorTable)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	log.WithField("addr", opts.Addr).Info("redis mirror connected")
	return repository.NewRedisKV(client, "todo-notes:"), func() { client.Close() }, nil
}
