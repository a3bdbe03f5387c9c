package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"todo-notes/internal/model"
	"todo-notes/internal/repository"
)

type ThemeService struct {
	store *repository.RecordStore
	auto  atomic.Bool
}

func NewThemeService(store *repository.RecordStore) *ThemeService {
	return &ThemeService{store: store}
}

func (s *ThemeService) Get(ctx context.Context) (model.Theme, error) {
	return s.store.Theme(ctx)
}

func (s *ThemeService) Set(ctx context.Context, theme model.Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}
	return s.store.SetTheme(ctx, theme)
}

// ForHour picks dark between 19:00 and 06:00.
func ForHour(hour int) model.Theme {
	if hour >= 19 || hour < 6 {
		return model.ThemeDark
	}
	return model.ThemeDefault
}

// ApplyAuto stores the theme for the local hour of now.
func (s *ThemeService) ApplyAuto(ctx context.Context, now time.Time) (model.Theme, error) {
	theme := ForHour(now.Hour())
	if err := s.store.SetTheme(ctx, theme); err != nil {
		return "", err
	}
	return theme, nil
}

func (s *ThemeService) SetAuto(on bool) {
	s.auto.Store(on)
}

func (s *ThemeService) Auto() bool {
	return s.auto.Load()
}

// Tick applies the hour-based theme when auto mode is on. It reports whether a theme was written.
func (s *ThemeService) Tick(ctx context.Context, now time.Time) (bool, error) {
	if !s.Auto() {
		return false, nil
	}
	if _, err := s.ApplyAuto(ctx, now); err != nil {
		return false, err
	}
	return true, nil
}
