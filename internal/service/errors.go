package service

import "errors"

var (
	ErrEmptyTitle        = errors.New("title is required")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrUnknownColor      = errors.New("unknown note color")
	ErrUnknownSticker    = errors.New("unknown sticker")
	ErrUnknownTheme      = errors.New("unknown theme")
	ErrMirrorUnavailable = errors.New("sync mirror is not configured")
)
