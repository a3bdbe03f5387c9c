package model

import "strings"

// Note is a sticky note with free text content.
type Note struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Color   Color   `json:"color"`
	Sticker Sticker `json:"sticker"`
}

func (n Note) RecordID() string {
	return n.ID
}

type Color string

const (
	ColorYellow Color = "yellow"
	ColorBlue   Color = "blue"
	ColorPink   Color = "pink"
	ColorGreen  Color = "green"
)

// Colors is the note palette in cycle order.
var Colors = []Color{ColorYellow, ColorBlue, ColorPink, ColorGreen}

func (c Color) Valid() bool {
	for _, known := range Colors {
		if c == known {
			return true
		}
	}
	return false
}

// Next returns the following palette color, wrapping around. Unknown colors start from yellow.
func (c Color) Next() Color {
	idx := 0
	for i, known := range Colors {
		if c == known {
			idx = i
			break
		}
	}
	return Colors[(idx+1)%len(Colors)]
}

func ParseColor(raw string) (Color, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range Colors {
		if value == string(known) {
			return known, true
		}
	}
	return "", false
}

type Sticker string

var Stickers = []Sticker{"❤️", "🌸", "📌", "✨", "📝"}

func (s Sticker) Valid() bool {
	for _, known := range Stickers {
		if s == known {
			return true
		}
	}
	return false
}
