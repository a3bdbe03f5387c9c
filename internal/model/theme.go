package model

import "strings"

// Theme names the active color scheme.
type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeBlue    Theme = "blue"
	ThemePink    Theme = "pink"
	ThemePastel  Theme = "pastel"
	ThemeCream   Theme = "cream"
	ThemeGreen   Theme = "green"
	ThemeRed     Theme = "red"
	ThemeDark    Theme = "dark"
)

var Themes = []Theme{
	ThemeDefault,
	ThemeBlue,
	ThemePink,
	ThemePastel,
	ThemeCream,
	ThemeGreen,
	ThemeRed,
	ThemeDark,
}

func (t Theme) Valid() bool {
	for _, known := range Themes {
		if t == known {
			return true
		}
	}
	return false
}

func ParseTheme(raw string) (Theme, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range Themes {
		if value == string(known) {
			return known, true
		}
	}
	return "", false
}
