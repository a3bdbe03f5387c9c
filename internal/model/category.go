package model

import "strings"

// Category groups tasks by area (work, study, sport, etc.).
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryStudy    Category = "Study"
	CategoryPersonal Category = "Personal"
	CategoryFood     Category = "Food"
	CategorySport    Category = "Sport"
	CategoryOther    Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryWork,
	CategoryStudy,
	CategoryPersonal,
	CategoryFood,
	CategorySport,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(raw string) (Category, bool) {
	value := strings.TrimSpace(raw)
	for _, known := range Categories {
		if strings.EqualFold(value, string(known)) {
			return known, true
		}
	}
	return "", false
}
