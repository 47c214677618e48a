package domain

import (
	"fmt"
	"strings"
)

// AlertLevel is one named severity; its position in the table is its numeric level.
type AlertLevel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// AlertLevelTable is the ordered project-wide severity list, lowest severity first.
type AlertLevelTable struct {
	levels []AlertLevel
}

// DefaultAlertLevels returns the green/yellow/red table.
func DefaultAlertLevels() AlertLevelTable {
	return AlertLevelTable{levels: []AlertLevel{
		{ID: "green", Name: "Green", Color: "#008000"},
		{ID: "yellow", Name: "Yellow", Color: "#BEA800"},
		{ID: "red", Name: "Red", Color: "#C00000"},
	}}
}

// NewAlertLevelTable validates and normalizes an ordered level list.
func NewAlertLevelTable(levels []AlertLevel) (AlertLevelTable, error) {
	if len(levels) == 0 {
		return DefaultAlertLevels(), nil
	}
	out := make([]AlertLevel, 0, len(levels))
	seen := map[string]struct{}{}
	for idx, level := range levels {
		level.ID = strings.TrimSpace(strings.ToLower(level.ID))
		level.Name = strings.TrimSpace(level.Name)
		level.Color = strings.TrimSpace(level.Color)
		if level.ID == "" {
			return AlertLevelTable{}, fmt.Errorf("alert level %d: %w", idx, ErrInvalidID)
		}
		if level.Name == "" {
			level.Name = level.ID
		}
		if _, ok := seen[level.ID]; ok {
			return AlertLevelTable{}, fmt.Errorf("alert level %q: %w", level.ID, ErrDuplicateID)
		}
		seen[level.ID] = struct{}{}
		out = append(out, level)
	}
	return AlertLevelTable{levels: out}, nil
}

// Len returns the number of severity levels.
func (t AlertLevelTable) Len() int {
	return len(t.levels)
}

// Level returns the level at idx.
func (t AlertLevelTable) Level(idx int) (AlertLevel, error) {
	if !t.Valid(idx) {
		return AlertLevel{}, fmt.Errorf("level %d of %d: %w", idx, len(t.levels), ErrInvalidAlertLevel)
	}
	return t.levels[idx], nil
}

// Name returns the display name of level idx, or an empty string when out of range.
func (t AlertLevelTable) Name(idx int) string {
	if !t.Valid(idx) {
		return ""
	}
	return t.levels[idx].Name
}

// Valid reports whether idx addresses a level.
func (t AlertLevelTable) Valid(idx int) bool {
	return idx >= 0 && idx < len(t.levels)
}

// IndexOf resolves a level id to its numeric level.
func (t AlertLevelTable) IndexOf(id string) (int, bool) {
	id = strings.TrimSpace(strings.ToLower(id))
	for idx, level := range t.levels {
		if level.ID == id {
			return idx, true
		}
	}
	return -1, false
}

// Levels returns a copy of the ordered level list.
func (t AlertLevelTable) Levels() []AlertLevel {
	return append([]AlertLevel(nil), t.levels...)
}
