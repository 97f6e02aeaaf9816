package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Character is one catalog record
type Character struct {
	Name     string `yaml:"name"`
	Level    int    `yaml:"level"`
	Vocation string `yaml:"vocation"`
	World    string `yaml:"world"`
}

// Entry formats the character for a page line
func (c Character) Entry() string {
	if c.Vocation == "" {
		return fmt.Sprintf("%s (Lvl %d)", c.Name, c.Level)
	}
	return fmt.Sprintf("%s (Lvl %d %s)", c.Name, c.Level, c.Vocation)
}

// Query selects characters. Empty fields match everything.
type Query struct {
	World    string
	Vocation string
	MinLevel int
}

func (q Query) matches(c Character) bool {
	if q.World != "" && !strings.EqualFold(q.World, c.World) {
		return false
	}
	if q.Vocation != "" && !strings.EqualFold(q.Vocation, c.Vocation) {
		return false
	}
	return c.Level >= q.MinLevel
}

// Filter returns the characters matching q, keeping their order
func Filter(chars []Character, q Query) []Character {
	out := make([]Character, 0, len(chars))
	for _, c := range chars {
		if q.matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// Entries returns page lines and the parallel vocation tags
func Entries(chars []Character) (entries, tags []string) {
	entries = make([]string, len(chars))
	tags = make([]string, len(chars))
	for i, c := range chars {
		entries[i] = c.Entry()
		tags[i] = c.Vocation
	}
	return entries, tags
}

// Worlds returns the distinct world names, sorted
func Worlds(chars []Character) []string {
	seen := make(map[string]bool)
	var worlds []string
	for _, c := range chars {
		key := strings.ToLower(c.World)
		if c.World == "" || seen[key] {
			continue
		}
		seen[key] = true
		worlds = append(worlds, c.World)
	}
	sort.Strings(worlds)
	return worlds
}

// normalize validates records and orders them by level, highest first
func normalize(chars []Character) ([]Character, error) {
	out := make([]Character, 0, len(chars))
	for i, c := range chars {
		c.Name = strings.TrimSpace(c.Name)
		c.Vocation = strings.TrimSpace(c.Vocation)
		c.World = strings.TrimSpace(c.World)

		if c.Name == "" {
			return nil, fmt.Errorf("character %d: name is required", i)
		}
		if c.Level < 0 {
			return nil, fmt.Errorf("character %s: level must be >= 0", c.Name)
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
