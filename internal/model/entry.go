// Package model defines the core memory data types.
package model

import (
	"encoding/json"
)

// Category classifies an entry's role in the agent's memory.
type Category int

const (
	// Knowledge is the default category: general learned facts.
	Knowledge Category = iota
	// Core holds identity and persona facts; small and stable.
	Core
	// Conversation holds transient dialogue turns, subject to aging.
	Conversation
)

// String returns the persisted name of the category.
func (c Category) String() string {
	switch c {
	case Core:
		return "core"
	case Conversation:
		return "conversation"
	default:
		return "knowledge"
	}
}

// ParseCategory maps a string to a Category. Unrecognized strings map to
// Knowledge so round-tripping stays forward-compatible with future names.
func ParseCategory(s string) Category {
	switch s {
	case "core":
		return Core
	case "conversation":
		return Conversation
	default:
		return Knowledge
	}
}

// MarshalJSON encodes the category as its string name.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a category from its string name.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ParseCategory(s)
	return nil
}

// Entry is one remembered fact, uniquely identified by its key.
//
// The JSON shape is the flat-file and snapshot wire format: links are
// omitted when empty, score and last_accessed are transient and never
// persisted.
type Entry struct {
	ID           string   `json:"id"`
	Key          string   `json:"key"`
	Content      string   `json:"content"`
	Category     Category `json:"category"`
	Timestamp    int64    `json:"timestamp"`
	SessionID    string   `json:"session_id"`
	Links        []string `json:"links,omitempty"`
	LastAccessed int64    `json:"-"`
	Score        float64  `json:"score,omitempty"`
}

// HasLink reports whether key appears in the entry's link set.
func (e *Entry) HasLink(key string) bool {
	for _, l := range e.Links {
		if l == key {
			return true
		}
	}
	return false
}

// AddLink appends key to the link set if not already present.
func (e *Entry) AddLink(key string) {
	if !e.HasLink(key) {
		e.Links = append(e.Links, key)
	}
}

// RemoveLink deletes key from the link set. Returns true if it was present.
func (e *Entry) RemoveLink(key string) bool {
	for i, l := range e.Links {
		if l == key {
			e.Links = append(e.Links[:i], e.Links[i+1:]...)
			return true
		}
	}
	return false
}
