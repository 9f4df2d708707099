// Package slot provides the shared "last analysis" cell that posture
// findings are deposited into for independent note consumers.
package slot

import (
	"sync/atomic"
	"time"
)

// Entry is the content of the slot.
type Entry struct {
	Source    string    `json:"source"`
	Note      string    `json:"note"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Slot is a single cell with last-writer-wins semantics.
// Writers never coordinate with each other; a later Set simply replaces
// whatever was stored before. The zero value is an empty slot.
type Slot struct {
	entry atomic.Pointer[Entry]
	now   func() time.Time
}

// New creates an empty Slot.
func New() *Slot {
	return &Slot{now: time.Now}
}

// Set replaces the slot content.
func (s *Slot) Set(source, note string) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	s.entry.Store(&Entry{Source: source, Note: note, UpdatedAt: now()})
}

// Get returns the current entry and whether the slot has ever been written.
func (s *Slot) Get() (Entry, bool) {
	e := s.entry.Load()
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// Note returns the current note, or "" when the slot is empty.
func (s *Slot) Note() string {
	e, _ := s.Get()
	return e.Note
}
