// Package terminal implements the "about me" terminal widget: a fixed table
// of command outputs and a per-visitor history of what was typed.
package terminal

import (
	"strings"

	"golang.org/x/text/cases"
)

// Entry is one command and the output it produced.
type Entry struct {
	Command string `json:"command"`
	Output  Output `json:"output"`
}

// Result describes what Execute did to the history.
type Result int

const (
	Ignored Result = iota
	Appended
	Cleared
	Unknown
)

// Normalize trims and case-folds raw input.
func Normalize(input string) string {
	return cases.Fold().String(strings.TrimSpace(input))
}

// History is the list of entries shown in one terminal. It is not safe for
// concurrent use; Sessions serialises access.
type History struct {
	commands Commands
	entries  []Entry
}

// NewHistory starts a history, optionally seeded with greeting entries.
func NewHistory(commands Commands, seed ...Entry) *History {
	h := &History{commands: commands}
	h.entries = append(h.entries, seed...)
	return h
}

// Execute runs one line of input. Empty input is ignored and clear empties
// the history; every other input appends exactly one entry.
func (h *History) Execute(input string) (Entry, Result) {
	cmd := Normalize(input)
	if cmd == "" {
		return Entry{}, Ignored
	}
	if cmd == CmdClear {
		h.entries = nil
		return Entry{Command: cmd}, Cleared
	}

	entry := Entry{Command: cmd}
	result := Appended
	if out, ok := h.commands[cmd]; ok {
		entry.Output = out
	} else {
		entry.Output = text(NotFound)
		result = Unknown
	}
	h.entries = append(h.entries, entry)
	return entry, result
}

// Entries returns a copy of the history.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	return len(h.entries)
}
