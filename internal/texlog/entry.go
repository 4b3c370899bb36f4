// Package texlog parses TeX engine and BibTeX diagnostic logs into structured entries.
package texlog

import (
	"fmt"
	"path/filepath"
	"strings"
)

// EntryType classifies a diagnostic.
type EntryType int

const (
	Error EntryType = iota
	Warning
	Box
)

func (t EntryType) String() string {
	switch t {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Box:
		return "box"
	default:
		return "unknown"
	}
}

// LogEntry is one diagnostic taken from a log. Line is always positive.
type LogEntry struct {
	Type    EntryType
	File    string
	Line    int
	Message string
}

// Format renders the entry as "<file> (line <n>): <message>". When File lies
// inside baseDir it is shown relative to it.
func (e LogEntry) Format(baseDir string) string {
	return fmt.Sprintf("%s (line %d): %s", displayPath(e.File, baseDir), e.Line, e.Message)
}

// LogEntries keeps entries in order of appearance.
type LogEntries []LogEntry

// Count returns the number of entries of type t.
func (es LogEntries) Count(t EntryType) int {
	n := 0
	for _, e := range es {
		if e.Type == t {
			n++
		}
	}
	return n
}

func displayPath(file, baseDir string) string {
	if baseDir == "" || !filepath.IsAbs(file) {
		return file
	}
	rel, err := filepath.Rel(baseDir, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return file
	}
	return rel
}
