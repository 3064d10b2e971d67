// Package taskid provides a structured, type-safe representation for task
// identifiers, based on the canonical format `run.<name>` for singular runs
// and `run.<name>[i]` for matrix variants.
//
// This package enforces the identifier schema and centralizes all
// formatting and parsing logic.
package taskid

import (
	"fmt"
	"regexp"
	"strconv"
)

// idRegex parses a canonical identifier, e.g. `run.baseline` or `run.sweep[3]`.
var idRegex = regexp.MustCompile(`^run\.([a-zA-Z][a-zA-Z0-9_-]*)(?:\[(\d+)\])?$`)

// nameRegex matches a bare run name: a letter followed by letters, digits,
// underscores or hyphens.
var nameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidName reports whether s is usable as a run name.
func ValidName(s string) bool {
	return nameRegex.MatchString(s)
}

// ID is the structured representation of a unique task identifier. A task
// is one executable instance of a run; matrix runs produce one task per
// variant, told apart by Index.
type ID struct {
	Run   string
	Index int // -1 indicates a singular run with no variant index.
}

// New creates an identifier for a singular run.
func New(run string) ID {
	return ID{Run: run, Index: -1}
}

// NewVariant creates an identifier for one variant of a matrix run.
func NewVariant(run string, index int) ID {
	return ID{Run: run, Index: index}
}

// HasIndex returns true if the identifier names a matrix variant.
func (id ID) HasIndex() bool {
	return id.Index != -1
}

// String serializes the ID into its canonical string representation.
func (id ID) String() string {
	if id.Index == -1 {
		return "run." + id.Run
	}
	return fmt.Sprintf("run.%s[%d]", id.Run, id.Index)
}

// Parse creates an ID by parsing its canonical string representation.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return ID{}, fmt.Errorf("identifier cannot be empty")
	}

	matches := idRegex.FindStringSubmatch(raw)
	if matches == nil {
		return ID{}, fmt.Errorf("invalid task identifier format: %q", raw)
	}

	id := New(matches[1])
	if matches[2] != "" {
		index, err := strconv.Atoi(matches[2])
		if err != nil {
			// Unreachable due to regex `\d+`
			return ID{}, fmt.Errorf("internal error parsing index: %w", err)
		}
		id.Index = index
	}
	return id, nil
}
