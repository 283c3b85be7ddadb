package buffer

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Point represents a line and column position.
// Both Line and Column are 0-indexed.
// Column is measured in bytes from the start of the line.
type Point struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// String returns a human-readable representation of the point.
func (p Point) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Column)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Point) Compare(other Point) int {
	if p.Line < other.Line {
		return -1
	}
	if p.Line > other.Line {
		return 1
	}
	if p.Column < other.Column {
		return -1
	}
	if p.Column > other.Column {
		return 1
	}
	return 0
}

// Advance returns the point reached by walking over text starting at p.
// Crossing n newlines moves n rows down and sets the column to the length
// of the final segment; text without newlines only moves the column.
func (p Point) Advance(text string) Point {
	n := strings.Count(text, "\n")
	if n == 0 {
		return Point{Line: p.Line, Column: p.Column + len(text)}
	}
	last := text[strings.LastIndexByte(text, '\n')+1:]
	return Point{Line: p.Line + n, Column: len(last)}
}

// RevisionID uniquely identifies a buffer revision.
// Each modification to the buffer creates a new revision.
type RevisionID uint64

// revisionCounter is used to generate unique revision IDs.
var revisionCounter uint64

// NewRevisionID generates a new unique revision ID.
// This is thread-safe using atomic operations.
func NewRevisionID() RevisionID {
	return RevisionID(atomic.AddUint64(&revisionCounter, 1))
}
