package buffer

import "strings"

// Snapshot provides a read-only view of a buffer at a specific point in time.
// It is safe for concurrent access and will not change even if the original
// buffer is modified.
type Snapshot struct {
	lines      []string
	revisionID RevisionID
}

// Text returns the full snapshot content as a string.
func (s *Snapshot) Text() string {
	return strings.Join(s.lines, "\n")
}

// LineCount returns the number of lines.
func (s *Snapshot) LineCount() int {
	return len(s.lines)
}

// Line returns the text of a line, or "" if row is out of range.
func (s *Snapshot) Line(row int) string {
	if row < 0 || row >= len(s.lines) {
		return ""
	}
	return s.lines[row]
}

// LineLen returns the byte length of a line, or -1 if row is out of range.
func (s *Snapshot) LineLen(row int) int {
	if row < 0 || row >= len(s.lines) {
		return -1
	}
	return len(s.lines[row])
}

// Lines returns the snapshot's lines. The slice must not be modified.
func (s *Snapshot) Lines() []string {
	return s.lines
}

// Revision returns the revision ID of this snapshot.
func (s *Snapshot) Revision() RevisionID {
	return s.revisionID
}
