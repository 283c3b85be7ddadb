package buffer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// Errors returned by buffer operations.
var (
	ErrPointOutOfRange = errors.New("point out of range")
	ErrRangeInvalid    = errors.New("invalid range")
)

// Buffer is an ordered, mutable sequence of lines.
// All methods are thread-safe.
type Buffer struct {
	mu         sync.RWMutex
	lines      []string
	revisionID RevisionID
	tabWidth   int
	lineEnding string

	lmu       sync.Mutex
	listeners []listenerEntry
	nextID    uint64
}

// NewBuffer creates a new empty buffer holding a single empty line.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		lines:      []string{""},
		revisionID: NewRevisionID(),
		tabWidth:   4,
		lineEnding: "\n",
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NewBufferFromString creates a buffer with initial content. Lines are
// held without terminators; the style of the first line ending in s is
// kept for LineEnding.
func NewBufferFromString(s string, opts ...Option) *Buffer {
	b := NewBuffer(opts...)
	b.lines = strings.Split(NormalizeLineEndings(s), "\n")
	b.lineEnding = DetectLineEnding(s)
	return b
}

// NewBufferFromReader creates a buffer from an io.Reader.
func NewBufferFromReader(r io.Reader, opts ...Option) (*Buffer, error) {
	// Read everything first so CRLF pairs split across reads normalize correctly.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewBufferFromString(string(data), opts...), nil
}

// Read Operations

// Text returns the full buffer content as a string.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return strings.Join(b.lines, "\n")
}

// LineCount returns the number of lines. It is never less than one.
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Line returns the text of a line without its terminator.
// Rows outside the buffer yield the empty string.
func (b *Buffer) Line(row int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if row < 0 || row >= len(b.lines) {
		return ""
	}
	return b.lines[row]
}

// LineLen returns the byte length of a line, or -1 if row is out of range.
func (b *Buffer) LineLen(row int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if row < 0 || row >= len(b.lines) {
		return -1
	}
	return len(b.lines[row])
}

// Lines returns a copy of all lines.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// TextRange returns the text covered by r, joining rows with "\n".
func (b *Buffer) TextRange(r PointRange) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkRange(r); err != nil {
		return "", err
	}
	return b.textRange(r), nil
}

func (b *Buffer) textRange(r PointRange) string {
	if r.IsSingleLine() {
		return b.lines[r.Start.Line][r.Start.Column:r.End.Column]
	}

	var sb strings.Builder
	sb.WriteString(b.lines[r.Start.Line][r.Start.Column:])
	for row := r.Start.Line + 1; row < r.End.Line; row++ {
		sb.WriteByte('\n')
		sb.WriteString(b.lines[row])
	}
	sb.WriteByte('\n')
	sb.WriteString(b.lines[r.End.Line][:r.End.Column])
	return sb.String()
}

// ValidPoint reports whether p addresses a position inside the buffer.
func (b *Buffer) ValidPoint(p Point) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.checkPoint(p) == nil
}

// End returns the point just past the last character of the buffer.
func (b *Buffer) End() Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	last := len(b.lines) - 1
	return Point{Line: last, Column: len(b.lines[last])}
}

func (b *Buffer) checkPoint(p Point) error {
	if p.Line < 0 || p.Line >= len(b.lines) {
		return fmt.Errorf("%w: row %d of %d", ErrPointOutOfRange, p.Line, len(b.lines))
	}
	line := b.lines[p.Line]
	if p.Column < 0 || p.Column > len(line) {
		return fmt.Errorf("%w: column %d of %d on row %d", ErrPointOutOfRange, p.Column, len(line), p.Line)
	}
	if p.Column < len(line) && !utf8.RuneStart(line[p.Column]) {
		return fmt.Errorf("%w: column %d splits a rune on row %d", ErrPointOutOfRange, p.Column, p.Line)
	}
	return nil
}

func (b *Buffer) checkRange(r PointRange) error {
	if !r.IsValid() {
		return fmt.Errorf("%w: %s", ErrRangeInvalid, r)
	}
	if err := b.checkPoint(r.Start); err != nil {
		return err
	}
	return b.checkPoint(r.End)
}

// Write Operations

// Insert inserts text at p. Line endings in text are normalized to LF.
func (b *Buffer) Insert(p Point, text string) error {
	text = NormalizeLineEndings(text)
	if text == "" {
		return nil
	}

	b.mu.Lock()
	if err := b.checkPoint(p); err != nil {
		b.mu.Unlock()
		return err
	}

	line := b.lines[p.Line]
	head, tail := line[:p.Column], line[p.Column:]
	segs := strings.Split(text, "\n")

	if len(segs) == 1 {
		b.lines[p.Line] = head + text + tail
	} else {
		repl := make([]string, len(segs))
		repl[0] = head + segs[0]
		copy(repl[1:], segs[1:])
		repl[len(repl)-1] += tail
		b.lines = splice(b.lines, p.Line, p.Line+1, repl)
	}

	b.revisionID = NewRevisionID()
	change := Change{
		Type:     ChangeInsert,
		Range:    PointRange{Start: p, End: p.Advance(text)},
		Text:     text,
		Revision: b.revisionID,
	}
	b.mu.Unlock()

	b.notify(change)
	return nil
}

// Remove deletes the text covered by r.
func (b *Buffer) Remove(r PointRange) error {
	b.mu.Lock()
	if err := b.checkRange(r); err != nil {
		b.mu.Unlock()
		return err
	}
	if r.IsEmpty() {
		b.mu.Unlock()
		return nil
	}

	removed := b.textRange(r)
	joined := b.lines[r.Start.Line][:r.Start.Column] + b.lines[r.End.Line][r.End.Column:]
	b.lines = splice(b.lines, r.Start.Line, r.End.Line+1, []string{joined})

	b.revisionID = NewRevisionID()
	change := Change{
		Type:     ChangeRemove,
		Range:    r,
		Text:     removed,
		Revision: b.revisionID,
	}
	b.mu.Unlock()

	b.notify(change)
	return nil
}

// splice replaces lines[from:to] with repl.
func splice(lines []string, from, to int, repl []string) []string {
	out := make([]string, 0, len(lines)-(to-from)+len(repl))
	out = append(out, lines[:from]...)
	out = append(out, repl...)
	return append(out, lines[to:]...)
}

// Buffer State

// Revision returns the current revision ID.
func (b *Buffer) Revision() RevisionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revisionID
}

// IsEmpty returns true if the buffer holds a single empty line.
func (b *Buffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines) == 1 && b.lines[0] == ""
}

// LineEnding returns the terminator the buffer's text was loaded with:
// "\n", "\r\n" or "\r".
func (b *Buffer) LineEnding() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineEnding
}

// TabWidth returns the buffer's tab width.
func (b *Buffer) TabWidth() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tabWidth
}

// Snapshot returns a read-only copy of the current buffer state.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lines := make([]string, len(b.lines))
	copy(lines, b.lines)
	return &Snapshot{lines: lines, revisionID: b.revisionID}
}

// Listeners

// Subscribe registers fn to be called after every mutation.
// The returned function removes the listener; calling it twice is harmless.
func (b *Buffer) Subscribe(fn Listener) (unsubscribe func()) {
	id := b.addListener(fn)
	var once sync.Once
	return func() {
		once.Do(func() { b.removeListener(id) })
	}
}

func (b *Buffer) addListener(fn Listener) uint64 {
	b.lmu.Lock()
	defer b.lmu.Unlock()
	b.nextID++
	b.listeners = append(b.listeners, listenerEntry{id: b.nextID, fn: fn})
	return b.nextID
}

func (b *Buffer) removeListener(id uint64) {
	b.lmu.Lock()
	defer b.lmu.Unlock()
	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

func (b *Buffer) notify(c Change) {
	b.lmu.Lock()
	listeners := make([]listenerEntry, len(b.listeners))
	copy(listeners, b.listeners)
	b.lmu.Unlock()

	for _, l := range listeners {
		l.fn(c)
	}
}
