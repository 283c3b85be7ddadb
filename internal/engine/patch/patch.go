// Package patch replays edit scripts against a live text buffer.
//
// The Applier is the single write entry point of a document: keystrokes,
// embedded application edits and remote replication operations all mutate
// the buffer through it. It serializes every operation, so no two
// mutations ever interleave.
package patch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/appwiki/internal/engine/buffer"
	"github.com/dshills/appwiki/internal/engine/diff"
	"github.com/dshills/appwiki/internal/logging"
)

// ErrScriptMismatch indicates the buffer does not hold the text a script
// expects to find at its anchor.
var ErrScriptMismatch = errors.New("script does not match buffer")

// Buffer is the mutation API the Applier relies on.
type Buffer interface {
	LineCount() int
	Line(row int) string
	TextRange(r buffer.PointRange) (string, error)
	Insert(p buffer.Point, text string) error
	Remove(r buffer.PointRange) error
}

// Result describes the outcome of a replay.
type Result struct {
	// Cursor is the position after the last replayed operation.
	Cursor buffer.Point

	// Inserted and Removed count bytes written and deleted.
	Inserted int
	Removed  int

	// Ops is the number of mutating operations performed.
	Ops int
}

// Changed reports whether the buffer was mutated.
func (r Result) Changed() bool {
	return r.Ops > 0
}

// Applier serializes all buffer mutation.
type Applier struct {
	mu     sync.Mutex
	buf    Buffer
	logger *logging.Logger
}

// Option configures an Applier.
type Option func(*Applier)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Applier) {
		a.logger = l
	}
}

// NewApplier creates an Applier writing to buf.
func NewApplier(buf Buffer, opts ...Option) *Applier {
	a := &Applier{buf: buf}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrNull(a.logger).WithComponent("patch")
	return a
}

// Do runs fn with exclusive write access to the buffer. Reads made through
// the Tx observe exactly the state the Tx's writes apply to.
func (a *Applier) Do(fn func(tx *Tx) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(&Tx{buf: a.buf, logger: a.logger})
}

// Apply replays script anchored at anchor. See Tx.Apply.
func (a *Applier) Apply(anchor buffer.Point, script diff.Script) (Result, error) {
	var res Result
	err := a.Do(func(tx *Tx) error {
		var err error
		res, err = tx.Apply(anchor, script)
		return err
	})
	return res, err
}

// InsertEmptyBody fills an empty block. See Tx.InsertEmptyBody.
func (a *Applier) InsertEmptyBody(anchorRow int, text string) (Result, error) {
	var res Result
	err := a.Do(func(tx *Tx) error {
		var err error
		res, err = tx.InsertEmptyBody(anchorRow, text)
		return err
	})
	return res, err
}

// Insert inserts text at p.
func (a *Applier) Insert(p buffer.Point, text string) error {
	return a.Do(func(tx *Tx) error {
		return tx.Insert(p, text)
	})
}

// Remove deletes the text covered by r.
func (a *Applier) Remove(r buffer.PointRange) error {
	return a.Do(func(tx *Tx) error {
		return tx.Remove(r)
	})
}

// Tx is exclusive access to the buffer for the duration of Applier.Do.
// It must not be retained after Do returns.
type Tx struct {
	buf    Buffer
	logger *logging.Logger
}

// Buffer returns the underlying buffer for reads.
func (tx *Tx) Buffer() Buffer {
	return tx.buf
}

// Insert inserts text at p.
func (tx *Tx) Insert(p buffer.Point, text string) error {
	return tx.buf.Insert(p, text)
}

// Remove deletes the text covered by r.
func (tx *Tx) Remove(r buffer.PointRange) error {
	return tx.buf.Remove(r)
}

// Apply replays script against the buffer starting at anchor.
//
// A keep advances the cursor over its text. A remove deletes the text
// between the cursor and the cursor advanced over the removed text; the
// cursor stays put. An insert writes its text at the cursor and advances
// past it. Operations are applied strictly in script order.
//
// Before mutating anything Apply checks that the buffer holds the script's
// old text at anchor and fails with ErrScriptMismatch if it does not.
func (tx *Tx) Apply(anchor buffer.Point, script diff.Script) (Result, error) {
	old := script.Old()
	span := buffer.NewPointRange(anchor, anchor.Advance(old))
	current, err := tx.buf.TextRange(span)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrScriptMismatch, err)
	}
	if current != old {
		return Result{}, fmt.Errorf("%w: expected %q at %s, found %q", ErrScriptMismatch, old, anchor, current)
	}

	res := Result{Cursor: anchor}
	for _, op := range script {
		switch op.Kind {
		case diff.OpKeep:
			res.Cursor = res.Cursor.Advance(op.Text)

		case diff.OpRemove:
			r := buffer.NewPointRange(res.Cursor, res.Cursor.Advance(op.Text))
			if err := tx.buf.Remove(r); err != nil {
				return res, fmt.Errorf("remove %s: %w", r, err)
			}
			res.Removed += len(op.Text)
			res.Ops++

		case diff.OpInsert:
			if err := tx.buf.Insert(res.Cursor, op.Text); err != nil {
				return res, fmt.Errorf("insert at %s: %w", res.Cursor, err)
			}
			res.Cursor = res.Cursor.Advance(op.Text)
			res.Inserted += len(op.Text)
			res.Ops++
		}
	}

	tx.logger.Debug("applied %v at %s", script, anchor)
	return res, nil
}

// InsertEmptyBody fills a block whose delimiters are adjacent. It opens a
// fresh line directly after anchorRow and writes text there, skipping the
// diff path: there is no prior content to compare against.
//
// If anchorRow is the last row of the buffer the fresh line is appended.
func (tx *Tx) InsertEmptyBody(anchorRow int, text string) (Result, error) {
	if text == "" {
		return Result{Cursor: buffer.Point{Line: anchorRow + 1}}, nil
	}

	count := tx.buf.LineCount()
	if anchorRow < 0 || anchorRow >= count {
		return Result{}, fmt.Errorf("%w: anchor row %d of %d", buffer.ErrPointOutOfRange, anchorRow, count)
	}

	at := buffer.Point{Line: anchorRow + 1}
	if anchorRow == count-1 {
		end := buffer.Point{Line: anchorRow, Column: len(tx.buf.Line(anchorRow))}
		if err := tx.buf.Insert(end, "\n"); err != nil {
			return Result{}, err
		}
	} else if err := tx.buf.Insert(at, "\n"); err != nil {
		return Result{}, err
	}

	if err := tx.buf.Insert(at, text); err != nil {
		return Result{}, err
	}

	tx.logger.Debug("filled empty body after row %d with %d bytes", anchorRow, len(text))
	return Result{
		Cursor:   at.Advance(text),
		Inserted: len(text) + 1,
		Ops:      2,
	}, nil
}
