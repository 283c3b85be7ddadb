// Package buffer provides a thread-safe, line-oriented text buffer. It is the
// single mutable text store of a document and the only state the
// reconciliation engine writes to.
//
// The buffer package provides:
//
//   - Thread-safe read/write access via sync.RWMutex
//   - Line/column addressing (Point, PointRange) with byte columns
//   - Line ending normalization on every write
//   - Revision tracking; every mutation produces a new RevisionID
//   - Change listeners notified synchronously after each mutation
//   - Read-only snapshots for concurrent access
//
// Basic usage:
//
//	buf := buffer.NewBufferFromString("A\nB")
//
//	// Insert a line between A and B
//	_ = buf.Insert(buffer.Point{Line: 1, Column: 0}, "X\n")
//
//	// Remove it again
//	_ = buf.Remove(buffer.NewPointRange(
//	    buffer.Point{Line: 1, Column: 0},
//	    buffer.Point{Line: 2, Column: 0},
//	))
//
// Invariants:
//
// A buffer always holds at least one line, and no line contains a line
// terminator. Columns are byte offsets and must fall on a UTF-8 rune
// boundary.
//
// Thread Safety:
//
// All Buffer methods are thread-safe. Listeners run on the goroutine that
// performed the mutation, after the write lock has been released, so a
// listener may read the buffer but must not write to it.
package buffer
