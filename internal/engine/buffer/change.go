package buffer

import "fmt"

// ChangeType categorizes the type of change made to the buffer.
type ChangeType uint8

const (
	ChangeInsert ChangeType = iota // Text was inserted
	ChangeRemove                   // Text was removed
)

// String returns a string representation of the change type.
func (c ChangeType) String() string {
	switch c {
	case ChangeInsert:
		return "insert"
	case ChangeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Change describes a single applied mutation.
//
// For an insert, Range spans the inserted text in the new buffer state.
// For a remove, Range spans the removed text in the old buffer state.
type Change struct {
	Type     ChangeType
	Range    PointRange
	Text     string
	Revision RevisionID // revision produced by this change
}

// String returns a human-readable representation of the change.
func (c Change) String() string {
	return fmt.Sprintf("%s%s %q", c.Type, c.Range, c.Text)
}

// Listener observes buffer changes.
type Listener func(Change)

type listenerEntry struct {
	id uint64
	fn Listener
}
