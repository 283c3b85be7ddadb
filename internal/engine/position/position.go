// Package position converts the 1-based line spans a parser attaches to
// syntax-tree nodes into 0-based buffer coordinates.
//
// A span covers a fenced block including both delimiter lines:
//
//	row 3  ```kpt        <- Start.Line == 4
//	row 4  keeps: []     <- first content row
//	row 5  ```           <- End.Line == 6
//
// The anchor of a span is the row of its opening delimiter. The content
// range runs from the row after the anchor to the end of the last line
// before the closing delimiter. A span whose delimiters are adjacent
// (End.Line - Start.Line == 1) has an empty body and no content range.
package position

import (
	"errors"
	"fmt"

	"github.com/dshills/appwiki/internal/engine/buffer"
)

var (
	// ErrStaleSpan indicates a span references rows the buffer no longer has.
	ErrStaleSpan = errors.New("stale node span")

	// ErrInvalidSpan indicates a span that cannot describe any node.
	ErrInvalidSpan = errors.New("invalid node span")
)

// Point is a 1-based source location as produced by the parser.
type Point struct {
	Line   int `json:"line"`
	Column int `json:"column,omitempty"`
}

// NodeSpan is the position metadata attached to a syntax-tree node.
type NodeSpan struct {
	Start Point `json:"start"`
	End   Point `json:"end"`

	// Indent is the indentation width of the node's block, supplied by
	// the renderer. Replacement text is re-indented to this width.
	Indent int `json:"indent,omitempty"`
}

// String returns a human-readable representation of the span.
func (s NodeSpan) String() string {
	return fmt.Sprintf("L%d-L%d", s.Start.Line, s.End.Line)
}

// AnchorRow returns the 0-based row of the opening delimiter.
func (s NodeSpan) AnchorRow() int {
	return s.Start.Line - 1
}

// IsEmptyBody reports whether the span has no content lines between its
// delimiters.
func (s NodeSpan) IsEmptyBody() bool {
	return s.End.Line-s.Start.Line == 1
}

// Validate checks the span's shape without consulting a buffer.
func (s NodeSpan) Validate() error {
	if s.Start.Line < 1 {
		return fmt.Errorf("%w: start line %d", ErrInvalidSpan, s.Start.Line)
	}
	if s.End.Line-s.Start.Line < 1 {
		return fmt.Errorf("%w: end line %d not after start line %d", ErrInvalidSpan, s.End.Line, s.Start.Line)
	}
	if s.Indent < 0 {
		return fmt.Errorf("%w: negative indent %d", ErrInvalidSpan, s.Indent)
	}
	return nil
}

// LineSource is the read access the index needs from a buffer.
type LineSource interface {
	LineCount() int
	LineLen(row int) int
}

// Resolved is a span translated to buffer coordinates.
type Resolved struct {
	// Anchor is the start of the opening delimiter row.
	Anchor buffer.Point

	// Content spans the body. It is the zero range when Empty is set.
	Content buffer.PointRange

	// Empty is set when the span has no body.
	Empty bool
}

// ToRange converts span into buffer coordinates using lineLen to measure
// the last content row. It performs no bounds checking and no clamping;
// use Resolve for spans that may be stale.
func ToRange(span NodeSpan, lineLen func(row int) int) Resolved {
	anchor := buffer.Point{Line: span.AnchorRow()}
	if span.IsEmptyBody() {
		return Resolved{Anchor: anchor, Empty: true}
	}

	last := span.End.Line - 2
	return Resolved{
		Anchor: anchor,
		Content: buffer.PointRange{
			Start: buffer.Point{Line: anchor.Line + 1},
			End:   buffer.Point{Line: last, Column: lineLen(last)},
		},
	}
}

// Resolve validates span against the current state of src and converts it.
// Any row outside the buffer yields ErrStaleSpan; the caller must re-render
// and retry with a fresh span.
func Resolve(span NodeSpan, src LineSource) (Resolved, error) {
	if err := span.Validate(); err != nil {
		return Resolved{}, err
	}

	count := src.LineCount()
	if span.AnchorRow() >= count {
		return Resolved{}, fmt.Errorf("%w: anchor row %d beyond %d lines", ErrStaleSpan, span.AnchorRow(), count)
	}
	if !span.IsEmptyBody() && span.End.Line-2 >= count {
		return Resolved{}, fmt.Errorf("%w: content row %d beyond %d lines", ErrStaleSpan, span.End.Line-2, count)
	}

	return ToRange(span, src.LineLen), nil
}
