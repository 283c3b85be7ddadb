package diff

import (
	"fmt"
	"strings"
)

// OpKind is the kind of an edit operation.
type OpKind uint8

const (
	// OpKeep leaves text in place.
	OpKeep OpKind = iota

	// OpInsert adds text.
	OpInsert

	// OpRemove deletes text.
	OpRemove
)

// String returns a human-readable representation of the kind.
func (k OpKind) String() string {
	switch k {
	case OpKeep:
		return "keep"
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Op is a single edit operation. Text may span several lines.
type Op struct {
	Kind OpKind
	Text string
}

// String returns a human-readable representation of the operation.
func (o Op) String() string {
	return fmt.Sprintf("%s(%q)", o.Kind, o.Text)
}

// Script is an ordered edit script.
type Script []Op

// Old reconstructs the text the script was computed from.
func (s Script) Old() string {
	var sb strings.Builder
	for _, op := range s {
		if op.Kind != OpInsert {
			sb.WriteString(op.Text)
		}
	}
	return sb.String()
}

// New reconstructs the text the script produces.
func (s Script) New() string {
	var sb strings.Builder
	for _, op := range s {
		if op.Kind != OpRemove {
			sb.WriteString(op.Text)
		}
	}
	return sb.String()
}

// IsNoop reports whether the script consists only of keeps.
func (s Script) IsNoop() bool {
	for _, op := range s {
		if op.Kind != OpKeep {
			return false
		}
	}
	return true
}

// Stats counts inserted and removed bytes.
func (s Script) Stats() (inserted, removed int) {
	for _, op := range s {
		switch op.Kind {
		case OpInsert:
			inserted += len(op.Text)
		case OpRemove:
			removed += len(op.Text)
		}
	}
	return inserted, removed
}

// String summarizes the script for logging.
func (s Script) String() string {
	ins, rem := s.Stats()
	return fmt.Sprintf("%d ops, +%d -%d", len(s), ins, rem)
}

// normalize drops empty operations, merges adjacent keeps and, between two
// keeps, gathers all removes into one remove followed by one insert.
func (s Script) normalize() Script {
	out := make(Script, 0, len(s))
	var rem, ins strings.Builder

	flush := func() {
		if rem.Len() > 0 {
			out = append(out, Op{Kind: OpRemove, Text: rem.String()})
			rem.Reset()
		}
		if ins.Len() > 0 {
			out = append(out, Op{Kind: OpInsert, Text: ins.String()})
			ins.Reset()
		}
	}

	for _, op := range s {
		if op.Text == "" {
			continue
		}
		switch op.Kind {
		case OpRemove:
			rem.WriteString(op.Text)
		case OpInsert:
			ins.WriteString(op.Text)
		default:
			flush()
			if n := len(out); n > 0 && out[n-1].Kind == OpKeep {
				out[n-1].Text += op.Text
			} else {
				out = append(out, op)
			}
		}
	}
	flush()

	return out
}
