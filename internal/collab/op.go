package collab

import (
	"fmt"

	"github.com/dshills/appwiki/internal/engine/buffer"
)

// OpKind is the kind of a replicated operation.
type OpKind string

const (
	OpInsert OpKind = "insert"
	OpRemove OpKind = "remove"
)

// Op is one replicated buffer mutation. It is the JSON frame exchanged
// over a channel.
type Op struct {
	Site string       `json:"site"`
	Seq  uint64       `json:"seq"`
	Kind OpKind       `json:"kind"`
	Pos  buffer.Point `json:"pos"`
	End  buffer.Point `json:"end,omitzero"`
	Text string       `json:"text,omitempty"`
}

// String returns a short description for logs.
func (o Op) String() string {
	switch o.Kind {
	case OpRemove:
		return fmt.Sprintf("%s#%d remove %s-%s", o.Site, o.Seq, o.Pos, o.End)
	default:
		return fmt.Sprintf("%s#%d insert %d bytes at %s", o.Site, o.Seq, len(o.Text), o.Pos)
	}
}

// opFromChange encodes a local buffer change.
func opFromChange(site string, seq uint64, c buffer.Change) (Op, bool) {
	switch c.Type {
	case buffer.ChangeInsert:
		return Op{Site: site, Seq: seq, Kind: OpInsert, Pos: c.Range.Start, Text: c.Text}, true
	case buffer.ChangeRemove:
		return Op{Site: site, Seq: seq, Kind: OpRemove, Pos: c.Range.Start, End: c.Range.End, Text: c.Text}, true
	}
	return Op{}, false
}
