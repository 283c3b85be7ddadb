package collab

import (
	"context"
	"errors"
	"net/url"
)

// ErrChannelClosed is returned by channel operations after Close or after
// the peer went away.
var ErrChannelClosed = errors.New("channel closed")

// ChannelPrefix namespaces room channels.
const ChannelPrefix = "appwiki/"

// ChannelName returns the channel a room's sites share.
func ChannelName(room string) string {
	return ChannelPrefix + url.PathEscape(room)
}

// Channel carries Ops between the sites of one room.
type Channel interface {
	// Send delivers op to every other site on the channel.
	Send(ctx context.Context, op Op) error

	// Recv blocks for the next Op from another site.
	Recv(ctx context.Context) (Op, error)

	// Close leaves the channel. It unblocks pending Recv calls.
	Close() error
}

// Transport opens channels by name.
type Transport interface {
	Open(ctx context.Context, name string) (Channel, error)
}
