package collab

import (
	"context"
	"sync"
)

// defaultInboxSize bounds the Ops queued for a memory channel reader.
const defaultInboxSize = 256

// MemoryTransport connects channels within one process.
type MemoryTransport struct {
	mu    sync.Mutex
	rooms map[string]map[*memoryChannel]struct{}
}

// NewMemoryTransport creates an empty in-process transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{rooms: make(map[string]map[*memoryChannel]struct{})}
}

// Open joins the named channel.
func (t *MemoryTransport) Open(ctx context.Context, name string) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &memoryChannel{
		t:      t,
		name:   name,
		inbox:  make(chan Op, defaultInboxSize),
		closed: make(chan struct{}),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	room := t.rooms[name]
	if room == nil {
		room = make(map[*memoryChannel]struct{})
		t.rooms[name] = room
	}
	room[c] = struct{}{}
	return c, nil
}

// Members returns how many channels are open under name.
func (t *MemoryTransport) Members(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rooms[name])
}

// Disconnect closes every channel open under name, as a relay restart would.
func (t *MemoryTransport) Disconnect(name string) {
	t.mu.Lock()
	var members []*memoryChannel
	for c := range t.rooms[name] {
		members = append(members, c)
	}
	t.mu.Unlock()

	for _, c := range members {
		c.Close()
	}
}

func (t *MemoryTransport) peers(c *memoryChannel) []*memoryChannel {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*memoryChannel
	for p := range t.rooms[c.name] {
		if p != c {
			out = append(out, p)
		}
	}
	return out
}

func (t *MemoryTransport) leave(c *memoryChannel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room := t.rooms[c.name]
	delete(room, c)
	if len(room) == 0 {
		delete(t.rooms, c.name)
	}
}

type memoryChannel struct {
	t      *MemoryTransport
	name   string
	inbox  chan Op
	closed chan struct{}
	once   sync.Once
}

func (c *memoryChannel) Send(ctx context.Context, op Op) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	default:
	}

	for _, p := range c.t.peers(c) {
		select {
		case p.inbox <- op:
		case <-p.closed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (c *memoryChannel) Recv(ctx context.Context) (Op, error) {
	select {
	case op := <-c.inbox:
		return op, nil
	case <-c.closed:
		return Op{}, ErrChannelClosed
	case <-ctx.Done():
		return Op{}, ctx.Err()
	}
}

func (c *memoryChannel) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.t.leave(c)
	})
	return nil
}
