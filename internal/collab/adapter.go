package collab

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/appwiki/internal/engine/buffer"
	"github.com/dshills/appwiki/internal/engine/patch"
	"github.com/dshills/appwiki/internal/logging"
)

var (
	// ErrAlreadyBound is returned by Bind on a bound adapter.
	ErrAlreadyBound = errors.New("adapter already bound")

	// ErrNotBound is returned by operations that need a bound adapter.
	ErrNotBound = errors.New("adapter not bound")
)

const defaultReconnectDelay = 2 * time.Second

// FlushTimeout bounds how long Unbind spends sending queued local ops.
const FlushTimeout = 2 * time.Second

// Source is the buffer the adapter observes.
type Source interface {
	Subscribe(fn buffer.Listener) (unsubscribe func())
}

// Adapter replicates one buffer over a Transport.
type Adapter struct {
	applier   *patch.Applier
	source    Source
	transport Transport
	logger    *logging.Logger

	site           string
	reconnect      bool
	reconnectDelay time.Duration

	seq atomic.Uint64

	// remote is set while a remote op is being written, so the buffer
	// listener can tell it apart from a local edit. Writes are serialized
	// by the applier, which makes the flag exact.
	remote atomic.Bool

	mu      sync.Mutex
	session *session
}

type session struct {
	room        string
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
	unsubOnce   sync.Once

	// pending never blocks the buffer listener: the run loop may itself be
	// waiting on the applier the listener is called under.
	mu      sync.Mutex
	pending []Op
	ended   bool
	wake    chan struct{}
}

func (s *session) push(op Op) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, op)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// requeue puts ops back in front of anything queued since they were
// drained.
func (s *session) requeue(ops []Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(ops, s.pending...)
}

// stopListening detaches the buffer listener. It may be called more than
// once.
func (s *session) stopListening() {
	s.unsubOnce.Do(s.unsubscribe)
}

// end stops queuing local ops for a session whose channel is gone for
// good and returns how many queued ops were dropped.
func (s *session) end() int {
	s.stopListening()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
	n := len(s.pending)
	s.pending = nil
	return n
}

func (s *session) drain() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.pending
	s.pending = nil
	return ops
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// WithSiteID overrides the random site identifier.
func WithSiteID(id string) Option {
	return func(a *Adapter) {
		a.site = id
	}
}

// WithReconnect makes a bound adapter redial its channel after the
// connection drops, waiting delay between attempts.
func WithReconnect(delay time.Duration) Option {
	return func(a *Adapter) {
		a.reconnect = true
		if delay > 0 {
			a.reconnectDelay = delay
		}
	}
}

// NewAdapter creates an unbound adapter for the buffer behind applier.
func NewAdapter(applier *patch.Applier, source Source, transport Transport, opts ...Option) *Adapter {
	a := &Adapter{
		applier:        applier,
		source:         source,
		transport:      transport,
		site:           uuid.NewString(),
		reconnectDelay: defaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrNull(a.logger).WithComponent("collab").WithField("site", a.site)
	return a
}

// Site returns this adapter's site identifier.
func (a *Adapter) Site() string {
	return a.site
}

// Room returns the bound room.
func (a *Adapter) Room() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return "", ErrNotBound
	}
	return a.session.room, nil
}

// Bound reports whether the adapter is bound.
func (a *Adapter) Bound() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil
}

// Bind opens the room's channel and starts replicating. The binding lives
// until Unbind or until ctx is cancelled. Without reconnect a lost channel
// ends replication; the adapter stays bound until Unbind.
func (a *Adapter) Bind(ctx context.Context, room string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		return ErrAlreadyBound
	}

	name := ChannelName(room)
	ch, err := a.transport.Open(ctx, name)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		room:   room,
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
		wake:   make(chan struct{}, 1),
	}
	s.unsubscribe = a.source.Subscribe(func(c buffer.Change) {
		a.local(s, c)
	})
	a.session = s

	go a.run(s, ch)
	a.logger.Info("bound to %s", name)
	return nil
}

// Unbind stops replicating and leaves the channel. Local ops still queued
// are sent first. When Unbind returns no further remote op will be
// applied. Unbinding an unbound adapter is a
// no-op.
func (a *Adapter) Unbind() error {
	a.mu.Lock()
	s := a.session
	a.session = nil
	a.mu.Unlock()
	if s == nil {
		return nil
	}

	s.stopListening()
	s.cancel()
	<-s.done
	a.logger.Info("unbound from %s", ChannelName(s.room))
	return nil
}

// local queues a local buffer change for sending.
func (a *Adapter) local(s *session, c buffer.Change) {
	if a.remote.Load() {
		return
	}
	op, ok := opFromChange(a.site, a.seq.Add(1), c)
	if !ok {
		return
	}
	s.push(op)
}

// run owns the channel for the life of the session.
func (a *Adapter) run(s *session, ch Channel) {
	defer close(s.done)

	incoming, errs := a.read(s.ctx, ch)
	for {
		select {
		case <-s.ctx.Done():
			a.flush(s, ch)
			ch.Close()
			return

		case <-s.wake:
			ops := s.drain()
			for i, op := range ops {
				if err := ch.Send(s.ctx, op); err != nil {
					if s.ctx.Err() != nil {
						// Unbinding; flush sends the rest.
						s.requeue(ops[i:])
						break
					}
					a.logger.Warn("dropped %v: %v", op, err)
				}
			}

		case op := <-incoming:
			a.applyRemote(s.ctx, op)

		case err := <-errs:
			ch.Close()
			if s.ctx.Err() != nil {
				return
			}
			if !a.reconnect {
				a.logger.Error("channel lost: %v", err)
				if n := s.end(); n > 0 {
					a.logger.Warn("dropped %d queued ops", n)
				}
				return
			}
			a.logger.Warn("channel lost, reconnecting: %v", err)
			if ch = a.redial(s); ch == nil {
				return
			}
			incoming, errs = a.read(s.ctx, ch)
		}
	}
}

// flush sends the local ops still queued when the session ends.
func (a *Adapter) flush(s *session, ch Channel) {
	ops := s.drain()
	if len(ops) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), FlushTimeout)
	defer cancel()
	for i, op := range ops {
		if err := ch.Send(ctx, op); err != nil {
			a.logger.Warn("dropped %d queued ops: %v", len(ops)-i, err)
			return
		}
	}
}

// read pumps ch into the returned channels until Recv fails.
func (a *Adapter) read(ctx context.Context, ch Channel) (<-chan Op, <-chan error) {
	incoming := make(chan Op)
	errs := make(chan error, 1)
	go func() {
		for {
			op, err := ch.Recv(ctx)
			if err != nil {
				errs <- err
				return
			}
			select {
			case incoming <- op:
			case <-ctx.Done():
				return
			}
		}
	}()
	return incoming, errs
}

// redial reopens the session's channel, retrying until it succeeds or the
// session ends.
func (a *Adapter) redial(s *session) Channel {
	name := ChannelName(s.room)
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case <-time.After(a.reconnectDelay):
		}

		ch, err := a.transport.Open(s.ctx, name)
		if err == nil {
			a.logger.Info("reconnected to %s", name)
			return ch
		}
		a.logger.Warn("reconnect to %s failed: %v", name, err)
	}
}

// applyRemote writes op through the applier with local echo suppressed.
func (a *Adapter) applyRemote(ctx context.Context, op Op) {
	if op.Site == a.site {
		return
	}

	err := a.applier.Do(func(tx *patch.Tx) error {
		if ctx.Err() != nil {
			return nil
		}
		a.remote.Store(true)
		defer a.remote.Store(false)

		switch op.Kind {
		case OpInsert:
			return tx.Insert(op.Pos, op.Text)
		case OpRemove:
			return tx.Remove(buffer.NewPointRange(op.Pos, op.End))
		}
		return nil
	})
	if err != nil {
		a.logger.Warn("dropped remote %v: %v", op, err)
		return
	}
	a.logger.Debug("applied remote %v", op)
}
