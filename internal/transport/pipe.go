package transport

import (
	"sync"

	"github.com/vkoval/minelink/internal/proto"
)

// Pipe is a synchronous in-memory channel pair for host and guest living
// in the same process. Frames are delivered to the counterpart's OnData in
// send order.
type Pipe struct {
	mu       sync.Mutex
	peer     *Pipe
	handlers Handlers
	bound    bool
	closed   bool
}

// NewPipe returns both endpoints of a connected channel. Each endpoint must
// be bound before its side can receive.
func NewPipe() (a, b *Pipe) {
	a, b = &Pipe{}, &Pipe{}
	a.peer, b.peer = b, a
	return a, b
}

// Bind installs the endpoint's handlers and fires OnConnect. Rebinding
// replaces the previous handlers.
func (p *Pipe) Bind(h Handlers) {
	p.mu.Lock()
	p.handlers = h
	p.bound = true
	closed := p.closed
	p.mu.Unlock()
	if !closed {
		h.connect()
	}
}

func (p *Pipe) Send(e *proto.Envelope) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	peer := p.peer
	p.mu.Unlock()
	return peer.deliver(e)
}

func (p *Pipe) deliver(e *proto.Envelope) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	h := p.handlers
	p.mu.Unlock()
	h.data(e)
	return nil
}

// Close tears down both directions. The counterpart observes the drop via
// OnError(ErrPeerClosed), after which neither endpoint delivers anything.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	peer := p.peer
	p.mu.Unlock()

	peer.mu.Lock()
	alreadyClosed := peer.closed
	peer.closed = true
	h := peer.handlers
	peer.mu.Unlock()
	if !alreadyClosed {
		h.fail(ErrPeerClosed)
	}
	return nil
}
