// Package transport provides the ordered, reliable message channel the sync
// protocol runs over. Implementations must deliver frames in send order
// once connected and surface any terminal failure through OnError with a
// human-readable reason.
package transport

import (
	"errors"

	"github.com/vkoval/minelink/internal/proto"
)

var (
	ErrClosed     = errors.New("transport closed")
	ErrPeerClosed = errors.New("peer connection closed")
)

// Handlers are the callback slots a peer binds before traffic starts. Only
// one set of handlers may be active per connection; re-initializing a
// connection tears down the previous one first. Any callback left nil is
// skipped.
type Handlers struct {
	// OnConnect fires once the counterpart peer is reachable.
	OnConnect func()
	// OnData fires for every inbound frame, in delivery order.
	OnData func(*proto.Envelope)
	// OnError fires on any terminal failure, including the peer dropping.
	// No frames are delivered afterwards.
	OnError func(error)
}

func (h Handlers) connect() {
	if h.OnConnect != nil {
		h.OnConnect()
	}
}

func (h Handlers) data(e *proto.Envelope) {
	if h.OnData != nil {
		h.OnData(e)
	}
}

func (h Handlers) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Transport is one endpoint of the logical channel between host and guest.
type Transport interface {
	// Send queues a frame for in-order delivery to the counterpart.
	// Callers are expected to stop sending once the channel reported an
	// error or was closed; Send returns ErrClosed in that case.
	Send(e *proto.Envelope) error
	// Close tears the channel down. Frames arriving afterwards are
	// dropped, not delivered against torn-down state.
	Close() error
}
