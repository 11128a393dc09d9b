package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vkoval/minelink/internal/proto"
)

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// TypePeerConnected is a transport-level control frame the relay injects
// when the counterpart joins the room. It never reaches OnData; the client
// turns it into OnConnect.
const TypePeerConnected proto.MsgType = "PEER_CONNECTED"

// WS is the websocket client endpoint of a relayed room channel. Gorilla
// connections allow one concurrent writer, so sends are serialized behind a
// mutex; reads happen on a single goroutine, which preserves delivery
// order.
type WS struct {
	conn    *websocket.Conn
	logger  *logrus.Logger
	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// Dial joins the room with the given code at the relay base URL (e.g.
// "ws://localhost:8080") in the given role and starts the read loop.
func Dial(
	ctx context.Context,
	logger *logrus.Logger,
	baseURL string,
	code string,
	role Role,
	h Handlers,
) (*WS, error) {
	if !ValidJoinCode(code) {
		return nil, fmt.Errorf("invalid join code %q", code)
	}

	url := fmt.Sprintf("%s/v1/rooms/%s/%s", baseURL, code, role)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to dial relay: %w", err)
	}

	t := &WS{conn: conn, logger: logger}
	go t.readLoop(h)
	return t, nil
}

// Accept wraps an already-upgraded server-side connection. The caller
// attaches the transport to its endpoint before calling Start, so no frame
// can arrive ahead of the wiring.
func Accept(logger *logrus.Logger, conn *websocket.Conn) *WS {
	return &WS{conn: conn, logger: logger}
}

// Start fires OnConnect (the peer is by definition present on an accepted
// connection) and begins the read loop.
func (t *WS) Start(h Handlers) {
	h.connect()
	go t.readLoop(h)
}

func (t *WS) readLoop(h Handlers) {
	for {
		var e proto.Envelope
		if err := t.conn.ReadJSON(&e); err != nil {
			t.mu.Lock()
			closed := t.closed
			t.closed = true
			t.mu.Unlock()
			if closed {
				// Local teardown; pending frames are discarded silently.
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				h.fail(ErrPeerClosed)
			} else {
				h.fail(err)
			}
			return
		}
		if e.Type == TypePeerConnected {
			h.connect()
			continue
		}
		h.data(&e)
	}
}

func (t *WS) Send(e *proto.Envelope) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.mu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteJSON(e); err != nil {
		return fmt.Errorf("unable to send %s: %w", e.Type, err)
	}
	return nil
}

func (t *WS) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.writeMu.Lock()
	err := t.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	t.writeMu.Unlock()
	if err != nil {
		t.logger.Debug("close handshake skipped: ", err)
	}
	return t.conn.Close()
}
