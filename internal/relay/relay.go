// Package relay pairs a host and a guest under a short join code and
// forwards their frames verbatim, in read order. The relay never inspects
// game traffic; it is the ordered reliable channel both peers assume.
package relay

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vkoval/minelink/internal/proto"
	"github.com/vkoval/minelink/internal/transport"
)

// Codes of torn-down rooms stay reserved for a short grace period so an
// immediate re-claim cannot race the old room's teardown.
const reuseGrace = 2 * time.Second

const maxCreateAttempts = 5

type Relay struct {
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	rooms    map[string]*room
	cooldown map[string]time.Time
}

func New(logger *logrus.Logger) *Relay {
	return &Relay{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms:    make(map[string]*room),
		cooldown: make(map[string]time.Time),
	}
}

// CreateRoom reserves a fresh join code with no peers attached yet.
func (rl *Relay) CreateRoom() (string, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for code, until := range rl.cooldown {
		if now.After(until) {
			delete(rl.cooldown, code)
		}
	}

	for range maxCreateAttempts {
		code, err := transport.NewJoinCode()
		if err != nil {
			return "", err
		}
		if _, taken := rl.rooms[code]; taken {
			continue
		}
		if _, cooling := rl.cooldown[code]; cooling {
			continue
		}
		rl.rooms[code] = newRoom(code, rl.logger)
		return code, nil
	}
	return "", fmt.Errorf("unable to reserve a join code")
}

// RoomCount reports the number of live rooms.
func (rl *Relay) RoomCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.rooms)
}

// HandleWS upgrades a peer joining a room. The request path carries the
// join code and the fixed role: /v1/rooms/{code}/{role}.
func (rl *Relay) HandleWS(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	role := transport.Role(r.PathValue("role"))
	if !transport.ValidJoinCode(code) ||
		(role != transport.RoleHost && role != transport.RoleGuest) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	rl.mu.Lock()
	rm, ok := rl.rooms[code]
	rl.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	conn, err := rl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rl.logger.Error("unable to upgrade: ", err)
		return
	}

	if err := rm.join(role, conn); err != nil {
		rl.logger.Warn("join rejected: ", err)
		_ = conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
		)
		_ = conn.Close()
		return
	}

	rm.pump(role, conn)
	rl.closeRoom(rm)
}

// closeRoom tears the room down and starts the code-reuse grace period.
// Closing an already-gone room is a no-op.
func (rl *Relay) closeRoom(rm *room) {
	rl.mu.Lock()
	if _, ok := rl.rooms[rm.code]; ok {
		delete(rl.rooms, rm.code)
		rl.cooldown[rm.code] = time.Now().Add(reuseGrace)
	}
	rl.mu.Unlock()
	rm.close()
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

func (c *client) writeControl(t proto.MsgType) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(proto.Envelope{Type: t})
}

type room struct {
	code   string
	logger *logrus.Logger

	mu     sync.Mutex
	host   *client
	guest  *client
	closed bool
}

func newRoom(code string, logger *logrus.Logger) *room {
	return &room{code: code, logger: logger}
}

// join claims a role slot. Exactly one host and at most one guest per room;
// the guest can only join once the host is in place, and roles are never
// renegotiated.
func (rm *room) join(role transport.Role, conn *websocket.Conn) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.closed {
		return fmt.Errorf("room %s is closed", rm.code)
	}

	switch role {
	case transport.RoleHost:
		if rm.host != nil {
			return fmt.Errorf("room %s already has a host", rm.code)
		}
		rm.host = &client{conn: conn}
		return nil
	case transport.RoleGuest:
		if rm.host == nil {
			return fmt.Errorf("room %s has no host yet", rm.code)
		}
		if rm.guest != nil {
			return fmt.Errorf("room %s already has a guest", rm.code)
		}
		rm.guest = &client{conn: conn}
		// Both ends learn the link is up through a control frame.
		if err := rm.host.writeControl(transport.TypePeerConnected); err != nil {
			rm.logger.Warn("unable to notify host: ", err)
		}
		if err := rm.guest.writeControl(transport.TypePeerConnected); err != nil {
			rm.logger.Warn("unable to notify guest: ", err)
		}
		return nil
	default:
		return fmt.Errorf("invalid role %q", role)
	}
}

// pump reads frames from one side and forwards them to the other until the
// connection drops. One reader goroutine per side keeps each direction
// ordered.
func (rm *room) pump(role transport.Role, conn *websocket.Conn) {
	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				rm.logger.Debug("relay read (", rm.code, "/", role, "): ", err)
			}
			return
		}

		rm.mu.Lock()
		counterpart := rm.guest
		if role == transport.RoleGuest {
			counterpart = rm.host
		}
		rm.mu.Unlock()

		if counterpart == nil {
			// No peer yet; the minimal design has nothing to buffer
			// into, so early frames are dropped.
			continue
		}
		if err := counterpart.write(mt, message); err != nil {
			rm.logger.Debug("relay write (", rm.code, "): ", err)
			return
		}
	}
}

// close drops both sides. The counterpart of a vanished peer observes an
// abnormal close, which its transport surfaces as an error.
func (rm *room) close() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return
	}
	rm.closed = true
	for _, c := range []*client{rm.host, rm.guest} {
		if c != nil {
			_ = c.conn.Close()
		}
	}
}
