// Package peer implements the two endpoints of the synchronization
// protocol: the Host, which runs the only authoritative simulation, and the
// Guest, a thin input-forwarder and passive renderer. Either endpoint works
// over any transport.Transport; a Host with no transport at all is plain
// single-player.
package peer

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vkoval/minelink/internal/game"
	"github.com/vkoval/minelink/internal/mines"
	"github.com/vkoval/minelink/internal/proto"
	"github.com/vkoval/minelink/internal/transport"
)

// HostEvents are the render/effect hooks a UI layer observes. Status
// changes are edge-triggered: OnStatusChange fires exactly once per
// transition, which is what drives end-of-game effects.
type HostEvents struct {
	OnSnapshot     func(proto.Snapshot)
	OnStatusChange func(game.Status)
	OnGuestJoined  func()
	OnDisconnect   func(error)
}

// Host owns the game session. Local actions and forwarded guest intents
// funnel through one mutex, keeping the session single-writer; every
// state-changing action is followed by exactly one SYNC_BOARD broadcast.
type Host struct {
	logger *logrus.Logger
	events HostEvents

	mu        sync.Mutex
	session   *game.Session
	tr        transport.Transport
	seq       uint64
	timerStop chan struct{}
	closed    bool
}

func NewHost(logger *logrus.Logger, session *game.Session, events HostEvents) *Host {
	return &Host{logger: logger, session: session, events: events}
}

// Handlers returns the callback set to bind to the host side of a
// transport channel.
func (h *Host) Handlers() transport.Handlers {
	return transport.Handlers{
		OnConnect: h.guestJoined,
		OnData:    h.handleData,
		OnError:   h.fail,
	}
}

// SetTransport attaches the channel to the guest. Pass nil to play locally.
func (h *Host) SetTransport(tr transport.Transport) {
	h.mu.Lock()
	h.tr = tr
	h.mu.Unlock()
}

func (h *Host) Session() *game.Session {
	return h.session
}

// Reveal applies a local (host-side) reveal.
func (h *Host) Reveal(row, col int) {
	h.apply(func(s *game.Session) bool { return s.Reveal(row, col) })
}

// ToggleFlag applies a local flag toggle.
func (h *Host) ToggleFlag(row, col int) {
	h.apply(func(s *game.Session) bool { return s.ToggleFlag(row, col) })
}

// UndoFlag reverts the host's most recent flag toggle. Guests have no undo;
// the operation exists only on the authoritative side.
func (h *Host) UndoFlag() {
	h.apply(func(s *game.Session) bool { return s.UndoFlag() })
}

// Restart re-initializes the session to idle with the given difficulty and
// broadcasts the fresh empty board.
func (h *Host) Restart(d mines.Difficulty) {
	h.apply(func(s *game.Session) bool { s.Reset(d); return true })
}

// UpdateLobby mirrors a pre-game difficulty selection to the guest without
// touching the session.
func (h *Host) UpdateLobby(d mines.Difficulty) {
	h.send(proto.MustEncode(proto.MsgUpdateLobby, proto.UpdateLobby{Difficulty: d}))
}

// StartGame resets the session, tells the guest to enter guest-play mode
// and broadcasts the initial empty board.
func (h *Host) StartGame(d mines.Difficulty) {
	h.send(proto.MustEncode(proto.MsgStartGame, proto.StartGame{Difficulty: d}))
	h.Restart(d)
}

// Close tears the host down: the timer stops, the channel closes and any
// message arriving afterwards is dropped.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.stopTimerLocked()
	tr := h.tr
	h.tr = nil
	h.mu.Unlock()

	if tr != nil {
		return tr.Close()
	}
	return nil
}

// HandleClickCell applies a forwarded guest reveal exactly as if it were a
// local action. [Host] implements [proto.HostHandler].
func (h *Host) HandleClickCell(m proto.ClickCell) error {
	h.Reveal(m.Row, m.Col)
	return nil
}

func (h *Host) HandleRightClickCell(m proto.RightClickCell) error {
	h.ToggleFlag(m.Row, m.Col)
	return nil
}

func (h *Host) HandleRestart(m proto.Restart) error {
	h.Restart(m.Difficulty)
	return nil
}

func (h *Host) handleData(e *proto.Envelope) {
	if err := proto.DispatchToHost(e, h); err != nil {
		// Malformed or wrong-role frames are dropped, never fatal.
		h.logger.Warn("host dropped frame: ", err)
	}
}

func (h *Host) guestJoined() {
	if h.events.OnGuestJoined != nil {
		h.events.OnGuestJoined()
	}
}

func (h *Host) fail(err error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.stopTimerLocked()
	h.tr = nil
	h.mu.Unlock()

	h.logger.Warn("host connection lost: ", err)
	if h.events.OnDisconnect != nil {
		h.events.OnDisconnect(err)
	}
}

// apply runs one state-changing action under the session mutex, manages
// the timer across the resulting status, then broadcasts one snapshot.
func (h *Host) apply(mutate func(*game.Session) bool) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	prev := h.session.Status()
	if !mutate(h.session) {
		h.mu.Unlock()
		return
	}
	status := h.session.Status()
	if status == game.Playing {
		h.startTimerLocked()
	} else {
		h.stopTimerLocked()
	}
	h.seq++
	snap := h.snapshotLocked()
	tr := h.tr
	h.mu.Unlock()

	if tr != nil {
		if err := tr.Send(proto.MustEncode(proto.MsgSyncBoard, snap)); err != nil {
			h.logger.Warn("unable to broadcast snapshot: ", err)
		}
	}
	if h.events.OnSnapshot != nil {
		h.events.OnSnapshot(snap)
	}
	if status != prev && h.events.OnStatusChange != nil {
		h.events.OnStatusChange(status)
	}
}

func (h *Host) send(e *proto.Envelope) {
	h.mu.Lock()
	tr := h.tr
	closed := h.closed
	h.mu.Unlock()
	if closed || tr == nil {
		return
	}
	if err := tr.Send(e); err != nil {
		h.logger.Warn("unable to send ", e.Type, ": ", err)
	}
}

func (h *Host) snapshotLocked() proto.Snapshot {
	return proto.Snapshot{
		Seq:        h.seq,
		Status:     h.session.Status(),
		Elapsed:    h.session.Elapsed(),
		FlagCount:  h.session.FlagCount(),
		Difficulty: h.session.Difficulty(),
		Board:      h.session.Board().Clone(),
	}
}

// The one-second timer is the only autonomous state mutation. It runs as an
// explicit cancellable handle so that leaving the playing state, resetting
// or closing stops it synchronously; a stale tick can never touch a
// discarded session because Tick itself refuses to count outside playing.
func (h *Host) startTimerLocked() {
	if h.timerStop != nil {
		return
	}
	stop := make(chan struct{})
	h.timerStop = stop
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				h.apply(func(s *game.Session) bool { return s.Tick() })
			}
		}
	}()
}

func (h *Host) stopTimerLocked() {
	if h.timerStop != nil {
		close(h.timerStop)
		h.timerStop = nil
	}
}
