package peer

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vkoval/minelink/internal/game"
	"github.com/vkoval/minelink/internal/mines"
	"github.com/vkoval/minelink/internal/proto"
	"github.com/vkoval/minelink/internal/transport"
)

type GuestEvents struct {
	OnConnect      func()
	OnLobby        func(mines.Difficulty)
	OnStart        func(mines.Difficulty)
	OnSnapshot     func(proto.Snapshot)
	OnStatusChange func(game.Status)
	OnDisconnect   func(error)
}

// Guest forwards input intents to the host and replaces its entire local
// state with every accepted snapshot. It never computes board state
// independently.
type Guest struct {
	logger *logrus.Logger
	events GuestEvents

	mu         sync.Mutex
	tr         transport.Transport
	difficulty mines.Difficulty
	snapshot   *proto.Snapshot
	status     game.Status
	lastSeq    uint64
	closed     bool
}

func NewGuest(logger *logrus.Logger, events GuestEvents) *Guest {
	return &Guest{logger: logger, events: events}
}

func (g *Guest) Handlers() transport.Handlers {
	return transport.Handlers{
		OnConnect: func() {
			if g.events.OnConnect != nil {
				g.events.OnConnect()
			}
		},
		OnData:  g.handleData,
		OnError: g.fail,
	}
}

func (g *Guest) SetTransport(tr transport.Transport) {
	g.mu.Lock()
	g.tr = tr
	g.mu.Unlock()
}

// Click forwards a reveal intent for the host to apply.
func (g *Guest) Click(row, col int) {
	g.send(proto.MustEncode(proto.MsgClickCell, proto.ClickCell{Row: row, Col: col}))
}

// RightClick forwards a flag-toggle intent.
func (g *Guest) RightClick(row, col int) {
	g.send(proto.MustEncode(proto.MsgRightClickCell, proto.RightClickCell{Row: row, Col: col}))
}

// Restart asks the host for a fresh game.
func (g *Guest) Restart(d mines.Difficulty) {
	g.send(proto.MustEncode(proto.MsgRestart, proto.Restart{Difficulty: d}))
}

// Snapshot returns the last applied host snapshot, if any.
func (g *Guest) Snapshot() *proto.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot
}

func (g *Guest) Status() game.Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func (g *Guest) Difficulty() mines.Difficulty {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.difficulty
}

func (g *Guest) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	tr := g.tr
	g.tr = nil
	g.mu.Unlock()

	if tr != nil {
		return tr.Close()
	}
	return nil
}

// HandleStartGame adopts the host's difficulty and re-initializes the local
// display to an empty idle board. [Guest] implements [proto.GuestHandler].
func (g *Guest) HandleStartGame(m proto.StartGame) error {
	g.mu.Lock()
	g.difficulty = m.Difficulty
	g.snapshot = nil
	g.status = game.Idle
	g.lastSeq = 0
	g.mu.Unlock()

	if g.events.OnStart != nil {
		g.events.OnStart(m.Difficulty)
	}
	return nil
}

// HandleUpdateLobby mirrors the host's pre-game difficulty selection.
func (g *Guest) HandleUpdateLobby(m proto.UpdateLobby) error {
	g.mu.Lock()
	g.difficulty = m.Difficulty
	g.mu.Unlock()

	if g.events.OnLobby != nil {
		g.events.OnLobby(m.Difficulty)
	}
	return nil
}

// HandleSyncBoard replaces the guest's entire local state with the host
// snapshot. Snapshots not newer than the last applied one are discarded,
// so a replayed or reordered frame can never roll the display back. A
// status transition observed here is edge-triggered exactly once.
func (g *Guest) HandleSyncBoard(m proto.Snapshot) error {
	g.mu.Lock()
	if g.closed || (g.lastSeq != 0 && m.Seq <= g.lastSeq) {
		g.mu.Unlock()
		return nil
	}
	prev := g.status
	g.lastSeq = m.Seq
	g.snapshot = &m
	g.status = m.Status
	g.difficulty = m.Difficulty
	g.mu.Unlock()

	if g.events.OnSnapshot != nil {
		g.events.OnSnapshot(m)
	}
	if m.Status != prev && g.events.OnStatusChange != nil {
		g.events.OnStatusChange(m.Status)
	}
	return nil
}

func (g *Guest) handleData(e *proto.Envelope) {
	if err := proto.DispatchToGuest(e, g); err != nil {
		g.logger.Warn("guest dropped frame: ", err)
	}
}

func (g *Guest) fail(err error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.tr = nil
	g.mu.Unlock()

	g.logger.Warn("guest connection lost: ", err)
	if g.events.OnDisconnect != nil {
		g.events.OnDisconnect(err)
	}
}

func (g *Guest) send(e *proto.Envelope) {
	g.mu.Lock()
	tr := g.tr
	closed := g.closed
	g.mu.Unlock()
	if closed || tr == nil {
		// Not connected; the intent is dropped silently.
		return
	}
	if err := tr.Send(e); err != nil {
		g.logger.Warn("unable to send ", e.Type, ": ", err)
	}
}
