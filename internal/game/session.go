package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/vkoval/minelink/internal/mines"
)

type Status int8

const (
	Idle Status = iota
	Playing
	Won
	Lost
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return "invalid"
	}
}

func (s Status) Terminal() bool {
	return s == Won || s == Lost
}

// [Status] implements [json.Marshaler]
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "idle":
		*s = Idle
	case "playing":
		*s = Playing
	case "won":
		*s = Won
	case "lost":
		*s = Lost
	default:
		return fmt.Errorf("invalid session status %q", name)
	}
	return nil
}

type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Session owns one board and applies engine operations in response to local
// or forwarded intents. It is not safe for concurrent use; the owner
// serializes access (see peer.Host).
type Session struct {
	difficulty  mines.Difficulty
	board       *mines.Board
	status      Status
	elapsed     int
	flagCount   int
	flagHistory []Point
	rnd         *rand.Rand
}

// NewSession creates an idle session with an empty, mine-less board. Mines
// are placed on the first reveal so that the first-clicked cell is safe.
func NewSession(d mines.Difficulty, rnd *rand.Rand) *Session {
	d.Clamp()
	return &Session{
		difficulty: d,
		board:      mines.NewBoard(d.Rows, d.Cols),
		rnd:        rnd,
	}
}

func (s *Session) Difficulty() mines.Difficulty { return s.difficulty }
func (s *Session) Board() *mines.Board          { return s.board }
func (s *Session) Status() Status               { return s.status }
func (s *Session) Elapsed() int                 { return s.elapsed }
func (s *Session) FlagCount() int               { return s.flagCount }

// Reveal applies a reveal intent. The first reveal of a session places the
// mines with (row, col) as the safe cell and starts the game. Reveals on a
// terminal session are ignored, which is also what silently rejects stale
// guest intents arriving after game end.
func (s *Session) Reveal(row, col int) (changed bool) {
	if s.status.Terminal() || !s.board.InBounds(row, col) {
		return false
	}

	// A flagged or revealed target is a complete no-op; in particular it
	// must not place mines or start the game on an idle session.
	if s.board.At(row, col).Status != mines.Hidden {
		return false
	}

	if s.status == Idle {
		s.board.PlaceMines(s.difficulty, row, col, s.rnd)
		s.status = Playing
	}

	if exploded := s.board.Reveal(row, col); exploded {
		s.status = Lost
		s.board.RevealMines(false)
		return true
	}

	if s.board.Won(s.difficulty.Mines) {
		s.status = Won
		s.board.RevealMines(true)
		s.flagCount = s.board.FlagCount()
	}
	return true
}

// ToggleFlag applies a flag intent and records it for undo.
func (s *Session) ToggleFlag(row, col int) (changed bool) {
	if s.status.Terminal() || !s.board.ToggleFlag(row, col) {
		return false
	}
	if s.board.At(row, col).Status == mines.Flagged {
		s.flagCount++
	} else {
		s.flagCount--
	}
	s.flagHistory = append(s.flagHistory, Point{row, col})
	return true
}

// UndoFlag reverts the most recent flag toggle. Valid only while the game
// is not terminal and at least one toggle has been recorded. History
// entries whose cell has since been revealed cannot be toggled back;
// those are skipped until a live entry is found.
func (s *Session) UndoFlag() (changed bool) {
	if s.status.Terminal() {
		return false
	}
	for len(s.flagHistory) > 0 {
		last := s.flagHistory[len(s.flagHistory)-1]
		s.flagHistory = s.flagHistory[:len(s.flagHistory)-1]
		if !s.board.ToggleFlag(last.Row, last.Col) {
			continue
		}
		if s.board.At(last.Row, last.Col).Status == mines.Flagged {
			s.flagCount++
		} else {
			s.flagCount--
		}
		return true
	}
	return false
}

func (s *Session) FlagHistory() []Point {
	history := make([]Point, len(s.flagHistory))
	copy(history, s.flagHistory)
	return history
}

// Tick advances the clock by one second. It only counts while playing, so a
// stale timer firing after game end cannot touch the elapsed time.
func (s *Session) Tick() (changed bool) {
	if s.status != Playing {
		return false
	}
	s.elapsed++
	return true
}

// Reset discards the current game and re-creates a fresh idle session with
// the given difficulty.
func (s *Session) Reset(d mines.Difficulty) {
	d.Clamp()
	s.difficulty = d
	s.board = mines.NewBoard(d.Rows, d.Cols)
	s.status = Idle
	s.elapsed = 0
	s.flagCount = 0
	s.flagHistory = nil
}
