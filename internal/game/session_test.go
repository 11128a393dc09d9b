package game

import (
	"math/rand/v2"
	"testing"

	"github.com/vkoval/minelink/internal/mines"
)

func newTestSession(d mines.Difficulty) *Session {
	return NewSession(d, rand.New(rand.NewPCG(1, 2)))
}

func TestFirstRevealStartsGame(t *testing.T) {
	s := newTestSession(mines.Custom(5, 5, 1))

	if s.Status() != Idle {
		t.Fatalf("fresh session status = %v, want idle", s.Status())
	}
	if got := s.Board().MineCount(); got != 0 {
		t.Fatalf("idle board already has %d mines", got)
	}

	s.Reveal(0, 0)

	if s.Status() == Lost {
		t.Fatal("first reveal hit a mine")
	}
	if s.Board().At(0, 0).Mine {
		t.Fatal("mine placed in the first-clicked cell")
	}
	if got := s.Board().MineCount(); got != 1 {
		t.Fatalf("board has %d mines after start, want 1", got)
	}
	if s.Board().At(0, 0).Status != mines.Revealed {
		t.Fatal("first-clicked cell not revealed")
	}
}

func TestRevealFlaggedCellKeepsSessionIdle(t *testing.T) {
	s := newTestSession(mines.Custom(5, 5, 3))

	if !s.ToggleFlag(2, 2) {
		t.Fatal("flag toggle rejected")
	}

	if s.Reveal(2, 2) {
		t.Fatal("reveal of a flagged cell reported a change")
	}
	if s.Status() != Idle {
		t.Fatalf("status = %v after flagged-cell reveal, want idle", s.Status())
	}
	if got := s.Board().MineCount(); got != 0 {
		t.Fatalf("flagged-cell reveal placed %d mines on an idle board", got)
	}
	if s.Board().At(2, 2).Status != mines.Flagged {
		t.Fatal("flagged cell changed state")
	}

	// Unflagging makes the same cell a valid opener again.
	s.ToggleFlag(2, 2)
	if !s.Reveal(2, 2) {
		t.Fatal("reveal rejected after unflagging")
	}
	if s.Status() != Playing {
		t.Fatalf("status = %v after opening reveal, want playing", s.Status())
	}
}

func TestRevealMineLosesGame(t *testing.T) {
	// 23 mines on a 5x5 board leave exactly one safe cell besides the
	// first-clicked one, so the session is guaranteed to still be playing
	// after the opening reveal.
	s := newTestSession(mines.Custom(5, 5, 23))
	s.Reveal(0, 0)
	if s.Status() != Playing {
		t.Fatalf("status = %v after opening reveal, want playing", s.Status())
	}

	var mineRow, mineCol = -1, -1
	for r := range 5 {
		for c := range 5 {
			if s.Board().At(r, c).Mine && mineRow < 0 {
				mineRow, mineCol = r, c
			}
		}
	}
	if mineRow < 0 {
		t.Fatal("no mine on board")
	}

	s.Reveal(mineRow, mineCol)

	if s.Status() != Lost {
		t.Fatalf("status = %v after revealing a mine, want lost", s.Status())
	}
	exploded := 0
	for r := range 5 {
		for c := range 5 {
			cell := s.Board().At(r, c)
			if cell.Exploded {
				exploded++
				if r != mineRow || c != mineCol {
					t.Fatalf("wrong cell exploded: %d:%d", r, c)
				}
			}
			if cell.Mine && cell.Status == mines.Hidden {
				t.Fatalf("mine at %d:%d not disclosed on loss", r, c)
			}
		}
	}
	if exploded != 1 {
		t.Fatalf("%d cells exploded, want 1", exploded)
	}

	// Terminal sessions silently ignore further intents.
	if s.Reveal(0, 1) || s.ToggleFlag(0, 1) || s.Tick() {
		t.Fatal("terminal session accepted an intent")
	}
}

func TestWinWithoutFlags(t *testing.T) {
	s := newTestSession(mines.Custom(5, 5, 1))
	s.Reveal(0, 0)

	for r := range 5 {
		for c := range 5 {
			if !s.Board().At(r, c).Mine {
				s.Reveal(r, c)
			}
		}
	}
	if s.Status() != Won {
		t.Fatalf("status = %v, want won", s.Status())
	}
	if got, want := s.FlagCount(), s.Board().FlagCount(); got != want {
		t.Fatalf("flag count %d != live count %d after win disclosure", got, want)
	}
}

func TestFlagCountMirrorsBoard(t *testing.T) {
	s := newTestSession(mines.Custom(6, 6, 4))
	s.Reveal(3, 3)

	toggles := []Point{{0, 0}, {0, 1}, {0, 0}, {5, 5}, {0, 1}}
	for _, p := range toggles {
		s.ToggleFlag(p.Row, p.Col)
		if got, want := s.FlagCount(), s.Board().FlagCount(); got != want {
			t.Fatalf("flag count %d != live count %d", got, want)
		}
	}
}

func TestFlagUndo(t *testing.T) {
	s := newTestSession(mines.Custom(5, 5, 2))

	if !s.ToggleFlag(1, 1) {
		t.Fatal("flag toggle rejected")
	}
	if s.FlagCount() != 1 {
		t.Fatalf("flag count = %d, want 1", s.FlagCount())
	}
	if history := s.FlagHistory(); len(history) != 1 || history[0] != (Point{1, 1}) {
		t.Fatalf("history = %v, want [(1,1)]", history)
	}

	if !s.UndoFlag() {
		t.Fatal("undo rejected")
	}
	if s.Board().At(1, 1).Status != mines.Hidden {
		t.Fatal("undo did not restore cell to hidden")
	}
	if s.FlagCount() != 0 {
		t.Fatalf("flag count = %d after undo, want 0", s.FlagCount())
	}
	if len(s.FlagHistory()) != 0 {
		t.Fatal("history not emptied by undo")
	}
	if s.UndoFlag() {
		t.Fatal("undo accepted with empty history")
	}
}

func TestFlagUndoSkipsRevealedEntries(t *testing.T) {
	s := newTestSession(mines.Custom(5, 5, 3))

	// Two history entries for (1,1) go stale once the cell is revealed:
	// flag, unflag, then open the game on it.
	s.ToggleFlag(0, 0)
	s.ToggleFlag(1, 1)
	s.ToggleFlag(1, 1)
	s.Reveal(1, 1)
	if s.Board().At(1, 1).Status != mines.Revealed {
		t.Fatal("opener not revealed")
	}

	if !s.UndoFlag() {
		t.Fatal("undo rejected with a live entry in history")
	}
	if s.Board().At(0, 0).Status != mines.Hidden {
		t.Fatal("undo did not reach past the stale entries to (0,0)")
	}
	if s.FlagCount() != 0 {
		t.Fatalf("flag count = %d after undo, want 0", s.FlagCount())
	}
	if len(s.FlagHistory()) != 0 {
		t.Fatal("stale entries left in history")
	}
	if s.UndoFlag() {
		t.Fatal("undo accepted with exhausted history")
	}
}

func TestTickOnlyWhilePlaying(t *testing.T) {
	s := newTestSession(mines.Custom(5, 5, 1))
	if s.Tick() {
		t.Fatal("idle session ticked")
	}
	s.Reveal(0, 0)
	s.Tick()
	s.Tick()
	if s.Elapsed() != 2 {
		t.Fatalf("elapsed = %d, want 2", s.Elapsed())
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	s := newTestSession(mines.Custom(5, 5, 1))
	s.Reveal(0, 0)
	s.Tick()
	s.ToggleFlag(4, 4)

	s.Reset(mines.Beginner)

	if s.Status() != Idle {
		t.Fatalf("status = %v after reset, want idle", s.Status())
	}
	if s.Elapsed() != 0 || s.FlagCount() != 0 || len(s.FlagHistory()) != 0 {
		t.Fatal("reset did not clear session bookkeeping")
	}
	if s.Board().MineCount() != 0 {
		t.Fatal("reset board already mined")
	}
	if d := s.Difficulty(); d.Rows != 9 || d.Cols != 9 || d.Mines != 10 {
		t.Fatalf("difficulty not adopted on reset: %+v", d)
	}
}
