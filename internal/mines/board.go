package mines

import (
	"fmt"
	"strconv"
	"strings"
)

type CellStatus int8

const (
	Hidden CellStatus = iota
	Revealed
	Flagged
)

func (s CellStatus) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Revealed:
		return "revealed"
	case Flagged:
		return "flagged"
	default:
		return "invalid"
	}
}

type Cell struct {
	Mine      bool       `json:"mine"`
	Status    CellStatus `json:"status"`
	Neighbors int        `json:"neighbors"`
	Exploded  bool       `json:"exploded"`
}

// Board is a flat rows*cols grid owned by a single writer (the game
// session). Engine methods mutate the receiver in place; callers that need
// an independent copy take one with [Board.Clone].
type Board struct {
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Cells []Cell `json:"cells"`
}

func NewBoard(rows, cols int) *Board {
	return &Board{
		Rows:  rows,
		Cols:  cols,
		Cells: make([]Cell, rows*cols),
	}
}

func (b *Board) InBounds(row, col int) bool {
	return 0 <= row && row < b.Rows && 0 <= col && col < b.Cols
}

func (b *Board) At(row, col int) *Cell {
	return &b.Cells[row*b.Cols+col]
}

func (b *Board) Clone() *Board {
	c := &Board{Rows: b.Rows, Cols: b.Cols, Cells: make([]Cell, len(b.Cells))}
	copy(c.Cells, b.Cells)
	return c
}

// Reveal opens the cell at (row, col) and reports whether it held a mine.
// Anything but a hidden cell is left untouched; revealing a flagged cell
// requires unflagging it first. Opening a safe cell with no neighboring
// mines flood-fills outwards breadth-first, visiting each cell at most once.
func (b *Board) Reveal(row, col int) (exploded bool) {
	if !b.InBounds(row, col) || b.At(row, col).Status != Hidden {
		return false
	}

	target := b.At(row, col)
	if target.Mine {
		target.Status = Revealed
		target.Exploded = true
		return true
	}

	queue := []int{row*b.Cols + col}
	target.Status = Revealed
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if b.Cells[i].Neighbors != 0 {
			continue
		}
		r, c := i/b.Cols, i%b.Cols
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				rr, cc := r+dr, c+dc
				if (dr == 0 && dc == 0) || !b.InBounds(rr, cc) {
					continue
				}
				next := b.At(rr, cc)
				if next.Status != Hidden {
					continue
				}
				next.Status = Revealed
				queue = append(queue, rr*b.Cols+cc)
			}
		}
	}
	return false
}

// ToggleFlag flips hidden -> flagged -> hidden. Revealed cells are left
// alone. Reports whether the board changed.
func (b *Board) ToggleFlag(row, col int) bool {
	if !b.InBounds(row, col) {
		return false
	}
	switch cell := b.At(row, col); cell.Status {
	case Hidden:
		cell.Status = Flagged
		return true
	case Flagged:
		cell.Status = Hidden
		return true
	default:
		return false
	}
}

// Won reports whether every safe cell has been revealed. Flags play no part
// in the win condition.
func (b *Board) Won(mineCount int) bool {
	revealed := 0
	for i := range b.Cells {
		if b.Cells[i].Status == Revealed && !b.Cells[i].Mine {
			revealed++
		}
	}
	return revealed == b.Rows*b.Cols-mineCount
}

// RevealMines discloses the mines at game end. On a win the remaining mines
// are auto-flagged for display; on a loss every mine the player had not
// flagged is exposed, leaving the exploded cell as-is.
func (b *Board) RevealMines(won bool) {
	for i := range b.Cells {
		cell := &b.Cells[i]
		if !cell.Mine {
			continue
		}
		if won {
			if cell.Status != Revealed {
				cell.Status = Flagged
			}
		} else if cell.Status != Flagged {
			cell.Status = Revealed
		}
	}
}

func (b *Board) FlagCount() (count int) {
	for i := range b.Cells {
		if b.Cells[i].Status == Flagged {
			count++
		}
	}
	return count
}

func (b *Board) MineCount() (count int) {
	for i := range b.Cells {
		if b.Cells[i].Mine {
			count++
		}
	}
	return count
}

func (b *Board) String() string {
	var sb strings.Builder
	for r := range b.Rows {
		for c := range b.Cols {
			cell := b.At(r, c)
			var ch string
			switch {
			case cell.Exploded:
				ch = "X"
			case cell.Status == Flagged:
				ch = "*"
			case cell.Status == Hidden:
				ch = "-"
			case cell.Mine:
				ch = "!"
			default:
				ch = strconv.Itoa(cell.Neighbors)
			}
			fmt.Fprint(&sb, ch+" ")
		}
		fmt.Fprint(&sb, "\n")
	}
	return sb.String()
}
