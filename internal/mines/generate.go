package mines

import "math/rand/v2"

// Rejection sampling gives up after this many consecutive collisions and
// the generator falls back to a deterministic scan of the free cells.
const maxPlacementRetries = 10_000

// PlaceMines scatters d.Mines mines over an empty board, keeping the safe
// cell at (safeRow, safeCol) mine-free. When the board has room to spare,
// the safe cell's eight neighbors are excluded as well, so the first reveal
// always opens an area rather than a lone number.
//
// Placement is uniform rejection sampling: draw a cell, resample on
// collision with an existing mine or an excluded cell. Termination is
// guaranteed by the clamped mine count; a retry cap with a deterministic
// fallback scan covers degenerate nearly-full boards. Neighbor counts for
// every safe cell are computed once placement is done.
func (b *Board) PlaceMines(d Difficulty, safeRow, safeCol int, rnd *rand.Rand) {
	excluded := b.safeZone(d, safeRow, safeCol)

	placed := 0
	for retries := 0; placed < d.Mines && retries < maxPlacementRetries; {
		i := rnd.IntN(len(b.Cells))
		if b.Cells[i].Mine || excluded[i] {
			retries++
			continue
		}
		b.Cells[i].Mine = true
		placed++
	}

	// Degenerate boards can starve the sampler; finish by scanning free
	// cells in order.
	for i := 0; placed < d.Mines && i < len(b.Cells); i++ {
		if !b.Cells[i].Mine && !excluded[i] {
			b.Cells[i].Mine = true
			placed++
		}
	}

	b.computeNeighbors()
}

// safeZone returns the set of cell indices mine placement must avoid. The
// expanded zone (clicked cell plus its Moore neighbors) applies only while
// it leaves room for every mine; otherwise just the clicked cell is
// excluded.
func (b *Board) safeZone(d Difficulty, safeRow, safeCol int) map[int]bool {
	excluded := map[int]bool{safeRow*b.Cols + safeCol: true}
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			r, c := safeRow+dr, safeCol+dc
			if b.InBounds(r, c) {
				excluded[r*b.Cols+c] = true
			}
		}
	}
	if len(b.Cells)-len(excluded) < d.Mines {
		excluded = map[int]bool{safeRow*b.Cols + safeCol: true}
	}
	return excluded
}

func (b *Board) computeNeighbors() {
	for r := range b.Rows {
		for c := range b.Cols {
			cell := b.At(r, c)
			if cell.Mine {
				continue
			}
			n := 0
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					if b.InBounds(r+dr, c+dc) && b.At(r+dr, c+dc).Mine {
						n++
					}
				}
			}
			cell.Neighbors = n
		}
	}
}
