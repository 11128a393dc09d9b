package mines

// Board dimension bounds. MaxSide is deliberately conservative: snapshots
// carry the full grid, and a 50x50 board is already a ~20 KB frame.
const (
	MinSide = 5
	MaxSide = 50
)

type Difficulty struct {
	Name  string `json:"name"`
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Mines int    `json:"mines"`
}

var (
	Beginner     = Difficulty{Name: "beginner", Rows: 9, Cols: 9, Mines: 10}
	Intermediate = Difficulty{Name: "intermediate", Rows: 16, Cols: 16, Mines: 40}
	Expert       = Difficulty{Name: "expert", Rows: 16, Cols: 30, Mines: 99}

	Presets = []Difficulty{Beginner, Intermediate, Expert}
)

// Custom builds a user-defined difficulty, clamped into the valid range.
func Custom(rows, cols, mines int) Difficulty {
	d := Difficulty{Name: "custom", Rows: rows, Cols: cols, Mines: mines}
	d.Clamp()
	return d
}

// PresetByName returns the fixed preset with the given name, if any.
func PresetByName(name string) (Difficulty, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Difficulty{}, false
}

// Clamp forces the difficulty into the supported range: each side within
// [MinSide, MaxSide] and 1 <= mines <= rows*cols-1, so at least one safe
// cell always exists.
func (d *Difficulty) Clamp() {
	d.Rows = min(max(d.Rows, MinSide), MaxSide)
	d.Cols = min(max(d.Cols, MinSide), MaxSide)
	d.Mines = min(max(d.Mines, 1), d.Rows*d.Cols-1)
}

func (d Difficulty) Valid() bool {
	return MinSide <= d.Rows && d.Rows <= MaxSide &&
		MinSide <= d.Cols && d.Cols <= MaxSide &&
		1 <= d.Mines && d.Mines <= d.Rows*d.Cols-1
}
