package mines

import "fmt"

// Rand is the source of uniformly distributed integers used to lay out mines.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Field is the minefield grid, stored row-major. It knows nothing about
// whether the game is still running; see [Game] for that.
type Field struct {
	width, height int
	mineCount     int
	cells         []Cell
}

// NewField returns an all-covered field without mines.
func NewField(width, height int) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf(
			"%w: field must be at least 1x1, got %dx%d",
			ErrInvalidConfiguration, width, height,
		)
	}
	f := &Field{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
	}
	f.clear()
	return f, nil
}

func (f *Field) Width() int     { return f.width }
func (f *Field) Height() int    { return f.height }
func (f *Field) MineCount() int { return f.mineCount }

func (f *Field) index(x, y int) int {
	return y*f.width + x
}

func (f *Field) inBounds(x, y int) bool {
	return 0 <= x && x < f.width && 0 <= y && y < f.height
}

func (f *Field) checkBounds(x, y int) (int, error) {
	if !f.inBounds(x, y) {
		return 0, fmt.Errorf(
			"%w: (%d, %d) outside %dx%d", ErrOutOfBounds, x, y, f.width, f.height,
		)
	}
	return f.index(x, y), nil
}

// neighbours calls fn with the index of every in-bounds cell around x,y.
func (f *Field) neighbours(x, y int, fn func(i int)) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if f.inBounds(x+dx, y+dy) {
				fn(f.index(x+dx, y+dy))
			}
		}
	}
}

func (f *Field) clear() {
	for i := range f.cells {
		f.cells[i] = coveredCell()
	}
	f.mineCount = 0
}

func (f *Field) At(x, y int) (Cell, error) {
	i, err := f.checkBounds(x, y)
	if err != nil {
		return Cell{}, err
	}
	return f.cells[i], nil
}

// Cells returns a copy of the grid in row-major order.
func (f *Field) Cells() []Cell {
	cells := make([]Cell, len(f.cells))
	copy(cells, f.cells)
	return cells
}

// PlaceMine turns x,y into a mine and bumps the counter of every neighbour
// that is not a mine itself. Placing a mine twice is a no-op.
func (f *Field) PlaceMine(x, y int) error {
	i, err := f.checkBounds(x, y)
	if err != nil {
		return err
	}
	if !f.cells[i].IsMine() {
		f.placeMine(i, x, y)
	}
	return nil
}

// placeMine mines cell i, which must be x,y and not yet a mine.
func (f *Field) placeMine(i, x, y int) {
	f.cells[i].Value = Mine
	f.mineCount++
	f.neighbours(x, y, func(j int) {
		if !f.cells[j].IsMine() {
			f.cells[j].Value++
		}
	})
}

// Generate clears the field and lays out exactly mineCount mines at
// uniformly random positions, resampling positions that already hold one.
func (f *Field) Generate(mineCount int, r Rand) error {
	total := f.width * f.height
	if mineCount < 0 || mineCount >= total {
		return fmt.Errorf(
			"%w: mine count must be in [0, %d), got %d",
			ErrInvalidConfiguration, total, mineCount,
		)
	}

	f.clear()

	attempts := 0
	for f.mineCount < mineCount {
		attempts++
		x, y := r.IntN(f.width), r.IntN(f.height)
		if i := f.index(x, y); !f.cells[i].IsMine() {
			f.placeMine(i, x, y)
		}
	}

	Log.Debug("generated field",
		"width", f.width, "height", f.height,
		"mines", mineCount, "attempts", attempts,
	)
	return nil
}

// Reveal uncovers x,y. Flagged and already uncovered cells are left alone.
// Uncovering a zero cell spreads to every covered, unflagged neighbour until
// the region is bordered by numbers; Covered doubles as the visited marker.
func (f *Field) Reveal(x, y int) error {
	i, err := f.checkBounds(x, y)
	if err != nil {
		return err
	}
	if f.cells[i].Flagged || !f.cells[i].Covered {
		return nil
	}

	f.cells[i].Covered = false
	stack := []int{i}
	for len(stack) > 0 {
		i, stack = stack[len(stack)-1], stack[:len(stack)-1]
		if f.cells[i].Value != 0 {
			continue
		}
		f.neighbours(i%f.width, i/f.width, func(j int) {
			c := &f.cells[j]
			if c.Covered && !c.Flagged {
				c.Covered = false
				stack = append(stack, j)
			}
		})
	}
	return nil
}

// ToggleFlag flips the flag on a covered cell. Uncovered cells can't be flagged.
func (f *Field) ToggleFlag(x, y int) error {
	i, err := f.checkBounds(x, y)
	if err != nil {
		return err
	}
	if f.cells[i].Covered {
		f.cells[i].Flagged = !f.cells[i].Flagged
	}
	return nil
}

func (f *Field) CountCovered() (count int) {
	for _, c := range f.cells {
		if c.Covered {
			count++
		}
	}
	return
}

func (f *Field) CountFlagged() (count int) {
	for _, c := range f.cells {
		if c.Flagged {
			count++
		}
	}
	return
}

// CheckWin reports whether the only cells left covered are the mines.
func (f *Field) CheckWin() bool {
	return f.CountCovered() == f.mineCount
}

// RevealAllMines uncovers every mine. A flag on a mine goes away with its
// cover since only covered cells carry flags.
func (f *Field) RevealAllMines() {
	for i := range f.cells {
		if f.cells[i].IsMine() {
			f.cells[i].Covered = false
			f.cells[i].Flagged = false
		}
	}
}

func (f *Field) FlagAllMines() {
	for i := range f.cells {
		if f.cells[i].IsMine() && f.cells[i].Covered {
			f.cells[i].Flagged = true
		}
	}
}
