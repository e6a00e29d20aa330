package mines

import "fmt"

// Fixed playing field: 16x16 with 40 mines.
const (
	DefaultWidth     = 16
	DefaultHeight    = 16
	DefaultMineCount = 40
)

type GameParams struct {
	Width, Height, MineCount int
}

func DefaultParams() GameParams {
	return GameParams{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		MineCount: DefaultMineCount,
	}
}

func (p GameParams) Cells() int {
	return p.Width * p.Height
}

// Validate reports an error wrapping [ErrInvalidConfiguration] when the
// extents are not positive or the mine count leaves no safe cell.
func (p GameParams) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf(
			"%w: field must be at least 1x1, got %dx%d",
			ErrInvalidConfiguration, p.Width, p.Height,
		)
	}
	if p.MineCount < 0 || p.MineCount >= p.Cells() {
		return fmt.Errorf(
			"%w: mine count must be in [0, %d), got %d",
			ErrInvalidConfiguration, p.Cells(), p.MineCount,
		)
	}
	return nil
}

func (p GameParams) PointInBounds(x, y int) bool {
	return 0 <= x && x < p.Width && 0 <= y && y < p.Height
}

func (p GameParams) String() string {
	return fmt.Sprintf("%dx%d(%d)", p.Width, p.Height, p.MineCount)
}
