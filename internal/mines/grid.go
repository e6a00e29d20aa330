package mines

import (
	"fmt"
	"strconv"
	"strings"
)

// Mine is the adjacency value of a mined cell. Any other cell holds the
// number of mines among its (up to) eight neighbours.
const Mine int8 = -1

type Cell struct {
	Value   int8
	Covered bool
	Flagged bool
}

func (c Cell) IsMine() bool {
	return c.Value == Mine
}

func (c Cell) String() string {
	switch {
	case c.Flagged:
		return "F"
	case c.Covered:
		return "-"
	case c.IsMine():
		return "*"
	case c.Value == 0:
		return "."
	default:
		return strconv.Itoa(int(c.Value))
	}
}

func coveredCell() Cell {
	return Cell{Covered: true}
}

// String renders the field the way a player sees it, one row per line.
func (f *Field) String() string {
	var b strings.Builder
	for y := range f.height {
		for x := range f.width {
			fmt.Fprint(&b, f.cells[f.index(x, y)].String()+" ")
		}
		fmt.Fprint(&b, "\n")
	}
	return b.String()
}

// Layout renders the mine layout regardless of what is covered.
func (f *Field) Layout() string {
	var b strings.Builder
	for y := range f.height {
		for x := range f.width {
			c := f.cells[f.index(x, y)]
			var ch string
			if c.IsMine() {
				ch = "* "
			} else {
				ch = strconv.Itoa(int(c.Value)) + " "
			}
			fmt.Fprint(&b, ch)
		}
		fmt.Fprint(&b, "\n")
	}
	return b.String()
}
