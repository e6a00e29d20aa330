package mines

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Snapshot is the gob-friendly form of a game, archived with finished
// game records.
type Snapshot struct {
	Width, Height, MineCount int
	Cells                    []Cell
	State                    State
}

func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		Width:     g.field.width,
		Height:    g.field.height,
		MineCount: g.field.mineCount,
		Cells:     g.field.Cells(),
		State:     g.state,
	}
}

func (g *Game) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(g.Snapshot()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeSnapshot(buf []byte) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&s); err != nil {
		return nil, err
	}
	if len(s.Cells) != s.Width*s.Height {
		return nil, fmt.Errorf(
			"malformed snapshot: %d cells for a %dx%d field",
			len(s.Cells), s.Width, s.Height,
		)
	}
	return &s, nil
}

// Game rebuilds a read-only view of the archived game.
func (s Snapshot) Game() *Game {
	cells := make([]Cell, len(s.Cells))
	copy(cells, s.Cells)
	field := &Field{
		width:     s.Width,
		height:    s.Height,
		mineCount: s.MineCount,
		cells:     cells,
	}
	g := NewGameWithField(field, nil)
	g.state = s.State
	return g
}
