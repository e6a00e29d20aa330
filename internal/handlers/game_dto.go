package handlers

import (
	"github.com/gorilla/schema"

	"github.com/vancomm/minefield/internal/mines"
)

type Move string

const (
	MoveOpen  Move = "open"
	MoveFlag  Move = "flag"
	MoveChord Move = "chord"
)

type MoveDTO struct {
	Move Move `schema:"move,required"`
	X    int  `schema:"x,required"`
	Y    int  `schema:"y,required"`
}

type HighscoresDTO struct {
	Username *string `schema:"username"`
	Limit    int     `schema:"limit"`
}

func newDecoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}

// CellView is a cell as the player may see it: covered cells never carry
// their value.
type CellView struct {
	Covered bool  `json:"covered"`
	Flagged bool  `json:"flagged"`
	Value   *int8 `json:"value,omitempty"`
}

func NewCellView(c mines.Cell) CellView {
	if c.Covered {
		return CellView{Covered: true, Flagged: c.Flagged}
	}
	v := c.Value
	return CellView{Value: &v}
}

type GameView struct {
	Id             string      `json:"id"`
	Width          int         `json:"width"`
	Height         int         `json:"height"`
	MineCount      int         `json:"mine_count"`
	MinesRemaining int         `json:"mines_remaining"`
	State          mines.State `json:"state"`
	StartedAt      int64       `json:"started_at"`
	EndedAt        *int64      `json:"ended_at,omitempty"`
	Grid           []CellView  `json:"grid"`
}

// NewGameView renders g row by row. Times are filled in by the caller.
func NewGameView(id string, g *mines.Game) *GameView {
	f := g.Field()
	cells := f.Cells()
	grid := make([]CellView, len(cells))
	for i, c := range cells {
		grid[i] = NewCellView(c)
	}
	return &GameView{
		Id:             id,
		Width:          f.Width(),
		Height:         f.Height(),
		MineCount:      f.MineCount(),
		MinesRemaining: g.MinesRemaining(),
		State:          g.State(),
		Grid:           grid,
	}
}
