package mines

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

var Log *slog.Logger = slog.Default()

type State int8

const (
	InProgress State = iota
	Won
	Lost
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return fmt.Sprintf("State(%d)", int8(s))
	}
}

// [State] implements [json.Marshaler]
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "in_progress":
		*s = InProgress
	case "won":
		*s = Won
	case "lost":
		*s = Lost
	default:
		return fmt.Errorf("unknown game state %q", str)
	}
	return nil
}

// Game is a single round of minesweeper: a [Field] plus the win/loss state
// machine. Won and Lost are terminal until [Game.Reset].
//
// A Game is not safe for concurrent use.
type Game struct {
	params GameParams
	field  *Field
	state  State
	rnd    Rand
	round  int
}

func NewGame(params GameParams, r Rand) (*Game, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	field, err := NewField(params.Width, params.Height)
	if err != nil {
		return nil, err
	}
	g := &Game{
		params: params,
		field:  field,
		rnd:    r,
	}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// NewGameWithField starts a game on a field laid out by the caller. r is only
// needed by [Game.Reset] and may be nil.
func NewGameWithField(field *Field, r Rand) *Game {
	return &Game{
		params: GameParams{
			Width:     field.width,
			Height:    field.height,
			MineCount: field.mineCount,
		},
		field: field,
		rnd:   r,
	}
}

func (g *Game) Params() GameParams { return g.params }
func (g *Game) Field() *Field      { return g.field }
func (g *Game) State() State       { return g.state }

// Round counts the fields laid out by [Game.Reset].
func (g *Game) Round() int { return g.round }

func (g *Game) Over() bool {
	return g.state != InProgress
}

// Reset lays out a fresh field with the same parameters.
func (g *Game) Reset() error {
	if g.rnd == nil {
		return fmt.Errorf("%w: game has no random source", ErrInvalidConfiguration)
	}
	g.field.clear()
	g.state = InProgress
	g.round++
	return g.field.Generate(g.params.MineCount, g.rnd)
}

// Open reveals x,y on behalf of the player and advances the state machine.
// Flagged cells are protected; finished games are left untouched.
func (g *Game) Open(x, y int) error {
	i, err := g.field.checkBounds(x, y)
	if err != nil {
		return err
	}
	if g.Over() || g.field.cells[i].Flagged {
		return nil
	}
	if err := g.field.Reveal(x, y); err != nil {
		return err
	}
	g.evaluate(i)
	return nil
}

func (g *Game) evaluate(opened int) {
	cell := g.field.cells[opened]
	if cell.IsMine() && !cell.Covered {
		g.state = Lost
		g.field.RevealAllMines()
		Log.Debug("mine hit", "x", opened%g.field.width, "y", opened/g.field.width)
		return
	}
	if g.field.CheckWin() {
		g.state = Won
		g.field.FlagAllMines()
	}
}

func (g *Game) Flag(x, y int) error {
	if _, err := g.field.checkBounds(x, y); err != nil {
		return err
	}
	if g.Over() {
		return nil
	}
	return g.field.ToggleFlag(x, y)
}

// Chord opens every unflagged neighbour of an uncovered number once the
// player has flagged as many neighbours as the number says.
func (g *Game) Chord(x, y int) error {
	i, err := g.field.checkBounds(x, y)
	if err != nil {
		return err
	}
	cell := g.field.cells[i]
	if g.Over() || cell.Covered || cell.Value <= 0 {
		return nil
	}

	flags := 0
	js := make([]int, 0, 8)
	g.field.neighbours(x, y, func(j int) {
		switch c := g.field.cells[j]; {
		case c.Flagged:
			flags++
		case c.Covered:
			js = append(js, j)
		}
	})
	if flags != int(cell.Value) {
		return nil
	}

	for _, j := range js {
		if err := g.Open(j%g.field.width, j/g.field.width); err != nil {
			return err
		}
		if g.Over() {
			break
		}
	}
	return nil
}

func (g *Game) Forfeit() {
	if g.Over() {
		return
	}
	g.state = Lost
	g.field.RevealAllMines()
}

// MinesRemaining is the mine count minus the flags placed; it goes negative
// when the player over-flags.
func (g *Game) MinesRemaining() int {
	return g.field.mineCount - g.field.CountFlagged()
}
