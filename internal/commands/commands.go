// Package commands implements the line-oriented move protocol spoken over
// the game WebSocket: one command per line, arguments separated by spaces.
//
//	g        refresh, no-op
//	o x y    open a cell
//	f x y    toggle a flag
//	c x y    chord around an opened number
//	n        start over with a fresh field
//	r        give up
package commands

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/vancomm/minefield/internal/mines"
)

type Command string

const (
	Noop    Command = "g"
	Open    Command = "o"
	Flag    Command = "f"
	Chord   Command = "c"
	Reset   Command = "n"
	Forfeit Command = "r"
)

// Maps known commands to number of arguments
var commandNargs = map[Command]int{
	Noop:    0,
	Open:    2,
	Flag:    2,
	Chord:   2,
	Reset:   0,
	Forfeit: 0,
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNargs          = errors.New("invalid number of arguments")
)

func parseXY(twoStrings []string) (x int, y int, err error) {
	if x, err = strconv.Atoi(twoStrings[0]); err != nil {
		err = errors.New("first argument must be an int")
		return
	}
	if y, err = strconv.Atoi(twoStrings[1]); err != nil {
		err = errors.New("second argument must be an int")
		return
	}
	return
}

// Execute parses a single command and applies it to g.
func Execute(g *mines.Game, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return ErrUnknownCommand
	}
	cmd := Command(parts[0])
	nargs, ok := commandNargs[cmd]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownCommand, parts[0])
	}
	if nargs != len(parts)-1 {
		return fmt.Errorf("%w for %q: want %d, got %d", ErrNargs, cmd, nargs, len(parts)-1)
	}

	switch cmd {
	case Noop:
		return nil
	case Reset:
		return g.Reset()
	case Forfeit:
		g.Forfeit()
		return nil
	}

	x, y, err := parseXY(parts[1:])
	if err != nil {
		return err
	}
	if !g.Params().PointInBounds(x, y) {
		return fmt.Errorf("%w: %d %d", mines.ErrOutOfBounds, x, y)
	}

	switch cmd {
	case Open:
		return g.Open(x, y)
	case Flag:
		return g.Flag(x, y)
	case Chord:
		return g.Chord(x, y)
	}
	return fmt.Errorf("%w %q", ErrUnknownCommand, cmd)
}

// ExecuteAll runs every non-empty line of message in order. Once the game is
// over the remaining moves are dropped, except for a reset.
func ExecuteAll(g *mines.Game, message string) error {
	for _, line := range byPiece(message, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if g.Over() && Command(strings.Fields(line)[0]) != Reset {
			continue
		}
		if err := Execute(g, line); err != nil {
			return err
		}
	}
	return nil
}

func byPiece(s string, sep string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		i := 0
		found := true
		var piece string
		for found {
			piece, s, found = strings.Cut(s, sep)
			if !yield(i, piece) {
				return
			}
			i += 1
		}
	}
}
