package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"connect4/game"
)

// RunConsole plays a line-mode game: the human opens, types a column per
// turn and is asked again on bad input. It returns when the game ends or the
// input runs dry.
func (e *Engine) RunConsole(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	cols := e.board.Cols()

	for {
		board := e.Board()
		fmt.Fprint(out, board.String())
		if e.outcome != InProgress {
			fmt.Fprintln(out, verdict(e.outcome))
			return nil
		}

		for {
			fmt.Fprintf(out, "Play your move! [column 0-%d]: ", cols-1)
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			col, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err != nil {
				fmt.Fprintf(out, "Not valid! Column is a number between 0 and %d\n", cols-1)
				continue
			}
			if err := e.PlayHuman(col); err != nil {
				if errors.Is(err, game.ErrIllegalMove) {
					fmt.Fprintln(out, "That move is not legal. Play again...")
					continue
				}
				return err
			}
			break
		}

		if e.outcome != InProgress {
			continue
		}

		move, err := e.PlayMachine(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Machine plays column %d (value %.3f, depth %d)\n", move.Column, move.Value, move.Depth)
	}
}

func verdict(o Outcome) string {
	switch o {
	case MachineWon:
		return "Game over. The machine wins."
	case OpponentWon:
		return "Game over. Congratulations, you win!"
	case Draw:
		return "Game over. It's a draw."
	default:
		return ""
	}
}
