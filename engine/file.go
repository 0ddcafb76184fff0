package engine

import (
	"context"

	"connect4/game"

	"github.com/rs/zerolog/log"
)

// FileResult reports a move made on a persisted board.
type FileResult struct {
	Move    Move
	Outcome Outcome
}

// SolveFile loads the board at path, plays the machine's move and writes the
// board back. A board whose game is already decided is left untouched and
// ErrGameOver is returned along with its outcome.
func SolveFile(ctx context.Context, path string, mover Mover) (FileResult, error) {
	board, err := game.LoadFile(path)
	if err != nil {
		return FileResult{}, err
	}

	e := New(board, mover)
	if e.Outcome() != InProgress {
		return FileResult{Outcome: e.Outcome()}, ErrGameOver
	}

	move, err := e.PlayMachine(ctx)
	if err != nil {
		return FileResult{}, err
	}
	if err := game.SaveFile(path, e.Board()); err != nil {
		return FileResult{}, err
	}

	log.Info().
		Str("path", path).
		Int("column", move.Column).
		Float64("value", move.Value).
		Stringer("outcome", e.Outcome()).
		Msg("board updated")
	return FileResult{Move: move, Outcome: e.Outcome()}, nil
}
