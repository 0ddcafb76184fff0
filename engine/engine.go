package engine

import (
	"context"
	"errors"
	"fmt"

	"connect4/game"
	"connect4/searcher"
)

var ErrGameOver = errors.New("game is over")

type Outcome int

const (
	InProgress Outcome = iota
	MachineWon
	OpponentWon
	Draw
)

func (o Outcome) String() string {
	switch o {
	case InProgress:
		return "in progress"
	case MachineWon:
		return "machine won"
	case OpponentWon:
		return "opponent won"
	case Draw:
		return "draw"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Move is the machine's choice for one turn.
type Move struct {
	Column int
	Value  float64
	Depth  int // depth the choice was finally made at
	Values []searcher.ChildValue
}

// Mover picks the machine's column on a board where the machine is to move.
type Mover interface {
	FindMove(ctx context.Context, b game.Board) (Move, error)
}

// Engine is a game between a human opponent and the machine.
type Engine struct {
	board   game.Board
	mover   Mover
	outcome Outcome
}

// New starts from board, which may already hold a finished game.
func New(board game.Board, mover Mover) *Engine {
	e := &Engine{board: board.Clone(), mover: mover}
	switch winner := e.board.Winner(); {
	case winner == game.Machine:
		e.outcome = MachineWon
	case winner == game.Opponent:
		e.outcome = OpponentWon
	case e.board.Full():
		e.outcome = Draw
	}
	return e
}

func (e *Engine) Board() game.Board {
	return e.board.Clone()
}

func (e *Engine) Outcome() Outcome {
	return e.outcome
}

// PlayHuman drops an opponent token into col.
func (e *Engine) PlayHuman(col int) error {
	if e.outcome != InProgress {
		return ErrGameOver
	}
	if !e.board.IsLegal(col) {
		return fmt.Errorf("column %d: %w", col, game.ErrIllegalMove)
	}
	e.board.Apply(col, game.Opponent)
	e.settle(col)
	return nil
}

// PlayMachine searches for the machine's move and plays it.
func (e *Engine) PlayMachine(ctx context.Context) (Move, error) {
	if e.outcome != InProgress {
		return Move{}, ErrGameOver
	}
	move, err := e.mover.FindMove(ctx, e.board.Clone())
	if err != nil {
		return Move{}, err
	}
	if !e.board.Apply(move.Column, game.Machine) {
		return Move{}, fmt.Errorf("machine chose column %d: %w", move.Column, game.ErrIllegalMove)
	}
	e.settle(move.Column)
	return move, nil
}

func (e *Engine) settle(col int) {
	switch {
	case e.board.IsTerminalAt(col) && e.board.LastMover() == game.Machine:
		e.outcome = MachineWon
	case e.board.IsTerminalAt(col):
		e.outcome = OpponentWon
	case e.board.Full():
		e.outcome = Draw
	}
}
