package searcher

import "connect4/game"

// Evaluate is the sequential depth-limited search. It mutates b in place
// through Apply/UndoTo pairs and leaves it as it found it.
//
// Children are explored in ascending column order. A proven win for the
// machine ends the scan when the machine is the one choosing; a proven loss
// ends it when the opponent is choosing. A board with no legal moves left is
// a draw.
func Evaluate(b *game.Board, lastMover game.Player, lastCol, depth int) float64 {
	if b.IsTerminalAt(lastCol) {
		if lastMover == game.Machine {
			return Win
		}
		return Loss
	}

	if depth == 0 {
		return Draw
	}

	mover := lastMover.Opponent()
	total := 0.0
	moves := 0
	allLose := true
	allWin := true

	for col := 0; col < b.Cols(); col++ {
		if !b.IsLegal(col) {
			continue
		}
		moves++
		prevMover, prevCol := b.LastMover(), b.LastCol()
		b.Apply(col, mover)
		result := Evaluate(b, mover, col, depth-1)
		b.UndoTo(col, prevMover, prevCol)

		if result > Loss {
			allLose = false
		}
		if result != Win {
			allWin = false
		}
		if result == Win && mover == game.Machine {
			return Win
		}
		if result == Loss && mover == game.Opponent {
			return Loss
		}
		total += result
	}

	if moves == 0 {
		// A full board with no winner is a draw, not a vacuous win.
		return Draw
	}
	if allWin {
		return Win
	}
	if allLose {
		return Loss
	}
	return total / float64(moves)
}

// EvaluateBoard evaluates a copy of b from its recorded last move.
func EvaluateBoard(b game.Board, depth int) float64 {
	c := b.Clone()
	return Evaluate(&c, c.LastMover(), c.LastCol(), depth)
}
