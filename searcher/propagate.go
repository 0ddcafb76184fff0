package searcher

import (
	"errors"
	"fmt"

	"connect4/game"
	"golang.org/x/exp/rand"
)

var ErrNoMoves = errors.New("no moves to choose from")

// Propagate folds resolved leaf values up to the root and returns the root value.
// Internal values are always recomputed from their children, so running it
// again over the same leaves gives the same result.
func Propagate(t *Tree) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, ErrNoMoves
	}
	return t.fold(0)
}

func (t *Tree) fold(id int) (float64, error) {
	n := &t.Nodes[id]
	if len(n.Children) == 0 {
		if !n.Resolved {
			return 0, fmt.Errorf("node %d at level %d: %w", id, n.Level, ErrUnresolved)
		}
		return n.Value, nil
	}

	values := make([]float64, len(n.Children))
	for i, child := range n.Children {
		v, err := t.fold(child)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}

	n = &t.Nodes[id]
	n.Value, n.Resolved = aggregate(n.Mover(), values), true
	return n.Value, nil
}

// aggregate combines child values the same way Evaluate does while scanning.
func aggregate(mover game.Player, values []float64) float64 {
	anyWin, anyLoss := false, false
	allWin, allLose := true, true
	total := 0.0
	for _, v := range values {
		if v == Win {
			anyWin = true
		} else {
			allWin = false
		}
		if v == Loss {
			anyLoss = true
		} else {
			allLose = false
		}
		total += v
	}

	switch {
	case mover == game.Machine && anyWin:
		return Win
	case mover == game.Opponent && anyLoss:
		return Loss
	case allLose:
		return Loss
	case allWin:
		return Win
	default:
		return total / float64(len(values))
	}
}

// ChildValue is the resolved value of one root move.
type ChildValue struct {
	Column int
	Value  float64
}

// RootValues lists the root children in column order.
func RootValues(t *Tree) []ChildValue {
	root := t.Root()
	out := make([]ChildValue, 0, len(root.Children))
	for _, id := range root.Children {
		out = append(out, ChildValue{Column: t.Nodes[id].Column, Value: t.Nodes[id].Value})
	}
	return out
}

// BestMove picks the root child with the highest value. Ties go to the lowest
// column, or to a uniformly random tied child when rng is not nil.
func BestMove(t *Tree, rng *rand.Rand) (int, float64, error) {
	if len(t.Nodes) == 0 || len(t.Root().Children) == 0 {
		return -1, 0, ErrNoMoves
	}

	var tied []ChildValue
	for _, id := range t.Root().Children {
		n := &t.Nodes[id]
		if !n.Resolved {
			return -1, 0, fmt.Errorf("column %d: %w", n.Column, ErrUnresolved)
		}
		cv := ChildValue{Column: n.Column, Value: n.Value}
		switch {
		case len(tied) == 0 || cv.Value > tied[0].Value:
			tied = append(tied[:0], cv)
		case cv.Value == tied[0].Value:
			tied = append(tied, cv)
		}
	}

	best := tied[0]
	if rng != nil && len(tied) > 1 {
		best = tied[rng.Intn(len(tied))]
	}
	return best.Column, best.Value, nil
}
