package searcher

import (
	"errors"
	"fmt"
	"math"

	"connect4/game"
)

var ErrUnresolved = errors.New("node has no value")

// Node is an element of the tree arena. Children hold arena indices in column order.
type Node struct {
	ID       int
	Board    game.Board
	Column   int // move that produced this node, -1 for the root
	Level    int
	Children []int
	Value    float64
	Resolved bool
}

// Mover is the player choosing among the node's children.
func (n *Node) Mover() game.Player {
	return n.Board.LastMover().Opponent()
}

// Task is a frontier node whose value is left to the sequential evaluator.
type Task struct {
	Node  int
	Depth int
}

// Tree is the per-turn search tree. The root is Nodes[0].
type Tree struct {
	Nodes []Node
	Tasks []Task
}

// Generate expands root until terminal positions or the agglomeration level,
// queueing a Task for every non-terminal node at that level. Terminal nodes
// are resolved to Win or Loss immediately; exhausted boards to Draw.
// A level deeper than depth is cut at depth.
func Generate(root game.Board, depth, level int) *Tree {
	level = min(level, depth)
	t := &Tree{}
	t.expand(root.Clone(), -1, 0, depth, level)
	return t
}

func (t *Tree) expand(b game.Board, col, lvl, depth, level int) int {
	id := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{ID: id, Board: b, Column: col, Level: lvl})

	if b.IsTerminalAt(b.LastCol()) {
		value := Loss
		if b.LastMover() == game.Machine {
			value = Win
		}
		t.Nodes[id].Value, t.Nodes[id].Resolved = value, true
		return id
	}

	if lvl == level {
		t.Tasks = append(t.Tasks, Task{Node: id, Depth: depth - level})
		return id
	}

	moves := b.LegalMoves()
	if len(moves) == 0 {
		t.Nodes[id].Value, t.Nodes[id].Resolved = Draw, true
		return id
	}

	mover := b.LastMover().Opponent()
	for _, c := range moves {
		child := b.Clone()
		child.Apply(c, mover)
		childID := t.expand(child, c, lvl+1, depth, level)
		t.Nodes[id].Children = append(t.Nodes[id].Children, childID)
	}
	return id
}

func (t *Tree) Root() *Node {
	return &t.Nodes[0]
}

// Resolve records the value of a task node. Each node is resolved once.
func (t *Tree) Resolve(id int, value float64) error {
	if id < 0 || id >= len(t.Nodes) {
		return fmt.Errorf("node %d not in tree of %d nodes", id, len(t.Nodes))
	}
	n := &t.Nodes[id]
	if len(n.Children) > 0 {
		return fmt.Errorf("node %d is internal", id)
	}
	if n.Resolved {
		return fmt.Errorf("node %d already resolved", id)
	}
	if math.IsNaN(value) || value < Loss || value > Win {
		return fmt.Errorf("node %d value %v out of range", id, value)
	}
	n.Value, n.Resolved = value, true
	return nil
}
