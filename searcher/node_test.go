package searcher

import (
	"testing"

	"connect4/game"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Run("level one yields one task per legal first move", func(t *testing.T) {
		tree := Generate(game.NewBoard(6, 7), 1, 1)

		require.Len(t, tree.Tasks, 7)
		require.Len(t, tree.Nodes, 8)
		for i, task := range tree.Tasks {
			node := tree.Nodes[task.Node]
			require.Equal(t, 0, task.Depth)
			require.Equal(t, i, node.Column)
			require.Equal(t, game.Machine, node.Board.LastMover())
			require.Equal(t, 41, node.Board.EmptyCells())
		}
	})

	t.Run("each level multiplies the tasks by the fan-out", func(t *testing.T) {
		tree := Generate(game.NewBoard(6, 7), 6, 3)

		require.Len(t, tree.Tasks, 7*7*7)
		require.Len(t, tree.Nodes, 1+7+49+343)
		for _, task := range tree.Tasks {
			require.Equal(t, 3, task.Depth)
			require.Equal(t, 3, tree.Nodes[task.Node].Level)
		}
	})

	t.Run("a level beyond the depth is cut at the depth", func(t *testing.T) {
		tree := Generate(game.NewBoard(6, 7), 1, 3)

		require.Len(t, tree.Tasks, 7)
		require.Len(t, tree.Nodes, 8)
		for _, task := range tree.Tasks {
			require.Equal(t, 0, task.Depth)
			require.Equal(t, 1, tree.Nodes[task.Node].Level)
		}
	})

	t.Run("every node is registered under its arena index", func(t *testing.T) {
		tree := Generate(play(t, 3, 3), 4, 2)

		for i, n := range tree.Nodes {
			require.Equal(t, i, n.ID)
			for _, child := range n.Children {
				require.Greater(t, child, i, "children come after their parent")
			}
		}
	})

	t.Run("terminal nodes are resolved and never queued", func(t *testing.T) {
		// Machine to move with three stacked in column 6.
		b := play(t, 0, 6, 1, 6, 0, 6, 2)
		tree := Generate(b, 3, 1)

		require.Len(t, tree.Tasks, 6)
		winner := tree.Nodes[tree.Root().Children[6]]
		require.True(t, winner.Resolved)
		require.Equal(t, Win, winner.Value)
		for _, task := range tree.Tasks {
			require.NotEqual(t, 6, tree.Nodes[task.Node].Column)
		}
	})

	t.Run("opponent wins below the root are resolved as losses", func(t *testing.T) {
		// Opponent threatens column 0 after any machine move except 0.
		b := play(t, 0, 6, 0, 5, 0)
		tree := Generate(b, 4, 2)

		for _, childID := range tree.Root().Children {
			child := tree.Nodes[childID]
			if child.Column == 0 {
				continue
			}
			threat := tree.Nodes[child.Children[0]]
			require.Equal(t, 0, threat.Column)
			require.True(t, threat.Resolved)
			require.Equal(t, Loss, threat.Value)
		}
	})

	t.Run("full columns are skipped", func(t *testing.T) {
		b := game.NewBoard(2, 3)
		b.Apply(1, game.Opponent)
		b.Apply(1, game.Machine)
		b.SetLast(game.Opponent, -1)

		tree := Generate(b, 2, 1)

		require.Len(t, tree.Tasks, 2)
		require.Equal(t, 0, tree.Nodes[tree.Tasks[0].Node].Column)
		require.Equal(t, 2, tree.Nodes[tree.Tasks[1].Node].Column)
	})

	t.Run("nodes own independent boards", func(t *testing.T) {
		tree := Generate(game.NewBoard(6, 7), 2, 2)
		sibling := tree.Nodes[tree.Tasks[1].Node].Board.Clone()
		root := tree.Root().Board.Clone()

		first := &tree.Nodes[tree.Tasks[0].Node].Board
		first.Apply(1, game.Machine)

		require.Equal(t, sibling, tree.Nodes[tree.Tasks[1].Node].Board)
		require.Equal(t, root, tree.Root().Board)
	})
}

func TestResolve(t *testing.T) {
	tree := Generate(game.NewBoard(6, 7), 2, 1)
	task := tree.Tasks[0]

	t.Run("accepts a task value once", func(t *testing.T) {
		require.NoError(t, tree.Resolve(task.Node, 0.5))
		require.Error(t, tree.Resolve(task.Node, 0.5))
	})

	t.Run("rejects internal nodes, unknown ids and out of range values", func(t *testing.T) {
		require.Error(t, tree.Resolve(0, 0))
		require.Error(t, tree.Resolve(len(tree.Nodes), 0))
		require.Error(t, tree.Resolve(tree.Tasks[1].Node, 1.5))
	})
}
