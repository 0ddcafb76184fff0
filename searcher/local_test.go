package searcher_test

import (
	"context"
	"testing"

	"connect4/communication"
	"connect4/game"
	"connect4/searcher"
	"connect4/searcher/agent"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSearchOverLocalWorkers(t *testing.T) {
	ctx := context.Background()

	for _, workers := range []int{1, 4} {
		local := communication.NewLocal(ctx, workers, agent.Run)
		s := searcher.NewSearcher(local,
			searcher.WithDepth(4),
			searcher.WithLevel(2),
			searcher.WithLocalFallback(false),
			searcher.WithMetrics(),
			searcher.WithLogger(zerolog.Nop()))

		board := game.NewBoard(6, 7)
		for turn, col := range []int{3, 3, 2} {
			player := game.Opponent
			if turn%2 == 1 {
				player = game.Machine
			}
			require.True(t, board.Apply(col, player))
		}

		decision, err := s.FindMove(ctx, board)
		require.NoError(t, err)
		require.Equal(t, searcher.EvaluateBoard(board, 4), decision.Root)
		require.Equal(t, decision.Metrics.Sent, decision.Metrics.Received)
		require.Equal(t, decision.Metrics.Tasks, decision.Metrics.Sent)

		require.NoError(t, s.Close())
		require.NoError(t, local.Wait())
	}
}
