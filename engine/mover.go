package engine

import (
	"context"

	"connect4/game"
	"connect4/searcher"

	"github.com/rs/zerolog/log"
)

type finder interface {
	Depth() int
	FindMoveAt(ctx context.Context, b game.Board, depth int) (searcher.Decision, error)
}

// SearchMover plays the distributed search's best move.
type SearchMover struct {
	finder      finder
	retryOnLoss bool
}

// NewSearchMover wraps s. With retryOnLoss, a search in which every move
// loses is repeated at half the depth until some move does not lose or the
// depth runs out.
func NewSearchMover(s *searcher.Searcher, retryOnLoss bool) *SearchMover {
	return &SearchMover{finder: s, retryOnLoss: retryOnLoss}
}

func (m *SearchMover) FindMove(ctx context.Context, b game.Board) (Move, error) {
	depth := m.finder.Depth()
	for {
		d, err := m.finder.FindMoveAt(ctx, b, depth)
		if err != nil {
			return Move{}, err
		}
		if !m.retryOnLoss || d.Value != searcher.Loss || depth/2 == 0 {
			return Move{Column: d.Column, Value: d.Value, Depth: depth, Values: d.Values}, nil
		}
		log.Info().Int("depth", depth).Msg("every move loses, searching shallower")
		depth /= 2
	}
}
