package agent

import (
	"context"
	"fmt"

	"connect4/communication"
	"connect4/searcher"

	"github.com/rs/zerolog/log"
)

// Run is the worker loop: evaluate every Task received and answer it with
// one Result, until a Terminate arrives. It keeps no state between tasks.
func Run(ctx context.Context, conn communication.Conn) error {
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}

		switch m := msg.(type) {
		case communication.Task:
			value := searcher.Evaluate(&m.Board, m.Board.LastMover(), m.Board.LastCol(), m.Depth)
			log.Debug().
				Int("node", m.Node).
				Int("depth", m.Depth).
				Float64("value", value).
				Msg("task evaluated")
			if err := conn.Send(communication.Result{Search: m.Search, Node: m.Node, Value: value}); err != nil {
				return fmt.Errorf("send result for node %d: %w", m.Node, err)
			}
		case communication.Terminate:
			return nil
		default:
			return fmt.Errorf("unexpected %T: %w", msg, communication.ErrMalformedMessage)
		}
	}
}
