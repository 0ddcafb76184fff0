package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"connect4/communication"
	"connect4/game"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type sent struct {
	worker int
	msg    communication.Message
}

// fakeTransport answers every task at once by evaluating it, except on
// silent workers. Workers in broken refuse sends.
type fakeTransport struct {
	workers int
	silent  map[int]bool
	broken  map[int]bool
	corrupt bool
	sent    []sent
	results []communication.Inbound
}

func newFakeTransport(workers int) *fakeTransport {
	return &fakeTransport{workers: workers, silent: map[int]bool{}, broken: map[int]bool{}}
}

func (f *fakeTransport) Workers() int { return f.workers }

func (f *fakeTransport) Send(worker int, msg communication.Message) error {
	if f.broken[worker] {
		return errors.New("link down")
	}
	f.sent = append(f.sent, sent{worker: worker, msg: msg})

	task, ok := msg.(communication.Task)
	if !ok || f.silent[worker] {
		return nil
	}
	value := Evaluate(&task.Board, task.Board.LastMover(), task.Board.LastCol(), task.Depth)
	if f.corrupt {
		value = 2
	}
	f.results = append(f.results, communication.Inbound{
		Worker: worker,
		Result: communication.Result{Search: task.Search, Node: task.Node, Value: value},
	})
	return nil
}

func (f *fakeTransport) Poll() (int, communication.Result, bool) {
	if len(f.results) == 0 {
		return -1, communication.Result{}, false
	}
	in := f.results[0]
	f.results = f.results[1:]
	return in.Worker, in.Result, true
}

func (f *fakeTransport) tasksTo(worker int) int {
	n := 0
	for _, s := range f.sent {
		if _, ok := s.msg.(communication.Task); ok && s.worker == worker {
			n++
		}
	}
	return n
}

func quiet() Option {
	return WithLogger(zerolog.Nop())
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("every task is sent once and answered once", func(t *testing.T) {
		transport := newFakeTransport(4)
		s := NewSearcher(transport, WithDepth(3), WithLevel(2), WithLocalFallback(false), WithMetrics(), quiet())
		board := game.NewBoard(6, 7)

		decision, err := s.FindMove(ctx, board)
		require.NoError(t, err)

		m := decision.Metrics
		require.EqualValues(t, 49, m.Tasks)
		require.EqualValues(t, 49, m.Sent)
		require.EqualValues(t, 49, m.Received)
		require.Zero(t, m.Local)
		require.Zero(t, m.Stale)

		nodes := map[int]bool{}
		for _, s := range transport.sent {
			task := s.msg.(communication.Task)
			require.False(t, nodes[task.Node], "node %d sent twice", task.Node)
			require.Equal(t, m.SearchID, task.Search)
			require.Equal(t, 1, task.Depth)
			nodes[task.Node] = true
		}
		require.Len(t, nodes, 49)
		require.Equal(t, EvaluateBoard(board, 3), decision.Root)
	})

	t.Run("empty board at depth one picks the leftmost column", func(t *testing.T) {
		transport := newFakeTransport(3)
		s := NewSearcher(transport, WithDepth(1), WithLevel(1), WithMetrics(), quiet())

		decision, err := s.FindMove(ctx, game.NewBoard(6, 7))
		require.NoError(t, err)

		require.Equal(t, 0, decision.Column)
		require.Equal(t, Draw, decision.Value)
		require.Len(t, decision.Values, 7)
		for i, cv := range decision.Values {
			require.Equal(t, i, cv.Column)
			require.Equal(t, Draw, cv.Value)
		}
		require.EqualValues(t, 7, decision.Metrics.Tasks)
		require.EqualValues(t, 7, decision.Metrics.Sent+decision.Metrics.Local)
	})

	t.Run("without a transport every task runs locally", func(t *testing.T) {
		s := NewSearcher(nil, WithDepth(2), WithLevel(1), WithMetrics(), quiet())
		board := play(t, 0, 6, 1, 6, 0, 6, 2)

		decision, err := s.FindMove(ctx, board)
		require.NoError(t, err)

		require.Equal(t, 6, decision.Column)
		require.Equal(t, Win, decision.Value)
		require.Zero(t, decision.Metrics.Sent)
		require.EqualValues(t, decision.Metrics.Tasks, decision.Metrics.Local)
		require.NoError(t, s.Close())
	})

	t.Run("level is capped at the search depth", func(t *testing.T) {
		s := NewSearcher(newFakeTransport(2), WithLevel(3), WithMetrics(), quiet())

		decision, err := s.FindMoveAt(ctx, game.NewBoard(6, 7), 1)
		require.NoError(t, err)
		require.Equal(t, 1, decision.Metrics.Level)
		require.EqualValues(t, 7, decision.Metrics.Tasks)

		_, err = s.FindMoveAt(ctx, game.NewBoard(6, 7), 0)
		require.Error(t, err)
	})

	t.Run("watchdog takes back tasks from a silent worker", func(t *testing.T) {
		transport := newFakeTransport(2)
		transport.silent[0] = true
		s := NewSearcher(transport,
			WithDepth(2), WithLevel(1),
			WithLocalFallback(false),
			WithWatchdog(time.Millisecond),
			WithPollInterval(100*time.Microsecond),
			WithMetrics(), quiet())
		board := play(t, 3)

		decision, err := s.FindMove(ctx, board)
		require.NoError(t, err)
		require.Equal(t, EvaluateBoard(board, 2), decision.Root)
		require.EqualValues(t, 1, decision.Metrics.Reevaluated)
		require.Equal(t, 1, transport.tasksTo(0))
		require.True(t, s.lost[0])

		// The lost worker gets nothing until it speaks again.
		_, err = s.FindMove(ctx, board)
		require.NoError(t, err)
		require.Equal(t, 1, transport.tasksTo(0))

		// Its late answer belongs to an old search and is dropped, but the
		// worker is taken back.
		transport.silent[0] = false
		transport.results = append(transport.results, communication.Inbound{
			Worker: 0,
			Result: communication.Result{Search: uuid.New(), Node: 1, Value: Win},
		})
		decision, err = s.FindMove(ctx, board)
		require.NoError(t, err)
		require.EqualValues(t, 1, decision.Metrics.Stale)
		require.False(t, s.lost[0])
		require.Greater(t, transport.tasksTo(0), 1)
		require.Equal(t, EvaluateBoard(board, 2), decision.Root)
	})

	t.Run("out of range results are evaluated again locally", func(t *testing.T) {
		transport := newFakeTransport(2)
		transport.corrupt = true
		s := NewSearcher(transport, WithDepth(3), WithLevel(1), WithLocalFallback(false), quiet())
		board := play(t, 3, 2)

		decision, err := s.FindMove(ctx, board)
		require.NoError(t, err)
		require.Equal(t, EvaluateBoard(board, 3), decision.Root)
	})

	t.Run("no reachable worker without fallback fails", func(t *testing.T) {
		transport := newFakeTransport(2)
		transport.broken[0] = true
		transport.broken[1] = true
		s := NewSearcher(transport, WithDepth(2), WithLocalFallback(false), quiet())

		_, err := s.FindMove(ctx, game.NewBoard(6, 7))
		require.ErrorIs(t, err, ErrNoWorkers)
	})

	t.Run("no reachable worker with fallback still answers", func(t *testing.T) {
		transport := newFakeTransport(2)
		transport.broken[0] = true
		transport.broken[1] = true
		s := NewSearcher(transport, WithDepth(2), quiet())

		decision, err := s.FindMove(ctx, game.NewBoard(6, 7))
		require.NoError(t, err)
		require.Equal(t, 0, decision.Column)
	})

	t.Run("cancelled context stops the search", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		s := NewSearcher(newFakeTransport(2), quiet())

		_, err := s.FindMove(cctx, game.NewBoard(6, 7))
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("close terminates every worker", func(t *testing.T) {
		transport := newFakeTransport(3)
		s := NewSearcher(transport, quiet())

		require.NoError(t, s.Close())
		require.Len(t, transport.sent, 3)
		for i, s := range transport.sent {
			require.Equal(t, i, s.worker)
			require.Equal(t, communication.TagTerminate, s.msg.Tag())
		}
	})
}

func TestStateString(t *testing.T) {
	require.Equal(t, "dispatching", Dispatching.String())
	require.Equal(t, "polling", Polling.String())
	require.Equal(t, "draining", Draining.String())
	require.Equal(t, "done", Done.String())
	require.Equal(t, "unknown", State(9).String())
}
