package searcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connect4/communication"
	"connect4/game"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// Transport is the coordinator's end of the worker links.
type Transport interface {
	Workers() int
	Send(worker int, msg communication.Message) error
	// Poll returns a waiting result without blocking.
	Poll() (worker int, res communication.Result, ok bool)
}

// Searcher computes machine moves by cutting the game tree into tasks,
// scheduling them over a Transport and folding the results back to the root.
// A Searcher is used from one goroutine.
type Searcher struct {
	transport     Transport
	depth         int
	level         int
	rng           *rand.Rand
	watchdog      time.Duration
	localFallback bool
	pollInterval  time.Duration
	metrics       MetricsCollector
	log           zerolog.Logger

	// Workers that were given up on by the watchdog. They rejoin when they answer.
	lost map[int]bool
}

// NewSearcher returns a Searcher over transport. A nil transport evaluates
// every task on the calling goroutine.
func NewSearcher(transport Transport, options ...Option) *Searcher {
	s := defaults()
	s.transport = transport
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Searcher) Depth() int { return s.depth }
func (s *Searcher) Level() int { return s.level }

func (s *Searcher) workers() int {
	if s.transport == nil {
		return 0
	}
	return s.transport.Workers()
}

// Decision is the outcome of one machine turn.
type Decision struct {
	Column  int
	Value   float64
	Root    float64
	Values  []ChildValue
	Metrics SearchMetrics
}

// FindMove searches board for the machine's move to the configured depth.
func (s *Searcher) FindMove(ctx context.Context, board game.Board) (Decision, error) {
	return s.FindMoveAt(ctx, board, s.depth)
}

// FindMoveAt searches board to the given depth. The agglomeration level is
// capped at depth.
func (s *Searcher) FindMoveAt(ctx context.Context, board game.Board, depth int) (Decision, error) {
	if depth <= 0 {
		return Decision{}, fmt.Errorf("search depth %d must be positive", depth)
	}
	level := min(s.level, depth)

	tree := Generate(board, depth, level)
	metrics, err := s.run(ctx, tree, depth, level)
	if err != nil {
		return Decision{}, err
	}

	root, err := Propagate(tree)
	if err != nil {
		return Decision{}, err
	}
	col, value, err := BestMove(tree, s.rng)
	if err != nil {
		return Decision{}, err
	}

	s.log.Info().
		Int("column", col).
		Float64("value", value).
		Int("depth", depth).
		Int("level", level).
		Int64("tasks", metrics.Tasks).
		Dur("duration", metrics.Duration).
		Msg("machine move chosen")

	return Decision{
		Column:  col,
		Value:   value,
		Root:    root,
		Values:  RootValues(tree),
		Metrics: metrics,
	}, nil
}

// Run schedules the tasks of tree until every one is resolved.
func (s *Searcher) Run(ctx context.Context, tree *Tree) (SearchMetrics, error) {
	return s.run(ctx, tree, s.depth, s.level)
}

// Close tells every worker to leave its receive loop.
func (s *Searcher) Close() error {
	var errs []error
	for w := 0; w < s.workers(); w++ {
		if err := s.transport.Send(w, communication.Terminate{}); err != nil {
			errs = append(errs, fmt.Errorf("terminate worker %d: %w", w, err))
		}
	}
	return errors.Join(errs...)
}
