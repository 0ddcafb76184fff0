package searcher

import (
	"time"

	"connect4/meta"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

type Option func(s *Searcher)

func WithDepth(depth int) Option {
	return func(s *Searcher) {
		if depth > 0 {
			s.depth = depth
		}
	}
}

// WithLevel sets the agglomeration level: the tree depth at which tasks are cut.
func WithLevel(level int) Option {
	return func(s *Searcher) {
		if level > 0 {
			s.level = level
		}
	}
}

// WithRandomTieBreak picks uniformly among equally valued best moves.
// A zero seed seeds from the clock.
func WithRandomTieBreak(seed uint64) Option {
	return func(s *Searcher) {
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithWatchdog takes a task back from a worker that has not answered within
// timeout and evaluates it on the coordinator. Without it a silent worker
// stalls the search.
func WithWatchdog(timeout time.Duration) Option {
	return func(s *Searcher) {
		if timeout > 0 {
			s.watchdog = timeout
		}
	}
}

// WithLocalFallback controls whether the coordinator evaluates queued tasks
// itself while no result is waiting.
func WithLocalFallback(enabled bool) Option {
	return func(s *Searcher) {
		s.localFallback = enabled
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(s *Searcher) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

func WithMetrics() Option {
	return func(s *Searcher) {
		s.metrics = NewMetricsCollector()
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Searcher) {
		s.log = logger
	}
}

func defaults() *Searcher {
	return &Searcher{
		depth:         meta.DEPTH,
		level:         meta.LEVEL,
		localFallback: true,
		pollInterval:  50 * time.Microsecond,
		metrics:       NewNoMetricsCollector(),
		log:           log.Logger,
		lost:          map[int]bool{},
	}
}
