package searcher

import (
	"context"
	"errors"
	"time"

	"connect4/communication"

	"github.com/google/uuid"
)

var ErrNoWorkers = errors.New("tasks queued but no worker can take them")

// State is the phase of the scheduling loop.
type State int

const (
	Dispatching State = iota
	Polling
	Draining
	Done
)

func (s State) String() string {
	switch s {
	case Dispatching:
		return "dispatching"
	case Polling:
		return "polling"
	case Draining:
		return "draining"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

type flight struct {
	task Task
	sent time.Time
}

// schedule is the coordinator state of one search.
type schedule struct {
	*Searcher
	id       uuid.UUID
	tree     *Tree
	queue    []Task
	free     []int
	inflight map[int]flight
	pending  int
	state    State
}

func (s *Searcher) run(ctx context.Context, tree *Tree, depth, level int) (SearchMetrics, error) {
	sc := &schedule{
		Searcher: s,
		id:       uuid.New(),
		tree:     tree,
		queue:    append([]Task(nil), tree.Tasks...),
		inflight: map[int]flight{},
	}
	for w := 0; w < s.workers(); w++ {
		if !s.lost[w] {
			sc.free = append(sc.free, w)
		}
	}

	s.metrics.Start(sc.id, s.workers(), depth, level)
	s.metrics.AddTree(len(tree.Nodes), len(tree.Tasks))
	s.log.Debug().
		Str("search", sc.id.String()).
		Int("nodes", len(tree.Nodes)).
		Int("tasks", len(tree.Tasks)).
		Int("workers", len(sc.free)).
		Msg("search started")

	for {
		if err := ctx.Err(); err != nil {
			return s.metrics.Complete(), err
		}

		sc.dispatch()

		if len(sc.queue) == 0 && sc.pending == 0 {
			sc.enter(Done)
			break
		}

		if worker, res, ok := sc.poll(); ok {
			sc.receive(worker, res)
			continue
		}

		if s.watchdog > 0 && sc.expire() {
			continue
		}

		if len(sc.queue) > 0 {
			if !s.localFallback && s.transport != nil {
				if len(sc.free) == 0 && sc.pending == 0 {
					return s.metrics.Complete(), ErrNoWorkers
				}
				sc.enter(Polling)
				time.Sleep(s.pollInterval)
				continue
			}
			sc.enter(Polling)
			task := sc.queue[0]
			sc.queue = sc.queue[1:]
			sc.evaluateLocally(task)
			s.metrics.AddLocal()
			continue
		}

		sc.enter(Draining)
		time.Sleep(s.pollInterval)
	}

	return s.metrics.Complete(), nil
}

func (sc *schedule) enter(state State) {
	if sc.state == state {
		return
	}
	sc.log.Debug().
		Str("search", sc.id.String()).
		Stringer("from", sc.state).
		Stringer("to", state).
		Int("queued", len(sc.queue)).
		Int("pending", sc.pending).
		Msg("scheduler state")
	sc.state = state
}

// dispatch hands queued tasks to free workers.
func (sc *schedule) dispatch() {
	for len(sc.free) > 0 && len(sc.queue) > 0 {
		sc.enter(Dispatching)
		worker := sc.free[0]
		sc.free = sc.free[1:]
		task := sc.queue[0]

		msg := communication.Task{
			Search: sc.id,
			Node:   task.Node,
			Board:  sc.tree.Nodes[task.Node].Board.Clone(),
			Depth:  task.Depth,
		}
		if err := sc.transport.Send(worker, msg); err != nil {
			// The task stays queued; the worker is not trusted again until it answers.
			sc.log.Warn().Err(err).Int("worker", worker).Msg("dispatch failed")
			sc.lost[worker] = true
			continue
		}
		sc.queue = sc.queue[1:]
		sc.inflight[worker] = flight{task: task, sent: time.Now()}
		sc.pending++
		sc.metrics.AddSent()
	}
}

func (sc *schedule) poll() (int, communication.Result, bool) {
	if sc.transport == nil {
		return -1, communication.Result{}, false
	}
	return sc.transport.Poll()
}

func (sc *schedule) receive(worker int, res communication.Result) {
	if sc.lost[worker] {
		// Late but alive: the worker may take tasks again. Lost workers never
		// hold an in-flight task, so whatever it sent is stale.
		delete(sc.lost, worker)
		sc.free = append(sc.free, worker)
	}

	f, ok := sc.inflight[worker]
	if res.Search != sc.id || !ok || f.task.Node != res.Node {
		sc.metrics.AddStale()
		sc.log.Debug().
			Int("worker", worker).
			Int("node", res.Node).
			Str("search", res.Search.String()).
			Msg("stale result dropped")
		return
	}

	delete(sc.inflight, worker)
	sc.pending--
	sc.free = append(sc.free, worker)
	sc.metrics.AddReceived()

	if err := sc.tree.Resolve(res.Node, res.Value); err != nil {
		sc.log.Warn().Err(err).Int("worker", worker).Msg("result rejected")
		sc.evaluateLocally(f.task)
	}
}

// expire takes back tasks whose worker outlived the watchdog.
func (sc *schedule) expire() bool {
	expired := false
	for worker, f := range sc.inflight {
		if time.Since(f.sent) < sc.watchdog {
			continue
		}
		sc.log.Warn().
			Int("worker", worker).
			Int("node", f.task.Node).
			Dur("waited", time.Since(f.sent)).
			Msg("worker stalled, evaluating task locally")

		delete(sc.inflight, worker)
		sc.pending--
		sc.lost[worker] = true
		sc.evaluateLocally(f.task)
		sc.metrics.AddReevaluated()
		expired = true
	}
	return expired
}

func (sc *schedule) evaluateLocally(task Task) {
	b := sc.tree.Nodes[task.Node].Board.Clone()
	value := Evaluate(&b, b.LastMover(), b.LastCol(), task.Depth)
	if err := sc.tree.Resolve(task.Node, value); err != nil {
		sc.log.Error().Err(err).Int("node", task.Node).Msg("local evaluation rejected")
	}
}
