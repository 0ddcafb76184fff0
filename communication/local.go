package communication

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Local runs workers as goroutines connected by channels.
type Local struct {
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	inboxes []chan Message
	results chan Inbound
}

// NewLocal starts n workers, each running serve over its own channel link.
func NewLocal(ctx context.Context, n int, serve Serve) *Local {
	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)

	l := &Local{
		ctx:     gctx,
		cancel:  cancel,
		group:   group,
		inboxes: make([]chan Message, n),
		results: make(chan Inbound, 2*n+1),
	}
	for i := 0; i < n; i++ {
		in := make(chan Message, 2)
		l.inboxes[i] = in
		conn := &localConn{ctx: gctx, worker: i, in: in, out: l.results}
		group.Go(func() error {
			return serve(gctx, conn)
		})
	}
	return l
}

func (l *Local) Workers() int {
	return len(l.inboxes)
}

func (l *Local) Send(worker int, msg Message) error {
	if worker < 0 || worker >= len(l.inboxes) {
		return fmt.Errorf("no worker %d", worker)
	}
	select {
	case l.inboxes[worker] <- msg:
		return nil
	case <-l.ctx.Done():
		return l.ctx.Err()
	}
}

func (l *Local) Poll() (int, Result, bool) {
	return Poll(l.results)
}

// Wait blocks until every worker returned and reports the first worker error.
func (l *Local) Wait() error {
	err := l.group.Wait()
	l.cancel()
	return err
}

// Stop cancels the workers without waiting for a Terminate round.
func (l *Local) Stop() {
	l.cancel()
}

type localConn struct {
	ctx    context.Context
	worker int
	in     <-chan Message
	out    chan<- Inbound
}

func (c *localConn) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *localConn) Send(msg Message) error {
	res, ok := msg.(Result)
	if !ok {
		return fmt.Errorf("worker %d sent %T: %w", c.worker, msg, ErrMalformedMessage)
	}
	select {
	case c.out <- Inbound{Worker: c.worker, Result: res}:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}
