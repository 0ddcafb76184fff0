package communication

import "context"

// Conn is a worker's end of a link to the coordinator.
type Conn interface {
	// Receive blocks until the coordinator sends a message.
	Receive(ctx context.Context) (Message, error)
	Send(msg Message) error
}

// Serve runs a worker over a connection until it is told to terminate.
type Serve func(ctx context.Context, conn Conn) error

// Inbound is a result tagged with the worker that sent it.
type Inbound struct {
	Worker int
	Result Result
}

// Poll takes one result from inbox without blocking.
func Poll(inbox <-chan Inbound) (int, Result, bool) {
	select {
	case in, ok := <-inbox:
		if !ok {
			return -1, Result{}, false
		}
		return in.Worker, in.Result, true
	default:
		return -1, Result{}, false
	}
}
