package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"connect4/communication"

	"github.com/gorilla/websocket"
)

// Conn is a worker's websocket link to a coordinator hub.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex // one writer at a time
}

// Dial connects to the hub's worker endpoint, for example
// ws://coordinator:8080/ws/worker.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

// Receive blocks for the next message. A normal close from the hub reads as
// Terminate.
func (c *Conn) Receive(ctx context.Context) (communication.Message, error) {
	stop := context.AfterFunc(ctx, func() {
		c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return communication.Terminate{}, nil
		}
		return nil, err
	}
	return communication.Decode(data)
}

func (c *Conn) Send(msg communication.Message) error {
	data, err := communication.Encode(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) Close() error {
	c.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.ws.Close()
}
