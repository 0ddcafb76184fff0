package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"connect4/communication"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrDisconnected = errors.New("worker disconnected")

const (
	defaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
)

// Hub is the coordinator end of the websocket transport. Workers connect to
// /ws/worker and are numbered in the order they join; a worker that drops
// keeps its number and refuses further sends.
type Hub struct {
	mu      sync.Mutex
	workers []*worker
	joined  chan struct{} // closed and replaced whenever a worker joins

	inbox        chan communication.Inbound
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	log          zerolog.Logger
	router       chi.Router
}

type worker struct {
	id        int
	conn      *websocket.Conn
	remote    string
	connected time.Time
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (w *worker) close() {
	w.closeOnce.Do(func() { close(w.done) })
}

func (w *worker) alive() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

type Option func(h *Hub)

// WithPingInterval sets how long a connection may stay silent before the
// hub pings it.
func WithPingInterval(interval time.Duration) Option {
	return func(h *Hub) {
		if interval > 0 {
			h.pingInterval = interval
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(h *Hub) {
		h.log = logger
	}
}

func NewHub(options ...Option) *Hub {
	h := &Hub{
		joined:       make(chan struct{}),
		inbox:        make(chan communication.Inbound, 1024),
		upgrader:     websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		pingInterval: defaultPingInterval,
		log:          log.Logger,
	}
	for _, option := range options {
		option(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/ws/worker", h.serveWorker)
	r.Get("/api/status", h.serveStatus)
	h.router = r
	return h
}

func (h *Hub) Handler() http.Handler {
	return h.router
}

// Workers counts every worker that ever joined, connected or not.
func (h *Hub) Workers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.workers)
}

// Connected counts the workers whose link is still open.
func (h *Hub) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, w := range h.workers {
		if w.alive() {
			n++
		}
	}
	return n
}

func (h *Hub) Send(id int, msg communication.Message) error {
	data, err := communication.Encode(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if id < 0 || id >= len(h.workers) {
		h.mu.Unlock()
		return fmt.Errorf("no worker %d", id)
	}
	w := h.workers[id]
	h.mu.Unlock()

	// A closed worker may still have room in its queue.
	select {
	case <-w.done:
		return fmt.Errorf("worker %d: %w", id, ErrDisconnected)
	default:
	}
	select {
	case w.send <- data:
		return nil
	case <-w.done:
		return fmt.Errorf("worker %d: %w", id, ErrDisconnected)
	}
}

func (h *Hub) Poll() (int, communication.Result, bool) {
	return communication.Poll(h.inbox)
}

// WaitForWorkers blocks until at least n workers are connected.
func (h *Hub) WaitForWorkers(ctx context.Context, n int) error {
	for {
		h.mu.Lock()
		joined := h.joined
		h.mu.Unlock()

		if h.Connected() >= n {
			return nil
		}
		select {
		case <-joined:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close drops every worker connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.workers {
		w.close()
	}
}

func (h *Hub) register(conn *websocket.Conn, remote string) *worker {
	h.mu.Lock()
	defer h.mu.Unlock()
	w := &worker{
		id:        len(h.workers),
		conn:      conn,
		remote:    remote,
		connected: time.Now(),
		send:      make(chan []byte, 16),
		done:      make(chan struct{}),
	}
	h.workers = append(h.workers, w)
	close(h.joined)
	h.joined = make(chan struct{})
	return w
}

func (h *Hub) serveWorker(rw http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	w := h.register(conn, r.RemoteAddr)
	h.log.Info().Int("worker", w.id).Str("remote", w.remote).Msg("worker joined")

	go func() {
		defer conn.Close()
		if err := h.writeWithHeartbeat(w); err != nil {
			h.log.Debug().Err(err).Int("worker", w.id).Msg("worker writer stopped")
		}
	}()

	defer func() {
		w.close()
		h.log.Info().Int("worker", w.id).Msg("worker left")
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := communication.Decode(data)
		if err != nil {
			h.log.Warn().Err(err).Int("worker", w.id).Msg("dropping message")
			continue
		}
		res, ok := msg.(communication.Result)
		if !ok {
			h.log.Warn().Int("worker", w.id).Int("tag", int(msg.Tag())).Msg("worker sent a non-result")
			continue
		}
		select {
		case h.inbox <- communication.Inbound{Worker: w.id, Result: res}:
		case <-w.done:
			return
		}
	}
}

// writeWithHeartbeat drains the worker's queue and pings it after
// pingInterval without a write.
func (h *Hub) writeWithHeartbeat(w *worker) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()

	for {
		select {
		case <-w.done:
			// Flush what was queued before the close, a Terminate included.
			for len(w.send) > 0 {
				w.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := w.conn.WriteMessage(websocket.TextMessage, <-w.send); err != nil {
					return err
				}
			}
			deadline := time.Now().Add(writeWait)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			return w.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		case data := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				w.close()
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < h.pingInterval {
				continue
			}
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				w.close()
				return err
			}
			lastWrite = time.Now()
		}
	}
}

type workerStatus struct {
	ID          int       `json:"id"`
	Remote      string    `json:"remote"`
	ConnectedAt time.Time `json:"connected_at"`
	Connected   bool      `json:"connected"`
}

type statusResponse struct {
	Connected int            `json:"connected"`
	Workers   []workerStatus `json:"workers"`
}

func (h *Hub) serveStatus(rw http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := statusResponse{Workers: make([]workerStatus, 0, len(h.workers))}
	for _, w := range h.workers {
		alive := w.alive()
		if alive {
			resp.Connected++
		}
		resp.Workers = append(resp.Workers, workerStatus{
			ID:          w.id,
			Remote:      w.remote,
			ConnectedAt: w.connected,
			Connected:   alive,
		})
	}
	h.mu.Unlock()

	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(resp); err != nil {
		h.log.Warn().Err(err).Msg("status response failed")
	}
}
