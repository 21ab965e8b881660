package httpserver

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/cardduel/apps/go-server/internal/protocol"
)

const (
	sendBuffer   = 64
	writeWait    = 10 * time.Second
	pongWait     = 120 * time.Second
	pingPeriod   = 30 * time.Second
	maxFrameSize = 4096
)

// client is one live socket. send is never closed; done signals the writer
// to stop so that Hub.Send can never write to a closed channel.
type client struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) stop() { c.once.Do(func() { close(c.done) }) }

// Hub maps connection ids to sockets and implements engine.Sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	live    sync.WaitGroup // one per socket until its disconnect is handed off
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

func (h *Hub) register(id string, ws *websocket.Conn) *client {
	c := &client{id: id, ws: ws, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	h.live.Add(1)
	return c
}

// release marks a socket's disconnect as handed to the engine.
func (h *Hub) release() { h.live.Done() }

// Wait blocks until every registered socket has been released or ctx ends.
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.live.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.stop()
}

// Send frames o and queues it for conn. It never blocks: unknown
// connections and full buffers drop the message.
func (h *Hub) Send(conn string, o protocol.Outbound) {
	h.mu.RLock()
	c := h.clients[conn]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	b, err := protocol.Encode(o)
	if err != nil {
		log.Error().Err(err).Str("conn", conn).Msg("encode outbound")
		return
	}
	select {
	case c.send <- b:
	default:
		log.Warn().Str("conn", conn).Str("event", string(o.Event())).Msg("send buffer full, dropping message")
	}
}

// Len reports live sockets.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every socket; each read pump then runs its normal
// disconnect path.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = c.ws.Close()
	}
}
