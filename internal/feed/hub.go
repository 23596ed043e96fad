// Package feed streams dispatcher events to HUD clients over websockets.
package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/observability/log"
	"github.com/zeusync/wavecore/internal/core/system"
	"github.com/zeusync/wavecore/pkg/generic"
)

// Path is where Hub expects websocket upgrades.
const Path = "/events"

const (
	defaultBuffer = 64
	writeTimeout  = 5 * time.Second
)

// ErrHubClosed is returned for connections arriving after Close.
var ErrHubClosed = errors.New("feed hub closed")

var (
	_ bus.Observer  = (*Hub)(nil)
	_ system.System = (*Hub)(nil)
)

var buffers = generic.NewHotPool(func() *bytes.Buffer { return new(bytes.Buffer) }, (*bytes.Buffer).Reset, 4)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is the JSON frame sent for every published event.
type Message struct {
	Type string          `json:"type"`
	Tick uint64          `json:"tick"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.send) })
}

// Hub broadcasts every published event to the connected clients. It is a
// bus.Observer; slow clients lose messages instead of stalling the tick.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup

	buffer  int
	tick    atomic.Uint64
	sent    atomic.Uint64
	dropped atomic.Uint64
	logger  log.Log
}

// NewHub creates a hub with a per-client buffer of buffer messages.
func NewHub(buffer int, logger log.Log) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		buffer:  buffer,
		logger:  logger.With(log.String("component", "feed")),
	}
}

func (h *Hub) Name() string              { return "feed" }
func (h *Hub) Priority() system.Priority { return system.PriorityLowest }

// Update counts host ticks; frames carry the tick they were published in.
func (h *Hub) Update(time.Duration) error {
	h.tick.Add(1)
	return nil
}

// OnPublish implements bus.Observer.
func (h *Hub) OnPublish(eventName string, event bus.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("encode event", log.String("event", eventName), log.Error(err))
		return
	}
	buf := buffers.Get()
	defer buffers.Put(buf)
	if err = json.NewEncoder(buf).Encode(Message{Type: eventName, Tick: h.tick.Load(), Data: data}); err != nil {
		h.logger.Warn("encode frame", log.String("event", eventName), log.Error(err))
		return
	}
	frame := bytes.Clone(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
		}
	}
}

// OnDelivered implements bus.Observer.
func (h *Hub) OnDelivered(string, int, error, int64) {}

// ServeHTTP upgrades the request and streams frames until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.buffer)}
	if !h.add(c) {
		_ = conn.Close()
		return
	}
	h.logger.Debug("feed client connected", log.String("remote", conn.RemoteAddr().String()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.write(c)
	}()

	// Clients never send; reading only detects the close.
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	<-done
	h.logger.Debug("feed client disconnected", log.String("remote", conn.RemoteAddr().String()))
}

func (h *Hub) write(c *client) {
	defer c.conn.Close()
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Sent returns how many frames were queued to clients.
func (h *Hub) Sent() uint64 { return h.sent.Load() }

// Dropped returns how many frames were discarded for slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close disconnects every client and waits for their goroutines.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	clear(h.clients)
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
	h.wg.Wait()
	return nil
}
