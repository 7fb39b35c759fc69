// Package broadcast fans the latest index point out to WebSocket clients.
package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/logger"
	"whale-index-lab/internal/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the API middleware
	},
}

// Message is the JSON frame sent to clients.
type Message struct {
	Type         string  `json:"type"` // always "index_point"
	Date         string  `json:"date"`
	Activity     int     `json:"wai"`
	ActivityV1   int     `json:"wai_v1"`
	Intent       int     `json:"wii"`
	IntentSignal string  `json:"wii_signal"`
	Momentum     float64 `json:"momentum"`
	MomentumSig  string  `json:"momentum_signal"`
	Confidence   float64 `json:"confidence"`
	Level        string  `json:"confidence_level"`
	ComputedAt   string  `json:"computed_at"`
}

// NewMessage converts a point to its wire frame.
func NewMessage(p domain.IndexPoint) Message {
	return Message{
		Type:         "index_point",
		Date:         domain.FormatDate(p.Date),
		Activity:     p.Activity,
		ActivityV1:   p.ActivityV1,
		Intent:       p.Intent,
		IntentSignal: string(p.IntentSignal),
		Momentum:     decimal.NewFromFloat(p.Momentum).Round(2).InexactFloat64(),
		MomentumSig:  string(p.MomentumSignal),
		Confidence:   decimal.NewFromFloat(p.Confidence).Round(2).InexactFloat64(),
		Level:        string(p.ConfidenceLevel),
		ComputedAt:   time.UnixMilli(p.ComputedAtMs).UTC().Format(time.RFC3339),
	}
}

// Hub maintains active clients and broadcasts the latest point to all.
// New clients receive the current point before any update.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	publish    chan []byte
	done       chan struct{}
	count      atomic.Int64
	log        *logger.Logger
}

// NewHub creates a Hub. Call Run before serving clients.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		publish:    make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		log:        logger.OrNop(log).Named("broadcast"),
	}
}

// Run owns the client set until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	var last []byte

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setCount()
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			if last != nil {
				c.send <- last
			}
			h.setCount()
			h.log.Debugw("client connected", "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.setCount()
				h.log.Debugw("client disconnected", "clients", len(h.clients))
			}
		case msg := <-h.publish:
			last = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: skip this update, the next one supersedes it.
				}
			}
		}
	}
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	observability.SetWSClients(len(h.clients))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Publish queues p for every client. It never blocks; when the queue is
// full the point is dropped with a warning.
func (h *Hub) Publish(p domain.IndexPoint) {
	msg, err := json.Marshal(NewMessage(p))
	if err != nil {
		h.log.Errorw("encode index point", "error", err)
		return
	}
	select {
	case h.publish <- msg:
	default:
		h.log.Warnw("broadcast queue full, dropping point", "date", domain.FormatDate(p.Date))
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump discards client frames and detects disconnects.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			observability.RecordWSMessage()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
