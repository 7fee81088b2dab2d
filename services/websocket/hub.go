package websocket

import (
	"encoding/json"
	"sync"
	"time"

	fiberws "github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Hub keeps the connected dashboard sockets and broadcasts events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	mutex      sync.RWMutex
}

// Client is one connected dashboard tab.
type Client struct {
	send  chan []byte
	actor string
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Run services register, unregister and broadcast until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			logrus.WithField("actor", client.actor).Debug("dashboard socket connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			logrus.WithField("actor", client.actor).Debug("dashboard socket disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() { close(h.stop) }

func (h *Hub) join(c *Client) {
	select {
	case h.register <- c:
	case <-h.stop:
		close(c.send)
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

// Broadcast sends message as JSON to every connected client.
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal websocket message")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logrus.Warn("websocket broadcast channel is full, dropping message")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeFiberWS runs a Fiber websocket connection until it closes. It must be
// called from the fiber websocket handler goroutine.
func (h *Hub) ServeFiberWS(c *fiberws.Conn, actor string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("actor", actor).Errorf("websocket handler panic: %v", r)
		}
	}()

	client := &Client{send: make(chan []byte, 256), actor: actor}
	h.join(client)

	done := make(chan struct{})
	go h.fiberWritePump(client, c, done)
	h.fiberReadPump(client, c)
	close(done)
}

func (h *Hub) fiberWritePump(client *Client, c *fiberws.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case message, ok := <-client.send:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.WriteMessage(fiberws.CloseMessage, []byte{})
				return
			}
			if err := c.WriteMessage(fiberws.TextMessage, message); err != nil {
				logrus.WithField("actor", client.actor).WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(fiberws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) fiberReadPump(client *Client, c *fiberws.Conn) {
	defer func() {
		h.leave(client)
		c.Close()
	}()

	c.SetReadLimit(maxMessageSize)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if fiberws.IsUnexpectedCloseError(err, fiberws.CloseGoingAway, fiberws.CloseAbnormalClosure) {
				logrus.WithField("actor", client.actor).WithError(err).Debug("websocket closed unexpectedly")
			}
			return
		}
	}
}
