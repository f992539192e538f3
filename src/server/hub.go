package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"meme-market/src/logger"
	"meme-market/src/models"
)

const (
	feedInitial = "INITIAL"
	feedTrade   = "TRADE"

	broadcastQueue = 256
)

var errHubStopped = errors.New("trade feed stopped")

type subscription struct {
	client *Client
	stocks []string
}

// -----------------------------------------------------------------------------
// Hub owns the WebSocket clients. Only the Run goroutine touches the client set.
// -----------------------------------------------------------------------------

type Hub struct {
	Logger *logger.Logger

	clients    map[*Client]struct{}
	broadcast  chan models.MTransaction
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription

	// snapshot returns the recent transactions sent to new clients
	snapshot    func() []models.MTransaction
	connections atomic.Int64

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// -----------------------------------------------------------------------------

func NewHub(snapshot func() []models.MTransaction, log *logger.Logger) *Hub {
	return &Hub{
		Logger:     log,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan models.MTransaction, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		snapshot:   snapshot,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------
// Hub loop
// -----------------------------------------------------------------------------

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.connections.Store(int64(len(h.clients)))
			client.send <- h.initial(client)

		case client := <-h.unregister:
			h.drop(client)

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			sub.client.setFilter(sub.stocks)
			h.deliver(sub.client, h.initial(sub.client))

		case txn := <-h.broadcast:
			msg := &models.MFeedMessage{Type: feedTrade, Transaction: &txn}
			for client := range h.clients {
				if client.wants(txn.StockName) {
					h.deliver(client, msg)
				}
			}

		case <-h.quit:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// deliver queues a message; a client too slow to drain its buffer is dropped.
func (h *Hub) deliver(client *Client, msg *models.MFeedMessage) {
	select {
	case client.send <- msg:
	default:
		h.Logger.Warning("Dropping slow feed client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.connections.Store(int64(len(h.clients)))
	}
}

func (h *Hub) initial(client *Client) *models.MFeedMessage {
	recent := h.snapshot()
	filtered := make([]models.MTransaction, 0, len(recent))
	for _, txn := range recent {
		if client.wants(txn.StockName) {
			filtered = append(filtered, txn)
		}
	}
	return &models.MFeedMessage{Type: feedInitial, Transactions: filtered}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Connections is the number of live clients.
func (h *Hub) Connections() int {
	return int(h.connections.Load())
}

// -----------------------------------------------------------------------------

// Publish queues a trade for broadcast without blocking the trade path.
func (h *Hub) Publish(_ context.Context, txn models.MTransaction) error {
	select {
	case <-h.done:
		return errHubStopped
	default:
	}

	select {
	case h.broadcast <- txn:
		return nil
	default:
		return errors.New("trade feed queue full")
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) setSubscription(client *Client, stocks []string) {
	select {
	case h.subscribe <- subscription{client: client, stocks: stocks}:
	case <-h.done:
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handler
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *MarketServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s.Hub, conn)
	if !s.Hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
