package server

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"meme-market/src/models"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 256
)

// -----------------------------------------------------------------------------
// Client is one WebSocket connection on the trade feed.
// -----------------------------------------------------------------------------

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *models.MFeedMessage

	// stocks filters the feed; empty means every stock. Owned by the hub goroutine.
	stocks map[string]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan *models.MFeedMessage, sendBuffer),
	}
}

// -----------------------------------------------------------------------------

func (c *Client) wants(stock string) bool {
	if len(c.stocks) == 0 {
		return true
	}
	_, ok := c.stocks[stock]
	return ok
}

func (c *Client) setFilter(stocks []string) {
	c.stocks = make(map[string]struct{}, len(stocks))
	for _, s := range stocks {
		c.stocks[s] = struct{}{}
	}
}

// -----------------------------------------------------------------------------
// readPump - handles subscribe commands and watches the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
		c.hub.Logger.Debug("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			return
		}

		var cmd models.MSubscribeCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
			return
		}
		if cmd.Command == "subscribe" {
			c.hub.setSubscription(c, cmd.Stocks)
		}
	}
}

// -----------------------------------------------------------------------------
// writePump - sends feed messages to the client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
