package gateway

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Subscribed channels ("series:day", "weather:北京-北京") or kinds
	// ("series"). Empty means everything.
	subMu sync.RWMutex
	subs  map[string]bool
}

// controlMsg is what clients send: SUBSCRIBE / UNSUBSCRIBE with a channel
// list, or a bare {"ping":<ms>}.
type controlMsg struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
	Ping     int64    `json:"ping"`
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
		hub:  h,
		subs: make(map[string]bool),
	}
}

func (c *Client) sendInitialState(lastTS string) {
	var cutoff time.Time
	if lastTS != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, lastTS); err == nil {
			cutoff = parsed
		}
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	for _, entry := range c.hub.latest {
		if !cutoff.IsZero() && !entry.TS.After(cutoff) {
			continue
		}
		buf := appendEnvelope(nil, entry.Kind, entry.Key, entry.Data, entry.TS, c.hub.seq, entry.Seq, true)
		select {
		case c.send <- buf:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			// Coalesce queued envelopes into one frame, newline separated.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
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

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handle(msg)
	}
}

// handle applies one control message.
func (c *Client) handle(raw []byte) {
	var msg controlMsg
	if json.Unmarshal(raw, &msg) != nil {
		return
	}

	switch strings.ToUpper(msg.Type) {
	case "SUBSCRIBE":
		c.subMu.Lock()
		for _, ch := range msg.Channels {
			c.subs[ch] = true
		}
		c.subMu.Unlock()
	case "UNSUBSCRIBE":
		c.subMu.Lock()
		if len(msg.Channels) == 0 {
			clear(c.subs)
		}
		for _, ch := range msg.Channels {
			delete(c.subs, ch)
		}
		c.subMu.Unlock()
	default:
		if msg.Ping > 0 {
			pong, _ := json.Marshal(map[string]any{
				"type":      "pong",
				"ping":      msg.Ping,
				"server_ts": c.hub.clock.Now().UnixMilli(),
			})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

// matchesChannel reports whether the client wants updates on channel.
func (c *Client) matchesChannel(channel string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	if len(c.subs) == 0 {
		return true
	}
	if c.subs[channel] {
		return true
	}
	kind, _, _ := strings.Cut(channel, ":")
	return c.subs[kind]
}
