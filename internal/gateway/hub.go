package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"agrimarket/internal/clock"
	"agrimarket/internal/metrics"
	"agrimarket/internal/model"

	"github.com/gorilla/websocket"
)

// Topic kinds, matching the Redis channel kinds.
const (
	KindSeries  = "series"
	KindWeather = "weather"
)

// SeriesChannel is the hub channel of a time range.
func SeriesChannel(r model.TimeRange) string { return KindSeries + ":" + string(r) }

// WeatherChannel is the hub channel of a "province-city" location.
func WeatherChannel(location string) string { return KindWeather + ":" + location }

const (
	clientBuffer   = 256
	replayCapacity = 200
)

// Hub fans refreshed series and weather updates out to WebSocket clients.
// It keeps the latest payload per channel for late joiners and a replay
// buffer per channel for gap backfill.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	// Per-channel monotonic sequence numbers for gap detection
	channelSeqs map[string]int64
	replayBufs  map[string]*ReplayBuffer

	metrics *metrics.Metrics
	clock   clock.Clock
}

type latestEntry struct {
	Kind string
	Key  string
	Data json.RawMessage
	TS   time.Time
	Seq  int64
}

// NewHub creates an empty hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
		replayBufs:  make(map[string]*ReplayBuffer),
		metrics:     m,
		clock:       clock.Real{},
	}
}

// WithClock replaces the clock used to stamp envelopes.
func (h *Hub) WithClock(c clock.Clock) *Hub {
	h.clock = c
	return h
}

// Register attaches an upgraded connection and starts its pumps. Clients
// passing lastTS only receive latest values newer than it.
func (h *Hub) Register(conn *websocket.Conn, lastTS string) *Client {
	client := newClient(h, conn)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetWSClients(count)

	log.Printf("[gateway] ws client connected (%d total)", count)

	client.sendInitialState(lastTS)
	go client.writePump()
	go client.readPump()
	return client
}

// RemoveClient detaches a client and closes its send queue. Safe to call twice.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	h.metrics.SetWSClients(count)
}

// Latest returns a snapshot of the newest payload of every channel.
func (h *Hub) Latest() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Data
	}
	return cp
}

// ReplayRange returns buffered envelopes for a channel in [fromSeq, toSeq].
func (h *Hub) ReplayRange(channel string, fromSeq, toSeq int64) []json.RawMessage {
	h.mu.RLock()
	rb, exists := h.replayBufs[channel]
	h.mu.RUnlock()
	if !exists {
		return nil
	}
	entries := rb.Range(fromSeq, toSeq)
	result := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		result[i] = e.Data
	}
	return result
}

// ChannelSeq returns the current sequence number of a channel.
func (h *Hub) ChannelSeq(channel string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[channel]
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Seed stores a payload as the latest value of a channel without sending it
// to anyone. Used to warm the hub from Redis at startup.
func (h *Hub) Seed(kind, key string, data []byte) {
	h.mu.Lock()
	channel := kind + ":" + key
	h.latest[channel] = latestEntry{Kind: kind, Key: key, Data: data, TS: h.clock.Now().UTC()}
	h.mu.Unlock()
}
