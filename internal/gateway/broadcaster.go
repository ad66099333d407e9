package gateway

import (
	"encoding/json"
	"strconv"
	"time"

	"agrimarket/internal/model"
	"agrimarket/internal/series"
)

// BroadcastSeries sends a series update for its range.
func (h *Hub) BroadcastSeries(s *series.Series) error {
	data, err := json.Marshal(series.NewUpdate(s))
	if err != nil {
		return err
	}
	h.Broadcast(KindSeries, string(s.Range), data)
	return nil
}

// BroadcastWeather sends a weather record for its location.
func (h *Hub) BroadcastWeather(rec model.WeatherRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	h.Broadcast(KindWeather, rec.Province+"-"+rec.City, data)
	return nil
}

// Broadcast wraps data in an envelope and queues it on every client
// subscribed to kind:key. A client whose queue is full misses the update.
func (h *Hub) Broadcast(kind, key string, data []byte) {
	channel := kind + ":" + key
	now := h.clock.Now().UTC()

	h.mu.Lock()
	h.channelSeqs[channel]++
	channelSeq := h.channelSeqs[channel]
	h.seq++
	seq := h.seq
	h.latest[channel] = latestEntry{Kind: kind, Key: key, Data: data, TS: now, Seq: channelSeq}
	rb, exists := h.replayBufs[channel]
	if !exists {
		rb = NewReplayBuffer(replayCapacity)
		h.replayBufs[channel] = rb
	}
	h.mu.Unlock()

	buf := appendEnvelope(nil, kind, key, data, now, seq, channelSeq, false)
	rb.Push(channelSeq, buf)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.matchesChannel(channel) {
			continue
		}
		select {
		case client.send <- buf:
		default:
			h.metrics.WSDrop()
		}
	}
}

// keyField names the envelope field carrying the channel key.
func keyField(kind string) string {
	if kind == KindWeather {
		return "location"
	}
	return "range"
}

// appendEnvelope builds
// {"type":kind,"range"|"location":key,"channel":..,"data":..,"ts":..,"seq":..,"channel_seq":..}
// without a reflection pass over data.
func appendEnvelope(buf []byte, kind, key string, data []byte, ts time.Time, seq, channelSeq int64, initial bool) []byte {
	quoted, _ := json.Marshal(key)
	channel, _ := json.Marshal(kind + ":" + key)

	buf = append(buf, `{"type":"`...)
	buf = append(buf, kind...)
	buf = append(buf, `","`...)
	buf = append(buf, keyField(kind)...)
	buf = append(buf, `":`...)
	buf = append(buf, quoted...)
	buf = append(buf, `,"channel":`...)
	buf = append(buf, channel...)
	buf = append(buf, `,"data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = ts.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, `,"channel_seq":`...)
	buf = strconv.AppendInt(buf, channelSeq, 10)
	if initial {
		buf = append(buf, `,"initial":true`...)
	}
	buf = append(buf, '}')
	return buf
}
