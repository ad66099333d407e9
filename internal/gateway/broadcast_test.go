package gateway

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"agrimarket/internal/clock"
	"agrimarket/internal/model"
	"agrimarket/internal/series"
)

// envelope is the parsed WS message structure.
type envelope struct {
	Type       string          `json:"type"`
	Range      string          `json:"range"`
	Location   string          `json:"location"`
	Channel    string          `json:"channel"`
	Data       json.RawMessage `json:"data"`
	TS         string          `json:"ts"`
	Seq        int64           `json:"seq"`
	ChannelSeq int64           `json:"channel_seq"`
	Initial    bool            `json:"initial"`
}

var testNow = time.Date(2024, 7, 15, 10, 0, 1, 0, time.UTC)

func newTestHub() *Hub {
	return NewHub(nil).WithClock(clock.NewManual(testNow))
}

// attach registers a connectionless client so fan-out can be observed.
func attach(h *Hub, channels ...string) *Client {
	c := newClient(h, nil)
	for _, ch := range channels {
		c.subs[ch] = true
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func recv(t *testing.T, c *Client) envelope {
	t.Helper()
	select {
	case buf := <-c.send:
		var env envelope
		if err := json.Unmarshal(buf, &env); err != nil {
			t.Fatalf("envelope is not valid JSON: %v\nraw: %s", err, buf)
		}
		return env
	default:
		t.Fatal("expected a queued envelope")
		return envelope{}
	}
}

func TestEnvelopeFormat(t *testing.T) {
	data := []byte(`{"range":"day","records":289,"nested":{"a":[1,2,3]}}`)
	buf := appendEnvelope(nil, KindSeries, "day", data, testNow, 42, 7, false)

	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v\nraw: %s", err, buf)
	}
	if env.Type != "series" || env.Range != "day" || env.Channel != "series:day" {
		t.Errorf("unexpected header %+v", env)
	}
	if env.Seq != 42 || env.ChannelSeq != 7 || env.Initial {
		t.Errorf("unexpected seq fields %+v", env)
	}
	if !bytes.Equal(env.Data, data) {
		t.Errorf("data altered: %s", env.Data)
	}
	parsed, err := time.Parse(time.RFC3339Nano, env.TS)
	if err != nil || !parsed.Equal(testNow) {
		t.Errorf("ts: got %q (%v)", env.TS, err)
	}
}

func TestEnvelopeWeatherKeyEscaped(t *testing.T) {
	buf := appendEnvelope(nil, KindWeather, `北京-"朝阳"`, []byte(`{}`), testNow, 1, 1, true)

	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v\nraw: %s", err, buf)
	}
	if env.Location != `北京-"朝阳"` || env.Channel != `weather:北京-"朝阳"` || !env.Initial {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestHub_PerChannelSeq(t *testing.T) {
	h := newTestHub()
	c := attach(h)

	for i := 0; i < 3; i++ {
		h.Broadcast(KindSeries, "day", []byte(`{}`))
	}
	h.Broadcast(KindWeather, "北京-北京", []byte(`{}`))

	for i := int64(1); i <= 3; i++ {
		env := recv(t, c)
		if env.ChannelSeq != i || env.Seq != i {
			t.Errorf("day envelope %d: seq=%d channel_seq=%d", i, env.Seq, env.ChannelSeq)
		}
	}
	env := recv(t, c)
	if env.ChannelSeq != 1 || env.Seq != 4 || env.Type != KindWeather {
		t.Errorf("weather envelope: %+v", env)
	}
	if h.ChannelSeq("series:day") != 3 || h.ChannelSeq(WeatherChannel("北京-北京")) != 1 {
		t.Error("unexpected channel seqs")
	}
}

func TestHub_SubscriptionFilter(t *testing.T) {
	h := newTestHub()
	all := attach(h)
	dayOnly := attach(h, SeriesChannel(model.RangeDay))
	weather := attach(h, KindWeather)

	h.Broadcast(KindSeries, "day", []byte(`1`))
	h.Broadcast(KindSeries, "week", []byte(`2`))
	h.Broadcast(KindWeather, "广东-广州", []byte(`3`))

	if len(all.send) != 3 {
		t.Errorf("unsubscribed client should get everything, got %d", len(all.send))
	}
	if len(dayOnly.send) != 1 || recv(t, dayOnly).Range != "day" {
		t.Error("day subscriber should only get the day channel")
	}
	if len(weather.send) != 1 || recv(t, weather).Location != "广东-广州" {
		t.Error("kind subscriber should get every weather channel")
	}
}

func TestClient_SubscribeMessages(t *testing.T) {
	h := newTestHub()
	c := attach(h)

	c.handle([]byte(`{"type":"SUBSCRIBE","channels":["series:week","weather"]}`))
	if !c.matchesChannel("series:week") || !c.matchesChannel("weather:北京-北京") || c.matchesChannel("series:day") {
		t.Errorf("unexpected subscriptions %v", c.subs)
	}

	c.handle([]byte(`{"type":"unsubscribe","channels":["weather"]}`))
	if c.matchesChannel("weather:北京-北京") {
		t.Error("weather should be unsubscribed")
	}

	c.handle([]byte(`{"type":"UNSUBSCRIBE"}`))
	if !c.matchesChannel("series:day") {
		t.Error("empty UNSUBSCRIBE should restore receive-all")
	}

	c.handle([]byte(`{"ping":123}`))
	var pong struct {
		Type string `json:"type"`
		Ping int64  `json:"ping"`
	}
	if err := json.Unmarshal(<-c.send, &pong); err != nil || pong.Type != "pong" || pong.Ping != 123 {
		t.Errorf("unexpected pong %+v (%v)", pong, err)
	}

	c.handle([]byte(`not json`))
	if len(c.send) != 0 {
		t.Error("garbage should be ignored")
	}
}

func TestHub_SlowClientDrops(t *testing.T) {
	h := newTestHub()
	c := attach(h)
	for i := 0; i < clientBuffer+10; i++ {
		h.Broadcast(KindSeries, "day", []byte(`{}`))
	}
	if len(c.send) != clientBuffer {
		t.Errorf("expected a full buffer of %d, got %d", clientBuffer, len(c.send))
	}
	if h.ChannelSeq("series:day") != int64(clientBuffer+10) {
		t.Error("every broadcast must advance the channel seq")
	}
}

func TestHub_ReplayAndLatest(t *testing.T) {
	h := newTestHub()
	for i := 0; i < 5; i++ {
		h.Broadcast(KindSeries, "month", []byte(`{}`))
	}
	got := h.ReplayRange("series:month", 2, 4)
	if len(got) != 3 {
		t.Fatalf("expected 3 replayed envelopes, got %d", len(got))
	}
	var env envelope
	if err := json.Unmarshal(got[0], &env); err != nil || env.ChannelSeq != 2 {
		t.Errorf("unexpected first replay %+v (%v)", env, err)
	}
	if h.ReplayRange("series:nope", 0, 0) != nil {
		t.Error("unknown channel should replay nothing")
	}
	if _, ok := h.Latest()["series:month"]; !ok {
		t.Error("latest should hold the month channel")
	}
}

func TestHub_InitialStateRespectsLastTS(t *testing.T) {
	h := newTestHub()
	h.Seed(KindSeries, "day", []byte(`{"records":1}`))

	c := newClient(h, nil)
	c.sendInitialState("")
	env := recv(t, c)
	if !env.Initial || env.Channel != "series:day" {
		t.Errorf("unexpected initial envelope %+v", env)
	}

	late := newClient(h, nil)
	late.sendInitialState(testNow.Add(time.Second).Format(time.RFC3339Nano))
	if len(late.send) != 0 {
		t.Error("client newer than every entry should get no initial state")
	}
}

func TestHub_BroadcastSeries(t *testing.T) {
	h := newTestHub()
	c := attach(h)
	s := &series.Series{Range: model.RangeWeek, Commodities: []string{"水稻"}, GeneratedAt: testNow}
	if err := h.BroadcastSeries(s); err != nil {
		t.Fatal(err)
	}
	env := recv(t, c)
	var upd series.Update
	if err := json.Unmarshal(env.Data, &upd); err != nil {
		t.Fatal(err)
	}
	if env.Range != "week" || upd.Range != model.RangeWeek || upd.Records != 0 {
		t.Errorf("unexpected update %+v", upd)
	}

	rec := model.WeatherRecord{Province: "广东", City: "广州", Source: model.SourceSimulated}
	if err := h.BroadcastWeather(rec); err != nil {
		t.Fatal(err)
	}
	if env := recv(t, c); env.Location != "广东-广州" {
		t.Errorf("unexpected weather envelope %+v", env)
	}
}

func TestHub_RemoveClientTwice(t *testing.T) {
	h := newTestHub()
	c := attach(h)
	h.RemoveClient(c)
	h.RemoveClient(c)
	if h.ClientCount() != 0 {
		t.Error("client should be gone")
	}
}
