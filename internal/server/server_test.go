package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quantpaper/internal/hub"
	"quantpaper/internal/market"
)

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.New([]string{"600000"}, 16, time.Minute, zerolog.Nop())
	srv := New("quantpaper", h, time.Minute, zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, h
}

func publishTick(h *hub.Hub, price float64) {
	short := price
	h.Publish(market.Event{
		Tick:       market.Tick{Symbol: "600000", Price: price, Ts: time.Now().UTC()},
		Indicators: market.Indicators{MAShort: &short},
		Signal:     market.Signal{Symbol: "600000", Kind: market.Hold, Reason: "no_cross"},
		Account:    market.AccountView{Cash: 10000, Equity: 10000},
	})
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	ts, h := newTestServer(t)
	h.Seed(market.AccountView{Cash: 10000, Equity: 10000})
	publishTick(h, 42.5)

	var snap hub.Snapshot
	getJSON(t, ts.URL+"/api/snapshot", &snap)

	if snap.Cash != 10000 {
		t.Fatalf("snapshot cash = %.2f, want 10000", snap.Cash)
	}
	if snap.Last["600000"] == nil || snap.Last["600000"].Tick.Price != 42.5 {
		t.Fatalf("snapshot missing latest tick: %+v", snap.Last["600000"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, h := newTestServer(t)
	publishTick(h, 10)

	var health struct {
		Status  string   `json:"status"`
		App     string   `json:"app"`
		Symbols []string `json:"symbols"`
	}
	getJSON(t, ts.URL+"/api/health", &health)

	if health.Status != "ok" || health.App != "quantpaper" {
		t.Fatalf("unexpected health payload: %+v", health)
	}
	if len(health.Symbols) != 1 || health.Symbols[0] != "600000" {
		t.Fatalf("unexpected symbols: %v", health.Symbols)
	}
}

func TestHealthDegradedBeforeFirstTick(t *testing.T) {
	ts, h := newTestServer(t)
	h.PublishError(market.ErrorEvent{Symbol: "600000", Err: "upstream status 502", Ts: time.Now()})

	var health struct {
		Status string `json:"status"`
	}
	getJSON(t, ts.URL+"/api/health", &health)
	if health.Status != "degraded" {
		t.Fatalf("expected degraded, got %s", health.Status)
	}
}

func TestWSClientsCount(t *testing.T) {
	ts, _ := newTestServer(t)

	var count struct {
		Clients int `json:"clients"`
	}
	getJSON(t, ts.URL+"/api/ws_clients", &count)
	if count.Clients != 0 {
		t.Fatalf("expected 0 clients, got %d", count.Clients)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	getJSON(t, ts.URL+"/api/ws_clients", &count)
	if count.Clients != 1 {
		t.Fatalf("expected 1 client, got %d", count.Clients)
	}
}

func TestWebsocketSnapshotThenTicks(t *testing.T) {
	ts, h := newTestServer(t)
	publishTick(h, 10)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first struct {
		Type string       `json:"type"`
		Data hub.Snapshot `json:"data"`
	}
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Type != "snapshot" {
		t.Fatalf("first message must be snapshot, got %s", first.Type)
	}
	if first.Data.Last["600000"] == nil || first.Data.Last["600000"].Tick.Price != 10 {
		t.Fatalf("snapshot missing pre-connect tick: %+v", first.Data.Last["600000"])
	}

	publishTick(h, 11)
	var tick hub.TickMsg
	if err := conn.ReadJSON(&tick); err != nil {
		t.Fatalf("read tick: %v", err)
	}
	if tick.Type != "tick" || tick.Price != 11 {
		t.Fatalf("unexpected second message: %+v", tick)
	}
}

func TestWebsocketPingPong(t *testing.T) {
	ts, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&snap); err != nil || snap.Type != "snapshot" {
		t.Fatalf("expected snapshot first, got %+v err %v", snap, err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	var pong struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != "pong" {
		t.Fatalf("expected pong, got %s", pong.Type)
	}
}

func TestWebsocketDisconnectUnregisters(t *testing.T) {
	ts, h := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not unregistered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", resp.StatusCode)
	}
}
