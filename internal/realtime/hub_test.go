package realtime

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHubDeliversFramesInOrder(t *testing.T) {
	hub := NewHub(quietLogger(), metrics.New(false), nil, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 1 })

	hub.Notify(OrderStatusUpdate("o1", model.StatusReady))
	seatID := "s1"
	order := "o1"
	hub.Notify(TableUpdated(model.Seat{ID: seatID, Name: "Table 1", Status: model.SeatOccupied, CurrentOrderID: &order}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first struct {
		Event string       `json:"event"`
		Data  StatusUpdate `json:"data"`
	}
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first: %v", err)
	}
	if first.Event != EventOrderStatusUpdate || first.Data.OrderID != "o1" || first.Data.Status != model.StatusReady {
		t.Errorf("unexpected first frame: %+v", first)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	var second map[string]any
	if err := json.Unmarshal(raw, &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, _ := second["data"].(map[string]any)
	if second["event"] != EventTableUpdated || data["tableId"] != "s1" || data["status"] != "occupied" || data["orderId"] != "o1" {
		t.Errorf("unexpected second frame: %s", raw)
	}
}

func TestHubDropsWhenClientBufferFull(t *testing.T) {
	m := metrics.New(false)
	hub := NewHub(quietLogger(), m, nil, 1)
	slow := &client{send: make(chan []byte, 1)}
	hub.add(slow)

	hub.Notify(OrderStatusUpdate("o1", model.StatusReady))
	hub.Notify(OrderStatusUpdate("o1", model.StatusServed))

	if got := testutil.ToFloat64(m.RealtimeDropped); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if len(slow.send) != 1 {
		t.Errorf("expected first frame queued, have %d", len(slow.send))
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://evil.example")
	if check(req) {
		t.Error("foreign origin accepted")
	}
	req.Header.Set("Origin", "http://localhost:5173")
	if !check(req) {
		t.Error("configured origin rejected")
	}
}

func TestFanoutForwardsToAll(t *testing.T) {
	var a, b recorder
	Fanout{&a, nil, &b}.Notify(NewOrder(model.Order{ID: "x"}))
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("fanout missed a notifier: %d %d", len(a.events), len(b.events))
	}
}

type recorder struct{ events []Event }

func (r *recorder) Notify(ev Event) { r.events = append(r.events, ev) }
