package confluo

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestAlertStream(t *testing.T) {
	server := setupTestServer(t)
	store := addTestStore(t, server, "events")
	if err := store.AddTrigger("errors", "status >= 500"); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stores/events/alerts/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the handler a moment to register its subscription before the
	// trigger fires.
	time.Sleep(100 * time.Millisecond)

	if _, err := store.Append(map[string]any{"level": "error", "status": float64(500)}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var alert Alert
	if err := conn.ReadJSON(&alert); err != nil {
		t.Fatalf("reading alert from stream: %v", err)
	}
	if alert.Trigger != "errors" {
		t.Errorf("alert trigger = %q, want errors", alert.Trigger)
	}
}
