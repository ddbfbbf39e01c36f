package progress_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/boomerang-decompiler/boomerang/internal/proc"
	"github.com/boomerang-decompiler/boomerang/internal/progress"
)

func TestBroadcasterDeliversPhaseEvents(t *testing.T) {
	b := progress.NewBroadcaster(nil)
	srv := httptest.NewServer(b)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// give the server goroutine time to register the connection before
	// the event fires.
	time.Sleep(50 * time.Millisecond)

	p := proc.NewUserProc("target", 0x4000, proc.NewSignature("target"))
	b.OnPhase(p, "middle")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected a broadcast event, got error: %v", err)
	}

	var ev progress.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("invalid event JSON: %v", err)
	}
	if ev.Kind != "phase" || ev.Proc != "target" || ev.Phase != "middle" {
		t.Errorf("unexpected event: %+v", ev)
	}
}
