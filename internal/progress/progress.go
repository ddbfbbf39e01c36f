// Package progress broadcasts a driver.Driver's phase transitions to
// connected websocket clients, so a long decompilation can be watched
// live instead of only inspected after the fact. Grounded on the
// pack's gorilla/websocket usage: one upgraded connection per watcher,
// a mutex-guarded client set, JSON events written as they occur.
package progress

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/boomerang-decompiler/boomerang/internal/logging"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
)

// Event is one JSON message sent to every connected watcher.
type Event struct {
	Kind string `json:"kind"` // "phase", "cycle", "decompiled"
	Proc string `json:"proc,omitempty"`
	Address uint64 `json:"address,omitempty"`
	Phase string `json:"phase,omitempty"`
	Status string `json:"status,omitempty"`
	Members int `json:"members,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize: 1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Broadcaster implements driver.Hook, fanning every phase transition out
// to every currently connected websocket client. It never pauses the
// walk: OnPhase always returns true.
type Broadcaster struct {
	log *logging.Logger

	mu sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewBroadcaster(log *logging.Logger) *Broadcaster {
	return &Broadcaster{
		log: log,
		clients: map[*websocket.Conn]bool{},
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection as a watcher until it errors or closes.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if b.log != nil {
			b.log.WithPass("progress").Warn("upgrade failed: %v", err)
		}
		return
	}

	b.mu.Lock()
	b.clients[conn] = true
	b.mu.Unlock()

	if b.log != nil {
		b.log.WithPass("progress").Info("watcher connected (%d total)", b.clientCount())
	}

	go b.drain(conn)
}

// drain discards anything the client sends and deregisters it once the
// connection closes, the only way this package detects disconnects.
func (b *Broadcaster) drain(conn *websocket.Conn) {
	defer b.disconnect(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) disconnect(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.clients, conn)
	b.mu.Unlock()
	conn.Close()
}

func (b *Broadcaster) clientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// broadcast writes ev to every connected client, dropping any client
// whose write fails or times out.
func (b *Broadcaster) broadcast(ev Event) {
	blob, err := json.Marshal(ev)
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, blob); err != nil {
			delete(b.clients, conn)
			conn.Close()
		}
	}
}

// OnPhase implements driver.Hook.
func (b *Broadcaster) OnPhase(p *proc.UserProc, phase string) bool {
	b.broadcast(Event{Kind: "phase", Proc: p.ProcName(), Address: p.Address(), Phase: phase})
	return true
}

// OnCycleDetected implements driver.Hook.
func (b *Broadcaster) OnCycleDetected(group proc.Set) {
	b.broadcast(Event{Kind: "cycle", Members: len(group)})
}

// OnDecompiled implements driver.Hook.
func (b *Broadcaster) OnDecompiled(p *proc.UserProc) {
	b.broadcast(Event{Kind: "decompiled", Proc: p.ProcName(), Address: p.Address(), Status: p.Status.String()})
}

// ListenAndServe starts an HTTP server exposing the broadcaster at
// /progress on addr; it blocks until the server stops or errors.
func (b *Broadcaster) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/progress", b)
	if b.log != nil {
		b.log.WithPass("progress").Info("watch channel listening on %s/progress", addr)
	}
	return http.ListenAndServe(addr, mux)
}
