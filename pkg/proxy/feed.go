package proxy

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/arda-maps/gomapper/pkg/events"
)

// Feed broadcasts recovered game events to websocket subscribers, so map
// viewers and other tooling can follow the session without touching the
// telnet streams.
type Feed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan feedEvent
}

type feedEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewFeed returns an empty feed hub.
func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is bound to localhost by default; viewers connect
			// from file:// pages, so origin checking is permissive.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan feedEvent),
	}
}

// Publish delivers one event to every subscriber. Slow subscribers drop
// events rather than stall the relay.
func (f *Feed) Publish(ev events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, ch := range f.clients {
		select {
		case ch <- feedEvent{Type: ev.Type.String(), Text: ev.Text}:
		default:
			log.Printf("feed: dropping event for slow subscriber %s", conn.RemoteAddr())
		}
	}
}

// ListenAndServe exposes the feed at /events on the given address.
func (f *Feed) ListenAndServe(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", f.serveWS)
	log.Printf("feed: listening on ws://%s/events", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("feed: %v", err)
	}
}

func (f *Feed) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("feed: websocket upgrade error: %v", err)
		return
	}
	ch := make(chan feedEvent, 64)
	f.mu.Lock()
	f.clients[conn] = ch
	f.mu.Unlock()
	log.Printf("feed: subscriber connected from %s", conn.RemoteAddr())

	// Reader goroutine notices closes; the subscriber never sends data.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.drop(conn)
				return
			}
		}
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			f.drop(conn)
			return
		}
	}
}

func (f *Feed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	if ch, ok := f.clients[conn]; ok {
		delete(f.clients, conn)
		close(ch)
	}
	f.mu.Unlock()
	conn.Close()
}
