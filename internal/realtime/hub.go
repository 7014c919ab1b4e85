// Package realtime streams progress changes to connected learners over
// websockets.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-quest/internal/progress"
)

const (
	defaultBuffer = 32
	writeTimeout  = 5 * time.Second
)

// Hub fans store changes out to per-learner subscribers and implements
// progress.Observer. Notify never blocks: a subscriber whose buffer is full
// misses the change.
type Hub struct {
	buffer int

	mu   sync.Mutex
	subs map[string]map[chan progress.Change]struct{}
}

// NewHub creates a hub. buffer is the per-subscriber queue length (default 32).
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[string]map[chan progress.Change]struct{}),
	}
}

// Notify delivers c to every subscriber of c.LearnerID.
func (h *Hub) Notify(c progress.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[c.LearnerID] {
		select {
		case ch <- c:
		default:
			slog.Warn("realtime subscriber lagging, change dropped",
				"learner_id", c.LearnerID,
				"kind", c.Kind,
			)
		}
	}
}

// Subscribe registers a subscriber for one learner. The returned cancel
// function unregisters it and closes the channel.
func (h *Hub) Subscribe(learnerID string) (<-chan progress.Change, func()) {
	ch := make(chan progress.Change, h.buffer)

	h.mu.Lock()
	if h.subs[learnerID] == nil {
		h.subs[learnerID] = make(map[chan progress.Change]struct{})
	}
	h.subs[learnerID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[learnerID], ch)
			if len(h.subs[learnerID]) == 0 {
				delete(h.subs, learnerID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscribers for a learner.
func (h *Hub) Subscribers(learnerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[learnerID])
}

// Serve upgrades the request to a websocket and streams the learner's
// changes as JSON until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, learnerID string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "learner_id", learnerID, "error", err)
		return
	}
	defer conn.CloseNow()

	changes, cancel := h.Subscribe(learnerID)
	defer cancel()

	// Client messages are not expected; CloseRead handles control frames.
	ctx := conn.CloseRead(r.Context())
	slog.Debug("realtime subscriber connected", "learner_id", learnerID)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case c := <-changes:
			if err := write(ctx, conn, c); err != nil {
				slog.Debug("realtime write failed", "learner_id", learnerID, "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, c progress.Change) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, c)
}
