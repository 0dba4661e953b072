// Package sse fans notifications out to connected Server-Sent Events clients.
package sse

import (
	"context"
	"sync"

	"ms-booking/internal/models"
)

const clientBuffer = 10

// Hub holds the live subscriber channels, grouped by user id.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64][]chan *models.Notification
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64][]chan *models.Notification)}
}

// Subscribe registers a client for userID. The channel is closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID int64) <-chan *models.Notification {
	ch := make(chan *models.Notification, clientBuffer)

	h.mu.Lock()
	h.clients[userID] = append(h.clients[userID], ch)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(userID, ch)
	}()

	return ch
}

// Publish delivers n to every client of its user and returns how many got it.
// Slow clients with a full buffer miss the event instead of blocking the caller.
func (h *Hub) Publish(n *models.Notification) int {
	if n.UserID == nil {
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.clients[*n.UserID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) remove(userID int64, ch chan *models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[userID]
	for i, c := range clients {
		if c == ch {
			h.clients[userID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// ClientCount returns the number of live subscribers of a user.
func (h *Hub) ClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
