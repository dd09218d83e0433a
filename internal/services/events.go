package services

import (
	"sync"
	"time"
)

const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
)

// Notification is a user-facing message about the outcome of an operation.
type Notification struct {
	OwnerID uint      `json:"-"`
	Level   string    `json:"level"` // success, error, info
	Action  string    `json:"action"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier surfaces notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

type subscriber struct {
	owner uint
	ch    chan Notification
}

// EventHub fans notifications out to connected SSE clients. Each client
// only receives its owner's notifications.
type EventHub struct {
	clients map[string]subscriber
	mu      sync.RWMutex
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]subscriber),
	}
}

// Subscribe registers a client of owner and returns its event channel.
func (h *EventHub) Subscribe(clientID string, owner uint) <-chan Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Notification, 100)
	h.clients[clientID] = subscriber{owner: owner, ch: ch}
	return ch
}

func (h *EventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.clients[clientID]; ok {
		close(sub.ch)
		delete(h.clients, clientID)
	}
}

// Notify delivers n to every client of its owner. Clients whose buffer is
// full miss the notification.
func (h *EventHub) Notify(n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.clients {
		if sub.owner != n.OwnerID {
			continue
		}
		select {
		case sub.ch <- n:
		default:
		}
	}
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var (
	globalEventHub *EventHub
	eventHubOnce   sync.Once
)

// GetEventHub returns the process-wide hub.
func GetEventHub() *EventHub {
	eventHubOnce.Do(func() {
		globalEventHub = NewEventHub()
	})
	return globalEventHub
}
