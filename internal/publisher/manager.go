package publisher

import (
	"errors"
	"log/slog"
	"sync"
)

var ErrManagerClosed = errors.New("connection manager is closed")

// Subscriber receives frames while it is registered with a Server.
// Send must not block on the remote consumer.
type Subscriber interface {
	ID() string
	Send(frame []byte) error
	Close() error
}

// ConnectionManager tracks the subscribers of one Server
type ConnectionManager struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber // key: subscriber ID
	closed      bool
	logger      *slog.Logger
}

func NewConnectionManager(logger *slog.Logger) *ConnectionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionManager{
		subscribers: make(map[string]Subscriber),
		logger:      logger,
	}
}

func (m *ConnectionManager) Add(sub Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	m.subscribers[sub.ID()] = sub
	m.logger.Info("subscriber_added",
		"subscriber_id", sub.ID(),
		"subscribers", len(m.subscribers),
	)
	return nil
}

func (m *ConnectionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subscribers[id]; !ok {
		return
	}
	delete(m.subscribers, id)
	m.logger.Info("subscriber_removed",
		"subscriber_id", id,
		"subscribers", len(m.subscribers),
	)
}

func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

// Broadcast hands frame to every subscriber and returns how many accepted it.
// A failing subscriber is logged and skipped; the others are unaffected.
func (m *ConnectionManager) Broadcast(frame []byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	delivered := 0
	for id, sub := range m.subscribers {
		if err := sub.Send(frame); err != nil {
			m.logger.Warn("subscriber_send_failed",
				"subscriber_id", id,
				"error", err.Error(),
			)
			continue
		}
		delivered++
	}
	return delivered
}

// CloseAll closes every subscriber and refuses new ones.
func (m *ConnectionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, sub := range m.subscribers {
		if err := sub.Close(); err != nil {
			m.logger.Debug("subscriber_close_failed",
				"subscriber_id", id,
				"error", err.Error(),
			)
		}
	}
	m.subscribers = make(map[string]Subscriber)
}
