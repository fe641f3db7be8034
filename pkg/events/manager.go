package events

import (
	"sync"

	"go.uber.org/zap"
)

// Manager owns the set of named subscriptions for one session, e.g. a requester
// watching their requests and matches, and tears them all down together.
type Manager struct {
	hub    *Hub
	logger *zap.Logger

	mu      sync.Mutex
	subs    map[string]*Subscription
	handle  func(name string, e Event)
	running bool
	wg      sync.WaitGroup
}

// NewManager creates a manager on hub. handle is called once per delivered event,
// never concurrently.
func NewManager(hub *Hub, logger *zap.Logger, handle func(name string, e Event)) *Manager {
	return &Manager{
		hub:    hub,
		logger: logger,
		subs:   make(map[string]*Subscription),
		handle: handle,
	}
}

// Start subscribes every query by name. A running manager is stopped first.
func (m *Manager) Start(queries map[string]Query) {
	m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	var deliver sync.Mutex
	for name, q := range queries {
		sub := m.hub.Subscribe(q)
		m.subs[name] = sub

		m.wg.Add(1)
		go func(name string, sub *Subscription) {
			defer m.wg.Done()
			for e := range sub.C {
				deliver.Lock()
				m.handle(name, e)
				deliver.Unlock()
			}
			m.logger.Debug("Subscription finished", zap.String("name", name))
		}(name, sub)
	}
	m.running = true
}

// Stop cancels every subscription and waits for in-flight handlers
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	for name, sub := range m.subs {
		sub.Cancel()
		delete(m.subs, name)
	}
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
}

// Names returns the names of the active subscriptions
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.subs))
	for name := range m.subs {
		names = append(names, name)
	}
	return names
}
