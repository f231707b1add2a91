package middleware

import (
	"sync"
	"time"
)

type clientInfo struct {
	start time.Time
	count int64
}

// memoryWindow is the in-process fixed-window counter used when Redis is not
// configured. Counts are per process only.
type memoryWindow struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	now     func() time.Time
}

func newMemoryWindow() *memoryWindow {
	return &memoryWindow{clients: make(map[string]*clientInfo), now: time.Now}
}

// incr bumps key in the current window and returns the new count.
func (m *memoryWindow) incr(key string, window time.Duration) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ci, ok := m.clients[key]
	if !ok || now.Sub(ci.start) > window {
		ci = &clientInfo{start: now}
		m.clients[key] = ci
	}
	ci.count++

	// drop expired windows once the map grows
	if len(m.clients) > 10000 {
		for k, v := range m.clients {
			if now.Sub(v.start) > window {
				delete(m.clients, k)
			}
		}
	}
	return ci.count
}
