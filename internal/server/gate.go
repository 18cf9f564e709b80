package server

import "sync"

// turnGate allows one outstanding turn or delete per conversation.
type turnGate struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newTurnGate() *turnGate {
	return &turnGate{active: make(map[string]struct{})}
}

// acquire reports false when id already has a turn in flight. The empty id
// is never gated.
func (g *turnGate) acquire(id string) bool {
	if id == "" {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[id]; busy {
		return false
	}
	g.active[id] = struct{}{}
	return true
}

func (g *turnGate) release(id string) {
	if id == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, id)
}
