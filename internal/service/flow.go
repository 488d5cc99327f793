package service

import "sync"

// FlowGuard tracks a generation per add or edit flow. An assistant result is
// only applied if the generation it started with is still current, so a flow
// the user dismissed, or a medication edited meanwhile, drops the late result.
type FlowGuard struct {
	mu   sync.Mutex
	gens map[string]uint64
}

// NewFlowGuard creates an empty FlowGuard
func NewFlowGuard() *FlowGuard {
	return &FlowGuard{gens: make(map[string]uint64)}
}

// Begin starts a new generation for key and returns it
func (g *FlowGuard) Begin(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gens[key]++
	return g.gens[key]
}

// Cancel invalidates the outstanding generation for key, if any
func (g *FlowGuard) Cancel(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.gens[key]; !ok {
		return false
	}
	g.gens[key]++
	return true
}

// Current reports whether gen is still the live generation for key
func (g *FlowGuard) Current(key string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gens[key] == gen
}

// Finish forgets key once its generation gen is done
func (g *FlowGuard) Finish(key string, gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gens[key] == gen {
		delete(g.gens, key)
	}
}
