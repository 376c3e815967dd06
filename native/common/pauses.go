package common

import "sync"

// PauseSet is an in-memory PauseView with administrative toggles. Hosts that
// persist pause state elsewhere can implement PauseView directly; PauseSet
// covers the common case of process-local switches.
type PauseSet struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewPauseSet returns a PauseSet with every module running.
func NewPauseSet() *PauseSet {
	return &PauseSet{paused: make(map[string]bool)}
}

// Pause halts the named module.
func (p *PauseSet) Pause(module string) {
	if p == nil || module == "" {
		return
	}
	p.mu.Lock()
	p.paused[module] = true
	p.mu.Unlock()
}

// Resume lets the named module run again.
func (p *PauseSet) Resume(module string) {
	if p == nil || module == "" {
		return
	}
	p.mu.Lock()
	delete(p.paused, module)
	p.mu.Unlock()
}

// IsPaused implements PauseView.
func (p *PauseSet) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[module]
}
