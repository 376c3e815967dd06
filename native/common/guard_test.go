package common

import (
	"errors"
	"testing"
)

type pauseSet map[string]bool

func (p pauseSet) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, "market.auction"); err != nil {
		t.Fatalf("nil view must allow: %v", err)
	}
	pauses := pauseSet{"market.auction": true}
	if err := Guard(pauses, "market.auction"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, "market.listing"); err != nil {
		t.Fatalf("unpaused module must allow: %v", err)
	}
	if err := Guard(pauses, ""); err != nil {
		t.Fatalf("empty module name must allow: %v", err)
	}
}

func TestPauseSet(t *testing.T) {
	pauses := NewPauseSet()
	if pauses.IsPaused("market.auction") {
		t.Fatalf("fresh set must not pause anything")
	}
	pauses.Pause("market.auction")
	if err := Guard(pauses, "market.auction"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, "market.offer"); err != nil {
		t.Fatalf("other modules keep running: %v", err)
	}
	pauses.Resume("market.auction")
	if err := Guard(pauses, "market.auction"); err != nil {
		t.Fatalf("resumed module must allow: %v", err)
	}

	var absent *PauseSet
	if absent.IsPaused("market.auction") {
		t.Fatalf("nil set must not pause")
	}
}
