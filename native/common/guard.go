package common

import "errors"

// ErrModulePaused is returned when an engine operation is attempted while its
// module is administratively paused.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named marketplace module is currently paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the module is paused. A nil view means
// pausing is not wired and every operation proceeds.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
