package events

// Event represents a structured state change emitted by a marketplace engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (indexers, UIs).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default used by engines until a real sink is attached.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
