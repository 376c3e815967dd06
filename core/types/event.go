package types

// Event represents a typed notification emitted by a marketplace state
// transition. Attributes carry the parties and amounts as decimal or hex
// strings so downstream indexers never need to parse engine internals.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
