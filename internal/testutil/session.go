package testutil

// FixedSessionID generates the same export session id every time.
//
// Golden snapshots embed session ids, so scenarios pin them to one value.
// Unlike engine.FixedGenerator which returns ids in sequence, this generator
// always returns the same id.
type FixedSessionID struct {
	id string
}

// NewFixedSessionID creates a fixed session id generator.
// If id is empty, Generate returns "test-session-default".
func NewFixedSessionID(id string) *FixedSessionID {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionID{id: id}
}

// Generate returns the fixed id.
//
// Implements engine.SessionIDGenerator.
func (g *FixedSessionID) Generate() string {
	return g.id
}
