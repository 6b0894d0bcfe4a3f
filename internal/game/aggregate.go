// internal/game/aggregate.go
package game

// Aggregate is an entity whose current state derives from folding its
// ordered event history. Implementations must be pure: folding an event
// produces a new immutable snapshot and performs no I/O, so replaying the
// full history reproduces the live state exactly.
type Aggregate interface {
	// AggregateID is the identity of the entity, fixed for its lifetime.
	AggregateID() GameID

	// Pending returns the events folded in since the last commit, in the
	// order they were produced. They are what the orchestrator persists.
	Pending() []Event
}
