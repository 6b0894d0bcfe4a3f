// internal/game/id.go
package game

import "github.com/google/uuid"

// GameID identifies a single game instance. It never changes for the life of
// the game and doubles as the key of the instance's event stream.
type GameID string

// PlayerID identifies a player within a game.
type PlayerID string

// NewGameID mints a fresh game identifier.
func NewGameID() GameID {
	return GameID(uuid.NewString())
}

func (id GameID) String() string   { return string(id) }
func (id PlayerID) String() string { return string(id) }
