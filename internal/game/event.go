// internal/game/event.go
package game

// Turn pairs the currently active player with the countdown seconds they have
// left. A new Turn value is produced whenever either changes.
type Turn struct {
	CurrentPlayer PlayerID
	SecondsLeft   int
}

// Event is an immutable fact recorded in a game's event stream. Every event
// is tagged with the game it belongs to.
type Event interface {
	Game() GameID
}

// GameStarted records the game leaving the uninitialized state: the fixed
// player roster and the opening turn.
type GameStarted struct {
	ID          GameID
	Players     []PlayerID
	InitialTurn Turn
}

// DiceRolled records the number a player rolled on their turn.
type DiceRolled struct {
	ID           GameID
	Player       PlayerID
	RolledNumber int
}

// TurnChanged records the turn passing to the next player.
type TurnChanged struct {
	ID   GameID
	Turn Turn
}

// TurnCountdownUpdated records one countdown tick elapsing on the current turn.
type TurnCountdownUpdated struct {
	ID          GameID
	SecondsLeft int
}

// TurnTimedOut records the current player running out of time without rolling.
type TurnTimedOut struct {
	ID GameID
}

// GameFinished records the end of the round. Winners holds every player tied
// for the highest roll; it is empty only if nobody rolled before timing out.
type GameFinished struct {
	ID      GameID
	Winners []PlayerID
}

func (e GameStarted) Game() GameID          { return e.ID }
func (e DiceRolled) Game() GameID           { return e.ID }
func (e TurnChanged) Game() GameID          { return e.ID }
func (e TurnCountdownUpdated) Game() GameID { return e.ID }
func (e TurnTimedOut) Game() GameID         { return e.ID }
func (e GameFinished) Game() GameID         { return e.ID }
