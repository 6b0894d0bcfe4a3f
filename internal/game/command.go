// internal/game/command.go
package game

// Command is a request to change a game's state. Commands are not persisted;
// only the events they produce are.
type Command interface {
	isCommand()
}

// StartGame begins a game with the given roster. The first player in the
// list takes the opening turn.
type StartGame struct {
	Players []PlayerID
}

// RollDice requests a die roll on behalf of a player.
type RollDice struct {
	Player PlayerID
}

func (StartGame) isCommand() {}
func (RollDice) isCommand()  {}
