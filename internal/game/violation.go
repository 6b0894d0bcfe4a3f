// internal/game/violation.go
package game

import "errors"

// ViolationKind tags the specific game rule a rejected command broke.
type ViolationKind string

const (
	NotEnoughPlayers   ViolationKind = "not_enough_players"
	GameAlreadyStarted ViolationKind = "game_already_started"
	GameNotRunning     ViolationKind = "game_not_running"
	NotCurrentPlayer   ViolationKind = "not_current_player"
)

// Violation is the error returned when a command breaks a game rule. It is
// an expected, caller-recoverable condition: the game state is left exactly
// as it was and no events are produced.
type Violation struct {
	Kind ViolationKind
}

func (v *Violation) Error() string {
	return "game rule violation: " + string(v.Kind)
}

func violation(kind ViolationKind) *Violation {
	return &Violation{Kind: kind}
}

// AsViolation unwraps err into a *Violation if it is one.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
