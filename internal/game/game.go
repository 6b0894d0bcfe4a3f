// internal/game/game.go
//
// The game lifecycle is a sum type over three states:
//
//	UninitializedGame -> RunningGame -> FinishedGame
//
// Transitions are one-directional and every transition is produced by
// folding exactly one event. Handle and Tick are the decision step: they
// validate a command (or countdown tick) against the current state and fold
// in the events it produces. Apply is the pure fold, shared between live
// updates and replay.
package game

// Rules carries the tunables the decision step applies to every turn.
type Rules struct {
	// TurnTimeoutSeconds is the countdown length granted to each turn.
	TurnTimeoutSeconds int
}

// DefaultTurnTimeoutSeconds is the countdown used when no rules are supplied.
const DefaultTurnTimeoutSeconds = 30

// DefaultRules returns the standard game tunables.
func DefaultRules() Rules {
	return Rules{TurnTimeoutSeconds: DefaultTurnTimeoutSeconds}
}

// Game is the lifecycle sum type. Concrete states are UninitializedGame,
// RunningGame and FinishedGame; each carries only the fields valid for it.
type Game interface {
	Aggregate

	// Apply folds a single past event into a new state. It is total: any
	// event that does not apply to the current state is a no-op.
	Apply(ev Event) Game

	// Committed returns the same state with its pending events cleared,
	// used after the pending batch has been durably persisted.
	Committed() Game
}

// PlayerRoll is one player's recorded roll within the round.
type PlayerRoll struct {
	Player PlayerID
	Value  int
}

// UninitializedGame is a game that has been referenced but not yet started.
type UninitializedGame struct {
	ID GameID
}

// RunningGame is a game in progress.
type RunningGame struct {
	ID      GameID
	Players []PlayerID
	Turn    Turn
	// Rolled holds one entry per player that has rolled this round, in roll
	// order.
	Rolled  []PlayerRoll
	pending []Event
}

// FinishedGame is a completed game. It accepts no further events.
type FinishedGame struct {
	ID      GameID
	Players []PlayerID
	Winners []PlayerID
	pending []Event
}

// Create returns the initial state for a new game identifier.
func Create(id GameID) Game {
	return UninitializedGame{ID: id}
}

// Replay reconstructs current state by folding the full historical event
// sequence from the start.
func Replay(id GameID, events []Event) Game {
	g := Create(id)
	for _, ev := range events {
		g = g.Apply(ev)
	}
	return g.Committed()
}

// Handle decides what a command does to the current state. On success it
// returns the new state carrying the produced events as pending; on a rule
// violation it returns the state unchanged and a *Violation.
func Handle(g Game, cmd Command, dice Roller, rules Rules) (Game, error) {
	switch c := cmd.(type) {
	case StartGame:
		u, ok := g.(UninitializedGame)
		if !ok {
			return g, violation(GameAlreadyStarted)
		}
		return u.start(c.Players, rules)
	case RollDice:
		r, ok := g.(RunningGame)
		if !ok {
			return g, violation(GameNotRunning)
		}
		return r.roll(c.Player, dice, rules)
	}
	return g, nil
}

// Tick decides what one countdown tick does to the current state. While
// seconds remain it decrements the countdown; once the countdown is spent
// the turn times out and the game advances exactly as if the player had
// rolled, except no roll is recorded for them. Ticks on a game that is not
// running are no-ops.
func Tick(g Game, rules Rules) Game {
	r, ok := g.(RunningGame)
	if !ok {
		return g
	}
	if r.Turn.SecondsLeft > 1 {
		return r.Apply(TurnCountdownUpdated{ID: r.ID, SecondsLeft: r.Turn.SecondsLeft - 1})
	}
	timedOut := r.Apply(TurnTimedOut{ID: r.ID}).(RunningGame)
	return timedOut.advance(rules)
}

// IsRunning reports whether the game is in progress.
func IsRunning(g Game) bool {
	_, ok := g.(RunningGame)
	return ok
}

// IsFinished reports whether the game has completed.
func IsFinished(g Game) bool {
	_, ok := g.(FinishedGame)
	return ok
}

func (g UninitializedGame) AggregateID() GameID { return g.ID }
func (g UninitializedGame) Pending() []Event    { return nil }
func (g UninitializedGame) Committed() Game     { return g }

func (g UninitializedGame) start(players []PlayerID, rules Rules) (Game, error) {
	if len(players) < 2 {
		return g, violation(NotEnoughPlayers)
	}
	initial := Turn{CurrentPlayer: players[0], SecondsLeft: rules.TurnTimeoutSeconds}
	return g.Apply(GameStarted{ID: g.ID, Players: players, InitialTurn: initial}), nil
}

func (g UninitializedGame) Apply(ev Event) Game {
	if started, ok := ev.(GameStarted); ok {
		return RunningGame{
			ID:      g.ID,
			Players: started.Players,
			Turn:    started.InitialTurn,
			pending: []Event{started},
		}
	}
	return g
}

func (g RunningGame) AggregateID() GameID { return g.ID }
func (g RunningGame) Pending() []Event    { return g.pending }

func (g RunningGame) Committed() Game {
	g.pending = nil
	return g
}

func (g RunningGame) roll(player PlayerID, dice Roller, rules Rules) (Game, error) {
	if player != g.Turn.CurrentPlayer {
		return g, violation(NotCurrentPlayer)
	}
	if g.hasRolled(player) {
		// The current player already rolled this round; repeating the
		// command is an idempotent no-op.
		return g, nil
	}
	rolled := g.Apply(DiceRolled{ID: g.ID, Player: player, RolledNumber: dice.Roll()}).(RunningGame)
	return rolled.advance(rules), nil
}

// advance passes the turn to the next player in roster order, or finishes
// the game once the roster is exhausted. Shared by roll and timeout.
func (g RunningGame) advance(rules Rules) Game {
	if next, ok := g.nextPlayer(); ok {
		turn := Turn{CurrentPlayer: next, SecondsLeft: rules.TurnTimeoutSeconds}
		return g.Apply(TurnChanged{ID: g.ID, Turn: turn})
	}
	return g.Apply(GameFinished{ID: g.ID, Winners: g.bestPlayers()})
}

func (g RunningGame) Apply(ev Event) Game {
	switch e := ev.(type) {
	case DiceRolled:
		if g.hasRolled(e.Player) {
			return g
		}
		g.Rolled = append(g.Rolled[:len(g.Rolled):len(g.Rolled)], PlayerRoll{Player: e.Player, Value: e.RolledNumber})
		g.pending = appendEvent(g.pending, e)
		return g
	case TurnChanged:
		g.Turn = e.Turn
		g.pending = appendEvent(g.pending, e)
		return g
	case TurnCountdownUpdated:
		g.Turn = Turn{CurrentPlayer: g.Turn.CurrentPlayer, SecondsLeft: e.SecondsLeft}
		g.pending = appendEvent(g.pending, e)
		return g
	case TurnTimedOut:
		g.pending = appendEvent(g.pending, e)
		return g
	case GameFinished:
		return FinishedGame{
			ID:      g.ID,
			Players: g.Players,
			Winners: e.Winners,
			pending: appendEvent(g.pending, e),
		}
	}
	return g
}

func (g RunningGame) hasRolled(player PlayerID) bool {
	for _, r := range g.Rolled {
		if r.Player == player {
			return true
		}
	}
	return false
}

func (g RunningGame) nextPlayer() (PlayerID, bool) {
	for i, p := range g.Players {
		if p == g.Turn.CurrentPlayer {
			if i+1 < len(g.Players) {
				return g.Players[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// bestPlayers returns every player tied for the highest roll this round.
// Empty if nobody rolled before timing out.
func (g RunningGame) bestPlayers() []PlayerID {
	if len(g.Rolled) == 0 {
		return nil
	}
	highest := g.Rolled[0].Value
	for _, r := range g.Rolled[1:] {
		if r.Value > highest {
			highest = r.Value
		}
	}
	var best []PlayerID
	for _, r := range g.Rolled {
		if r.Value == highest {
			best = append(best, r.Player)
		}
	}
	return best
}

func (g FinishedGame) AggregateID() GameID { return g.ID }
func (g FinishedGame) Pending() []Event    { return g.pending }

func (g FinishedGame) Committed() Game {
	g.pending = nil
	return g
}

// Apply on a finished game is a pure no-op; the lifecycle never moves
// backward.
func (g FinishedGame) Apply(Event) Game { return g }

// appendEvent appends without sharing the backing array of the source slice,
// so earlier snapshots are never mutated through a later apply.
func appendEvent(events []Event, ev Event) []Event {
	return append(events[:len(events):len(events)], ev)
}
