// internal/eventlog/codec.go
package eventlog

import (
	"encoding/json"
	"fmt"

	"github.com/highroll-dev/highroll/internal/game"
)

// Wire-format event type tags. These are persisted and published; renaming
// one breaks replay of existing streams.
const (
	typeGameStarted          = "game.started"
	typeDiceRolled           = "game.dice_rolled"
	typeTurnChanged          = "game.turn_changed"
	typeTurnCountdownUpdated = "game.turn_countdown_updated"
	typeTurnTimedOut         = "game.turn_timed_out"
	typeGameFinished         = "game.finished"
)

// Envelope is the serialized form of a domain event, both in the log's
// payload column and on the publish channel.
type Envelope struct {
	GameID  string          `json:"game_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type turnPayload struct {
	CurrentPlayer string `json:"current_player"`
	SecondsLeft   int    `json:"seconds_left"`
}

type gameStartedPayload struct {
	Players     []string    `json:"players"`
	InitialTurn turnPayload `json:"initial_turn"`
}

type diceRolledPayload struct {
	Player       string `json:"player"`
	RolledNumber int    `json:"rolled_number"`
}

type turnChangedPayload struct {
	Turn turnPayload `json:"turn"`
}

type countdownUpdatedPayload struct {
	SecondsLeft int `json:"seconds_left"`
}

type gameFinishedPayload struct {
	Winners []string `json:"winners"`
}

func encodeTurn(t game.Turn) turnPayload {
	return turnPayload{CurrentPlayer: string(t.CurrentPlayer), SecondsLeft: t.SecondsLeft}
}

func decodeTurn(p turnPayload) game.Turn {
	return game.Turn{CurrentPlayer: game.PlayerID(p.CurrentPlayer), SecondsLeft: p.SecondsLeft}
}

func encodePlayers(ids []game.PlayerID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func decodePlayers(names []string) []game.PlayerID {
	out := make([]game.PlayerID, len(names))
	for i, n := range names {
		out[i] = game.PlayerID(n)
	}
	return out
}

// encodePayload returns the wire type tag and JSON payload for a domain event.
func encodePayload(ev game.Event) (string, []byte, error) {
	var (
		typ     string
		payload any
	)
	switch e := ev.(type) {
	case game.GameStarted:
		typ = typeGameStarted
		payload = gameStartedPayload{Players: encodePlayers(e.Players), InitialTurn: encodeTurn(e.InitialTurn)}
	case game.DiceRolled:
		typ = typeDiceRolled
		payload = diceRolledPayload{Player: string(e.Player), RolledNumber: e.RolledNumber}
	case game.TurnChanged:
		typ = typeTurnChanged
		payload = turnChangedPayload{Turn: encodeTurn(e.Turn)}
	case game.TurnCountdownUpdated:
		typ = typeTurnCountdownUpdated
		payload = countdownUpdatedPayload{SecondsLeft: e.SecondsLeft}
	case game.TurnTimedOut:
		typ = typeTurnTimedOut
		payload = struct{}{}
	case game.GameFinished:
		typ = typeGameFinished
		payload = gameFinishedPayload{Winners: encodePlayers(e.Winners)}
	default:
		return "", nil, fmt.Errorf("eventlog: unknown event type %T", ev)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("eventlog: marshal %s payload: %w", typ, err)
	}
	return typ, data, nil
}

// decodePayload rebuilds a domain event from its wire type tag and payload.
func decodePayload(id game.GameID, typ string, payload []byte) (game.Event, error) {
	switch typ {
	case typeGameStarted:
		var p gameStartedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("eventlog: unmarshal %s: %w", typ, err)
		}
		return game.GameStarted{ID: id, Players: decodePlayers(p.Players), InitialTurn: decodeTurn(p.InitialTurn)}, nil
	case typeDiceRolled:
		var p diceRolledPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("eventlog: unmarshal %s: %w", typ, err)
		}
		return game.DiceRolled{ID: id, Player: game.PlayerID(p.Player), RolledNumber: p.RolledNumber}, nil
	case typeTurnChanged:
		var p turnChangedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("eventlog: unmarshal %s: %w", typ, err)
		}
		return game.TurnChanged{ID: id, Turn: decodeTurn(p.Turn)}, nil
	case typeTurnCountdownUpdated:
		var p countdownUpdatedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("eventlog: unmarshal %s: %w", typ, err)
		}
		return game.TurnCountdownUpdated{ID: id, SecondsLeft: p.SecondsLeft}, nil
	case typeTurnTimedOut:
		return game.TurnTimedOut{ID: id}, nil
	case typeGameFinished:
		var p gameFinishedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("eventlog: unmarshal %s: %w", typ, err)
		}
		return game.GameFinished{ID: id, Winners: decodePlayers(p.Winners)}, nil
	}
	return nil, fmt.Errorf("eventlog: unknown event type %q", typ)
}

// Marshal serializes a domain event into its full envelope, the form used on
// the publish channel.
func Marshal(ev game.Event) ([]byte, error) {
	typ, payload, err := encodePayload(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{GameID: string(ev.Game()), Type: typ, Payload: payload})
}

// Unmarshal rebuilds a domain event from its envelope form.
func Unmarshal(data []byte) (game.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("eventlog: unmarshal envelope: %w", err)
	}
	return decodePayload(game.GameID(env.GameID), env.Type, env.Payload)
}
