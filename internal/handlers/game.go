// internal/handlers/game.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/highroll-dev/highroll/internal/game"
)

// CommandSender routes a command to the addressed game instance. Implemented
// by engine.Registry.
type CommandSender interface {
	Send(ctx context.Context, id game.GameID, cmd game.Command) error
}

// API bundles the HTTP command-routing handlers.
type API struct {
	Sender CommandSender
	Logger *logrus.Logger
}

type createGameResponse struct {
	GameID string `json:"game_id"`
}

type startGameRequest struct {
	GameID  string   `json:"game_id"`
	Players []string `json:"players"`
}

type rollDiceRequest struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

type commandResponse struct {
	Result    string `json:"result"`
	Violation string `json:"violation,omitempty"`
}

// CreateGameHandler mints a fresh game identifier. The instance itself comes
// to life when the first command references it.
func (a *API) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, createGameResponse{GameID: game.NewGameID().String()})
}

// StartGameHandler translates a start request into a StartGame command.
func (a *API) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(req.GameID); err != nil {
		http.Error(w, "invalid game_id", http.StatusBadRequest)
		return
	}

	players := make([]game.PlayerID, len(req.Players))
	for i, p := range req.Players {
		players[i] = game.PlayerID(p)
	}

	a.respond(w, r, game.GameID(req.GameID), game.StartGame{Players: players})
}

// RollDiceHandler translates a roll request into a RollDice command.
func (a *API) RollDiceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req rollDiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(req.GameID); err != nil {
		http.Error(w, "invalid game_id", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" {
		http.Error(w, "missing player_id", http.StatusBadRequest)
		return
	}

	a.respond(w, r, game.GameID(req.GameID), game.RollDice{Player: game.PlayerID(req.PlayerID)})
}

// respond sends the command and maps the verdict: accepted, rejected with
// the violation kind, or 500 for infrastructure failures.
func (a *API) respond(w http.ResponseWriter, r *http.Request, id game.GameID, cmd game.Command) {
	err := a.Sender.Send(r.Context(), id, cmd)
	if err == nil {
		writeJSON(w, http.StatusOK, commandResponse{Result: "accepted"})
		return
	}
	if v, ok := game.AsViolation(err); ok {
		writeJSON(w, http.StatusOK, commandResponse{Result: "rejected", Violation: string(v.Kind)})
		return
	}
	a.Logger.WithError(err).Errorf("command %T for game %s failed", cmd, id)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
