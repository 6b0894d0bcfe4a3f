// internal/engine/engine_test.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highroll-dev/highroll/internal/game"
)

// memLog is an in-memory Log standing in for the Postgres store.
type memLog struct {
	mu         sync.Mutex
	streams    map[game.GameID][]game.Event
	failAppend bool
}

func newMemLog() *memLog {
	return &memLog{streams: make(map[game.GameID][]game.Event)}
}

func (l *memLog) Append(_ context.Context, id game.GameID, events []game.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAppend {
		return errors.New("log unavailable")
	}
	l.streams[id] = append(l.streams[id], events...)
	return nil
}

func (l *memLog) Load(_ context.Context, id game.GameID) ([]game.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]game.Event(nil), l.streams[id]...), nil
}

func (l *memLog) setFailAppend(fail bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failAppend = fail
}

func (l *memLog) types(id game.GameID) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, ev := range l.streams[id] {
		out = append(out, fmt.Sprintf("%T", ev))
	}
	return out
}

// memPublisher collects published events, optionally failing every publish.
type memPublisher struct {
	mu     sync.Mutex
	events []game.Event
	fail   bool
}

func (p *memPublisher) Publish(_ context.Context, ev game.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("observer unreachable")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *memPublisher) published() []game.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]game.Event(nil), p.events...)
}

type fixedRoller struct {
	mu     sync.Mutex
	values []int
	next   int
}

func (f *fixedRoller) Roll() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.values[f.next%len(f.values)]
	f.next++
	return v
}

func newTestRegistry(log Log, pub Publisher, rolls []int, opts Options) *Registry {
	opts.Dice = &fixedRoller{values: rolls}
	if opts.TickInterval == 0 {
		// Effectively disable the countdown unless a test drives timeouts.
		opts.TickInterval = time.Hour
	}
	return NewRegistry(log, pub, opts)
}

func TestStartGame_PersistsThenPublishes(t *testing.T) {
	log := newMemLog()
	pub := &memPublisher{}
	r := newTestRegistry(log, pub, []int{1}, Options{})
	defer r.Close()

	ctx := context.Background()
	err := r.Send(ctx, "g1", game.StartGame{Players: []game.PlayerID{"alice", "bob"}})
	require.NoError(t, err)

	// The command is acknowledged only after the batch is durable.
	stored, err := log.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.IsType(t, game.GameStarted{}, stored[0])

	// Publication is fallout of the accepted command; it follows the ack.
	require.Eventually(t, func() bool {
		return len(pub.published()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, stored, pub.published())
}

func TestRejectedCommand_LeavesLogUntouched(t *testing.T) {
	log := newMemLog()
	pub := &memPublisher{}
	r := newTestRegistry(log, pub, []int{1}, Options{})
	defer r.Close()

	ctx := context.Background()
	err := r.Send(ctx, "g1", game.RollDice{Player: "alice"})

	v, ok := game.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, game.GameNotRunning, v.Kind)

	stored, err := log.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, pub.published())
}

func TestFullGame_FinishesAndStopsServing(t *testing.T) {
	log := newMemLog()
	pub := &memPublisher{}
	r := newTestRegistry(log, pub, []int{5, 3}, Options{})
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Send(ctx, "g1", game.StartGame{Players: []game.PlayerID{"alice", "bob"}}))
	require.NoError(t, r.Send(ctx, "g1", game.RollDice{Player: "alice"}))
	require.NoError(t, r.Send(ctx, "g1", game.RollDice{Player: "bob"}))

	stored, err := log.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, stored, 5)
	finished := stored[4].(game.GameFinished)
	assert.Equal(t, []game.PlayerID{"alice"}, finished.Winners)

	// The finished game replays on the next reference and rejects normally.
	err = r.Send(ctx, "g1", game.RollDice{Player: "alice"})
	v, ok := game.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, game.GameNotRunning, v.Kind)

	// Events reach observers in log order.
	require.Eventually(t, func() bool {
		return len(pub.published()) == 5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, stored, pub.published())
}

func TestTimeouts_DriveGameToCompletion(t *testing.T) {
	log := newMemLog()
	pub := &memPublisher{}
	r := newTestRegistry(log, pub, []int{1}, Options{
		Rules:        game.Rules{TurnTimeoutSeconds: 1},
		TickInterval: 5 * time.Millisecond,
	})
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Send(ctx, "g1", game.StartGame{Players: []game.PlayerID{"alice", "bob"}}))

	require.Eventually(t, func() bool {
		types := log.types("g1")
		return len(types) > 0 && types[len(types)-1] == "game.GameFinished"
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{
		"game.GameStarted",
		"game.TurnTimedOut",
		"game.TurnChanged",
		"game.TurnTimedOut",
		"game.GameFinished",
	}, log.types("g1"))

	stored, err := log.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, stored[4].(game.GameFinished).Winners, "nobody rolled, so nobody won")
}

func TestCountdown_DecrementsBeforeTimeout(t *testing.T) {
	log := newMemLog()
	pub := &memPublisher{}
	r := newTestRegistry(log, pub, []int{1}, Options{
		Rules:        game.Rules{TurnTimeoutSeconds: 3},
		TickInterval: 5 * time.Millisecond,
	})
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Send(ctx, "g1", game.StartGame{Players: []game.PlayerID{"alice", "bob"}}))

	require.Eventually(t, func() bool {
		for _, typ := range log.types("g1") {
			if typ == "game.TurnTimedOut" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	stored, err := log.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, game.TurnCountdownUpdated{ID: "g1", SecondsLeft: 2}, stored[1])
	assert.Equal(t, game.TurnCountdownUpdated{ID: "g1", SecondsLeft: 1}, stored[2])
	assert.Equal(t, game.TurnTimedOut{ID: "g1"}, stored[3])
}

func TestRecovery_ReplaysPersistedState(t *testing.T) {
	log := newMemLog()
	log.streams["g1"] = []game.Event{
		game.GameStarted{
			ID:          "g1",
			Players:     []game.PlayerID{"alice", "bob"},
			InitialTurn: game.Turn{CurrentPlayer: "alice", SecondsLeft: 30},
		},
	}
	pub := &memPublisher{}
	r := newTestRegistry(log, pub, []int{4}, Options{})
	defer r.Close()

	ctx := context.Background()

	// The replayed state knows alice holds the turn.
	err := r.Send(ctx, "g1", game.RollDice{Player: "bob"})
	v, ok := game.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, game.NotCurrentPlayer, v.Kind)

	require.NoError(t, r.Send(ctx, "g1", game.RollDice{Player: "alice"}))
	assert.Equal(t, []string{
		"game.GameStarted",
		"game.DiceRolled",
		"game.TurnChanged",
	}, log.types("g1"))
}

func TestRecovery_ReschedulesCountdown(t *testing.T) {
	log := newMemLog()
	log.streams["g1"] = []game.Event{
		game.GameStarted{
			ID:          "g1",
			Players:     []game.PlayerID{"alice", "bob"},
			InitialTurn: game.Turn{CurrentPlayer: "alice", SecondsLeft: 1},
		},
	}
	pub := &memPublisher{}
	r := newTestRegistry(log, pub, []int{1}, Options{
		Rules:        game.Rules{TurnTimeoutSeconds: 1},
		TickInterval: 5 * time.Millisecond,
	})
	defer r.Close()

	// Reference the game to bring its instance up. The probe player is not
	// in the roster, so the command is rejected no matter how far the
	// countdown has raced ahead.
	err := r.Send(context.Background(), "g1", game.RollDice{Player: "zed"})
	_, ok := game.AsViolation(err)
	require.True(t, ok)

	// The countdown rescheduled during recovery must fire on its own.
	require.Eventually(t, func() bool {
		types := log.types("g1")
		return len(types) > 0 && types[len(types)-1] == "game.GameFinished"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAppendFailure_HaltsInstanceUntilRecovery(t *testing.T) {
	log := newMemLog()
	log.failAppend = true
	pub := &memPublisher{}
	r := newTestRegistry(log, pub, []int{1}, Options{})
	defer r.Close()

	ctx := context.Background()
	err := r.Send(ctx, "g1", game.StartGame{Players: []game.PlayerID{"alice", "bob"}})
	require.Error(t, err)
	_, isViolation := game.AsViolation(err)
	assert.False(t, isViolation, "a persist failure is not a rule violation")
	assert.Empty(t, pub.published(), "nothing may be published for an unpersisted batch")

	// The halted instance is replaced on the next reference; with the log
	// healthy again the command goes through against replayed (empty) state.
	log.setFailAppend(false)
	require.NoError(t, r.Send(ctx, "g1", game.StartGame{Players: []game.PlayerID{"alice", "bob"}}))
	assert.Equal(t, []string{"game.GameStarted"}, log.types("g1"))
}

func TestPublishFailure_IsNonFatal(t *testing.T) {
	log := newMemLog()
	pub := &memPublisher{fail: true}
	r := newTestRegistry(log, pub, []int{5, 3}, Options{})
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Send(ctx, "g1", game.StartGame{Players: []game.PlayerID{"alice", "bob"}}))
	require.NoError(t, r.Send(ctx, "g1", game.RollDice{Player: "alice"}))
	require.NoError(t, r.Send(ctx, "g1", game.RollDice{Player: "bob"}))

	// The canonical state is the log; the game completed despite observers
	// being unreachable.
	types := log.types("g1")
	assert.Equal(t, "game.GameFinished", types[len(types)-1])
}

func TestIndependentGames_DoNotInterfere(t *testing.T) {
	log := newMemLog()
	pub := &memPublisher{}
	r := newTestRegistry(log, pub, []int{6}, Options{})
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Send(ctx, "g1", game.StartGame{Players: []game.PlayerID{"alice", "bob"}}))
	require.NoError(t, r.Send(ctx, "g2", game.StartGame{Players: []game.PlayerID{"carol", "dave"}}))
	require.NoError(t, r.Send(ctx, "g1", game.RollDice{Player: "alice"}))

	assert.Len(t, log.types("g1"), 3)
	assert.Len(t, log.types("g2"), 1)
}
