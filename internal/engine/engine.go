// internal/engine/engine.go
//
// One Orchestrator goroutine per game identifier is the sole writer of that
// game's state and event stream. Commands arrive over a single-consumer
// mailbox channel; the countdown ticker is owned by the same goroutine, so
// state, timer and log writes are serialized without locks. Different games
// are fully independent.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/highroll-dev/highroll/internal/game"
)

// Log is the durable append-only event log the orchestrator persists to.
// Append must be atomic for the batch; Load must return the full stream in
// append order.
type Log interface {
	Append(ctx context.Context, id game.GameID, events []game.Event) error
	Load(ctx context.Context, id game.GameID) ([]game.Event, error)
}

// Publisher fans persisted events out to observers. Best-effort: a returned
// error is logged, never fatal.
type Publisher interface {
	Publish(ctx context.Context, ev game.Event) error
}

// ErrStopped is returned by Submit when the instance's goroutine has exited,
// either because the game finished or because a persistence failure halted
// it. The registry reacts by recovering a fresh instance from the log.
var ErrStopped = errors.New("engine: game instance stopped")

// Options tunes orchestrator behavior. Zero values fall back to production
// defaults; tests shorten TickInterval to drive timeouts quickly.
type Options struct {
	Rules        game.Rules
	TickInterval time.Duration
	Dice         game.Roller
	Logger       *logrus.Logger
}

func (o Options) withDefaults() Options {
	if o.Rules.TurnTimeoutSeconds <= 0 {
		o.Rules = game.DefaultRules()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Dice == nil {
		o.Dice = game.NewRoller(time.Now().UnixNano())
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

type request struct {
	cmd   game.Command
	reply chan error
}

// Orchestrator drives a single game instance: recovery by replay, command
// handling, countdown ticks, persistence and publication.
type Orchestrator struct {
	id     game.GameID
	log    Log
	pub    Publisher
	dice   game.Roller
	rules  game.Rules
	period time.Duration
	logger *logrus.Logger

	cmds chan request
	done chan struct{}

	// owned by the run goroutine
	state  game.Game
	ticker *time.Ticker
}

func newOrchestrator(ctx context.Context, id game.GameID, log Log, pub Publisher, opts Options) *Orchestrator {
	o := &Orchestrator{
		id:     id,
		log:    log,
		pub:    pub,
		dice:   opts.Dice,
		rules:  opts.Rules,
		period: opts.TickInterval,
		logger: opts.Logger,
		cmds:   make(chan request),
		done:   make(chan struct{}),
	}
	go o.run(ctx)
	return o
}

// Submit delivers a command to the instance and waits for the verdict: nil
// means accepted, a *game.Violation means rejected, ErrStopped means the
// instance is gone and the caller should retry against a recovered one.
func (o *Orchestrator) Submit(ctx context.Context, cmd game.Command) error {
	req := request{cmd: cmd, reply: make(chan error, 1)}

	select {
	case o.cmds <- req:
	case <-o.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-o.done:
		// The loop may have replied just before exiting; prefer the reply.
		select {
		case err := <-req.reply:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.done)
	defer o.stopTicker()

	// Recovery: fold the full persisted stream before serving anything.
	history, err := o.log.Load(ctx, o.id)
	if err != nil {
		o.logger.WithError(err).Errorf("game %s: recovery failed", o.id)
		return
	}
	o.state = game.Replay(o.id, history)
	if game.IsRunning(o.state) {
		o.startTicker()
	}
	o.logger.WithFields(logrus.Fields{
		"game":   o.id,
		"events": len(history),
	}).Debug("game instance recovered")

	for {
		// A nil ticker means no countdown is scheduled; its nil channel
		// blocks forever in the select below.
		var tickC <-chan time.Time
		if o.ticker != nil {
			tickC = o.ticker.C
		}

		select {
		case <-ctx.Done():
			return
		case req := <-o.cmds:
			if !o.handleCommand(ctx, req) {
				return
			}
		case <-tickC:
			if !o.handleTick(ctx) {
				return
			}
		}
	}
}

// handleCommand runs one command through decide -> persist -> reply ->
// publish/react. Returns false when the instance must stop.
func (o *Orchestrator) handleCommand(ctx context.Context, req request) bool {
	next, err := game.Handle(o.state, req.cmd, o.dice, o.rules)
	if err != nil {
		// Rule violation: no state change, no events, report to the caller.
		req.reply <- err
		return true
	}
	return o.commit(ctx, next, req.reply)
}

// handleTick advances the countdown. Ticks racing a finished or not-yet-
// started game are dropped and the stray ticker cancelled; lifecycle state,
// not timer identity, decides.
func (o *Orchestrator) handleTick(ctx context.Context) bool {
	if !game.IsRunning(o.state) {
		o.logger.Warnf("game %s: countdown tick while game is not running, cancelling timer", o.id)
		o.stopTicker()
		return true
	}
	return o.commit(ctx, game.Tick(o.state, o.rules), nil)
}

// commit persists the pending batch, advances in-memory state, answers the
// caller, then publishes and reacts to each event in order. In-memory state
// never moves past what the log accepted: an append failure halts the
// instance so recovery-by-replay restores a consistent view.
func (o *Orchestrator) commit(ctx context.Context, next game.Game, reply chan error) bool {
	pending := next.Pending()
	if len(pending) > 0 {
		if err := o.log.Append(ctx, o.id, pending); err != nil {
			o.logger.WithError(err).Errorf("game %s: persisting %d event(s) failed, halting instance", o.id, len(pending))
			if reply != nil {
				reply <- fmt.Errorf("persist events: %w", err)
			}
			return false
		}
	}
	o.state = next.Committed()
	if reply != nil {
		reply <- nil
	}

	alive := true
	for _, ev := range pending {
		if err := o.pub.Publish(ctx, ev); err != nil {
			o.logger.WithError(err).Warnf("game %s: publishing %T failed", o.id, ev)
		}
		switch ev.(type) {
		case game.GameStarted:
			o.startTicker()
		case game.TurnChanged:
			// Turn boundaries reset the countdown.
			o.stopTicker()
			o.startTicker()
		case game.GameFinished:
			o.stopTicker()
			o.logger.Infof("game %s: finished, stopping instance", o.id)
			alive = false
		}
	}
	return alive
}

func (o *Orchestrator) startTicker() {
	o.stopTicker()
	o.ticker = time.NewTicker(o.period)
}

func (o *Orchestrator) stopTicker() {
	if o.ticker != nil {
		o.ticker.Stop()
		o.ticker = nil
	}
}
