// internal/engine/registry.go
package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/highroll-dev/highroll/internal/game"
)

// Registry tracks the live orchestrator for each game identifier. Instances
// are created lazily on first reference and recovered from the event log;
// once an instance stops (game finished or halted on a persist failure) the
// next command recovers a fresh one, which replays the log and answers
// through the normal state-machine rules.
type Registry struct {
	log  Log
	pub  Publisher
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	games map[game.GameID]*Orchestrator
}

// NewRegistry builds a registry over the given log and publisher.
func NewRegistry(log Log, pub Publisher, opts Options) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		log:    log,
		pub:    pub,
		opts:   opts.withDefaults(),
		ctx:    ctx,
		cancel: cancel,
		games:  make(map[game.GameID]*Orchestrator),
	}
}

// Send routes a command to the game's orchestrator, creating and recovering
// one if needed. Returns nil for accepted commands, a *game.Violation for
// rejected ones, or an infrastructure error.
func (r *Registry) Send(ctx context.Context, id game.GameID, cmd game.Command) error {
	// Two attempts: the instance found on the first may have stopped since
	// it was registered.
	for attempt := 0; attempt < 2; attempt++ {
		o := r.get(id)
		err := o.Submit(ctx, cmd)
		if !errors.Is(err, ErrStopped) {
			return err
		}
		r.evict(id, o)
	}
	return ErrStopped
}

// Close stops every live instance. In-flight commands receive ErrStopped.
func (r *Registry) Close() {
	r.cancel()
}

func (r *Registry) get(id game.GameID) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.games[id]
	if !ok {
		o = newOrchestrator(r.ctx, id, r.log, r.pub, r.opts)
		r.games[id] = o
	}
	return o
}

// evict drops a stopped instance, but only if it is still the registered one.
func (r *Registry) evict(id game.GameID, o *Orchestrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.games[id] == o {
		delete(r.games, id)
	}
}
