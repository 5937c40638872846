// Package runtime is a small supervisor that wires logging, the actor
// engine and OS-signal-driven shutdown together, the way core/app.App did
// for the cluster pillar it used to sit on top of. It carries none of that
// pillar's cluster/transport dependency: it starts a fixed set of actors,
// hands a bootstrap closure a StartContext, and stops them either when
// every actor has shut itself down or when the process receives an
// interrupt.
package runtime

import (
	"context"
	"log/slog"

	"github.com/kynesis/loomrun/core/actor"
)

// Config configures a Runtime. Zero-value fields are defaulted the same
// way core/actor.Options.resolve and the teacher's core/app.New do.
type Config struct {
	Context   context.Context
	Logger    *slog.Logger
	Metrics   actor.Metrics
	Actors    []actor.ActorRef
	Bootstrap func(actor.StartContext)
}

func (c Config) resolve() Config {
	if c.Context == nil {
		c.Context = context.Background()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Bootstrap == nil {
		c.Bootstrap = func(actor.StartContext) {}
	}
	return c
}

// Runtime owns the lifecycle of one actor graph.
type Runtime struct {
	cfg    Config
	cancel context.CancelFunc
}

// New prepares a Runtime from cfg. It does not start anything; call Run.
func New(cfg Config) *Runtime {
	cfg = cfg.resolve()
	ctx, cancel := context.WithCancel(cfg.Context)
	cfg.Context = ctx
	return &Runtime{cfg: cfg, cancel: cancel}
}

// Run starts every configured actor, invokes Bootstrap, and blocks until
// either all actors have shut down or Stop/context-cancellation cuts the
// wait short. It returns actor.Run's error, if any.
func (r *Runtime) Run() error {
	r.cfg.Logger.Info("runtime starting", slog.Int("actors", len(r.cfg.Actors)))
	err := actor.Run(r.cfg.Actors, r.cfg.Bootstrap, actor.Options{
		Context: r.cfg.Context,
		Logger:  r.cfg.Logger,
		Metrics: r.cfg.Metrics,
	})
	if err != nil {
		r.cfg.Logger.Error("runtime exited with error", slog.Any("error", err))
		return err
	}
	r.cfg.Logger.Info("runtime stopped")
	return nil
}

// Stop cancels the runtime's context. Actors that honor context
// cancellation in their computations unwind promptly; actors blocked
// purely on mailbox takes unwind as soon as actor.Run's internal queue
// observes ctx.Done(), the same cancellation path core/queue.Queue.Take
// already exposes.
func (r *Runtime) Stop() { r.cancel() }

// Run is the one-shot convenience form: New(cfg).Run().
func Run(cfg Config) error {
	return New(cfg).Run()
}
