package actor

import (
	"context"
	"log/slog"
)

// Options configures Run. Zero-value fields are defaulted the same way
// core/actor/v2.New and core/app.New resolve theirs: a background context,
// slog.Default, and no-op metrics.
type Options struct {
	Context context.Context
	Logger  *slog.Logger
	Metrics Metrics
}

func (o Options) resolve() Options {
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = NopMetrics()
	}
	return o
}

// Run starts every actor in actors, invokes fn with a StartContext that can
// post messages into any of them, then blocks until all of them have shut
// down or opts.Context is cancelled. Every actor must have been created by
// Of and given a behavior via Behavior before Run is called.
func Run(actors []ActorRef, fn func(StartContext), opts Options) error {
	opts = opts.resolve()

	cores := make([]actorCore, 0, len(actors))
	for _, a := range actors {
		core, ok := a.(actorCore)
		if !ok {
			return illegalState("%s is not a core actor", a.Name())
		}
		if !core.hasBehavior() {
			return illegalState("%s behavior is not defined", a.Name())
		}
		cores = append(cores, core)
	}

	rt := &runtime{ctx: opts.Context, log: opts.Logger, metrics: opts.Metrics}

	for _, core := range cores {
		if err := core.transitionToRunning(); err != nil {
			return err
		}
	}
	for _, core := range cores {
		core.startLoop(rt)
	}

	start := &contextImpl{rt: rt}
	fn(start)

	for _, core := range cores {
		<-core.doneChan()
	}
	return nil
}
