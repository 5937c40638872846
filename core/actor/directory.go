package actor

import (
	"sync"
	"time"

	"github.com/kynesis/loomrun/core/cache"
	"github.com/kynesis/loomrun/core/ds"
	"github.com/kynesis/loomrun/core/sf"
)

// TerminatedRecord is what a Directory remembers about an actor after it
// shuts down or panics: enough to answer "did X exist, and how did it end"
// without keeping the actor itself (or its mailbox) alive.
type TerminatedRecord struct {
	Name         string
	Reason       string // "shutdown" or "panic"
	TerminatedAt time.Time
}

type directoryEntry struct {
	name     string
	ref      ActorRef
	parent   string
	children *ds.Set[string]
}

func (directoryEntry) Create(id string) *directoryEntry {
	return &directoryEntry{name: id, children: ds.NewSet[string]()}
}

// DirectoryOptions configures a Directory. A zero value is usable: history
// defaults to a 128-entry LRU, the same default core/cache.NewLRU applies
// when its own Size option is left at zero.
type DirectoryOptions struct {
	HistorySize int
}

func (o DirectoryOptions) resolve() DirectoryOptions {
	if o.HistorySize <= 0 {
		o.HistorySize = 128
	}
	return o
}

// Directory is an optional introspection registry: a supervisor can Track
// every actor it starts or spawns and later answer "what's alive", "who
// are X's children" and "how did X end" without those questions reaching
// into actor internals. It plays no part in message delivery or the
// shutdown cascade — those remain exactly as Spawn/Context define them.
type Directory struct {
	mu      sync.RWMutex
	live    *ds.Map[directoryEntry]
	history cache.TypedCache[TerminatedRecord]
	group   *sf.Singleflight[ActorRef]
}

// NewDirectory builds an empty Directory.
func NewDirectory(opts DirectoryOptions) *Directory {
	opts = opts.resolve()
	return &Directory{
		live:    ds.NewMap[directoryEntry](),
		history: cache.NewTyped[TerminatedRecord](cache.NewLRU(cache.LRUOpts{Size: opts.HistorySize})),
		group:   sf.New[ActorRef](),
	}
}

// Track registers a as live under parent (empty for a top-level actor) and
// installs a signal handler that moves it into the terminated history the
// moment it shuts down or panics. It must be called before a.OnSignal
// handlers that themselves rely on directory state, since handlers run in
// registration order.
func TrackActor[B any](d *Directory, a *Actor[B], parent string) error {
	if err := d.register(a.Name(), a, parent); err != nil {
		return err
	}
	return a.OnSignal(func(signal Signal, _ HandlerContext) error {
		reason := "shutdown"
		if _, ok := signal.(PanicSignal); ok {
			reason = "panic"
		}
		d.unregister(a.Name(), reason)
		return nil
	})
}

func (d *Directory) register(name string, ref ActorRef, parent string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.live.Data()[name]; ok && e.ref != nil {
		return illegalState("directory: %s is already tracked", name)
	}
	e := d.live.Ensure(name)
	e.ref = ref
	e.parent = parent
	if parent != "" {
		if pe, ok := d.live.Data()[parent]; ok {
			pe.children.Add(name)
		}
	}
	return nil
}

func (d *Directory) unregister(name, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.live.Remove(name)
	d.history.Put(name, TerminatedRecord{Name: name, Reason: reason, TerminatedAt: time.Now()})
}

// Lookup returns the live ActorRef registered under name.
func (d *Directory) Lookup(name string) (ActorRef, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.live.Data()[name]
	if !ok {
		return nil, false
	}
	return e.ref, true
}

// Names returns every currently live actor's name, in registration order.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.live.Keys().Values()
}

// Children returns the names of parent's currently live spawned children,
// in spawn order.
func (d *Directory) Children(parent string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.live.Data()[parent]
	if !ok {
		return nil
	}
	return e.children.Values()
}

// History returns how and when name last terminated, if it's still within
// the history cache's retention.
func (d *Directory) History(name string) (TerminatedRecord, bool) {
	return d.history.Get(name)
}

// GetOrCreate returns the live actor registered under name, creating and
// tracking one via create if none exists yet. Concurrent callers racing on
// the same name are deduplicated through a singleflight group: only one
// of them runs create, the rest observe its result.
func (d *Directory) GetOrCreate(name string, create func() (ActorRef, error)) (ActorRef, error) {
	if ref, ok := d.Lookup(name); ok {
		return ref, nil
	}
	v, err := d.group.Do(name, func() (*ActorRef, error) {
		if ref, ok := d.Lookup(name); ok {
			return &ref, nil
		}
		ref, err := create()
		if err != nil {
			return nil, err
		}
		if err := d.register(name, ref, ""); err != nil {
			return nil, err
		}
		return &ref, nil
	})
	if err != nil {
		return nil, err
	}
	return *v, nil
}
