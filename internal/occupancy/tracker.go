package occupancy

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"room-status-backend/internal/model"
	"room-status-backend/internal/store"
)

// Options configures a Tracker. Zero values fall back to sane defaults; the
// clock and tick interval are injectable so tests can drive time manually.
type Options struct {
	TickInterval time.Duration
	Clock        func() time.Time
	// OnSnapshot is invoked with the fresh snapshot after every resync and
	// after every tick that changed at least one room. Called outside the
	// tracker's lock.
	OnSnapshot func([]RoomView)
	// OnTransition is invoked for each room whose state changed between two
	// consecutive snapshots.
	OnTransition func(roomNumber string, from, to State)
}

// Tracker maintains a fresh RoomView for every room in inventory. It resyncs
// from the authoritative store on every change notification and recomputes
// time-dependent rooms on a fixed tick.
type Tracker struct {
	store store.Store
	opts  Options

	mu    sync.RWMutex
	views map[string]*RoomView

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	changes chan struct{}

	// Use IDs with an in-flight kickable mark, so a burst of ticks does not
	// spawn a write per tick before the store guard is observable.
	markMu  sync.Mutex
	marking map[int64]struct{}
}

// NewTracker creates a tracker over the given store. Call Start to begin
// tracking.
func NewTracker(s store.Store, opts Options) *Tracker {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &Tracker{
		store:   s,
		opts:    opts,
		views:   make(map[string]*RoomView),
		marking: make(map[int64]struct{}),
	}
}

// Start performs an initial resync, subscribes to the store's change feed
// and launches the tick loop. Starting an already running tracker is a
// no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.runMu.Lock()
	if t.running {
		t.runMu.Unlock()
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	t.changes = t.store.Changes().Subscribe()
	t.runMu.Unlock()

	t.Resync(ctx)
	go t.run(ctx)
}

// Stop releases the change subscription and the ticker together. Safe to
// call more than once.
func (t *Tracker) Stop() {
	t.runMu.Lock()
	if !t.running {
		t.runMu.Unlock()
		return
	}
	t.running = false
	close(t.stop)
	t.store.Changes().Unsubscribe(t.changes)
	done := t.done
	t.runMu.Unlock()
	<-done
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-t.changes:
			// The notification payload is empty on purpose: re-read the
			// authoritative projection instead of trusting it.
			t.Resync(ctx)
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// Resync rebuilds the whole snapshot from an authoritative read of rooms and
// open use records. On read failure the previous snapshot is retained:
// stale-but-available beats blank.
func (t *Tracker) Resync(ctx context.Context) {
	rooms, err := t.store.ListRooms(ctx)
	if err != nil {
		log.Printf("tracker: resync aborted, keeping previous snapshot: %v", err)
		return
	}
	openUses, err := t.store.ListOpenUses(ctx)
	if err != nil {
		log.Printf("tracker: resync aborted, keeping previous snapshot: %v", err)
		return
	}

	now := t.opts.Clock()
	next := make(map[string]*RoomView, len(rooms))
	for _, room := range rooms {
		var use *model.Use
		if u, ok := openUses[room.Number]; ok {
			cp := u
			use = &cp
		}
		state, remaining := ComputeState(use, now)
		next[room.Number] = &RoomView{
			Room:          room,
			State:         state,
			TimeRemaining: remaining,
			CurrentUse:    use,
		}
	}

	t.replace(next)
}

// tick recomputes remaining time for rooms whose last known state was
// Occupied or Kickable. Free and Unavailable rooms cannot change without an
// external write, which arrives as a change notification instead.
func (t *Tracker) tick(ctx context.Context) {
	now := t.opts.Clock()

	t.mu.RLock()
	next := make(map[string]*RoomView, len(t.views))
	changed := false
	for number, view := range t.views {
		if view.State != StateOccupied && view.State != StateKickable {
			next[number] = view
			continue
		}
		state, remaining := ComputeState(view.CurrentUse, now)
		if state == StateKickable && view.State == StateOccupied {
			t.requestKickableMark(ctx, view.CurrentUse, now)
		}
		next[number] = &RoomView{
			Room:          view.Room,
			State:         state,
			TimeRemaining: remaining,
			CurrentUse:    view.CurrentUse,
		}
		changed = true
	}
	t.mu.RUnlock()

	if changed {
		t.replace(next)
	}
}

// requestKickableMark persists the became-kickable timestamp exactly once,
// fire-and-forget. Failures are logged, never retried: the record stays
// unmarked and the next tick observing the transition tries again.
func (t *Tracker) requestKickableMark(ctx context.Context, use *model.Use, now time.Time) {
	if use == nil || use.KickableActivationTime != nil {
		return
	}
	t.markMu.Lock()
	if _, inFlight := t.marking[use.ID]; inFlight {
		t.markMu.Unlock()
		return
	}
	t.marking[use.ID] = struct{}{}
	t.markMu.Unlock()

	id := use.ID
	go func() {
		defer func() {
			t.markMu.Lock()
			delete(t.marking, id)
			t.markMu.Unlock()
		}()
		// wrote == false means another client won the race; the conditional
		// update makes the duplicate a no-op.
		if _, err := t.store.MarkKickable(ctx, id, now); err != nil {
			log.Printf("tracker: failed to mark use %d kickable: %v", id, err)
		}
	}()
}

// replace swaps in a new immutable snapshot, then reports transitions and
// the snapshot itself outside the lock.
func (t *Tracker) replace(next map[string]*RoomView) {
	t.mu.Lock()
	prev := t.views
	t.views = next
	t.mu.Unlock()

	if t.opts.OnTransition != nil {
		for number, view := range next {
			if old, ok := prev[number]; ok && old.State != view.State {
				t.opts.OnTransition(number, old.State, view.State)
			}
		}
	}
	if t.opts.OnSnapshot != nil {
		t.opts.OnSnapshot(t.Snapshot())
	}
}

// Snapshot returns the current views sorted by room number.
func (t *Tracker) Snapshot() []RoomView {
	t.mu.RLock()
	views := make([]RoomView, 0, len(t.views))
	for _, v := range t.views {
		views = append(views, *v)
	}
	t.mu.RUnlock()

	sort.Slice(views, func(i, j int) bool {
		return views[i].Room.Number < views[j].Room.Number
	})
	return views
}

// View returns the current view for one room.
func (t *Tracker) View(roomNumber string) (RoomView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.views[roomNumber]
	if !ok {
		return RoomView{}, false
	}
	return *v, true
}
