package alloc

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/patchlib/internal/library"
)

var (
	// ErrAlertActive is returned by Plan while a pass alert is unresolved.
	ErrAlertActive = errors.New("allocation alert active")

	// ErrInvalidAssignment is returned by Plan when destinations collide or
	// fall outside [0, 1023].
	ErrInvalidAssignment = errors.New("invalid slot assignment")
)

// Event is delivered to subscribers after every state change.
type Event struct {
	Alert Alert
	Valid bool
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Allocator) {
		a.log = l
	}
}

// Allocator holds one export session's candidates and their current
// destinations.
//
// Destinations start unassigned (library.NoSlot). A pass that alerts leaves
// the previous destinations in place.
type Allocator struct {
	log *slog.Logger

	mu    sync.Mutex
	cands []Candidate
	dest  []library.Slot
	alert Alert
	last  Options

	subMu     sync.Mutex
	subs      map[int]func(Event)
	nextSubID int
}

// NewAllocator starts a session over cands.
func NewAllocator(cands []Candidate, opts ...Option) *Allocator {
	a := &Allocator{
		log:   slog.Default(),
		cands: append([]Candidate{}, cands...),
		dest:  make([]library.Slot, len(cands)),
		subs:  make(map[int]func(Event)),
	}
	for i := range a.dest {
		a.dest[i] = library.NoSlot
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Len returns the number of candidates.
func (a *Allocator) Len() int { return len(a.cands) }

// Candidates returns a copy of the candidates.
func (a *Allocator) Candidates() []Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Candidate{}, a.cands...)
}

// Destinations returns a copy of the current destinations.
func (a *Allocator) Destinations() []library.Slot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]library.Slot{}, a.dest...)
}

// Alert returns the active alert.
func (a *Allocator) Alert() Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alert
}

// Options returns the options of the last Apply.
func (a *Allocator) Options() Options {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Valid reports whether every destination is in range and distinct.
func (a *Allocator) Valid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(Conflicts(a.dest)) == 0
}

// Conflicts returns candidate positions with a colliding or missing
// destination.
func (a *Allocator) Conflicts() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Conflicts(a.dest)
}

// Apply runs a pass and returns the resulting alert.
func (a *Allocator) Apply(opts Options) Alert {
	a.mu.Lock()
	dest, alert := Assign(a.cands, opts)
	a.last = opts
	a.commit(dest, alert, "apply", "mode", opts.Mode.String(), "order", opts.Order.String(), "reverse", opts.Reverse)
	ev := a.event()
	a.mu.Unlock()

	a.notify(ev)
	return alert
}

// FixIndexes renumbers colliding destinations and returns the resulting
// alert.
func (a *Allocator) FixIndexes() Alert {
	a.mu.Lock()
	dest, alert := FixIndexes(a.dest)
	a.commit(dest, alert, "fix indexes")
	ev := a.event()
	a.mu.Unlock()

	a.notify(ev)
	return alert
}

// SetDestination edits one destination by hand. It panics when i is out of
// range. The edit may leave the assignment invalid; see Valid and
// FixIndexes.
func (a *Allocator) SetDestination(i int, slot library.Slot) {
	a.mu.Lock()
	if i < 0 || i >= len(a.dest) {
		a.mu.Unlock()
		panic(fmt.Sprintf("alloc: candidate %d out of range [0, %d)", i, len(a.dest)))
	}
	a.dest[i] = slot
	ev := a.event()
	a.mu.Unlock()

	a.notify(ev)
}

// Exclude drops candidates by uid, with their destinations. An active alert
// is re-checked by re-running the last pass.
func (a *Allocator) Exclude(uids ...library.UID) {
	drop := make(map[library.UID]struct{}, len(uids))
	for _, u := range uids {
		drop[u] = struct{}{}
	}

	a.mu.Lock()
	cands := make([]Candidate, 0, len(a.cands))
	dest := make([]library.Slot, 0, len(a.dest))
	for i, c := range a.cands {
		if _, ok := drop[c.UID]; ok {
			continue
		}
		cands = append(cands, c)
		dest = append(dest, a.dest[i])
	}
	removed := len(a.cands) - len(cands)
	a.cands, a.dest = cands, dest
	if removed > 0 && a.alert != AlertNone {
		next, alert := Assign(a.cands, a.last)
		a.commit(next, alert, "recheck", "removed", removed)
	}
	ev := a.event()
	a.mu.Unlock()

	if removed > 0 {
		a.notify(ev)
	}
}

// commit stores a pass result. Callers hold a.mu.
func (a *Allocator) commit(dest []library.Slot, alert Alert, op string, attrs ...any) {
	if alert != AlertNone {
		a.alert = alert
		a.log.Warn("allocation alert", append([]any{"op", op, "alert", alert.String(), "candidates", len(a.cands)}, attrs...)...)
		return
	}
	a.dest = dest
	a.alert = AlertNone
	a.log.Debug("allocation applied", append([]any{"op", op, "candidates", len(a.cands)}, attrs...)...)
}

func (a *Allocator) event() Event {
	return Event{Alert: a.alert, Valid: len(Conflicts(a.dest)) == 0}
}

// Plan returns the export writes for the current assignment.
func (a *Allocator) Plan() ([]library.ExportWrite, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.alert != AlertNone {
		return nil, fmt.Errorf("plan export: %s: %w", a.alert, ErrAlertActive)
	}
	if c := Conflicts(a.dest); len(c) > 0 {
		return nil, fmt.Errorf("plan export: %d conflicting destinations: %w", len(c), ErrInvalidAssignment)
	}
	writes := make([]library.ExportWrite, len(a.cands))
	for i, c := range a.cands {
		writes[i] = library.ExportWrite{UID: c.UID, Slot: a.dest[i]}
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].Slot < writes[j].Slot })
	return writes, nil
}

// Subscribe registers fn for state changes and returns a function removing
// it.
func (a *Allocator) Subscribe(fn func(Event)) func() {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	id := a.nextSubID
	a.nextSubID++
	a.subs[id] = fn
	return func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		delete(a.subs, id)
	}
}

func (a *Allocator) notify(ev Event) {
	a.subMu.Lock()
	ids := make([]int, 0, len(a.subs))
	for id := range a.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, a.subs[id])
	}
	a.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
