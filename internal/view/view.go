package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/membership"
)

// ChangeKind distinguishes structural rebuilds from single-row refreshes.
type ChangeKind int

const (
	// ChangeStructural follows RefreshAll.
	ChangeStructural ChangeKind = iota + 1
	// ChangeRow follows RefreshRow.
	ChangeRow
)

// Change is delivered to subscribers after a publication.
type Change struct {
	Kind    ChangeKind
	UID     library.UID // set for ChangeRow
	Version uint64
}

// Option configures a View.
type Option func(*View)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(v *View) {
		v.log = l
	}
}

// WithClock shares a logical clock with other components.
func WithClock(c *Clock) Option {
	return func(v *View) {
		v.clock = c
	}
}

// View owns the canonical row set derived from a RecordSource.
//
// Readers never block: Snapshot is a single atomic load. Writers (RefreshAll,
// RefreshRow) are serialised.
type View struct {
	src   library.RecordSource
	clock *Clock
	log   *slog.Logger

	cur atomic.Pointer[Snapshot]

	writeMu sync.Mutex

	subMu     sync.Mutex
	subs      map[int]func(Change)
	nextSubID int
}

// New creates a View over src. The view is empty until RefreshAll.
func New(src library.RecordSource, opts ...Option) *View {
	v := &View{
		src:   src,
		clock: NewClock(),
		log:   slog.Default(),
		subs:  make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.cur.Store(emptySnapshot())
	return v
}

// Snapshot returns the current published snapshot. It is never nil.
func (v *View) Snapshot() *Snapshot {
	return v.cur.Load()
}

// RowCount returns the number of rows in the current snapshot.
func (v *View) RowCount() int {
	return v.Snapshot().Len()
}

// RowAt returns a row of the current snapshot by base position.
func (v *View) RowAt(position int) Row {
	return v.Snapshot().Row(position)
}

// Subscribe registers fn for change notifications and returns a function
// removing it.
func (v *View) Subscribe(fn func(Change)) func() {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	id := v.nextSubID
	v.nextSubID++
	v.subs[id] = fn
	return func() {
		v.subMu.Lock()
		defer v.subMu.Unlock()
		delete(v.subs, id)
	}
}

func (v *View) notify(c Change) {
	v.subMu.Lock()
	ids := make([]int, 0, len(v.subs))
	for id := range v.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Change), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, v.subs[id])
	}
	v.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// RefreshAll rebuilds every row and the membership index from the source and
// publishes the result atomically. On error the previous snapshot stays.
func (v *View) RefreshAll(ctx context.Context) error {
	v.writeMu.Lock()
	snap, err := v.build(ctx)
	if err != nil {
		v.writeMu.Unlock()
		v.log.ErrorContext(ctx, "view refresh failed", "error", err)
		return err
	}
	v.cur.Store(snap)
	v.writeMu.Unlock()

	v.log.DebugContext(ctx, "view refreshed",
		"rows", snap.Len(),
		"collections", snap.index.Len(),
		"version", snap.version,
	)
	v.notify(Change{Kind: ChangeStructural, Version: snap.version})
	return nil
}

func (v *View) build(ctx context.Context) (*Snapshot, error) {
	var (
		sounds      []library.Sound
		collections []library.Collection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sounds, err = v.src.Sounds(gctx)
		if err != nil {
			return fmt.Errorf("enumerate sounds: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		collections, err = v.src.Collections(gctx)
		if err != nil {
			return fmt.Errorf("enumerate collections: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("refresh view: %w", err)
	}

	idx, err := membership.Build(collections)
	if err != nil {
		return nil, fmt.Errorf("refresh view: %w", err)
	}

	rows := make([]Row, 0, len(sounds))
	positions := make(map[library.UID]int, len(sounds))
	for _, s := range sounds {
		if _, dup := positions[s.UID]; dup {
			v.log.WarnContext(ctx, "duplicate sound uid from source", "uid", s.UID)
			continue
		}
		positions[s.UID] = len(rows)
		rows = append(rows, rowFromSound(s, idx.MaskFor(s.UID)))
	}

	version := v.clock.Next()
	return &Snapshot{
		version:   version,
		structure: version,
		rows:      rows,
		positions: positions,
		index:     idx,
	}, nil
}

// RefreshRow re-reads one sound's name, category and tags after an edit the
// source has confirmed. Membership is left untouched.
//
// A sound missing from the snapshot or from the source means the view lags a
// structural change; RefreshAll runs instead.
func (v *View) RefreshRow(ctx context.Context, uid library.UID) error {
	v.writeMu.Lock()
	cur := v.cur.Load()
	pos, ok := cur.Position(uid)
	if !ok {
		v.writeMu.Unlock()
		v.log.DebugContext(ctx, "row not in view, refreshing all", "uid", uid)
		return v.RefreshAll(ctx)
	}

	s, err := v.src.Sound(ctx, uid)
	if errors.Is(err, library.ErrNotFound) {
		v.writeMu.Unlock()
		v.log.DebugContext(ctx, "row gone from source, refreshing all", "uid", uid)
		return v.RefreshAll(ctx)
	}
	if err != nil {
		v.writeMu.Unlock()
		return fmt.Errorf("refresh row %d: %w", uid, err)
	}

	rows := make([]Row, len(cur.rows))
	copy(rows, cur.rows)
	rows[pos] = rowFromSound(s, cur.rows[pos].Membership)

	version := v.clock.Next()
	edits := make([]Edit, len(cur.edits), len(cur.edits)+1)
	copy(edits, cur.edits)
	edits = append(edits, Edit{Version: version, Position: pos})

	next := &Snapshot{
		version:   version,
		structure: cur.structure,
		rows:      rows,
		positions: cur.positions,
		index:     cur.index,
		edits:     edits,
	}
	v.cur.Store(next)
	v.writeMu.Unlock()

	v.log.DebugContext(ctx, "row refreshed", "uid", uid, "version", version)
	v.notify(Change{Kind: ChangeRow, UID: uid, Version: version})
	return nil
}
