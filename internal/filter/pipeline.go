package filter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/view"
)

// Stats counts predicate evaluations since the pipeline was created.
type Stats struct {
	// Evaluated is the number of rows tested, per stage.
	Evaluated []uint64
	// Rebuilds is the number of full re-evaluations, per stage.
	Rebuilds []uint64
	// Patched is the number of row edits applied without a rebuild.
	Patched uint64
	// Structural is the number of structural view changes observed.
	Structural uint64
}

// Total returns the sum of Evaluated.
func (s Stats) Total() uint64 {
	var n uint64
	for _, e := range s.Evaluated {
		n += e
	}
	return n
}

// output is the derived state of one stage.
type output struct {
	valid    bool
	gen      uint64 // stage generation evaluated
	upstream uint64 // upstream revision evaluated against
	rev      uint64 // bumped on every rebuild
	set      *roaring.Bitmap
	rows     []uint32 // set materialized in ascending base position
	dirty    bool     // rows lags set after a patch
}

func (o *output) materialize() []uint32 {
	if o.dirty {
		o.rows = o.set.ToArray()
		o.dirty = false
	}
	return o.rows
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.log = l
	}
}

// Pipeline is an ordered chain of stages over a view.
//
// All reads bring the pipeline up to date with the view's current snapshot
// first. The pipeline owns only derived state; it can be discarded and
// rebuilt at any time.
type Pipeline struct {
	v      *view.View
	stages []*Stage
	log    *slog.Logger

	mu      sync.Mutex
	snap    *view.Snapshot
	baseRev uint64
	outputs []output
	stats   Stats
	sorts   *sortCache

	subMu     sync.Mutex
	subs      map[int]func()
	nextSubID int

	detach []func()
}

// NewPipeline attaches stages to v in order. A stage must not be shared
// between pipelines.
func NewPipeline(v *view.View, stages []*Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		v:       v,
		stages:  append([]*Stage{}, stages...),
		log:     slog.Default(),
		outputs: make([]output, len(stages)),
		stats: Stats{
			Evaluated: make([]uint64, len(stages)),
			Rebuilds:  make([]uint64, len(stages)),
		},
		sorts: newSortCache(),
		subs:  make(map[int]func()),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, s := range p.stages {
		p.detach = append(p.detach, s.OnChange(p.notify))
	}
	p.detach = append(p.detach, v.Subscribe(func(view.Change) { p.notify() }))
	return p
}

// Close detaches the pipeline from its view and its stages. Calling it
// again is a no-op.
func (p *Pipeline) Close() {
	for _, fn := range p.detach {
		fn()
	}
	p.detach = nil
}

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Stage returns the output of stage i.
func (p *Pipeline) Stage(i int) StageView {
	if i < 0 || i >= len(p.stages) {
		panic(fmt.Sprintf("filter: stage %d out of range [0, %d)", i, len(p.stages)))
	}
	return StageView{p: p, i: i}
}

// Subscribe registers fn to run after any view or stage change and returns
// a function removing it.
func (p *Pipeline) Subscribe(fn func()) func() {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	id := p.nextSubID
	p.nextSubID++
	p.subs[id] = fn
	return func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		delete(p.subs, id)
	}
}

func (p *Pipeline) notify() {
	p.subMu.Lock()
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, p.subs[id])
	}
	p.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// RowCount returns the number of rows accepted by every stage.
func (p *Pipeline) RowCount() int {
	return p.stageRowCount(len(p.stages) - 1)
}

// RowAt returns a final row by position. It panics when position is out of
// range.
func (p *Pipeline) RowAt(position int) view.Row {
	return p.stageRowAt(len(p.stages)-1, position)
}

// MapRowToBase returns the sound at a final position.
func (p *Pipeline) MapRowToBase(position int) library.UID {
	return p.RowAt(position).UID
}

// BasePosition returns the view position of a final position.
func (p *Pipeline) BasePosition(position int) int {
	return p.stageBasePosition(len(p.stages)-1, position)
}

// UIDs returns every final sound in order.
func (p *Pipeline) UIDs() []library.UID {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sync()
	rows := p.finalRows()
	out := make([]library.UID, len(rows))
	for i, pos := range rows {
		out[i] = p.snap.Row(int(pos)).UID
	}
	return out
}

// Rows returns every final row in order.
func (p *Pipeline) Rows() []view.Row {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sync()
	rows := p.finalRows()
	out := make([]view.Row, len(rows))
	for i, pos := range rows {
		out[i] = p.snap.Row(int(pos))
	}
	return out
}

// Snapshot returns the view snapshot the pipeline is currently built from.
func (p *Pipeline) Snapshot() *view.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sync()
	return p.snap
}

// Stats returns a copy of the evaluation counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Evaluated:  append([]uint64{}, p.stats.Evaluated...),
		Rebuilds:   append([]uint64{}, p.stats.Rebuilds...),
		Patched:    p.stats.Patched,
		Structural: p.stats.Structural,
	}
}

// Refresh brings every stage up to date without reading rows.
func (p *Pipeline) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sync()
}

func (p *Pipeline) stageRowCount(i int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sync()
	return len(p.rowsOf(i))
}

func (p *Pipeline) stageRowAt(i, position int) view.Row {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sync()
	rows := p.rowsOf(i)
	if position < 0 || position >= len(rows) {
		panic(fmt.Sprintf("filter: row position %d out of range [0, %d)", position, len(rows)))
	}
	return p.snap.Row(int(rows[position]))
}

func (p *Pipeline) stageBasePosition(i, position int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sync()
	rows := p.rowsOf(i)
	if position < 0 || position >= len(rows) {
		panic(fmt.Sprintf("filter: row position %d out of range [0, %d)", position, len(rows)))
	}
	return int(rows[position])
}

// rowsOf returns the base positions accepted up to stage i. An empty
// pipeline (i == -1) passes every row.
func (p *Pipeline) rowsOf(i int) []uint32 {
	if i < 0 {
		return p.allRows()
	}
	return p.outputs[i].materialize()
}

func (p *Pipeline) finalRows() []uint32 {
	return p.rowsOf(len(p.stages) - 1)
}

func (p *Pipeline) allRows() []uint32 {
	n := p.snap.Len()
	rows := make([]uint32, n)
	for i := range rows {
		rows[i] = uint32(i)
	}
	return rows
}

// sync reconciles every stage with the current view snapshot and stage
// values. Callers hold p.mu.
func (p *Pipeline) sync() {
	cur := p.v.Snapshot()

	switch {
	case p.snap == nil || cur.Structure() != p.snap.Structure():
		p.snap = cur
		p.baseRev++
		p.stats.Structural++
		p.sorts.reset()
	case cur.Version() != p.snap.Version():
		edited, ok := cur.EditsSince(p.snap.Structure(), p.snap.Version())
		prev := p.snap
		p.snap = cur
		if !ok {
			p.baseRev++
			p.stats.Structural++
			p.sorts.reset()
			break
		}
		p.patch(prev, edited)
	}

	for i, s := range p.stages {
		o := &p.outputs[i]
		upstream := p.baseRev
		if i > 0 {
			upstream = p.outputs[i-1].rev
		}
		gen := s.Generation()
		if o.valid && o.gen == gen && o.upstream == upstream {
			continue
		}
		p.rebuild(i, upstream)
	}
}

// rebuild fully re-evaluates stage i over the rows of stage i-1.
func (p *Pipeline) rebuild(i int, upstream uint64) {
	pred, gen := p.stages[i].bind(p.snap.Index())
	input := p.rowsOf(i - 1)

	set := roaring.New()
	for _, pos := range input {
		if pred.accepts(p.snap.Row(int(pos))) {
			set.Add(pos)
		}
	}

	o := &p.outputs[i]
	o.valid = true
	o.gen = gen
	o.upstream = upstream
	o.rev++
	o.set = set
	o.rows = set.ToArray()
	o.dirty = false

	p.stats.Evaluated[i] += uint64(len(input))
	p.stats.Rebuilds[i]++
	p.log.Debug("filter stage rebuilt",
		"stage", i,
		"kind", p.stages[i].Kind().String(),
		"input", len(input),
		"output", len(o.rows),
	)
}

// patch re-tests edited base positions in every valid stage, in order.
// Stage revisions are left alone so no downstream rebuild is triggered.
func (p *Pipeline) patch(prev *view.Snapshot, edited []int) {
	if len(edited) == 0 {
		return
	}
	p.sorts.invalidateRowOrder()

	for i, s := range p.stages {
		o := &p.outputs[i]
		if !o.valid {
			// Rebuilt from scratch by sync.
			return
		}
		pred, _ := s.bind(p.snap.Index())
		for _, pos := range edited {
			upos := uint32(pos)
			in := i == 0 || p.outputs[i-1].set.Contains(upos)
			accepted := in && pred.accepts(p.snap.Row(pos))
			if in {
				p.stats.Evaluated[i]++
			}
			if accepted == o.set.Contains(upos) {
				continue
			}
			if accepted {
				o.set.Add(upos)
			} else {
				o.set.Remove(upos)
			}
			o.dirty = true
		}
	}
	p.stats.Patched += uint64(len(edited))
	p.log.Debug("filter rows patched", "rows", len(edited), "from", prev.Version(), "to", p.snap.Version())
}

// StageView exposes one stage's output.
type StageView struct {
	p *Pipeline
	i int
}

// RowCount returns the number of rows the stage accepts.
func (s StageView) RowCount() int { return s.p.stageRowCount(s.i) }

// RowAt returns a row of the stage output. It panics when position is out of
// range.
func (s StageView) RowAt(position int) view.Row { return s.p.stageRowAt(s.i, position) }

// MapRowToBase returns the sound at a stage output position.
func (s StageView) MapRowToBase(position int) library.UID { return s.RowAt(position).UID }

// BasePosition returns the view position of a stage output position.
func (s StageView) BasePosition(position int) int { return s.p.stageBasePosition(s.i, position) }
