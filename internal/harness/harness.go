package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/patchlib/internal/alloc"
	"github.com/roach88/patchlib/internal/engine"
	"github.com/roach88/patchlib/internal/filter"
	"github.com/roach88/patchlib/internal/fixture"
	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/store"
	"github.com/roach88/patchlib/internal/testutil"
)

// Harness holds the state of one scenario run.
type Harness struct {
	store    *store.MemStore
	engine   *engine.Engine
	imported *fixture.Imported
	stages   []*filter.Stage
	pipeline *filter.Pipeline
}

// Run executes a scenario against a fresh in-memory store and returns the
// result. Errors are returned for scenarios that cannot run (bad fixture,
// unknown names); failed assertions are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	lib, err := fixture.Load(scenario.Library)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	st := store.NewMemStore()
	imported, err := fixture.Apply(ctx, st, lib)
	if err != nil {
		return nil, fmt.Errorf("import library: %w", err)
	}

	h := &Harness{
		store:    st,
		imported: imported,
		engine: engine.New(st,
			engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			engine.WithSessionIDs(testutil.NewFixedSessionID(scenario.SessionID)),
		),
	}
	if err := h.engine.Refresh(ctx); err != nil {
		return nil, err
	}
	if err := h.buildStages(scenario.Stages); err != nil {
		return nil, err
	}

	// Steps go through the engine's event loop, one at a time.
	loopDone := make(chan error, 1)
	go func() { loopDone <- h.engine.Run(ctx) }()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step); err != nil {
			h.engine.Stop()
			<-loopDone
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	h.engine.Stop()
	if err := <-loopDone; err != nil {
		return nil, fmt.Errorf("engine loop: %w", err)
	}

	result := NewResult()
	if scenario.Allocate != nil {
		snap, err := h.allocate(ctx, scenario.Allocate)
		if err != nil {
			return nil, fmt.Errorf("allocate: %w", err)
		}
		result.Allocation = snap
	}
	result.Rows = h.snapshotRows()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) buildStages(specs []StageSpec) error {
	h.stages = make([]*filter.Stage, 0, len(specs))
	for i, spec := range specs {
		kind, err := filter.ParseKind(spec.Kind)
		if err != nil {
			return fmt.Errorf("stages[%d]: %w", i, err)
		}
		var s *filter.Stage
		switch kind {
		case filter.KindName:
			s = filter.NewNameStage()
		case filter.KindCollection:
			s = filter.NewCollectionStage()
		case filter.KindCategory:
			s = filter.NewCategoryStage()
		case filter.KindTag:
			s = filter.NewTagStage()
		case filter.KindBank:
			id, err := h.collection(spec.Collection)
			if err != nil {
				return fmt.Errorf("stages[%d]: %w", i, err)
			}
			s = filter.NewBankStage(id)
		}
		h.stages = append(h.stages, s)
	}
	h.pipeline = h.engine.SetStages(h.stages...)
	return nil
}

// executeStep submits a step to the running engine and waits for it.
// Store mutations run as apply events, followed by the refresh they need.
func (h *Harness) executeStep(ctx context.Context, step Step) error {
	switch {
	case step.Filter != nil:
		return h.engine.Submit(ctx, engine.ApplyEvent(func(context.Context) error {
			return h.executeFilter(step.Filter)
		}))
	case step.Edit != nil:
		return h.executeEdit(ctx, step.Edit)
	case step.Place != nil:
		p := step.Place
		id, err := h.collection(p.Collection)
		if err != nil {
			return err
		}
		uid, err := h.sound(p.Sound)
		if err != nil {
			return err
		}
		place := engine.ApplyEvent(func(ctx context.Context) error {
			return h.store.Place(ctx, id, library.Slot(p.Slot), uid)
		})
		if err := h.engine.Submit(ctx, place); err != nil {
			return err
		}
		return h.engine.Submit(ctx, engine.RefreshEvent())
	case step.Refresh:
		return h.engine.Submit(ctx, engine.RefreshEvent())
	}
	return fmt.Errorf("empty step")
}

func (h *Harness) executeFilter(f *FilterStep) error {
	s := h.stages[f.Stage]
	switch s.Kind() {
	case filter.KindName:
		s.SetName(f.Name)
	case filter.KindCollection:
		ids := make([]library.CollectionID, 0, len(f.Collections))
		for _, name := range f.Collections {
			id, err := h.collection(name)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		s.SetCollections(ids...)
	case filter.KindCategory:
		cs := make([]library.Category, 0, len(f.Categories))
		for _, name := range f.Categories {
			c, err := library.ParseCategory(name)
			if err != nil {
				return err
			}
			cs = append(cs, c)
		}
		s.SetCategories(cs...)
	case filter.KindTag:
		s.SetTags(f.Tags...)
	case filter.KindBank:
		bank := filter.NoBank
		if f.Bank != nil {
			bank = *f.Bank
		}
		s.SetBank(bank)
	}
	return nil
}

func (h *Harness) executeEdit(ctx context.Context, e *EditStep) error {
	uid, err := h.sound(e.Sound)
	if err != nil {
		return err
	}
	edit := engine.ApplyEvent(func(ctx context.Context) error {
		return h.editSound(ctx, uid, e)
	})
	if err := h.engine.Submit(ctx, edit); err != nil {
		return err
	}
	if e.Delete {
		return h.engine.Submit(ctx, engine.RefreshEvent())
	}
	return h.engine.Submit(ctx, engine.RowEditedEvent(uid))
}

func (h *Harness) editSound(ctx context.Context, uid library.UID, e *EditStep) error {
	if e.Delete {
		return h.store.DeleteSound(ctx, uid)
	}
	if e.Rename != "" {
		if err := h.store.RenameSound(ctx, uid, e.Rename); err != nil {
			return err
		}
	}
	if e.Category != "" {
		c, err := library.ParseCategory(e.Category)
		if err != nil {
			return err
		}
		if err := h.store.SetCategory(ctx, uid, c); err != nil {
			return err
		}
	}
	if e.Tags != nil {
		if err := h.store.SetTags(ctx, uid, e.Tags); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) allocate(ctx context.Context, spec *AllocateSpec) (*AllocationSnapshot, error) {
	var opts alloc.Options
	var err error
	if spec.Mode != "" {
		if opts.Mode, err = alloc.ParseMode(spec.Mode); err != nil {
			return nil, err
		}
	}
	if spec.Order != "" {
		if opts.Order, err = alloc.ParseOrder(spec.Order); err != nil {
			return nil, err
		}
	}
	opts.Reverse = spec.Reverse

	selection := h.pipeline.UIDs()
	if len(spec.Select) > 0 {
		selection = make([]library.UID, 0, len(spec.Select))
		for _, name := range spec.Select {
			uid, err := h.sound(name)
			if err != nil {
				return nil, err
			}
			selection = append(selection, uid)
		}
	}

	source := engine.NoCollection
	if spec.From != "" {
		if source, err = h.collection(spec.From); err != nil {
			return nil, err
		}
	}

	session, err := h.engine.NewExportSession(selection, source)
	if err != nil {
		return nil, err
	}
	session.Apply(opts)
	if len(spec.Exclude) > 0 {
		drop := make([]library.UID, 0, len(spec.Exclude))
		for _, name := range spec.Exclude {
			uid, err := h.sound(name)
			if err != nil {
				return nil, err
			}
			drop = append(drop, uid)
		}
		session.Allocator.Exclude(drop...)
	}
	if spec.FixIndexes {
		session.FixIndexes()
	}

	snap := &AllocationSnapshot{
		SessionID: session.ID,
		Mode:      opts.Mode.String(),
		Order:     opts.Order.String(),
		Reverse:   opts.Reverse,
		Alert:     session.Allocator.Alert().String(),
		Entries:   allocationEntries(session.Allocator),
	}

	if spec.ExportTo != "" {
		target, err := h.collection(spec.ExportTo)
		if err != nil {
			return nil, err
		}
		if _, err := h.engine.Export(ctx, session, target); err != nil {
			var code string
			switch {
			case engine.IsBlocked(err):
				code = string(engine.ErrCodeExportBlocked)
			case engine.IsExportFailed(err):
				code = string(engine.ErrCodeExportFailed)
			default:
				return nil, err
			}
			snap.ExportError = code
		} else {
			snap.Exported = true
		}
	}
	return snap, nil
}

func allocationEntries(a *alloc.Allocator) []AllocationEntry {
	cands := a.Candidates()
	dest := a.Destinations()
	out := make([]AllocationEntry, len(cands))
	for i, c := range cands {
		out[i] = AllocationEntry{
			UID:    int64(c.UID),
			Sound:  c.Name,
			Source: int(c.Source),
			Slot:   int(dest[i]),
		}
	}
	return out
}

func (h *Harness) snapshotRows() []RowSnapshot {
	idx := h.pipeline.Snapshot().Index()
	rows := h.pipeline.Rows()
	out := make([]RowSnapshot, len(rows))
	for i, r := range rows {
		slots := []string{}
		for _, loc := range idx.Locations(r.UID) {
			name, _ := idx.Name(loc.Collection)
			slots = append(slots, fmt.Sprintf("%s@%s", name, loc.Slot))
		}
		out[i] = RowSnapshot{
			UID:      int64(r.UID),
			Name:     r.DisplayName(),
			Category: r.Category.String(),
			Tags:     append([]string{}, r.Tags...),
			Slots:    slots,
		}
	}
	return out
}

func (h *Harness) sound(name string) (library.UID, error) {
	uid, ok := h.imported.SoundUID(name)
	if !ok {
		return 0, fmt.Errorf("unknown sound %q", name)
	}
	return uid, nil
}

func (h *Harness) collection(name string) (library.CollectionID, error) {
	id, ok := h.imported.Collections[name]
	if !ok {
		return 0, fmt.Errorf("unknown collection %q", name)
	}
	return id, nil
}
