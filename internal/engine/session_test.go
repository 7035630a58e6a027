package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchlib/internal/alloc"
	"github.com/roach88/patchlib/internal/filter"
	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/metrics"
	"github.com/roach88/patchlib/internal/testutil"
)

func TestNewExportSession_SourceSlots(t *testing.T) {
	f := newFixture(t)
	e := newTestEngine(t, f.lib.Store, metrics.Noop{})

	s, err := e.NewExportSession([]library.UID{f.uids[0], f.uids[1], f.uids[2]}, f.live)
	require.NoError(t, err)

	assert.Equal(t, "session-1", s.ID)
	assert.Equal(t, f.live, s.Source)
	assert.Empty(t, s.Missing)

	cands := s.Allocator.Candidates()
	require.Len(t, cands, 3)
	assert.Equal(t, library.Slot(5), cands[0].Source)
	assert.Equal(t, library.Slot(6), cands[1].Source)
	assert.Equal(t, library.NoSlot, cands[2].Source)
	assert.Equal(t, "Bass One", cands[0].Name)
}

func TestNewExportSession_NoCollection(t *testing.T) {
	f := newFixture(t)
	e := newTestEngine(t, f.lib.Store, metrics.Noop{})

	s, err := e.NewExportSession([]library.UID{f.uids[0]}, NoCollection)
	require.NoError(t, err)
	assert.Equal(t, library.NoSlot, s.Allocator.Candidates()[0].Source)
}

func TestNewExportSession_MissingAndRepeatedUIDs(t *testing.T) {
	f := newFixture(t)
	e := newTestEngine(t, f.lib.Store, metrics.Noop{})

	s, err := e.NewExportSession([]library.UID{f.uids[2], 999, f.uids[2], f.uids[0]}, f.factory)
	require.NoError(t, err)

	assert.Equal(t, []library.UID{999}, s.Missing)
	cands := s.Allocator.Candidates()
	require.Len(t, cands, 2)
	assert.Equal(t, f.uids[2], cands[0].UID)
	assert.Equal(t, f.uids[0], cands[1].UID)
}

func TestNewExportSession_UnknownCollection(t *testing.T) {
	f := newFixture(t)
	e := newTestEngine(t, f.lib.Store, metrics.Noop{})

	_, err := e.NewExportSession([]library.UID{f.uids[0]}, 999)
	require.Error(t, err)
	assert.True(t, IsUnknownCollection(err))
	assert.Contains(t, err.Error(), "session=session-1")
}

func TestExport_WritesAndRefreshes(t *testing.T) {
	f := newFixture(t)
	m := &metrics.Basic{}
	e := newTestEngine(t, f.lib.Store, m)
	ctx := context.Background()

	s, err := e.NewExportSession([]library.UID{f.uids[0], f.uids[1], f.uids[2]}, f.live)
	require.NoError(t, err)
	require.Equal(t, alloc.AlertNone, s.Apply(alloc.Options{Mode: alloc.ModeAuto}))

	writes, err := e.Export(ctx, s, f.live)
	require.NoError(t, err)
	assert.Equal(t, []library.ExportWrite{
		{UID: f.uids[2], Slot: 0},
		{UID: f.uids[0], Slot: 5},
		{UID: f.uids[1], Slot: 6},
	}, writes)

	slot, ok := e.View().Snapshot().Index().SlotFor(f.uids[2], f.live)
	require.True(t, ok, "exported sound should be in the target after refresh")
	assert.Equal(t, library.Slot(0), slot)

	assert.Equal(t, int64(1), m.Allocations.Load())
	assert.Equal(t, int64(1), m.Exports.Load())
	assert.Equal(t, int64(3), m.ExportWrites.Load())
	assert.Equal(t, int64(2), m.Refreshes.Load())
}

// Exporting a sound the target already holds moves it; the index, the bank
// stage and the slot sort all see the new slot.
func TestExport_MovesSoundAlreadyInTarget(t *testing.T) {
	f := newFixture(t)
	e := newTestEngine(t, f.lib.Store, metrics.Noop{})
	ctx := context.Background()

	bank := filter.NewBankStage(f.live)
	bank.SetBank(1)
	p := e.SetStages(bank)
	require.Equal(t, 0, p.RowCount())

	s, err := e.NewExportSession([]library.UID{f.uids[0]}, f.factory)
	require.NoError(t, err)
	require.Equal(t, alloc.AlertNone, s.Apply(alloc.Options{Mode: alloc.ModeAuto}))
	s.Allocator.SetDestination(0, 200)

	_, err = e.Export(ctx, s, f.live)
	require.NoError(t, err)

	cols, err := f.lib.Store.Collections(ctx)
	require.NoError(t, err)
	var live library.Collection
	for _, c := range cols {
		if c.ID == f.live {
			live = c
		}
	}
	assert.Equal(t, []library.Placement{
		{Slot: 6, UID: f.uids[1]},
		{Slot: 200, UID: f.uids[0]},
	}, live.Slots)

	idx := e.View().Snapshot().Index()
	slot, ok := idx.SlotFor(f.uids[0], f.live)
	require.True(t, ok)
	assert.Equal(t, library.Slot(200), slot)
	assert.Len(t, idx.Locations(f.uids[0]), 2) // Factory and Live

	require.Equal(t, 1, p.RowCount())
	assert.Equal(t, f.uids[0], p.RowAt(0).UID)

	sorted := p.Sorted(f.live, filter.SortSlot)
	require.Len(t, sorted, 1)
	assert.Equal(t, f.uids[0], sorted[0].UID)
}

func TestExport_BlockedByConflicts(t *testing.T) {
	f := newFixture(t)
	m := &metrics.Basic{}
	src := testutil.NewFlakySource(f.lib.Store)
	e := newTestEngine(t, src, m)

	s, err := e.NewExportSession([]library.UID{f.uids[0], f.uids[1]}, f.live)
	require.NoError(t, err)
	s.Apply(alloc.Options{Mode: alloc.ModeSequential})
	s.Allocator.SetDestination(1, 0)

	_, err = e.Export(context.Background(), s, f.live)
	require.Error(t, err)
	assert.True(t, IsBlocked(err))
	assert.ErrorIs(t, err, ErrExportBlocked)
	assert.ErrorIs(t, err, alloc.ErrInvalidAssignment)
	assert.Equal(t, int64(0), src.ExportCalls())
	assert.Equal(t, int64(1), m.ExportErrors.Load())

	// Renumbering clears the conflict and unblocks the export.
	require.Equal(t, alloc.AlertNone, s.FixIndexes())
	_, err = e.Export(context.Background(), s, f.live)
	require.NoError(t, err)
	assert.Equal(t, int64(1), src.ExportCalls())
}

func TestExport_BlockedByAlert(t *testing.T) {
	lib := testutil.NewLibrary(t)
	uids := lib.Synthetic(library.SlotCount+1, 0)
	target := lib.Collection("Target", library.KindUser, nil, nil)
	m := &metrics.Basic{}
	e := newTestEngine(t, lib.Store, m)

	s, err := e.NewExportSession(uids, NoCollection)
	require.NoError(t, err)
	alert := s.Apply(alloc.Options{Mode: alloc.ModeSequential})
	require.Equal(t, alloc.AlertUnknownMaximum, alert)
	assert.Equal(t, int64(1), m.Alerts.Load())

	_, err = e.Export(context.Background(), s, target)
	var ee *ExportError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, ErrCodeExportBlocked, ee.Code)
	assert.Equal(t, alloc.AlertUnknownMaximum, ee.Alert)
	assert.Equal(t, alloc.AlertUnknownMaximum.Message(), ee.Message)
	assert.ErrorIs(t, err, alloc.ErrAlertActive)

	// Dropping one candidate brings the batch back under capacity.
	s.Allocator.Exclude(uids[0])
	assert.Equal(t, alloc.AlertNone, s.Allocator.Alert())
	_, err = e.Export(context.Background(), s, target)
	assert.NoError(t, err)
}

func TestExport_UnknownTarget(t *testing.T) {
	f := newFixture(t)
	e := newTestEngine(t, f.lib.Store, metrics.Noop{})

	s, err := e.NewExportSession([]library.UID{f.uids[0]}, f.live)
	require.NoError(t, err)
	s.Apply(alloc.Options{Mode: alloc.ModeAuto})

	_, err = e.Export(context.Background(), s, 999)
	assert.True(t, IsUnknownCollection(err))
}

func TestExport_ReadOnlyTarget(t *testing.T) {
	f := newFixture(t)
	e := newTestEngine(t, f.lib.Store, metrics.Noop{})

	s, err := e.NewExportSession([]library.UID{f.uids[0]}, f.live)
	require.NoError(t, err)
	s.Apply(alloc.Options{Mode: alloc.ModeAuto})

	_, err = e.Export(context.Background(), s, f.factory)
	require.Error(t, err)
	assert.True(t, IsExportFailed(err))
	assert.ErrorIs(t, err, library.ErrReadOnly)
}

func TestExport_SourceFailure(t *testing.T) {
	f := newFixture(t)
	src := testutil.NewFlakySource(f.lib.Store)
	m := &metrics.Basic{}
	e := newTestEngine(t, src, m)

	s, err := e.NewExportSession([]library.UID{f.uids[0]}, f.live)
	require.NoError(t, err)
	s.Apply(alloc.Options{Mode: alloc.ModeAuto})

	src.FailExport(true)
	_, err = e.Export(context.Background(), s, f.live)
	assert.True(t, IsExportFailed(err))
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, int64(1), m.ExportErrors.Load())
	assert.Equal(t, int64(1), m.Refreshes.Load(), "failed export must not refresh")
}
