package alloc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/membership"
	"github.com/roach88/patchlib/internal/view"
)

func sourced(sources ...int) []Candidate {
	out := make([]Candidate, len(sources))
	for i, s := range sources {
		out[i] = Candidate{UID: library.UID(i + 1), Source: library.Slot(s)}
	}
	return out
}

func TestAllocator_StartsUnassigned(t *testing.T) {
	a := NewAllocator(sourced(1, 2))

	assert.Equal(t, slots(-1, -1), a.Destinations())
	assert.False(t, a.Valid())
	assert.Equal(t, AlertNone, a.Alert())

	_, err := a.Plan()
	assert.True(t, errors.Is(err, ErrInvalidAssignment))
}

func TestAllocator_ApplyAndPlan(t *testing.T) {
	a := NewAllocator(sourced(9, 9, -1))

	require.Equal(t, AlertNone, a.Apply(Options{Mode: ModeAuto}))
	assert.Equal(t, slots(9, 10, 0), a.Destinations())
	assert.True(t, a.Valid())

	writes, err := a.Plan()
	require.NoError(t, err)
	assert.Equal(t, []library.ExportWrite{
		{UID: 3, Slot: 0},
		{UID: 1, Slot: 9},
		{UID: 2, Slot: 10},
	}, writes)
}

func TestAllocator_AlertKeepsPreviousAssignment(t *testing.T) {
	src := make([]int, library.SlotCount+1)
	for i := range src {
		src[i] = i % library.SlotCount
	}
	a := NewAllocator(sourced(src...))
	a.SetDestination(0, 42)
	before := a.Destinations()

	assert.Equal(t, AlertDuplicatesMaximum, a.Apply(Options{Mode: ModeAuto}))
	assert.Equal(t, before, a.Destinations())
	assert.Equal(t, AlertDuplicatesMaximum, a.Alert())

	assert.Equal(t, AlertUnknownMaximum, a.Apply(Options{Mode: ModeSequential}))
	assert.Equal(t, before, a.Destinations())

	_, err := a.Plan()
	assert.True(t, errors.Is(err, ErrAlertActive))
}

func TestAllocator_AlertClearsWhenConditionGoes(t *testing.T) {
	src := make([]int, library.SlotCount+1)
	for i := range src {
		src[i] = i % library.SlotCount
	}
	a := NewAllocator(sourced(src...))
	require.Equal(t, AlertDuplicatesMaximum, a.Apply(Options{Mode: ModeAuto}))

	var events []Event
	a.Subscribe(func(e Event) { events = append(events, e) })

	a.Exclude(library.UID(library.SlotCount + 1))

	assert.Equal(t, AlertNone, a.Alert())
	assert.Equal(t, library.SlotCount, a.Len())
	assert.True(t, a.Valid())
	require.Len(t, events, 1)
	assert.Equal(t, Event{Alert: AlertNone, Valid: true}, events[0])
}

func TestAllocator_ManualEditThenFix(t *testing.T) {
	a := NewAllocator(sourced(0, 1, 2))
	a.Apply(Options{Mode: ModeAuto})

	a.SetDestination(2, 0)
	assert.False(t, a.Valid())
	assert.Equal(t, []int{2}, a.Conflicts())

	require.Equal(t, AlertNone, a.FixIndexes())
	assert.Equal(t, slots(0, 1, 2), a.Destinations())
}

func TestAllocator_SetDestinationOutOfRangePanics(t *testing.T) {
	a := NewAllocator(sourced(0))
	assert.Panics(t, func() { a.SetDestination(1, 0) })
}

func TestAllocator_Notifications(t *testing.T) {
	a := NewAllocator(sourced(0, 0))

	var events []Event
	unsubscribe := a.Subscribe(func(e Event) { events = append(events, e) })

	a.Apply(Options{Mode: ModeAuto})
	a.SetDestination(1, 0)
	unsubscribe()
	a.FixIndexes()

	assert.Equal(t, []Event{
		{Alert: AlertNone, Valid: true},
		{Alert: AlertNone, Valid: false},
	}, events)
}

func TestAllocator_ExcludeKeepsDestinations(t *testing.T) {
	a := NewAllocator(sourced(4, 5, 6))
	a.Apply(Options{Mode: ModeAuto})

	a.Exclude(2, 99)
	assert.Equal(t, slots(4, 6), a.Destinations())
	assert.Equal(t, []library.UID{1, 3}, []library.UID{a.Candidates()[0].UID, a.Candidates()[1].UID})
}

func TestAllocator_OptionsRemembered(t *testing.T) {
	a := NewAllocator(sourced(0))
	opts := Options{Mode: ModeDistributeTag, Order: OrderName, Reverse: true}
	a.Apply(opts)
	assert.Equal(t, opts, a.Options())
}

func TestFromRow(t *testing.T) {
	row := view.Row{
		UID:        7,
		Membership: membership.NewMask(0),
		Name:       library.PadName("Lead"),
		Category:   7,
		Tags:       []string{"bright"},
	}
	c := FromRow(row, 12)
	assert.Equal(t, Candidate{UID: 7, Name: "Lead", Category: 7, Tags: []string{"bright"}, Source: 12}, c)
	assert.Equal(t, "bright", c.FirstTag())
}

func TestAlertStrings(t *testing.T) {
	assert.Equal(t, "None", AlertNone.String())
	assert.Equal(t, "DuplicatesMaximum", AlertDuplicatesMaximum.String())
	assert.Equal(t, "UnknownMaximum", AlertUnknownMaximum.String())
	assert.Empty(t, AlertNone.Message())
	assert.Contains(t, AlertUnknownMaximum.Message(), "1024")
}
