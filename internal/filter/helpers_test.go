package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/testutil"
	"github.com/roach88/patchlib/internal/view"
)

type fixture struct {
	b       *testutil.LibraryBuilder
	v       *view.View
	uids    []library.UID
	factory library.CollectionID
	live    library.CollectionID
}

// newFixture builds:
//
//	uid  name        category  tags           Factory  Live
//	1    Warm Pad    Pad       analog, warm   0        200
//	2    Sub Bass    Bass      dark           1        130
//	3    Glass Bell  Bell      -              2        -
//	4    Dark Pad    Pad       dark, warm     3        0
//	5    Acid Bass   Bass      analog, dark   4        -
func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := testutil.NewLibrary(t)
	uids := b.Sounds(
		testutil.SoundSpec{Name: "Warm Pad", Category: 9, Tags: []string{"analog", "warm"}},
		testutil.SoundSpec{Name: "Sub Bass", Category: 1, Tags: []string{"dark"}},
		testutil.SoundSpec{Name: "Glass Bell", Category: 2},
		testutil.SoundSpec{Name: "Dark Pad", Category: 9, Tags: []string{"dark", "warm"}},
		testutil.SoundSpec{Name: "Acid Bass", Category: 1, Tags: []string{"analog", "dark"}},
	)
	factory := b.Sequential("Factory", library.KindFactory, uids...)
	live := b.Collection("Live", library.KindUser,
		[]library.Slot{200, 130, 0},
		[]library.UID{uids[0], uids[1], uids[3]},
	)

	v := view.New(b.Store)
	require.NoError(t, v.RefreshAll(context.Background()))
	return &fixture{b: b, v: v, uids: uids, factory: factory, live: live}
}

// pick maps 1-based fixture numbers to uids.
func (f *fixture) pick(ns ...int) []library.UID {
	out := make([]library.UID, len(ns))
	for i, n := range ns {
		out[i] = f.uids[n-1]
	}
	return out
}

func rowUIDs(rows []view.Row) []library.UID {
	out := make([]library.UID, len(rows))
	for i, r := range rows {
		out[i] = r.UID
	}
	return out
}
