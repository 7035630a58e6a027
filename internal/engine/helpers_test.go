package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/metrics"
	"github.com/roach88/patchlib/internal/testutil"
)

// fixture is a small library: four sounds, all in "Factory" at slots 0..3,
// and sounds 1 and 2 in the user collection "Live" at slots 5 and 6.
type fixture struct {
	lib     *testutil.LibraryBuilder
	uids    []library.UID
	factory library.CollectionID
	live    library.CollectionID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lib := testutil.NewLibrary(t)
	uids := lib.Sounds(
		testutil.SoundSpec{Name: "Bass One", Category: 1, Tags: []string{"dark"}},
		testutil.SoundSpec{Name: "Lead Two", Category: 7},
		testutil.SoundSpec{Name: "Pad Three", Category: 9, Tags: []string{"warm"}},
		testutil.SoundSpec{Name: "Bass Four", Category: 1},
	)
	factory := lib.Sequential("Factory", library.KindFactory, uids...)
	live := lib.Collection("Live", library.KindUser,
		[]library.Slot{5, 6}, []library.UID{uids[0], uids[1]})
	return &fixture{lib: lib, uids: uids, factory: factory, live: live}
}

// newTestEngine returns a refreshed engine over src with fixed session ids.
func newTestEngine(t *testing.T, src library.RecordSource, m metrics.Collector) *Engine {
	t.Helper()
	e := New(src,
		WithMetrics(m),
		WithSessionIDs(testutil.NewFixedSessionID("session-1")),
	)
	require.NoError(t, e.Refresh(context.Background()))
	return e
}
