package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchlib/internal/library"
)

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(RowEditedEvent(7))
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, EventRowEdited, got.Type)
	assert.Equal(t, library.UID(7), got.UID)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for uid := library.UID(1); uid <= 3; uid++ {
		q.Enqueue(RowEditedEvent(uid))
	}

	for want := library.UID(1); want <= 3; want++ {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, e.UID)
	}
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_WaitSignals(t *testing.T) {
	q := newEventQueue()

	done := make(chan Event)
	go func() {
		<-q.Wait()
		e, _ := q.TryDequeue()
		done <- e
	}()

	q.Enqueue(RefreshEvent())

	select {
	case e := <-done:
		assert.Equal(t, EventRefresh, e.Type)
	case <-time.After(time.Second):
		t.Fatal("waiter was not signalled")
	}
}

func TestEventQueue_CloseWakesWaiter(t *testing.T) {
	q := newEventQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close did not wake waiter")
	}
}

func TestEventQueue_Enqueue_AfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(RefreshEvent()), "enqueue after close should return false")
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.Len())

	q.Enqueue(RefreshEvent())
	q.Enqueue(ApplyEvent(func(context.Context) error { return nil }))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_Drain(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(RowEditedEvent(1))
	q.Enqueue(RowEditedEvent(2))

	drained := q.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, library.UID(1), drained[0].UID)
	assert.Equal(t, library.UID(2), drained[1].UID)
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(RowEditedEvent(library.UID(p*1000 + i)))
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[library.UID]bool)
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		seen[e.UID] = true
	}
	assert.Len(t, seen, producers*eventsPerProducer)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "refresh", EventRefresh.String())
	assert.Equal(t, "row-edited", EventRowEdited.String())
	assert.Equal(t, "apply", EventApply.String())
	assert.Equal(t, "unknown", EventType(0).String())
}
