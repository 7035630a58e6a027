package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/roach88/patchlib/internal/library"
)

// ErrInjected is returned by FlakySource when a failure is armed.
var ErrInjected = errors.New("injected failure")

// FlakySource wraps a RecordSource, failing chosen calls on demand and
// counting every call.
type FlakySource struct {
	inner library.RecordSource

	mu          sync.Mutex
	failSounds  bool
	failColls   bool
	failSound   bool
	failExport  bool
	soundsCalls atomic.Int64
	soundCalls  atomic.Int64
	collCalls   atomic.Int64
	exportCalls atomic.Int64
}

// NewFlakySource wraps inner. Nothing fails until armed.
func NewFlakySource(inner library.RecordSource) *FlakySource {
	return &FlakySource{inner: inner}
}

// FailSounds arms or disarms Sounds failures.
func (f *FlakySource) FailSounds(fail bool) { f.set(&f.failSounds, fail) }

// FailCollections arms or disarms Collections failures.
func (f *FlakySource) FailCollections(fail bool) { f.set(&f.failColls, fail) }

// FailSound arms or disarms Sound failures.
func (f *FlakySource) FailSound(fail bool) { f.set(&f.failSound, fail) }

// FailExport arms or disarms WriteExport failures.
func (f *FlakySource) FailExport(fail bool) { f.set(&f.failExport, fail) }

func (f *FlakySource) set(flag *bool, v bool) {
	f.mu.Lock()
	*flag = v
	f.mu.Unlock()
}

func (f *FlakySource) armed(flag *bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *flag
}

// SoundsCalls returns how many times Sounds ran.
func (f *FlakySource) SoundsCalls() int64 { return f.soundsCalls.Load() }

// SoundCalls returns how many times Sound ran.
func (f *FlakySource) SoundCalls() int64 { return f.soundCalls.Load() }

// CollectionsCalls returns how many times Collections ran.
func (f *FlakySource) CollectionsCalls() int64 { return f.collCalls.Load() }

// ExportCalls returns how many times WriteExport ran.
func (f *FlakySource) ExportCalls() int64 { return f.exportCalls.Load() }

func (f *FlakySource) Sounds(ctx context.Context) ([]library.Sound, error) {
	f.soundsCalls.Add(1)
	if f.armed(&f.failSounds) {
		return nil, ErrInjected
	}
	return f.inner.Sounds(ctx)
}

func (f *FlakySource) Sound(ctx context.Context, uid library.UID) (library.Sound, error) {
	f.soundCalls.Add(1)
	if f.armed(&f.failSound) {
		return library.Sound{}, ErrInjected
	}
	return f.inner.Sound(ctx, uid)
}

func (f *FlakySource) Collections(ctx context.Context) ([]library.Collection, error) {
	f.collCalls.Add(1)
	if f.armed(&f.failColls) {
		return nil, ErrInjected
	}
	return f.inner.Collections(ctx)
}

func (f *FlakySource) WriteExport(ctx context.Context, id library.CollectionID, writes []library.ExportWrite) error {
	f.exportCalls.Add(1)
	if f.armed(&f.failExport) {
		return ErrInjected
	}
	return f.inner.WriteExport(ctx, id, writes)
}
