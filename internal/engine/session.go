package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/patchlib/internal/alloc"
	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/metrics"
)

// NoCollection marks a session without an originating collection; every
// candidate's source slot is unknown.
const NoCollection library.CollectionID = 0

// ExportSession is one export in progress: the selected rows and their slot
// assignment. It lives only as long as the caller holds it.
type ExportSession struct {
	ID        string
	Source    library.CollectionID
	Allocator *alloc.Allocator

	// Missing lists selected uids that were no longer in the view.
	Missing []library.UID

	metrics metrics.Collector
}

// Apply runs an allocation pass and returns its alert.
func (s *ExportSession) Apply(opts alloc.Options) alloc.Alert {
	alert := s.Allocator.Apply(opts)
	s.metrics.RecordAllocation(opts.Mode.String(), alert.String())
	return alert
}

// FixIndexes renumbers colliding destinations and returns the alert.
func (s *ExportSession) FixIndexes() alloc.Alert {
	alert := s.Allocator.FixIndexes()
	s.metrics.RecordAllocation("fix-indexes", alert.String())
	return alert
}

// NewExportSession pairs the selected uids with their slots in source and
// opens an allocator over them. Selection order is kept and repeated uids
// are dropped. Uids missing from the current snapshot are left out and
// listed in Missing.
//
// source may be NoCollection. Any other collection must be in the index.
func (e *Engine) NewExportSession(selection []library.UID, source library.CollectionID) (*ExportSession, error) {
	snap := e.view.Snapshot()
	idx := snap.Index()
	id := e.ids.Generate()

	if source != NoCollection {
		if _, ok := idx.BitFor(source); !ok {
			return nil, newUnknownCollectionError(id, int64(source))
		}
	}

	seen := make(map[library.UID]struct{}, len(selection))
	cands := make([]alloc.Candidate, 0, len(selection))
	missing := make([]library.UID, 0)
	for _, uid := range selection {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}

		row, ok := snap.Lookup(uid)
		if !ok {
			missing = append(missing, uid)
			continue
		}
		src := library.NoSlot
		if source != NoCollection {
			if slot, ok := idx.SlotFor(uid, source); ok {
				src = slot
			}
		}
		cands = append(cands, alloc.FromRow(row, src))
	}

	log := e.log.With("session", id)
	if len(missing) > 0 {
		log.Debug("selection rows missing from view", "missing", len(missing))
	}
	log.Info("export session opened", "candidates", len(cands), "source", int64(source))

	return &ExportSession{
		ID:        id,
		Source:    source,
		Allocator: alloc.NewAllocator(cands, alloc.WithLogger(log)),
		Missing:   missing,
		metrics:   e.metrics,
	}, nil
}

// Export writes the session's assignment into target and rebuilds the view.
//
// The export is refused with an EXPORT_BLOCKED ExportError while the
// allocation has an alert or conflicting destinations, and with
// UNKNOWN_COLLECTION when target is not in the index. Nothing is written in
// either case.
func (e *Engine) Export(ctx context.Context, s *ExportSession, target library.CollectionID) ([]library.ExportWrite, error) {
	if _, ok := e.view.Snapshot().Index().BitFor(target); !ok {
		return nil, newUnknownCollectionError(s.ID, int64(target))
	}

	writes, err := s.Allocator.Plan()
	if err != nil {
		e.metrics.RecordExport(0, 0, err)
		return nil, newBlockedError(s.ID, s.Allocator.Alert(), err)
	}

	start := time.Now()
	err = e.src.WriteExport(ctx, target, writes)
	e.metrics.RecordExport(len(writes), time.Since(start), err)
	if err != nil {
		return nil, &ExportError{
			Code:      ErrCodeExportFailed,
			Message:   fmt.Sprintf("write %d slots into collection %d", len(writes), target),
			SessionID: s.ID,
			Err:       err,
		}
	}
	e.log.Info("export written", "session", s.ID, "target", int64(target), "writes", len(writes))

	if err := e.Refresh(ctx); err != nil {
		return writes, fmt.Errorf("export %s: %w", s.ID, err)
	}
	return writes, nil
}
