package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/patchlib/internal/engine"
	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/store"
)

// session is an open library database with an indexed engine over it.
type session struct {
	store  *store.Store
	engine *engine.Engine
	log    *slog.Logger
	sink   *metricsSink

	// collections maps collection names to ids in the current index.
	collections map[string]library.CollectionID
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openSession opens the database and indexes it. Callers must call close.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*session, error) {
	log := newLogger(opts, cmd)

	log.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}

	sink, collector := newMetricsSink(opts, cmd)
	eng := engine.New(st, engine.WithLogger(log), engine.WithMetrics(collector))
	if err := eng.Refresh(ctx); err != nil {
		_ = st.Close()
		return nil, f.Fail(ExitCommandError, ErrCodeDatabase, "failed to index library", err)
	}

	s := &session{store: st, engine: eng, log: log, sink: sink}
	s.indexNames()
	return s, nil
}

func (s *session) indexNames() {
	idx := s.engine.View().Snapshot().Index()
	s.collections = make(map[string]library.CollectionID, idx.Len())
	for _, id := range idx.Collections() {
		if name, ok := idx.Name(id); ok {
			s.collections[name] = id
		}
	}
}

// collection resolves a collection name.
func (s *session) collection(f *OutputFormatter, name string) (library.CollectionID, error) {
	id, ok := s.collections[name]
	if !ok {
		return 0, f.Fail(ExitCommandError, ErrCodeUnknownName, "unknown collection "+name, nil)
	}
	return id, nil
}

func (s *session) close() {
	if s.sink != nil {
		if err := s.sink.flush(); err != nil {
			s.log.Error("error writing metrics", "error", err)
		}
	}
	if err := s.store.Close(); err != nil {
		s.log.Error("error closing database", "error", err)
	}
}
