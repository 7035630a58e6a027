package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/patchlib/internal/library"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// putTestSound stores a sound and fails the test on error.
func putTestSound(t *testing.T, s *Store, name string, c library.Category, tags ...string) library.UID {
	t.Helper()
	uid, err := s.PutSound(context.Background(), library.Sound{Name: name, Category: c, Tags: tags})
	if err != nil {
		t.Fatalf("PutSound(%q) failed: %v", name, err)
	}
	return uid
}

// createTestCollection creates a collection and fails the test on error.
func createTestCollection(t *testing.T, s *Store, name string, kind library.CollectionKind) library.CollectionID {
	t.Helper()
	id, err := s.CreateCollection(context.Background(), name, kind)
	if err != nil {
		t.Fatalf("CreateCollection(%q) failed: %v", name, err)
	}
	return id
}
