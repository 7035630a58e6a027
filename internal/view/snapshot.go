package view

import (
	"fmt"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/membership"
)

// Edit records a single-row refresh published at Version.
type Edit struct {
	Version  uint64
	Position int
}

// Snapshot is an immutable, fully built view state.
type Snapshot struct {
	version   uint64
	structure uint64
	rows      []Row
	positions map[library.UID]int
	index     *membership.Index
	edits     []Edit // ascending by Version, reset on structural refresh
}

var emptyIndex, _ = membership.Build(nil)

func emptySnapshot() *Snapshot {
	return &Snapshot{
		rows:      []Row{},
		positions: map[library.UID]int{},
		index:     emptyIndex,
	}
}

// Version identifies this publication.
func (s *Snapshot) Version() uint64 { return s.version }

// Structure identifies the last structural rebuild this snapshot derives from.
func (s *Snapshot) Structure() uint64 { return s.structure }

// Index returns the membership index the rows were built against.
func (s *Snapshot) Index() *membership.Index { return s.index }

// Len returns the number of rows.
func (s *Snapshot) Len() int { return len(s.rows) }

// Row returns the row at position. It panics when position is out of range.
func (s *Snapshot) Row(position int) Row {
	if position < 0 || position >= len(s.rows) {
		panic(fmt.Sprintf("view: row position %d out of range [0, %d)", position, len(s.rows)))
	}
	return s.rows[position]
}

// Position returns the base position of a sound.
func (s *Snapshot) Position(uid library.UID) (int, bool) {
	p, ok := s.positions[uid]
	return p, ok
}

// Lookup returns the row for a sound.
func (s *Snapshot) Lookup(uid library.UID) (Row, bool) {
	p, ok := s.positions[uid]
	if !ok {
		return Row{}, false
	}
	return s.rows[p], true
}

// EditsSince returns the positions edited after version. ok is false when the
// snapshot was structurally rebuilt since, in which case callers must
// re-evaluate everything.
func (s *Snapshot) EditsSince(structure, version uint64) (positions []int, ok bool) {
	if structure != s.structure {
		return nil, false
	}
	for _, e := range s.edits {
		if e.Version > version {
			positions = append(positions, e.Position)
		}
	}
	return positions, true
}
