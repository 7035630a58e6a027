package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/patchlib/internal/library"
)

// Sounds returns every sound ordered by uid.
// Returns an empty slice (not nil) if the library is empty.
func (s *Store) Sounds(ctx context.Context) ([]library.Sound, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, name, category, tags
		FROM sounds
		ORDER BY uid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sounds: %w", err)
	}
	defer rows.Close()

	sounds := []library.Sound{}
	for rows.Next() {
		snd, err := scanSound(rows)
		if err != nil {
			return nil, err
		}
		sounds = append(sounds, snd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sounds: %w", err)
	}

	return sounds, nil
}

// Sound retrieves a single sound by uid.
// Returns library.ErrNotFound if it does not exist.
func (s *Store) Sound(ctx context.Context, uid library.UID) (library.Sound, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uid, name, category, tags
		FROM sounds
		WHERE uid = ?
	`, int64(uid))

	snd, err := scanSound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return library.Sound{}, fmt.Errorf("sound %d: %w", uid, library.ErrNotFound)
	}
	return snd, err
}

// Collections returns every collection with its placements, factory
// collections first.
func (s *Store) Collections(ctx context.Context) ([]library.Collection, error) {
	// Read the collection list completely before querying slots: the pool
	// holds a single connection.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind
		FROM collections
		ORDER BY kind DESC, position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}

	collections := []library.Collection{}
	byID := map[library.CollectionID]int{}
	for rows.Next() {
		var c library.Collection
		var id int64
		var kind int
		if err := rows.Scan(&id, &c.Name, &kind); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		c.ID = library.CollectionID(id)
		c.Kind = library.CollectionKind(kind)
		c.Slots = []library.Placement{}
		byID[c.ID] = len(collections)
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	rows.Close()

	slotRows, err := s.db.QueryContext(ctx, `
		SELECT collection_id, slot, uid
		FROM slots
		ORDER BY collection_id ASC, slot ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer slotRows.Close()

	for slotRows.Next() {
		var cid, uid int64
		var slot int
		if err := slotRows.Scan(&cid, &slot, &uid); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		i, ok := byID[library.CollectionID(cid)]
		if !ok {
			continue
		}
		collections[i].Slots = append(collections[i].Slots, library.Placement{
			Slot: library.Slot(slot),
			UID:  library.UID(uid),
		})
	}

	if err := slotRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return collections, nil
}

// CollectionByName looks up a collection id by its name.
// Returns library.ErrNotFound if no collection has that name.
func (s *Store) CollectionByName(ctx context.Context, name string) (library.CollectionID, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM collections WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("collection %q: %w", name, library.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup collection: %w", err)
	}
	return library.CollectionID(id), nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSound scans a row into a Sound.
func scanSound(row scanner) (library.Sound, error) {
	var snd library.Sound
	var uid int64
	var category int
	var tagsJSON string

	if err := row.Scan(&uid, &snd.Name, &category, &tagsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return library.Sound{}, err
		}
		return library.Sound{}, fmt.Errorf("scan sound: %w", err)
	}
	snd.UID = library.UID(uid)
	snd.Category = library.Category(category)

	tags, err := unmarshalTags(tagsJSON)
	if err != nil {
		return library.Sound{}, err
	}
	snd.Tags = tags

	return snd, nil
}
