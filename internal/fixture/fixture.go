package fixture

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/patchlib/internal/library"
)

//go:embed schema.cue
var schemaCUE string

// Library is a decoded fixture file.
type Library struct {
	Sounds      []Sound      `yaml:"sounds" json:"sounds"`
	Collections []Collection `yaml:"collections,omitempty" json:"collections,omitempty"`
}

// Sound is one fixture sound.
type Sound struct {
	Name     string   `yaml:"name" json:"name"`
	Category string   `yaml:"category" json:"category"`
	Tags     []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Collection is one fixture collection. Kind is "user" (default) or
// "factory".
type Collection struct {
	Name  string      `yaml:"name" json:"name"`
	Kind  string      `yaml:"kind,omitempty" json:"kind,omitempty"`
	Slots []Placement `yaml:"slots,omitempty" json:"slots,omitempty"`
}

// Placement puts the named sound at a slot.
type Placement struct {
	Slot  int    `yaml:"slot" json:"slot"`
	Sound string `yaml:"sound" json:"sound"`
}

// CollectionKind returns the library kind of c.
func (c Collection) CollectionKind() library.CollectionKind {
	if c.Kind == "factory" {
		return library.KindFactory
	}
	return library.KindUser
}

// Load reads and validates a fixture file.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// Parse decodes and validates fixture YAML.
func Parse(data []byte) (*Library, error) {
	var lib Library
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&lib); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := validateSchema(&lib); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	if err := validateReferences(&lib); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &lib, nil
}

// validateSchema unifies lib with #Library and requires a concrete result.
func validateSchema(lib *Library) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Library"))

	v := ctx.Encode(lib)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}

func validateReferences(lib *Library) error {
	sounds := make(map[string]int, len(lib.Sounds))
	for i, s := range lib.Sounds {
		key := soundKey(s.Name)
		if j, ok := sounds[key]; ok {
			return fmt.Errorf("sounds[%d]: name %q already used by sounds[%d]", i, s.Name, j)
		}
		sounds[key] = i
	}

	names := make(map[string]bool, len(lib.Collections))
	for i, c := range lib.Collections {
		if names[c.Name] {
			return fmt.Errorf("collections[%d]: duplicate name %q", i, c.Name)
		}
		names[c.Name] = true

		coll := library.Collection{Name: c.Name, Kind: c.CollectionKind()}
		for j, p := range c.Slots {
			k, ok := sounds[soundKey(p.Sound)]
			if !ok {
				return fmt.Errorf("collections[%d].slots[%d]: unknown sound %q", i, j, p.Sound)
			}
			coll.Slots = append(coll.Slots, library.Placement{Slot: library.Slot(p.Slot), UID: library.UID(k + 1)})
		}
		if err := coll.Validate(); err != nil {
			return fmt.Errorf("collections[%d] %q: %w", i, c.Name, err)
		}
	}
	return nil
}

// soundKey is the stored form of a fixture name.
func soundKey(name string) string {
	return library.TrimName(library.PadName(name))
}

// Writer is the store surface Apply needs. Both store.Store and
// store.MemStore implement it.
type Writer interface {
	PutSound(ctx context.Context, s library.Sound) (library.UID, error)
	CreateCollection(ctx context.Context, name string, kind library.CollectionKind) (library.CollectionID, error)
	Place(ctx context.Context, id library.CollectionID, slot library.Slot, uid library.UID) error
}

// Imported maps fixture names to the ids the store assigned.
type Imported struct {
	Sounds      map[string]library.UID
	Collections map[string]library.CollectionID
}

// Apply writes lib into w: sounds first, in file order, then collections.
func Apply(ctx context.Context, w Writer, lib *Library) (*Imported, error) {
	out := &Imported{
		Sounds:      make(map[string]library.UID, len(lib.Sounds)),
		Collections: make(map[string]library.CollectionID, len(lib.Collections)),
	}

	for _, s := range lib.Sounds {
		c, err := library.ParseCategory(s.Category)
		if err != nil {
			return nil, fmt.Errorf("import sound %q: %w", s.Name, err)
		}
		uid, err := w.PutSound(ctx, library.Sound{Name: s.Name, Category: c, Tags: s.Tags})
		if err != nil {
			return nil, fmt.Errorf("import sound %q: %w", s.Name, err)
		}
		out.Sounds[soundKey(s.Name)] = uid
	}

	for _, c := range lib.Collections {
		id, err := w.CreateCollection(ctx, c.Name, c.CollectionKind())
		if err != nil {
			return nil, fmt.Errorf("import collection %q: %w", c.Name, err)
		}
		out.Collections[c.Name] = id
		for _, p := range c.Slots {
			uid, ok := out.Sounds[soundKey(p.Sound)]
			if !ok {
				return nil, fmt.Errorf("import collection %q: unknown sound %q", c.Name, p.Sound)
			}
			if err := w.Place(ctx, id, library.Slot(p.Slot), uid); err != nil {
				return nil, fmt.Errorf("import collection %q: %w", c.Name, err)
			}
		}
	}
	return out, nil
}

// SoundUID returns the uid imported for a fixture sound name.
func (im *Imported) SoundUID(name string) (library.UID, bool) {
	uid, ok := im.Sounds[soundKey(name)]
	return uid, ok
}
