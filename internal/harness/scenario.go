package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/patchlib/internal/alloc"
	"github.com/roach88/patchlib/internal/filter"
)

// Scenario is one end-to-end library test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Library is the fixture file path. LoadScenario resolves it relative
	// to the scenario file.
	Library string `yaml:"library"`

	// Stages builds the filter pipeline, in order.
	Stages []StageSpec `yaml:"stages"`

	// Steps run in order after the first refresh.
	Steps []Step `yaml:"steps,omitempty"`

	// Allocate opens an export session after the steps.
	Allocate *AllocateSpec `yaml:"allocate,omitempty"`

	// Assertions validate the final rows and allocation.
	Assertions []Assertion `yaml:"assertions"`

	// SessionID pins the export session id. Defaults to
	// "test-session-default".
	SessionID string `yaml:"session_id,omitempty"`
}

// StageSpec declares one filter stage.
type StageSpec struct {
	// Kind is name, collection, category, tag or bank.
	Kind string `yaml:"kind"`

	// Collection is the collection a bank stage reads slots from.
	Collection string `yaml:"collection,omitempty"`
}

// Step is one scenario action. Exactly one field is set.
type Step struct {
	Filter  *FilterStep `yaml:"filter,omitempty"`
	Edit    *EditStep   `yaml:"edit,omitempty"`
	Place   *PlaceStep  `yaml:"place,omitempty"`
	Refresh bool        `yaml:"refresh,omitempty"`
}

// FilterStep sets the value of one stage. The field matching the stage's
// kind is used; leaving it empty clears the stage.
type FilterStep struct {
	Stage       int      `yaml:"stage"`
	Name        string   `yaml:"name,omitempty"`
	Collections []string `yaml:"collections,omitempty"`
	Categories  []string `yaml:"categories,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Bank        *int     `yaml:"bank,omitempty"`
}

// EditStep changes one sound in the store and refreshes its row.
type EditStep struct {
	Sound    string   `yaml:"sound"`
	Rename   string   `yaml:"rename,omitempty"`
	Category string   `yaml:"category,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
	Delete   bool     `yaml:"delete,omitempty"`
}

// PlaceStep puts a sound into a collection slot and refreshes the view
// structurally.
type PlaceStep struct {
	Collection string `yaml:"collection"`
	Slot       int    `yaml:"slot"`
	Sound      string `yaml:"sound"`
}

// AllocateSpec opens an export session and runs one pass.
type AllocateSpec struct {
	// Select names the sounds to export. Empty selects the pipeline rows.
	Select []string `yaml:"select,omitempty"`

	// From is the originating collection; empty means none.
	From string `yaml:"from,omitempty"`

	Mode    string `yaml:"mode,omitempty"`
	Order   string `yaml:"order,omitempty"`
	Reverse bool   `yaml:"reverse,omitempty"`

	// Exclude drops sounds from the session after the pass.
	Exclude []string `yaml:"exclude,omitempty"`

	// FixIndexes runs the renumbering pass after the allocation pass.
	FixIndexes bool `yaml:"fix_indexes,omitempty"`

	// ExportTo writes the assignment into this collection.
	ExportTo string `yaml:"export_to,omitempty"`
}

// Assertion validates the scenario outcome.
type Assertion struct {
	// Type is row_count, rows, alert or allocation.
	Type string `yaml:"type"`

	// Count is the expected row count (row_count).
	Count int `yaml:"count,omitempty"`

	// Sounds is the expected row names in order (rows).
	Sounds []string `yaml:"sounds,omitempty"`

	// Alert is the expected alert name (alert).
	Alert string `yaml:"alert,omitempty"`

	// Slots maps sound names to expected destinations (allocation).
	Slots map[string]int `yaml:"slots,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount   = "row_count"
	AssertRows       = "rows"
	AssertAlert      = "alert"
	AssertAllocation = "allocation"
)

// LoadScenario reads and parses a scenario YAML file. The library path is
// resolved relative to the scenario file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if s.Library != "" && !filepath.IsAbs(s.Library) {
		s.Library = filepath.Join(filepath.Dir(path), s.Library)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Library == "" {
		return fmt.Errorf("library is required")
	}
	if _, err := os.Stat(s.Library); err != nil {
		return fmt.Errorf("library file: %w", err)
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, st := range s.Stages {
		if _, err := filter.ParseKind(st.Kind); err != nil {
			return fmt.Errorf("stages[%d]: %w", i, err)
		}
		if st.Kind == "bank" && st.Collection == "" {
			return fmt.Errorf("stages[%d]: collection is required for bank", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(step, len(s.Stages)); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	if a := s.Allocate; a != nil {
		if a.Mode != "" {
			if _, err := alloc.ParseMode(a.Mode); err != nil {
				return fmt.Errorf("allocate: %w", err)
			}
		}
		if a.Order != "" {
			if _, err := alloc.ParseOrder(a.Order); err != nil {
				return fmt.Errorf("allocate: %w", err)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, s.Allocate != nil); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step, stages int) error {
	set := 0
	if step.Filter != nil {
		set++
		if step.Filter.Stage < 0 || step.Filter.Stage >= stages {
			return fmt.Errorf("filter stage %d out of range [0, %d)", step.Filter.Stage, stages)
		}
	}
	if step.Edit != nil {
		set++
		if step.Edit.Sound == "" {
			return fmt.Errorf("edit: sound is required")
		}
	}
	if step.Place != nil {
		set++
		if step.Place.Collection == "" || step.Place.Sound == "" {
			return fmt.Errorf("place: collection and sound are required")
		}
	}
	if step.Refresh {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of filter, edit, place, refresh is required")
	}
	return nil
}

func validateAssertion(a Assertion, allocates bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertRows:
	case AssertAlert, AssertAllocation:
		if !allocates {
			return fmt.Errorf("%s requires an allocate block", a.Type)
		}
		if a.Type == AssertAllocation && len(a.Slots) == 0 {
			return fmt.Errorf("slots is required for allocation")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
