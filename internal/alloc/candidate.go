package alloc

import (
	"fmt"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/view"
)

// Candidate is a sound selected for export.
type Candidate struct {
	UID      library.UID
	Name     string // trimmed display name
	Category library.Category
	Tags     []string // sorted
	Source   library.Slot
}

// FromRow builds a candidate from a view row. source is library.NoSlot when
// the sound has no slot in the originating collection.
func FromRow(row view.Row, source library.Slot) Candidate {
	return Candidate{
		UID:      row.UID,
		Name:     row.DisplayName(),
		Category: row.Category,
		Tags:     row.Tags,
		Source:   source,
	}
}

// FirstTag returns the candidate's lowest tag, or "" when untagged.
func (c Candidate) FirstTag() string {
	if len(c.Tags) == 0 {
		return ""
	}
	return c.Tags[0]
}

// Alert names the reason a pass could not produce a valid assignment.
type Alert int

const (
	AlertNone Alert = iota
	AlertDuplicatesMaximum
	AlertUnknownMaximum
)

func (a Alert) String() string {
	switch a {
	case AlertNone:
		return "None"
	case AlertDuplicatesMaximum:
		return "DuplicatesMaximum"
	case AlertUnknownMaximum:
		return "UnknownMaximum"
	default:
		return fmt.Sprintf("Alert(%d)", int(a))
	}
}

// Message is the user-facing description of the alert.
func (a Alert) Message() string {
	switch a {
	case AlertDuplicatesMaximum:
		return fmt.Sprintf("duplicate slots unresolved: more than %d sounds selected", library.SlotCount)
	case AlertUnknownMaximum:
		return fmt.Sprintf("unknown slots unresolved: more than %d sounds selected", library.SlotCount)
	default:
		return ""
	}
}

// Mode selects the allocation pass.
type Mode int

const (
	ModeAuto Mode = iota
	ModeSequential
	ModeDistributeCategory
	ModeDistributeTag
)

var modeNames = map[Mode]string{
	ModeAuto:               "auto",
	ModeSequential:         "sequential",
	ModeDistributeCategory: "distribute-category",
	ModeDistributeTag:      "distribute-tag",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode resolves a mode by name.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown allocation mode %q", s)
}

// Order is a candidate ordering for sequential numbering.
type Order int

const (
	OrderInsertion Order = iota
	OrderName
	OrderCategory
	OrderCategoryName
	OrderTag
)

var orderNames = map[Order]string{
	OrderInsertion:    "insertion",
	OrderName:         "name",
	OrderCategory:     "category",
	OrderCategoryName: "category-name",
	OrderTag:          "tag",
}

func (o Order) String() string {
	if s, ok := orderNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder resolves an order by name.
func ParseOrder(s string) (Order, error) {
	for o, name := range orderNames {
		if name == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown order %q", s)
}

// Options selects a pass and its ordering.
//
// Order applies to ModeSequential, and within each group for the
// distribution modes (only OrderName changes the within-group order there).
// Reverse inverts the final sequence, or each group's sequence.
type Options struct {
	Mode    Mode
	Order   Order
	Reverse bool
}
