package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// AssertionError is a failed assertion with enough context to debug it.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Rows     []RowSnapshot
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFinal rows:\n")
	for i, r := range e.Rows {
		fmt.Fprintf(&buf, "  [%d] %d %s (%s)\n", i, r.UID, r.Name, r.Category)
	}

	return buf.String()
}

func rowNames(rows []RowSnapshot) []string {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return names
}

func assertRowCount(r *Result, a Assertion) error {
	if len(r.Rows) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowCount,
		Expected: fmt.Sprintf("%d rows", a.Count),
		Actual:   fmt.Sprintf("%d rows", len(r.Rows)),
		Rows:     r.Rows,
	}
}

func assertRows(r *Result, a Assertion) error {
	got := rowNames(r.Rows)
	if slices.Equal(got, a.Sounds) {
		return nil
	}
	return &AssertionError{
		Type:     AssertRows,
		Expected: fmt.Sprintf("%q", a.Sounds),
		Actual:   fmt.Sprintf("%q", got),
		Rows:     r.Rows,
	}
}

func assertAlert(r *Result, a Assertion) error {
	if r.Allocation.Alert == a.Alert {
		return nil
	}
	return &AssertionError{
		Type:     AssertAlert,
		Expected: a.Alert,
		Actual:   r.Allocation.Alert,
		Rows:     r.Rows,
	}
}

// assertAllocation checks the listed destinations (subset match). Sounds
// are matched by current name.
func assertAllocation(r *Result, a Assertion) error {
	slots := make(map[string]int, len(r.Allocation.Entries))
	for _, e := range r.Allocation.Entries {
		slots[e.Sound] = e.Slot
	}

	names := make([]string, 0, len(a.Slots))
	for name := range a.Slots {
		names = append(names, name)
	}
	sort.Strings(names)

	var mismatches []string
	for _, name := range names {
		want := a.Slots[name]
		got, ok := slots[name]
		switch {
		case !ok:
			mismatches = append(mismatches, fmt.Sprintf("%s: not a candidate", name))
		case got != want:
			mismatches = append(mismatches, fmt.Sprintf("%s: slot %d, want %d", name, got, want))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertAllocation,
		Expected: fmt.Sprintf("%v", a.Slots),
		Actual:   strings.Join(mismatches, "; "),
		Rows:     r.Rows,
	}
}

// EvaluateAssertions runs every assertion against the result and returns
// the failure messages.
func EvaluateAssertions(r *Result, assertions []Assertion) []string {
	errs := []string{}
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRowCount:
			err = assertRowCount(r, a)
		case AssertRows:
			err = assertRows(r, a)
		case AssertAlert, AssertAllocation:
			if r.Allocation == nil {
				err = fmt.Errorf("%s: scenario has no allocate block", a.Type)
			} else if a.Type == AssertAlert {
				err = assertAlert(r, a)
			} else {
				err = assertAllocation(r, a)
			}
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
