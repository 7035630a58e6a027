package harness

// RowSnapshot is one pipeline row as seen at the end of a scenario.
type RowSnapshot struct {
	UID      int64    `json:"uid"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`

	// Slots lists every placement as "Collection@A000", factory
	// collections first.
	Slots []string `json:"slots"`
}

// AllocationEntry is one export candidate and its destination.
type AllocationEntry struct {
	UID    int64  `json:"uid"`
	Sound  string `json:"sound"`
	Source int    `json:"source"` // -1 when unknown
	Slot   int    `json:"slot"`   // -1 when unassigned
}

// AllocationSnapshot is the export session state after the allocate block.
type AllocationSnapshot struct {
	SessionID string            `json:"session_id"`
	Mode      string            `json:"mode"`
	Order     string            `json:"order"`
	Reverse   bool              `json:"reverse"`
	Alert     string            `json:"alert"`
	Entries   []AllocationEntry `json:"entries"`

	// Exported is set when export_to wrote the assignment.
	Exported bool `json:"exported"`

	// ExportError is the ExportError code when export_to was refused.
	ExportError string `json:"export_error,omitempty"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Rows are the final pipeline rows in order.
	Rows []RowSnapshot `json:"rows"`

	// Allocation is nil when the scenario has no allocate block.
	Allocation *AllocationSnapshot `json:"allocation,omitempty"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Rows:   []RowSnapshot{},
		Errors: []string{},
	}
}

// AddError records an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
