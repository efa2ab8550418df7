package harness

// Trace event types.
const (
	EventTick    = "tick"
	EventFailure = "failure"
)

// TraceEvent is one recorded tick or failure request, read back from the
// trace store.
type TraceEvent struct {
	Type string `json:"type"` // "tick" or "failure"
	Seq  int64  `json:"seq"`

	// Tick fields.
	DeltaMS int64              `json:"delta_ms,omitempty"`
	Values  map[string]float64 `json:"values,omitempty"`

	// Failure fields. Failure is empty for unknown codes.
	Code    int    `json:"code,omitempty"`
	Failure string `json:"failure,omitempty"`
	Active  bool   `json:"active,omitempty"`
	Changed bool   `json:"changed,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace contains the recorded ticks and failure requests in seq order.
	Trace []TraceEvent `json:"trace"`

	// ErrorCode is the code of the runtime error that stopped the run.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns the number of trace events of the given type.
func (r *Result) Count(eventType string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
