package harness

// Trace phases.
const (
	PhaseSetup = "setup"
	PhaseFlow  = "flow"
)

// OutcomeOK is the trace outcome of a step that succeeded.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64             `json:"seq"`
	Phase   string            `json:"phase"`
	Action  string            `json:"action"`
	Args    map[string]string `json:"args,omitempty"`
	Outcome string            `json:"outcome"`

	// Result holds step-specific observations, e.g. the reconciliation
	// direction of a has step or the balance read by a balance step.
	Result map[string]string `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step met its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Session is the journal session the run wrote to.
	Session string `json:"session"`

	// Trace contains the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(session string) *Result {
	return &Result{
		Pass:    true,
		Session: session,
		Trace:   []TraceEvent{},
		Errors:  []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
