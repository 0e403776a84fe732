package harness

import (
	"time"

	"github.com/roach88/staycheck/internal/partition"
)

// Trace event types.
const (
	EventRequest  = "request"
	EventResponse = "response"
)

// TraceEvent is one side of one call a scenario made.
type TraceEvent struct {
	Type   string `json:"type"`   // "request" or "response"
	Action string `json:"action"` // "submit", "probe", "login", "read", "delete"
	Driver string `json:"driver,omitempty"`
	Args   any    `json:"args,omitempty"`
	Status int    `json:"status,omitempty"`
	Result any    `json:"result,omitempty"`
	Seq    int64  `json:"seq"`
}

// Result is the outcome of one scenario unit: one scenario under one agent.
type Result struct {
	Scenario string `json:"scenario"`
	Agent    string `json:"agent"`
	Driver   string `json:"driver"`

	// Pass indicates overall success.
	Pass bool `json:"pass"`

	// Kind classifies the failure; empty when Pass is true.
	Kind Kind `json:"kind,omitempty"`

	// Attempts is how many times the unit ran, counting retries.
	Attempts int `json:"attempts"`

	Slot partition.Slot `json:"slot"`

	// Trace contains every request and response of the last attempt, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Leaked lists booking ids teardown could not delete.
	Leaked []int `json:"leaked,omitempty"`

	Duration time.Duration `json:"-"`

	seq int64
}

// NewResult creates a new passing result.
// Used as the starting point for each attempt.
func NewResult(scenario, agent, driverName string) *Result {
	return &Result{
		Scenario: scenario,
		Agent:    agent,
		Driver:   driverName,
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// Name is "<scenario>/<agent>".
func (r *Result) Name() string {
	return r.Scenario + "/" + r.Agent
}

// AddError adds an error message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Fail records err, classified.
func (r *Result) Fail(err error) {
	r.AddError(err.Error())
	if r.Kind == "" {
		r.Kind = Classify(err)
	}
}

// AddRequestTrace appends a request event with the next sequence number.
func (r *Result) AddRequestTrace(action, driverName string, args any) {
	r.seq++
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventRequest,
		Action: action,
		Driver: driverName,
		Args:   args,
		Seq:    r.seq,
	})
}

// AddResponseTrace appends a response event with the next sequence number.
func (r *Result) AddResponseTrace(action, driverName string, status int, result any) {
	r.seq++
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventResponse,
		Action: action,
		Driver: driverName,
		Status: status,
		Result: result,
		Seq:    r.seq,
	})
}

// Report is the outcome of a suite run.
type Report struct {
	RunID   string    `json:"run_id"`
	Suite   string    `json:"suite"`
	Results []*Result `json:"results"`
	Passed  int       `json:"passed"`
	Failed  int       `json:"failed"`
	Total   int       `json:"total"`
}

// OK reports whether every unit passed.
func (r *Report) OK() bool {
	return r.Failed == 0
}

func (r *Report) tally() {
	r.Passed, r.Failed, r.Total = 0, 0, len(r.Results)
	for _, res := range r.Results {
		if res.Pass {
			r.Passed++
		} else {
			r.Failed++
		}
	}
}
