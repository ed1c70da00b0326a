package harness

import "github.com/roach88/objscope/internal/compare"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held and the golden file matched.
	Pass bool `json:"pass"`

	// Report is the comparison produced from the transcripts.
	Report *compare.Report `json:"report"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
