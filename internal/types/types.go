// Package types holds the shared value types that flow between the
// sanitizer, the completion gateway, the extractor and the store.
package types

import "time"

// Log stage tags. Every entry in an audit trail carries exactly one.
const (
	StageAnalysis  = "analysis"
	StageSynthesis = "synthesis"
	StageExecution = "execution"
	StageRetry     = "retry"
	StageError     = "error"
	StagePipeline  = "pipeline"
)

// LogEntry is one line of the auditable trail the sanitizer accumulates.
// Entries are append-only and never reordered.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
}

// ColumnDiagnosis is the per-column assessment produced by the diagnosis
// stage. Immutable once produced; synthesis and repair read it as-is.
type ColumnDiagnosis struct {
	InferredType          string   `json:"inferred_type"`
	ObservedFormats       []string `json:"observed_formats"`
	Problems              []string `json:"problems"`
	RemediationSuggestion string   `json:"remediation_suggestion"`
}

// Diagnosis maps column names to their diagnoses. When structured extraction
// of the model response fails, ParseFailed is set and Raw keeps the original
// text so the caller can still show what the model said.
type Diagnosis struct {
	Columns     map[string]ColumnDiagnosis `json:"columns"`
	ParseFailed bool                       `json:"parse_failed"`
	Raw         string                     `json:"raw,omitempty"`
}

// TransformationProgram is one generated cleaning program. Each repair
// attempt produces a new value that fully replaces the previous one.
type TransformationProgram struct {
	SQL       string `json:"sql"`
	Rationale string `json:"rationale"`
	Model     string `json:"model"`
}

// ExecutionAttempt records one try of the execute/repair loop. Index 0 is the
// first execution; Err is empty on the successful attempt.
type ExecutionAttempt struct {
	Index   int                   `json:"index"`
	Program TransformationProgram `json:"program"`
	Err     string                `json:"error,omitempty"`
}

// Table is the tabular interchange value: a header plus string-valued rows.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// AnalysisResult is the outcome of one diagnosis run.
// Success implies Diagnosis is non-nil; failure implies Err is non-empty.
type AnalysisResult struct {
	RunID     string     `json:"run_id"`
	Success   bool       `json:"success"`
	Diagnosis *Diagnosis `json:"diagnosis,omitempty"`
	Err       string     `json:"error,omitempty"`
	Logs      []LogEntry `json:"logs"`
}

// CleaningResult is the outcome of one cleaning run. On failure the last
// attempted SQL, the accumulated rationale and the full attempt trace are
// still populated so the caller can show what was tried.
type CleaningResult struct {
	RunID     string             `json:"run_id"`
	Success   bool               `json:"success"`
	Clean     *Table             `json:"clean,omitempty"`
	SQL       string             `json:"sql,omitempty"`
	Rationale string             `json:"rationale,omitempty"`
	Err       string             `json:"error,omitempty"`
	Retries   int                `json:"retries"`
	Attempts  []ExecutionAttempt `json:"attempts,omitempty"`
	Logs      []LogEntry         `json:"logs"`
}
