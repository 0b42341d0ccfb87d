// Package sanitizer orchestrates the cleaning pipeline: one diagnosis pass,
// one synthesis pass, then a bounded execute/repair loop against the store.
// It turns the model's free-text output into a validated, executed
// transformation while keeping a full audit trail of what was tried.
package sanitizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dataclinic/internal/config"
	"dataclinic/internal/extract"
	"dataclinic/internal/llm"
	"dataclinic/internal/store"
	"dataclinic/internal/types"
)

// Per-stage completion parameters. Diagnosis and repair run cold; synthesis
// gets a little room to reason.
const (
	sampleRows = 5

	diagnosisTemperature = 0.1
	diagnosisMaxTokens   = 2000
	synthesisTemperature = 0.2
	synthesisMaxTokens   = 4000
	repairTemperature    = 0.1
	repairMaxTokens      = 3000
)

// correctionSeparator marks where each repair's rationale starts in the
// cumulative rationale. Prior rationale is never discarded.
const correctionSeparator = "\n\n--- CORRECTION (retry %d) ---\n"

// CompletionGateway is the slice of llm.Gateway the sanitizer needs.
type CompletionGateway interface {
	Complete(ctx context.Context, role config.Role, messages []llm.Message, temperature float64, maxTokens int) (text string, model string, err error)
}

// Executor is the slice of store.Manager the sanitizer needs.
type Executor interface {
	Sample(table string, n int) (*types.Table, error)
	ExecScript(script string) error
	Fetch(table string) (*types.Table, error)
}

// Sanitizer sequences diagnosis, synthesis and the execute/repair loop.
// It is single-operator state: one Analyze/Clean at a time.
type Sanitizer struct {
	gateway    CompletionGateway
	executor   Executor
	maxRetries int
	log        *zap.Logger

	lastAnalysis *types.AnalysisResult
	sessionLogs  []types.LogEntry
}

// Config holds Sanitizer construction parameters.
type Config struct {
	Gateway    CompletionGateway
	Executor   Executor
	MaxRetries int // repair attempts after the first failed execution
	Logger     *zap.Logger
}

// New creates a Sanitizer. A negative MaxRetries falls back to the default
// budget.
func New(cfg Config) *Sanitizer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = config.DefaultMaxRetries
	}
	return &Sanitizer{
		gateway:    cfg.Gateway,
		executor:   cfg.Executor,
		maxRetries: retries,
		log:        logger,
	}
}

// Logs returns the session-scoped audit trail accumulated across runs.
func (s *Sanitizer) Logs() []types.LogEntry {
	return s.sessionLogs
}

// ClearLogs resets the session-scoped trail.
func (s *Sanitizer) ClearLogs() {
	s.sessionLogs = nil
}

// appendLog records an audit entry in both the session trail and the
// per-run trail.
func (s *Sanitizer) appendLog(runLogs *[]types.LogEntry, stage, message, details string) {
	entry := types.LogEntry{
		Timestamp: time.Now(),
		Stage:     stage,
		Message:   message,
		Details:   details,
	}
	s.sessionLogs = append(s.sessionLogs, entry)
	*runLogs = append(*runLogs, entry)
	s.log.Debug(message, zap.String("stage", stage))
}

// Analyze runs the diagnosis stage once: sample the dataset, ask the
// diagnosis model for a per-column assessment, and extract it leniently.
// Extraction failure degrades to a raw-text diagnosis; only gateway or
// store failures fail the stage. There is no stage-level retry.
func (s *Sanitizer) Analyze(ctx context.Context) *types.AnalysisResult {
	result := &types.AnalysisResult{RunID: uuid.NewString()}

	s.appendLog(&result.Logs, types.StageAnalysis, "starting schema analysis", "")

	sample, err := s.executor.Sample(store.RawTable, sampleRows)
	if err != nil {
		s.appendLog(&result.Logs, types.StageError, fmt.Sprintf("analysis failed: %v", err), "")
		result.Err = err.Error()
		s.lastAnalysis = result
		return result
	}

	s.appendLog(&result.Logs, types.StageAnalysis,
		fmt.Sprintf("analyzing %d columns", len(sample.Columns)),
		"columns: "+strings.Join(sample.Columns, ", "))

	text, model, err := s.gateway.Complete(ctx, config.RoleDiagnosis, []llm.Message{
		{Role: "system", Content: diagnosisSystemPrompt},
		{Role: "user", Content: buildDiagnosisPrompt(sample.Columns, renderSample(sample))},
	}, diagnosisTemperature, diagnosisMaxTokens)
	if err != nil {
		s.appendLog(&result.Logs, types.StageError, fmt.Sprintf("analysis failed: %v", err), "")
		result.Err = err.Error()
		s.lastAnalysis = result
		return result
	}

	diagnosis, err := extract.Diagnosis(text)
	if err != nil {
		s.appendLog(&result.Logs, types.StageError, fmt.Sprintf("analysis failed: %v", err), "")
		result.Err = err.Error()
		s.lastAnalysis = result
		return result
	}
	if diagnosis.ParseFailed {
		s.appendLog(&result.Logs, types.StageAnalysis,
			"diagnosis response was not valid JSON, keeping raw text", "")
	}

	s.appendLog(&result.Logs, types.StageAnalysis, "analysis complete", "model: "+model)

	result.Success = true
	result.Diagnosis = diagnosis
	s.lastAnalysis = result
	return result
}

// Clean generates and executes a cleaning program using the diagnosis from
// the last successful Analyze.
func (s *Sanitizer) Clean(ctx context.Context) *types.CleaningResult {
	if s.lastAnalysis == nil || !s.lastAnalysis.Success {
		return &types.CleaningResult{
			RunID: uuid.NewString(),
			Err:   "run diagnosis first (analyze)",
		}
	}
	return s.CleanWith(ctx, s.lastAnalysis.Diagnosis)
}

// CleanWith generates and executes a cleaning program for an explicitly
// supplied diagnosis. On failure the last attempted SQL, the accumulated
// rationale and the full attempt trace are returned alongside the error.
func (s *Sanitizer) CleanWith(ctx context.Context, diagnosis *types.Diagnosis) *types.CleaningResult {
	result := &types.CleaningResult{RunID: uuid.NewString()}

	if diagnosis == nil {
		result.Err = "run diagnosis first (analyze)"
		return result
	}

	sample, err := s.executor.Sample(store.RawTable, sampleRows)
	if err != nil {
		s.appendLog(&result.Logs, types.StageError, fmt.Sprintf("cleaning failed: %v", err), "")
		result.Err = err.Error()
		return result
	}

	s.appendLog(&result.Logs, types.StageSynthesis, "generating cleaning SQL", "")

	text, model, err := s.gateway.Complete(ctx, config.RoleSynthesis, []llm.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: buildSynthesisPrompt(diagnosis, sample.Columns, renderSample(sample))},
	}, synthesisTemperature, synthesisMaxTokens)
	if err != nil {
		s.appendLog(&result.Logs, types.StageError, fmt.Sprintf("synthesis failed: %v", err), "")
		result.Err = err.Error()
		return result
	}

	sql := extract.Code(text)
	rationale := extract.Rationale(text)
	result.SQL = sql
	result.Rationale = rationale

	s.appendLog(&result.Logs, types.StageSynthesis, "cleaning SQL generated",
		fmt.Sprintf("length: %d characters", len(sql)))

	// An empty program cannot be meaningfully repaired.
	if sql == "" {
		s.appendLog(&result.Logs, types.StageError, "model returned no SQL", "")
		result.Err = "model did not generate a SQL program"
		return result
	}

	program := types.TransformationProgram{SQL: sql, Rationale: rationale, Model: model}
	return s.executeWithRepair(ctx, result, program, sample.Columns)
}

// executeWithRepair runs the bounded execute/repair loop: at most
// maxRetries repair calls, at most maxRetries+1 execution attempts.
func (s *Sanitizer) executeWithRepair(ctx context.Context, result *types.CleaningResult, program types.TransformationProgram, columns []string) *types.CleaningResult {
	var lastErr string

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		s.appendLog(&result.Logs, types.StageExecution,
			fmt.Sprintf("executing SQL (attempt %d/%d)", attempt+1, s.maxRetries+1), "")

		execErr := s.executor.ExecScript(program.SQL)
		var clean *types.Table
		if execErr == nil {
			var fetchErr error
			clean, fetchErr = s.executor.Fetch(store.CleanTable)
			if fetchErr != nil {
				execErr = fetchErr
			} else if clean.Empty() {
				execErr = fmt.Errorf("table %s is empty after execution", store.CleanTable)
			}
		}

		if execErr == nil {
			result.Attempts = append(result.Attempts, types.ExecutionAttempt{
				Index:   attempt,
				Program: program,
			})
			s.appendLog(&result.Logs, types.StageExecution,
				fmt.Sprintf("SQL executed successfully, %d clean rows", len(clean.Rows)),
				fmt.Sprintf("retries needed: %d", attempt))

			result.Success = true
			result.Clean = clean
			result.SQL = program.SQL
			result.Retries = attempt
			return result
		}

		lastErr = execErr.Error()
		result.Attempts = append(result.Attempts, types.ExecutionAttempt{
			Index:   attempt,
			Program: program,
			Err:     lastErr,
		})
		s.appendLog(&result.Logs, types.StageError,
			"SQL execution failed: "+truncate(lastErr, 100), lastErr)

		if attempt == s.maxRetries {
			break
		}

		s.appendLog(&result.Logs, types.StageRetry,
			fmt.Sprintf("requesting SQL correction (retry %d/%d)", attempt+1, s.maxRetries), "")

		repaired, repairErr := s.repair(ctx, program.SQL, lastErr, columns)
		if repairErr != nil {
			s.appendLog(&result.Logs, types.StageError,
				fmt.Sprintf("repair request failed: %v", repairErr), "")
			result.Err = repairErr.Error()
			result.Retries = attempt
			return result
		}

		s.appendLog(&result.Logs, types.StageRetry, "corrected SQL received",
			"correction: "+truncate(repaired.Rationale, 200))

		// The repaired program wholly replaces the previous one; its
		// rationale is appended, never substituted.
		result.Rationale += fmt.Sprintf(correctionSeparator, attempt+1) + repaired.Rationale
		result.SQL = repaired.SQL
		result.Retries = attempt + 1
		program = repaired
	}

	s.appendLog(&result.Logs, types.StageError,
		fmt.Sprintf("failed after %d attempts", s.maxRetries+1),
		"last error: "+lastErr)

	result.Err = fmt.Sprintf("SQL still invalid after %d corrections: %s", result.Retries, lastErr)
	return result
}

// repair asks the synthesis model to fix a failing program. Each call is
// independent: it sees only the current program and the current error.
func (s *Sanitizer) repair(ctx context.Context, failingSQL, execError string, columns []string) (types.TransformationProgram, error) {
	text, model, err := s.gateway.Complete(ctx, config.RoleSynthesis, []llm.Message{
		{Role: "system", Content: repairSystemPrompt},
		{Role: "user", Content: buildRepairPrompt(failingSQL, execError, columns)},
	}, repairTemperature, repairMaxTokens)
	if err != nil {
		return types.TransformationProgram{}, err
	}
	return types.TransformationProgram{
		SQL:       extract.Code(text),
		Rationale: extract.Rationale(text),
		Model:     model,
	}, nil
}

// RunPipeline composes Analyze and Clean as one logged sequence,
// short-circuiting when diagnosis fails.
func (s *Sanitizer) RunPipeline(ctx context.Context) *types.CleaningResult {
	s.ClearLogs()

	var pipelineLogs []types.LogEntry
	s.appendLog(&pipelineLogs, types.StagePipeline, "starting full cleaning pipeline", "")

	analysis := s.Analyze(ctx)
	if !analysis.Success {
		return &types.CleaningResult{
			RunID: uuid.NewString(),
			Err:   "analysis failed: " + analysis.Err,
			Logs:  s.sessionLogs,
		}
	}

	result := s.Clean(ctx)
	result.Logs = s.sessionLogs
	return result
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
