package sanitizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"dataclinic/internal/types"
)

// System prompts, one per stage.
const (
	diagnosisSystemPrompt = "You are an expert data analyst. Respond only with valid JSON, no markdown."
	synthesisSystemPrompt = "You are a senior data engineer. Explain your reasoning before writing the SQL."
	repairSystemPrompt    = "You are a SQL debugging specialist. Be direct and fix the error."
)

// sqlConstraints states what generated programs may and may not do. Synthesis
// and repair share it so a repaired program cannot reintroduce a disallowed
// construct.
const sqlConstraints = `ALLOWED OPERATIONS (SQLite dialect):
- DROP TABLE IF EXISTS clean_data
- CREATE TABLE clean_data (...)
- INSERT INTO clean_data ... SELECT ... FROM raw_data
- SELECT, WITH (CTEs), CASE, and SQLite string/date functions
  (TRIM, REPLACE, SUBSTR, UPPER, LOWER, LENGTH, COALESCE, NULLIF,
  DATE, STRFTIME, CAST, PRINTF)

FORBIDDEN OPERATIONS:
- Modifying or dropping raw_data in any way
- ATTACH, DETACH, PRAGMA, VACUUM
- UPDATE or DELETE statements
- Creating tables other than clean_data`

// buildDiagnosisPrompt asks for a per-column quality assessment. Listing ALL
// distinct observed formats is demanded explicitly: a single column often
// mixes formats, and synthesis must branch per format instead of assuming one.
func buildDiagnosisPrompt(columns []string, sample string) string {
	return fmt.Sprintf(`You are an expert in data analysis and cleaning. Analyze the data sample below and identify:

1. The likely data type of each column (e.g. National ID, Date, Name, Email, Phone, Monetary Value, etc.)
2. ALL distinct value formats observed in each column - the same column may mix several formats, list every one you see
3. Quality problems found (e.g. inconsistent formats, missing values, likely duplicates)
4. A standardization suggestion for each column

COLUMNS: %s

DATA SAMPLE:
%s

Respond ONLY with a valid JSON object in the following format (no markdown, no explanations):
{
    "column_name": {
        "inferred_type": "data type",
        "observed_formats": ["every distinct format seen"],
        "problems": ["list of problems found"],
        "remediation_suggestion": "how to standardize/clean"
    }
}`, strings.Join(columns, ", "), sample)
}

// buildSynthesisPrompt asks for the cleaning program. The diagnosis JSON is
// embedded whole so the observed-format lists are in front of the model, and
// the keep-original-over-null rule guards against silent data loss.
// A degraded diagnosis (structured extraction failed, or no columns) is
// embedded as its raw text instead; marshaling a nil column map would put a
// literal "null" in front of the model.
func buildSynthesisPrompt(diagnosis *types.Diagnosis, columns []string, sample string) string {
	var analysis string
	if diagnosis.ParseFailed || len(diagnosis.Columns) == 0 {
		analysis = diagnosis.Raw
	} else if diagJSON, err := json.MarshalIndent(diagnosis.Columns, "", "  "); err == nil {
		analysis = string(diagJSON)
	} else {
		analysis = diagnosis.Raw
	}

	return fmt.Sprintf(`You are a data engineer specialized in SQL. Based on the analysis below, write SQL queries for SQLite that:

1. Read from the existing table 'raw_data'
2. Apply the necessary cleaning transformations
3. Insert the cleaned data into a new table 'clean_data'

COLUMN ANALYSIS:
%s

ORIGINAL COLUMNS: %s

DATA SAMPLE:
%s

%s

NORMALIZATION RULES:
- Start with DROP TABLE IF EXISTS clean_data, then CREATE TABLE clean_data
- Standardize dates to ISO format (YYYY-MM-DD), handling EVERY observed format listed above with CASE branches
- Identity/document and phone fields must contain digits only
- Trim surrounding whitespace from free text and apply consistent casing
- Normalize monetary values to a plain decimal (no currency symbol, '.' as decimal separator)
- Use COALESCE to handle NULLs where appropriate
- When a value cannot be classified into any observed format, KEEP THE ORIGINAL VALUE rather than emitting NULL

Respond with:
1. First, your reasoning about the transformations
2. Then, the complete SQL code between `+"```sql and ```"+`

Be detailed in the reasoning to show your thought process.`,
		analysis, strings.Join(columns, ", "), sample, sqlConstraints)
}

// buildRepairPrompt carries the failing program and its error verbatim.
func buildRepairPrompt(failingSQL, execError string, columns []string) string {
	return fmt.Sprintf(`The SQL below failed when executed against SQLite. Fix the problem.

ORIGINAL SQL:
`+"```sql\n%s\n```"+`

ERROR RETURNED:
%s

AVAILABLE COLUMNS IN TABLE 'raw_data': %s

%s

INSTRUCTIONS:
1. Analyze the error and identify the cause
2. Fix the SQL while keeping the same cleaning logic
3. Make sure the syntax is valid for SQLite

Respond with:
1. A brief explanation of the problem found
2. The corrected SQL between `+"```sql and ```",
		failingSQL, execError, strings.Join(columns, ", "), sqlConstraints)
}
