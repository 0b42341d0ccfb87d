package extract

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dataclinic/internal/types"
)

func TestDiagnosis(t *testing.T) {
	input := "```json\n" + `{
  "cpf": {
    "inferred_type": "document",
    "observed_formats": ["000.000.000-00", "00000000000"],
    "problems": ["mixed formats"],
    "remediation_suggestion": "strip punctuation"
  },
  "name": {
    "inferred_type": "text",
    "observed_formats": "Title Case",
    "problems": [],
    "remediation_suggestion": "trim whitespace"
  }
}` + "\n```"

	got, err := Diagnosis(input)
	if err != nil {
		t.Fatalf("Diagnosis() error: %v", err)
	}
	if got.ParseFailed {
		t.Fatal("Diagnosis() reported ParseFailed on valid input")
	}

	want := map[string]types.ColumnDiagnosis{
		"cpf": {
			InferredType:          "document",
			ObservedFormats:       []string{"000.000.000-00", "00000000000"},
			Problems:              []string{"mixed formats"},
			RemediationSuggestion: "strip punctuation",
		},
		"name": {
			InferredType:          "text",
			ObservedFormats:       []string{"Title Case"},
			Problems:              []string{},
			RemediationSuggestion: "trim whitespace",
		},
	}
	if diff := cmp.Diff(want, got.Columns); diff != "" {
		t.Errorf("Diagnosis() columns mismatch (-want +got):\n%s", diff)
	}
	if got.Raw != input {
		t.Error("Diagnosis() did not preserve the raw response")
	}
}

func TestDiagnosisParseFailureDegrades(t *testing.T) {
	input := "The data looks mostly fine to me, no JSON here."
	got, err := Diagnosis(input)
	if err != nil {
		t.Fatalf("Diagnosis() error: %v, want degraded result", err)
	}
	if !got.ParseFailed {
		t.Error("Diagnosis() ParseFailed = false, want true")
	}
	if got.Raw != input {
		t.Errorf("Diagnosis() Raw = %q, want %q", got.Raw, input)
	}
}

func TestDiagnosisEmptyInput(t *testing.T) {
	_, err := Diagnosis("")
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("Diagnosis(\"\") error = %v, want ErrEmpty", err)
	}
}

func TestDiagnosisSkipsNonObjectColumns(t *testing.T) {
	got, err := Diagnosis(`{"note": "not a column", "age": {"inferred_type": "integer"}}`)
	if err != nil {
		t.Fatalf("Diagnosis() error: %v", err)
	}
	if _, ok := got.Columns["note"]; ok {
		t.Error("scalar entry should not become a column diagnosis")
	}
	if got.Columns["age"].InferredType != "integer" {
		t.Errorf("age inferred type = %q, want integer", got.Columns["age"].InferredType)
	}
}
