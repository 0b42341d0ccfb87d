package extract

import (
	"errors"
	"fmt"

	"dataclinic/internal/types"
)

// Diagnosis decodes a model diagnosis response into per-column assessments.
// Extraction failure is not an error: the returned Diagnosis carries
// ParseFailed plus the raw text so the caller can show what the model said.
// Only an entirely empty response is reported as an error.
func Diagnosis(text string) (*types.Diagnosis, error) {
	obj, err := JSON(text)
	if err != nil {
		if errors.Is(err, ErrEmpty) {
			return nil, err
		}
		return &types.Diagnosis{ParseFailed: true, Raw: text}, nil
	}

	columns := make(map[string]types.ColumnDiagnosis, len(obj))
	for name, v := range obj {
		info, ok := v.(map[string]any)
		if !ok {
			continue
		}
		columns[name] = types.ColumnDiagnosis{
			InferredType:          asString(info["inferred_type"]),
			ObservedFormats:       asStrings(info["observed_formats"]),
			Problems:              asStrings(info["problems"]),
			RemediationSuggestion: asString(info["remediation_suggestion"]),
		}
	}

	return &types.Diagnosis{Columns: columns, Raw: text}, nil
}

// asString coerces a decoded JSON value to text. Numbers come through as
// json.Number thanks to UseNumber, which stringifies cleanly via %v.
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

// asStrings tolerates both a single string and an array where the prompt
// asked for a list; models alternate between the two.
func asStrings(v any) []string {
	switch vv := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	default:
		return []string{asString(vv)}
	}
}
