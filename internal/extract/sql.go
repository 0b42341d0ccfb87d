package extract

import (
	"regexp"
	"strings"
)

var (
	sqlFence     = regexp.MustCompile("(?is)```sql\\s*(.*?)```")
	genericFence = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\s*(.*?)```")
	anyFence     = regexp.MustCompile("(?s)```.*?```")
	beforeFence  = regexp.MustCompile("(?s)^(.*?)```")

	// Leading keywords a cleaning script may start with, for responses that
	// skip code fences entirely.
	sqlKeyword = regexp.MustCompile(`(?i)\b(CREATE|INSERT|SELECT|UPDATE|DELETE|ALTER|DROP)\b`)
)

// Code pulls executable SQL out of a model response: an sql-tagged fence
// first, then any fence, then everything from the first SQL keyword onward.
// When nothing matches, the text is returned unchanged and the caller lets
// execution fail naturally.
func Code(text string) string {
	if m := sqlFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := genericFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := sqlKeyword.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[loc[0]:])
	}
	return text
}

// minRationale is the shortest remainder considered meaningful prose.
const minRationale = 50

// Rationale returns the prose around the code: the text with all fenced
// blocks removed, or, when too little remains, everything before the first
// fence. The second form recovers reasoning that precedes a code block when
// the trailing commentary was stripped along with the code.
func Rationale(text string) string {
	rationale := strings.TrimSpace(anyFence.ReplaceAllString(text, ""))
	if len(rationale) >= minRationale {
		return rationale
	}
	if m := beforeFence.FindStringSubmatch(text); m != nil {
		if lead := strings.TrimSpace(m[1]); lead != "" {
			return lead
		}
	}
	return rationale
}
