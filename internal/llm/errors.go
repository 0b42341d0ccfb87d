package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass buckets gateway failures for the fallback decision. The
// upstream service exposes no typed error taxonomy, so classification is a
// substring/status heuristic kept in this one place.
type ErrorClass int

const (
	ClassOther ErrorClass = iota
	ClassRateLimited
	ClassSpendLimited
	ClassUnauthorized
	ClassTimeout
)

// String returns the class name for logs.
func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassSpendLimited:
		return "spend_limited"
	case ClassUnauthorized:
		return "unauthorized"
	case ClassTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// FallbackEligible reports whether a failure of this class should trigger
// the one-hop fallback model retry. Only quota-style failures qualify; auth
// and timeout failures would fail the fallback identically.
func (c ErrorClass) FallbackEligible() bool {
	return c == ClassRateLimited || c == ClassSpendLimited
}

// APIError is a non-2xx response from the completions endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

// Classify maps an error from Client.Complete to its class.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassOther
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return ClassRateLimited
		case 402:
			return ClassSpendLimited
		case 401, 403:
			return ClassUnauthorized
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "402"),
		strings.Contains(msg, "spend"),
		strings.Contains(msg, "insufficient credit"):
		return ClassSpendLimited
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "rate_limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "quota"):
		return ClassRateLimited
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "invalid api key"):
		return ClassUnauthorized
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return ClassTimeout
	// Bare markers last: "deadline exceeded" must stay a timeout and "spend
	// limit" a spend failure before "limit"/"exceeded"/"rate" sweep the rest
	// into the quota class.
	case strings.Contains(msg, "rate"),
		strings.Contains(msg, "limit"),
		strings.Contains(msg, "exceeded"):
		return ClassRateLimited
	}
	return ClassOther
}
