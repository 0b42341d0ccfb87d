package llm

import (
	"context"
	"errors"
	"testing"

	"dataclinic/internal/config"
)

// scriptedCompleter returns canned responses keyed by model, recording every
// call in order.
type scriptedCompleter struct {
	responses map[string]string
	failures  map[string]error
	calls     []string
}

func (s *scriptedCompleter) Complete(_ context.Context, model string, _ []Message, _ float64, _ int) (string, error) {
	s.calls = append(s.calls, model)
	if err, ok := s.failures[model]; ok {
		return "", err
	}
	if text, ok := s.responses[model]; ok {
		return text, nil
	}
	return "", errors.New("unexpected model " + model)
}

func testProfile() config.Profile {
	return config.Profile{
		Name:      "test",
		Diagnosis: config.ModelPair{Primary: "primary/diag", Fallback: "fallback/diag"},
		Synthesis: config.ModelPair{Primary: "primary/synth", Fallback: "fallback/synth"},
	}
}

func TestGatewayPrimarySuccess(t *testing.T) {
	mock := &scriptedCompleter{responses: map[string]string{"primary/diag": "hello"}}
	gw := NewGateway(mock, testProfile(), nil)

	text, model, err := gw.Complete(context.Background(), config.RoleDiagnosis, []Message{{Role: "user", Content: "hi"}}, 0.1, 100)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q, want hello", text)
	}
	if model != "primary/diag" {
		t.Errorf("model = %q, want primary/diag", model)
	}
	if len(mock.calls) != 1 {
		t.Errorf("calls = %v, want exactly one", mock.calls)
	}
}

func TestGatewayFallbackOnRateLimit(t *testing.T) {
	mock := &scriptedCompleter{
		failures:  map[string]error{"primary/synth": &APIError{StatusCode: 429, Message: "rate limited"}},
		responses: map[string]string{"fallback/synth": "recovered"},
	}
	gw := NewGateway(mock, testProfile(), nil)

	text, model, err := gw.Complete(context.Background(), config.RoleSynthesis, nil, 0.2, 100)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if text != "recovered" {
		t.Errorf("text = %q, want recovered", text)
	}
	if model != "fallback/synth" {
		t.Errorf("model = %q, want the fallback identifier", model)
	}
	if len(mock.calls) != 2 {
		t.Fatalf("calls = %v, want primary then fallback", mock.calls)
	}
	if mock.calls[1] != "fallback/synth" {
		t.Errorf("second call went to %q, want fallback/synth", mock.calls[1])
	}
}

func TestGatewayFallbackOnSpendLimit(t *testing.T) {
	mock := &scriptedCompleter{
		failures:  map[string]error{"primary/diag": &APIError{StatusCode: 402, Message: "out of credits"}},
		responses: map[string]string{"fallback/diag": "ok"},
	}
	gw := NewGateway(mock, testProfile(), nil)

	_, model, err := gw.Complete(context.Background(), config.RoleDiagnosis, nil, 0.1, 100)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if model != "fallback/diag" {
		t.Errorf("model = %q, want fallback/diag", model)
	}
}

func TestGatewayNoFallbackForAuthFailure(t *testing.T) {
	authErr := &APIError{StatusCode: 401, Message: "invalid key"}
	mock := &scriptedCompleter{failures: map[string]error{"primary/diag": authErr}}
	gw := NewGateway(mock, testProfile(), nil)

	_, _, err := gw.Complete(context.Background(), config.RoleDiagnosis, nil, 0.1, 100)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
		t.Fatalf("error = %v, want the original 401 untouched", err)
	}
	if len(mock.calls) != 1 {
		t.Errorf("calls = %v, auth failures must not trigger the fallback", mock.calls)
	}
}

func TestGatewayNoFallbackConfigured(t *testing.T) {
	profile := config.CustomProfile("custom/diag", "custom/synth")
	mock := &scriptedCompleter{failures: map[string]error{"custom/diag": &APIError{StatusCode: 429}}}
	gw := NewGateway(mock, profile, nil)

	_, _, err := gw.Complete(context.Background(), config.RoleDiagnosis, nil, 0.1, 100)
	if err == nil {
		t.Fatal("Complete() = nil error, want rate limit propagated")
	}
	if len(mock.calls) != 1 {
		t.Errorf("calls = %v, custom profiles have no fallback hop", mock.calls)
	}
}

func TestGatewayBothModelsFail(t *testing.T) {
	mock := &scriptedCompleter{failures: map[string]error{
		"primary/synth":  &APIError{StatusCode: 429, Message: "primary limited"},
		"fallback/synth": &APIError{StatusCode: 429, Message: "fallback limited"},
	}}
	gw := NewGateway(mock, testProfile(), nil)

	_, _, err := gw.Complete(context.Background(), config.RoleSynthesis, nil, 0.2, 100)
	if err == nil {
		t.Fatal("Complete() = nil error, want double failure")
	}
	if len(mock.calls) != 2 {
		t.Errorf("calls = %v, want exactly one fallback attempt", mock.calls)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("error chain should expose the fallback APIError, got %v", err)
	}
}

func TestGatewayUnknownRole(t *testing.T) {
	mock := &scriptedCompleter{}
	gw := NewGateway(mock, testProfile(), nil)

	_, _, err := gw.Complete(context.Background(), config.Role("review"), nil, 0, 10)
	if err == nil {
		t.Fatal("Complete() = nil error for unknown role")
	}
	if len(mock.calls) != 0 {
		t.Errorf("unknown role must not reach the completer, calls = %v", mock.calls)
	}
}

func TestGatewayMissingPrimaryModel(t *testing.T) {
	profile := config.CustomProfile("", "")
	gw := NewGateway(&scriptedCompleter{}, profile, nil)

	_, _, err := gw.Complete(context.Background(), config.RoleDiagnosis, nil, 0, 10)
	if err == nil {
		t.Fatal("Complete() = nil error for empty primary model")
	}
}

func TestGatewayPing(t *testing.T) {
	mock := &scriptedCompleter{responses: map[string]string{"primary/diag": "OK"}}
	gw := NewGateway(mock, testProfile(), nil)
	if err := gw.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}

	empty := &scriptedCompleter{responses: map[string]string{"primary/diag": ""}}
	gw = NewGateway(empty, testProfile(), nil)
	if err := gw.Ping(context.Background()); err == nil {
		t.Fatal("Ping() = nil error on empty probe response")
	}
}

func TestGatewayWithProfile(t *testing.T) {
	mock := &scriptedCompleter{responses: map[string]string{"other/diag": "hi"}}
	gw := NewGateway(mock, testProfile(), nil)

	other := config.Profile{Name: "other", Diagnosis: config.ModelPair{Primary: "other/diag"}}
	_, model, err := gw.WithProfile(other).Complete(context.Background(), config.RoleDiagnosis, nil, 0, 10)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if model != "other/diag" {
		t.Errorf("model = %q, want other/diag", model)
	}
	if gw.Profile().Name != "test" {
		t.Errorf("original gateway profile mutated to %q", gw.Profile().Name)
	}
}
