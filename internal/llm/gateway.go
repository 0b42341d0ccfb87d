package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dataclinic/internal/config"
)

// Gateway resolves a role to its (primary, fallback) model pair and sends
// completions through a Completer. On a quota-class failure of the primary
// it retries exactly once against the configured fallback model; every
// other failure propagates untouched.
type Gateway struct {
	completer Completer
	profile   config.Profile
	log       *zap.Logger
}

// NewGateway creates a gateway over completer using the given profile.
func NewGateway(completer Completer, profile config.Profile, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{completer: completer, profile: profile, log: logger}
}

// Profile returns the active profile.
func (g *Gateway) Profile() config.Profile {
	return g.profile
}

// WithProfile returns a gateway bound to a different profile. The
// underlying completer and logger are shared.
func (g *Gateway) WithProfile(profile config.Profile) *Gateway {
	return &Gateway{completer: g.completer, profile: profile, log: g.log}
}

// Complete sends messages to the role's primary model and returns the
// completion text plus the identifier of the model that actually answered.
func (g *Gateway) Complete(ctx context.Context, role config.Role, messages []Message, temperature float64, maxTokens int) (string, string, error) {
	pair, err := g.profile.Pair(role)
	if err != nil {
		return "", "", err
	}
	if pair.Primary == "" {
		return "", "", fmt.Errorf("profile %q has no model for role %q", g.profile.Name, role)
	}

	text, err := g.completer.Complete(ctx, pair.Primary, messages, temperature, maxTokens)
	if err == nil {
		return text, pair.Primary, nil
	}

	class := Classify(err)
	if !class.FallbackEligible() || pair.Fallback == "" {
		return "", pair.Primary, err
	}

	g.log.Warn("primary model failed, trying fallback",
		zap.String("role", string(role)),
		zap.String("primary", pair.Primary),
		zap.String("fallback", pair.Fallback),
		zap.String("class", class.String()),
		zap.Error(err))

	text, fbErr := g.completer.Complete(ctx, pair.Fallback, messages, temperature, maxTokens)
	if fbErr != nil {
		return "", pair.Fallback, fmt.Errorf("fallback model also failed: %w (primary: %v)", fbErr, err)
	}
	return text, pair.Fallback, nil
}

// Ping sends a one-token probe through the diagnosis role to verify that
// the credentials and the upstream service work.
func (g *Gateway) Ping(ctx context.Context) error {
	text, model, err := g.Complete(ctx, config.RoleDiagnosis, []Message{
		{Role: "user", Content: "Reply with exactly: OK"},
	}, 0, 10)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("empty probe response from %s", model)
	}
	return nil
}
