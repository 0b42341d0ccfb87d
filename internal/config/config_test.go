package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope", "config.json"))
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, ProfileFree, cfg.Profile)
}

func TestLoadCorruptFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	cfg := Load(path)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, ProfileFree, cfg.Profile)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".dataclinic", "config.json")

	in := UserConfig{
		OpenRouterAPIKey: "sk-or-test",
		MaxRetries:       5,
		Profile:          ProfilePaid,
	}
	require.NoError(t, Save(path, in))

	out := Load(path)
	assert.Equal(t, in.OpenRouterAPIKey, out.OpenRouterAPIKey)
	assert.Equal(t, 5, out.MaxRetries)
	assert.Equal(t, ProfilePaid, out.Profile)
}

func TestRetryClamping(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-3, 0},
		{0, 0},
		{2, 2},
		{10, 10},
		{99, 10},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, Save(path, UserConfig{MaxRetries: tt.in, Profile: ProfileFree}))
		assert.Equal(t, tt.want, Load(path).MaxRetries, "input %d", tt.in)
	}
}

func TestResolveProfile(t *testing.T) {
	assert.Equal(t, ProfileFree, UserConfig{Profile: ProfileFree}.ResolveProfile().Name)
	assert.Equal(t, ProfilePaid, UserConfig{Profile: ProfilePaid}.ResolveProfile().Name)
	assert.Equal(t, ProfileFree, UserConfig{Profile: "bogus"}.ResolveProfile().Name,
		"unknown profile names resolve to free")

	custom := UserConfig{
		Profile:              ProfileCustom,
		CustomDiagnosisModel: "acme/diag",
		CustomSynthesisModel: "acme/synth",
	}.ResolveProfile()
	assert.Equal(t, "acme/diag", custom.Diagnosis.Primary)
	assert.Equal(t, "acme/synth", custom.Synthesis.Primary)
	assert.Empty(t, custom.Diagnosis.Fallback, "custom profile has no fallback")
	assert.Empty(t, custom.Synthesis.Fallback, "custom profile has no fallback")
}

func TestBuiltinProfilesHaveFallbacks(t *testing.T) {
	for _, p := range []Profile{FreeProfile(), PaidProfile()} {
		for _, role := range []Role{RoleDiagnosis, RoleSynthesis} {
			pair, err := p.Pair(role)
			require.NoError(t, err)
			assert.NotEmpty(t, pair.Primary, "%s %s", p.Name, role)
			assert.NotEmpty(t, pair.Fallback, "%s %s", p.Name, role)
			assert.NotEqual(t, pair.Primary, pair.Fallback, "%s %s", p.Name, role)
		}
	}
}

func TestPairUnknownRole(t *testing.T) {
	_, err := FreeProfile().Pair(Role("review"))
	assert.Error(t, err)
}

func TestAPIKeyPrecedence(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")

	assert.Equal(t, "file-key", UserConfig{OpenRouterAPIKey: "file-key"}.APIKey(),
		"config file wins over environment")
	assert.Equal(t, "env-key", UserConfig{}.APIKey())
}
