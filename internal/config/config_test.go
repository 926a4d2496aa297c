package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/trio/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TRIO_HOME", home)

	env, err := Load()
	require.NoError(t, err)
	assert.Equal(t, home, env.Home)
	assert.Equal(t, filepath.Join(home, "config.yaml"), env.ConfigPath)
	assert.Equal(t, filepath.Join(home, "trio.db"), env.DBPath)
	assert.Equal(t, "warn", env.LogLevel)
	assert.Equal(t, 120*time.Second, env.TurnTimeout)
	assert.Equal(t, 10, env.HistoryLimit)
	assert.Equal(t, 4, env.LaneDepth)
	assert.False(t, env.Development())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TRIO_HOME", t.TempDir())
	t.Setenv("TRIO_DB_PATH", "/tmp/other.db")
	t.Setenv("TRIO_TURN_TIMEOUT", "5s")
	t.Setenv("ENVIRONMENT", "development")

	env, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", env.DBPath)
	assert.Equal(t, 5*time.Second, env.TurnTimeout)
	assert.True(t, env.Development())
}

func TestLoad_RejectsNonPositiveLimits(t *testing.T) {
	t.Setenv("TRIO_HOME", t.TempDir())
	t.Setenv("TRIO_LANE_DEPTH", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadSettings_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.Model)
	assert.Equal(t, DefaultMaxOutputTokens, s.MaxOutputTokens)
	assert.Equal(t, DefaultTheme, s.Theme)
	assert.False(t, s.GatewayEnabled())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadSettings_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: sk-test\ntheme: dark\n"), 0o600))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", s.APIKey)
	assert.Equal(t, "dark", s.Theme)
	assert.Equal(t, DefaultModel, s.Model)
	assert.True(t, s.GatewayEnabled())
}

func TestParseSettings_LegacyJSON(t *testing.T) {
	s, err := ParseSettings([]byte(`{"anthropic_api_key": "sk-old", "max_tokens": 2048, "theme": "dark"}`))
	require.NoError(t, err)
	assert.Equal(t, "sk-old", s.APIKey)
	assert.Equal(t, 2048, s.MaxOutputTokens)
	assert.Nil(t, s.Extra)
}

func TestParseSettings_CurrentKeysBeatLegacy(t *testing.T) {
	s, err := ParseSettings([]byte("api_key: sk-new\nanthropic_api_key: sk-old\nmax_output_tokens: 1024\nmax_tokens: 4096\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-new", s.APIKey)
	assert.Equal(t, 1024, s.MaxOutputTokens)
	assert.Nil(t, s.Extra)
}

func TestSettings_UnknownKeysSurviveSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: m\nfont_size: 14\n"), 0o600))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("theme", "dark"))
	require.NoError(t, s.Save(path))

	again, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "dark", again.Theme)
	assert.Equal(t, 14, again.Extra["font_size"])
}

func TestSettings_Set(t *testing.T) {
	s := DefaultSettings()

	require.NoError(t, s.Set("max_output_tokens", "512"))
	assert.Equal(t, 512, s.MaxOutputTokens)
	require.NoError(t, s.Set("extract_tasks", "true"))
	assert.True(t, s.ExtractTasks)

	err := s.Set("max_output_tokens", "0")
	assert.ErrorIs(t, err, perrors.ErrValidation)
	err = s.Set("nope", "x")
	assert.ErrorIs(t, err, perrors.ErrValidation)
	err = s.Set("extract_tasks", "maybe")
	assert.ErrorIs(t, err, perrors.ErrValidation)
}

func TestSettings_APIKeyExpansion(t *testing.T) {
	t.Setenv("TRIO_TEST_KEY", "sk-from-env")
	s := DefaultSettings()
	s.APIKey = "${TRIO_TEST_KEY}"

	assert.Equal(t, "sk-from-env", s.ResolvedAPIKey())
	assert.Equal(t, "${TRIO_TEST_KEY}", s.Redacted().APIKey)

	s.APIKey = "$TRIO_MISSING_KEY_VAR"
	assert.False(t, s.GatewayEnabled())
}

func TestSettings_Redacted(t *testing.T) {
	s := DefaultSettings()
	s.APIKey = "sk-ant-abcdefghijkl"

	r := s.Redacted()
	assert.Equal(t, "sk-a****ijkl", r.APIKey)
	assert.Equal(t, "sk-ant-abcdefghijkl", s.APIKey)
}
