package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/trio/internal/errors"
	"github.com/p-blackswan/trio/internal/llm"
)

type pingFunc func() error

func (f pingFunc) Ping() error { return f() }

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("store", func(ctx context.Context) (Status, string) { return StatusOK, "" })
	c.Register("gateway", func(ctx context.Context) (Status, string) { return StatusOK, "" })

	results := c.RunAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "gateway", results[0].Name)
	assert.Equal(t, "store", results[1].Name)
	assert.True(t, Ready(results))
}

func TestChecker_OneDown(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("store", func(ctx context.Context) (Status, string) { return StatusOK, "" })
	c.Register("gateway", func(ctx context.Context) (Status, string) { return StatusDown, "no key" })

	assert.False(t, Ready(c.RunAll(context.Background())))
}

func TestChecker_Degraded_StillReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("settings", func(ctx context.Context) (Status, string) { return StatusDegraded, "" })

	assert.True(t, Ready(c.RunAll(context.Background())))
}

func TestChecker_NoChecks(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	assert.True(t, Ready(c.RunAll(context.Background())))
}

func TestStoreCheck(t *testing.T) {
	s, _ := StoreCheck(pingFunc(func() error { return nil }))(context.Background())
	assert.Equal(t, StatusOK, s)

	s, detail := StoreCheck(pingFunc(func() error { return errors.New("disk I/O error") }))(context.Background())
	assert.Equal(t, StatusDown, s)
	assert.Contains(t, detail, "disk I/O")
}

func TestSettingsFileCheck(t *testing.T) {
	dir := t.TempDir()
	private := filepath.Join(dir, "private.yaml")
	require.NoError(t, os.WriteFile(private, []byte("theme: light\n"), 0o600))
	open := filepath.Join(dir, "open.yaml")
	require.NoError(t, os.WriteFile(open, []byte("theme: light\n"), 0o600))
	require.NoError(t, os.Chmod(open, 0o644))

	s, _ := SettingsFileCheck(private)(context.Background())
	assert.Equal(t, StatusOK, s)
	s, _ = SettingsFileCheck(open)(context.Background())
	assert.Equal(t, StatusDegraded, s)
	s, _ = SettingsFileCheck(filepath.Join(dir, "missing.yaml"))(context.Background())
	assert.Equal(t, StatusDown, s)
}

func TestGatewayChecks(t *testing.T) {
	s, _ := GatewayConfiguredCheck(false)(context.Background())
	assert.Equal(t, StatusDown, s)
	s, _ = GatewayConfiguredCheck(true)(context.Background())
	assert.Equal(t, StatusOK, s)

	s, _ = GatewayLiveCheck(nil)(context.Background())
	assert.Equal(t, StatusDown, s)

	var got llm.CompletionRequest
	ok := llm.ProviderFunc(func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		got = req
		return &llm.CompletionResponse{Text: "pong"}, nil
	})
	s, _ = GatewayLiveCheck(ok)(context.Background())
	assert.Equal(t, StatusOK, s)
	assert.Equal(t, 1, got.MaxTokens)

	failing := llm.ProviderFunc(func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, perrors.NewGatewayError(perrors.GatewayAuth, "invalid key", nil)
	})
	s, detail := GatewayLiveCheck(failing)(context.Background())
	assert.Equal(t, StatusDown, s)
	assert.Contains(t, detail, "invalid key")
}
