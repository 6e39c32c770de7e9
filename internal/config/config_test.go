package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ordo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "ordo_session", cfg.SessionCookie)
	assert.Equal(t, 25*time.Second, cfg.PollTimeout)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9090"
database_dir: /var/lib/ordo
poll_timeout: 5s
tokens:
  tok-alice: alice
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/ordo", cfg.DatabaseDir)
	assert.Equal(t, 5*time.Second, cfg.PollTimeout)
	assert.Equal(t, map[string]string{"tok-alice": "alice"}, cfg.Tokens)
	assert.Equal(t, "ordo_session", cfg.SessionCookie, "unset file field must keep default")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `listen_addr: ":9090"`)
	t.Setenv("ORDO_LISTEN_ADDR", ":7070")
	t.Setenv("ORDO_PUSH_BURST", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, 50, cfg.PushBurst)
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeConfig(t, `listen_adr: ":9090"`)
	_, err := Load(path)
	assert.Error(t, err, "typo in field name must be rejected")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveLimits(t *testing.T) {
	path := writeConfig(t, `push_rate: -1`)
	_, err := Load(path)
	assert.Error(t, err)
}
