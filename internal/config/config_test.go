package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "emojistats.db", cfg.Database.Path)
	assert.False(t, cfg.Database.UseInMemory)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
discord:
  token: file-token
database:
  path: /tmp/test.db
bot:
  admin_password: hunter2
emoji:
  extra_unicode:
    - "🦆"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.Discord.Token)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "hunter2", cfg.Bot.AdminPassword)
	assert.Equal(t, []string{"🦆"}, cfg.Emoji.ExtraUnicode)
}

func TestLoadConfigMissingFileIsFine(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "emojistats.db", cfg.Database.Path)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DISCORD_CLIENT_TOKEN", "env-token")
	t.Setenv("ES_DATABASE_PATH", "/tmp/env.db")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
}
