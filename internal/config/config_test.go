package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtrack/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MTRACK_API_URL", "")
	t.Setenv("MTRACK_TIMEOUT", "")
	os.Unsetenv("MTRACK_API_URL")
	os.Unsetenv("MTRACK_TIMEOUT")

	cfg, err := config.Load(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, config.DefaultTimeout, cfg.Timeout)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	settings := "api_url: http://file.example:9000/\ntimeout: 3s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte(settings), 0600))

	t.Setenv("MTRACK_API_URL", "")
	os.Unsetenv("MTRACK_API_URL")
	t.Setenv("MTRACK_TIMEOUT", "")
	os.Unsetenv("MTRACK_TIMEOUT")

	cfg, err := config.Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://file.example:9000", cfg.APIURL, "trailing slash trimmed")
	assert.Equal(t, 3*time.Second, cfg.Timeout)

	t.Setenv("MTRACK_API_URL", "http://env.example")
	cfg, err = config.Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example", cfg.APIURL)

	cfg, err = config.Load(dir, map[string]any{config.KeyAPIURL: "http://flag.example"})
	require.NoError(t, err)
	assert.Equal(t, "http://flag.example", cfg.APIURL)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("MTRACK_TIMEOUT", "soon")
	_, err := config.Load(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestPathsAndEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	cfg, err := config.New(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, config.TokenFile), cfg.TokenPath())
	assert.Equal(t, filepath.Join(dir, config.SettingsFile), cfg.SettingsPath())

	require.NoError(t, cfg.EnsureDir())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}
