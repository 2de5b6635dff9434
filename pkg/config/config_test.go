package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.False(t, cfg.DryRun)
	assert.Equal(t, "adaptive", cfg.Signature.Strategy)
	assert.Equal(t, int64(4096), cfg.Signature.Window)
	assert.Equal(t, 4, cfg.Signature.Samples)
	assert.Equal(t, []string{"links", "mtime", "path"}, cfg.Canonical.Order)

	n, err := cfg.MinSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dry_run: true
verify_content: true
min_size: 1 MiB
workers: 8
signature:
  strategy: sparse
  samples: 6
canonical:
  order: [mtime, links]
filters:
  exclude:
    - Ext == ".nfo"
  exclude_paths:
    - /\.snapshots/
notifications:
  detailed: true
  skip_empty_run: true
  service:
    discord: https://discord.example/webhook
`), 0o644))

	t.Setenv("LINKDUPE_WORKERS", "3")
	t.Setenv("LINKDUPE_SIGNATURE__WINDOW", "8192")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.VerifyContent)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "sparse", cfg.Signature.Strategy)
	assert.Equal(t, int64(8192), cfg.Signature.Window)
	assert.Equal(t, 6, cfg.Signature.Samples)
	assert.Equal(t, []string{"mtime", "links"}, cfg.Canonical.Order)
	assert.Equal(t, []string{`Ext == ".nfo"`}, cfg.Filters.Exclude)
	assert.Equal(t, []string{`/\.snapshots/`}, cfg.Filters.ExcludePaths)
	assert.True(t, cfg.Notifications.Detailed)
	assert.True(t, cfg.Notifications.SkipEmptyRun)
	assert.Equal(t, "https://discord.example/webhook", cfg.Notifications.Service.Discord)

	n, err := cfg.MinSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), n)
}

func TestLoad_InvalidMinSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_size: lots\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse min_size")
}
