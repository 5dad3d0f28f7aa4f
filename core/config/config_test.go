package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "vocabularies", cfg.Storage.Bucket)
	assert.Equal(t, "./vocabularies", cfg.Vocab.Dir)
	assert.Equal(t, "stcm_versions.tsv", cfg.Vocab.StcmVersionFile)
	assert.Equal(t, 500, cfg.Store.BatchSize)
	assert.True(t, cfg.Reconcile.PruneAbsent)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("VOCAB_STCM_DIR", "/data/stcm")
	t.Setenv("STORE_BATCH_SIZE", "50")
	t.Setenv("RECONCILE_PRUNE_ABSENT", "false")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/data/stcm", cfg.Vocab.StcmDir)
	assert.Equal(t, 50, cfg.Store.BatchSize)
	assert.False(t, cfg.Reconcile.PruneAbsent)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VOCAB_DIR=/data/vocab\nLOG_FORMAT=json\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("VOCAB_DIR")
		os.Unsetenv("LOG_FORMAT")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "/data/vocab", cfg.Vocab.Dir)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_InvalidDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}
