package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECTORSCOPE_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultUniverse, cfg.Universe)
	assert.Len(t, cfg.Universe, 11)
	assert.Equal(t, 3650, cfg.LookbackDays)
	assert.Equal(t, 60, cfg.RollingWindow)
	assert.Equal(t, 252, cfg.YoYLag)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.True(t, cfg.RenderHeatmaps)
	assert.Equal(t, "30 22 * * 1-5", cfg.CronSchedule)
	assert.Nil(t, cfg.Backup)

	// Output dir defaults under the data dir, both absolute.
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, filepath.Join(cfg.DataDir, "output"), cfg.OutputDir)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SECTORSCOPE_DATA_DIR", t.TempDir())
	t.Setenv("SECTORSCOPE_UNIVERSE", "XLK, XLF ,XLE")
	t.Setenv("SECTORSCOPE_VIEWS", "daily,monthly")
	t.Setenv("SECTORSCOPE_LOOKBACK_DAYS", "365")
	t.Setenv("SECTORSCOPE_TOP_N", "3")
	t.Setenv("SECTORSCOPE_RENDER", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"XLK", "XLF", "XLE"}, cfg.Universe)
	assert.Equal(t, []string{"daily", "monthly"}, cfg.Views)
	assert.Equal(t, 365, cfg.LookbackDays)
	assert.Equal(t, 3, cfg.TopN)
	assert.False(t, cfg.RenderHeatmaps)
}

func TestLoad_BackupEnabledByBucket(t *testing.T) {
	t.Setenv("SECTORSCOPE_DATA_DIR", t.TempDir())
	t.Setenv("SECTORSCOPE_S3_BUCKET", "artifacts")
	t.Setenv("SECTORSCOPE_S3_ENDPOINT", "https://r2.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Backup)
	assert.Equal(t, "artifacts", cfg.Backup.Bucket)
	assert.Equal(t, "sectorscope", cfg.Backup.Prefix)
	assert.Equal(t, "https://r2.example.com", cfg.Backup.Endpoint)
	assert.Equal(t, "auto", cfg.Backup.Region)
}

func TestLoad_MalformedIntFallsBack(t *testing.T) {
	t.Setenv("SECTORSCOPE_DATA_DIR", t.TempDir())
	t.Setenv("SECTORSCOPE_LOOKBACK_DAYS", "ten years")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3650, cfg.LookbackDays)
}
