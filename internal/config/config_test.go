package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "workDir: ./work\n"))
	require.NoError(t, err)

	assert.Equal(t, 22050, cfg.Audio.SampleRate)
	assert.Equal(t, 512, cfg.Audio.HopLength)
	assert.Equal(t, 2048, cfg.Audio.WindowSize)
	assert.Equal(t, 128, cfg.Audio.MelBands)
	assert.Equal(t, 0.4, cfg.Audio.Weights.Energy)

	assert.Equal(t, "fixed", cfg.Detection.Strategy)
	assert.Equal(t, 0.5, cfg.Detection.Threshold)
	assert.Equal(t, 1.5, cfg.Detection.MinDuration)
	assert.Equal(t, 4.0, cfg.Detection.GapSeconds)

	assert.Equal(t, 2.0, cfg.Clips.BufferSeconds)
	assert.Equal(t, 1.0, cfg.Clips.FrameInterval)

	assert.Equal(t, "llava", cfg.Vision.Model)
	assert.Equal(t, 2, cfg.Vision.Workers)
	assert.Equal(t, 3, cfg.Vision.MaxRetries)

	assert.Equal(t, 0.5, cfg.Stitch.SelectionThreshold)
	assert.Equal(t, "local", cfg.Storage.Backend)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
detection:
  strategy: percentile
  percentile: 95
vision:
  workers: 4
`))
	require.NoError(t, err)
	assert.Equal(t, "percentile", cfg.Detection.Strategy)
	assert.Equal(t, 95.0, cfg.Detection.Percentile)
	assert.Equal(t, 4, cfg.Vision.Workers)
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	_, err := Load(writeConfig(t, "detection:\n  strategy: adaptive\n"))
	assert.Error(t, err)
}

func TestLoadRejectsS3WithoutBucket(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  backend: s3\n"))
	assert.Error(t, err)
}

func TestLoadRejectsCutoffBeyondMelBands(t *testing.T) {
	_, err := Load(writeConfig(t, "audio:\n  melBands: 64\n  highBandCutoff: 64\n"))
	assert.Error(t, err)

	cfg, err := Load(writeConfig(t, "audio:\n  melBands: 64\n  highBandCutoff: 63\n"))
	require.NoError(t, err)
	assert.Equal(t, 63, cfg.Audio.HighBandCutoff)
}

func TestLoadRejectsZeroWorkers(t *testing.T) {
	_, err := Load(writeConfig(t, "vision:\n  workers: 0\n"))
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, User: "reelgen",
		Password: "secret", DBName: "reelgen", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=reelgen password=secret dbname=reelgen sslmode=disable",
		d.DSN())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", cfg.Detection.Strategy)
}
