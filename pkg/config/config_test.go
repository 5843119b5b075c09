package config_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/neardup/pkg/config"
)

const (
	testStages     = 30
	testThreshold  = 0.3
	testShingleK   = 2
	testWorkers    = 4
	testMaxInput   = 1_000_000
	testSimilarity = 0.6
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".neardup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// --- LoadConfig Tests ---.

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_NoPath_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultLSHStages, cfg.LSH.Stages)
	assert.Equal(t, config.DefaultLSHSeed, cfg.LSH.Seed)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `
shingle:
  kind: char
  k: 2
  normalize: false
lsh:
  stages: 30
  threshold: 0.3
  seed: 42
grouping:
  mode: packed
  group_similarity: 0.6
  noise_reduction: true
  reduced_stages: 4
pipeline:
  workers: 4
  max_input: 1MB
logging:
  level: debug
  json: true
`))
	require.NoError(t, err)

	assert.Equal(t, config.ShingleChar, cfg.Shingle.Kind)
	assert.Equal(t, testShingleK, cfg.Shingle.K)
	assert.False(t, cfg.Shingle.Normalize)
	assert.Equal(t, testStages, cfg.LSH.Stages)
	assert.InDelta(t, testThreshold, cfg.LSH.Threshold, 1e-9)
	assert.Equal(t, int64(42), cfg.LSH.Seed)
	assert.Equal(t, config.ModePacked, cfg.Grouping.Mode)
	assert.InDelta(t, testSimilarity, cfg.Grouping.GroupSimilarity, 1e-9)
	assert.True(t, cfg.Grouping.NoiseReduction)
	assert.Equal(t, 4, cfg.Grouping.ReducedStages)
	assert.Equal(t, testWorkers, cfg.Pipeline.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)

	maxInput, err := cfg.MaxInputBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(testMaxInput), maxInput)

	// Untouched keys keep defaults.
	assert.Equal(t, config.DefaultGroupingBucketMinSize, cfg.Grouping.BucketMinSize)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("NEARDUP_LSH_STAGES", "12")
	t.Setenv("NEARDUP_GROUPING_MODE", "raw")

	cfg, err := config.LoadConfig(writeConfig(t, "lsh:\n  stages: 30\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.LSH.Stages)
	assert.Equal(t, config.ModeRaw, cfg.Grouping.Mode)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "lsh:\n  threshold: 1.5\n"))
	require.ErrorIs(t, err, config.ErrInvalidThreshold)
}

// --- Validate Tests ---.

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"defaults", func(*config.Config) {}, nil},
		{"kind", func(c *config.Config) { c.Shingle.Kind = "line" }, config.ErrInvalidShingleKind},
		{"k", func(c *config.Config) { c.Shingle.K = 0 }, config.ErrInvalidShingleK},
		{"stages", func(c *config.Config) { c.LSH.Stages = 0 }, config.ErrInvalidStages},
		{"threshold_zero", func(c *config.Config) { c.LSH.Threshold = 0 }, config.ErrInvalidThreshold},
		{"threshold_nan", func(c *config.Config) { c.LSH.Threshold = math.NaN() }, config.ErrInvalidThreshold},
		{"signature_size", func(c *config.Config) { c.LSH.SignatureSize = -1 }, config.ErrInvalidSignatureSize},
		{"dict_size", func(c *config.Config) { c.LSH.DictSize = 0 }, config.ErrInvalidDictSize},
		{"mode", func(c *config.Config) { c.Grouping.Mode = "fast" }, config.ErrInvalidMode},
		{"bucket_min", func(c *config.Config) { c.Grouping.BucketMinSize = 1 }, config.ErrInvalidBucketMinSize},
		{"similarity", func(c *config.Config) { c.Grouping.GroupSimilarity = 0 }, config.ErrInvalidSimilarity},
		{"min_appearance", func(c *config.Config) { c.Grouping.MinAppearance = -1 }, config.ErrInvalidMinAppearance},
		{"reduced_stages", func(c *config.Config) { c.Grouping.ReducedStages = 11 }, config.ErrInvalidReducedStages},
		{"workers", func(c *config.Config) { c.Pipeline.Workers = -1 }, config.ErrInvalidWorkers},
		{"max_input", func(c *config.Config) { c.Pipeline.MaxInput = "lots" }, config.ErrInvalidMaxInput},
		{"log_level", func(c *config.Config) { c.Logging.Level = "trace" }, config.ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMaxInputBytes_EmptyIsUnlimited(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Pipeline.MaxInput = ""

	n, err := cfg.MaxInputBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), n)
}

func TestUsePacked(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	assert.False(t, cfg.UsePacked())

	cfg.LSH.Stages = config.DefaultGroupingRawBucketLimit + 1
	assert.True(t, cfg.UsePacked())

	cfg.Grouping.Mode = config.ModeRaw
	assert.False(t, cfg.UsePacked())

	cfg.LSH.Stages = 1
	cfg.Grouping.Mode = config.ModePacked
	assert.True(t, cfg.UsePacked())
}
