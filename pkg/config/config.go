// Package config provides configuration loading and validation for neardup.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Shingle kinds.
const (
	ShingleWord = "word"
	ShingleChar = "char"
)

// Grouping modes.
const (
	// ModeAuto picks packed grouping once the LSH has more stages than RawBucketLimit.
	ModeAuto   = "auto"
	ModeRaw    = "raw"
	ModePacked = "packed"
)

// Sentinel validation errors.
var (
	ErrInvalidShingleKind   = errors.New("shingle kind must be word or char")
	ErrInvalidShingleK      = errors.New("shingle k must be positive")
	ErrInvalidStages        = errors.New("lsh stages must be positive")
	ErrInvalidThreshold     = errors.New("lsh threshold must be in (0, 1]")
	ErrInvalidSignatureSize = errors.New("lsh signature size must not be negative")
	ErrInvalidDictSize      = errors.New("lsh dict size must be positive")
	ErrInvalidMode          = errors.New("grouping mode must be auto, raw or packed")
	ErrInvalidBucketMinSize = errors.New("grouping bucket min size must be at least 2")
	ErrInvalidSimilarity    = errors.New("grouping similarity must be in (0, 1]")
	ErrInvalidMinAppearance = errors.New("grouping min appearance must not be negative")
	ErrInvalidReducedStages = errors.New("grouping reduced stages must be in [0, stages]")
	ErrInvalidWorkers       = errors.New("pipeline workers must not be negative")
	ErrInvalidMaxInput      = errors.New("pipeline max input must be a byte size")
	ErrInvalidLogLevel      = errors.New("logging level must be debug, info, warn or error")
)

const (
	envPrefix      = "NEARDUP"
	configName     = ".neardup"
	minBucketSize  = 2
	thresholdUpper = 1.0
)

// Config holds all configuration for a deduplication run.
type Config struct {
	Shingle       ShingleConfig       `mapstructure:"shingle"`
	LSH           LSHConfig           `mapstructure:"lsh"`
	Grouping      GroupingConfig      `mapstructure:"grouping"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ShingleConfig selects how text is cut into shingles.
type ShingleConfig struct {
	Kind      string `mapstructure:"kind"`
	K         int    `mapstructure:"k"`
	Normalize bool   `mapstructure:"normalize"`
}

// LSHConfig holds the banding parameters.
type LSHConfig struct {
	Stages        int     `mapstructure:"stages"`
	Threshold     float64 `mapstructure:"threshold"`
	SignatureSize int     `mapstructure:"signature_size"`
	Seed          int64   `mapstructure:"seed"`
	DictSize      int64   `mapstructure:"dict_size"`
}

// GroupingConfig holds the bucket grouping and extraction parameters.
type GroupingConfig struct {
	Mode                 string  `mapstructure:"mode"`
	BucketMinSize        int     `mapstructure:"bucket_min_size"`
	GroupSimilarity      float64 `mapstructure:"group_similarity"`
	MinAppearance        int     `mapstructure:"min_appearance"`
	NoiseReduction       bool    `mapstructure:"noise_reduction"`
	ReducedStages        int     `mapstructure:"reduced_stages"`
	ReducedMinAppearance int     `mapstructure:"reduced_min_appearance"`
	RawBucketLimit       int     `mapstructure:"raw_bucket_limit"`
}

// PipelineConfig holds batch runner settings.
type PipelineConfig struct {
	Workers  int    `mapstructure:"workers"`
	MaxInput string `mapstructure:"max_input"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// LoadConfig loads configuration from defaults, an optional YAML file and
// NEARDUP_* environment variables, in increasing priority. An empty path
// searches for .neardup.yaml in the working directory and $HOME.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the configuration LoadConfig produces with no file and no
// environment overrides.
func Default() *Config {
	return &Config{
		Shingle: ShingleConfig{
			Kind:      DefaultShingleKind,
			K:         DefaultShingleK,
			Normalize: DefaultShingleNormalize,
		},
		LSH: LSHConfig{
			Stages:        DefaultLSHStages,
			Threshold:     DefaultLSHThreshold,
			SignatureSize: DefaultLSHSignatureSize,
			Seed:          DefaultLSHSeed,
			DictSize:      DefaultLSHDictSize,
		},
		Grouping: GroupingConfig{
			Mode:                 DefaultGroupingMode,
			BucketMinSize:        DefaultGroupingBucketMinSize,
			GroupSimilarity:      DefaultGroupingGroupSimilarity,
			MinAppearance:        DefaultGroupingMinAppearance,
			NoiseReduction:       DefaultGroupingNoiseReduction,
			ReducedStages:        DefaultGroupingReducedStages,
			ReducedMinAppearance: DefaultGroupingReducedMinAppearance,
			RawBucketLimit:       DefaultGroupingRawBucketLimit,
		},
		Pipeline: PipelineConfig{
			Workers:  DefaultPipelineWorkers,
			MaxInput: DefaultPipelineMaxInput,
		},
		Logging: LoggingConfig{
			Level: DefaultLoggingLevel,
			JSON:  DefaultLoggingJSON,
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint: DefaultObservabilityOTLPEndpoint,
			MetricsAddr:  DefaultObservabilityMetricsAddr,
		},
	}
}

// MaxInputBytes parses Pipeline.MaxInput. An empty value means no limit.
func (c *Config) MaxInputBytes() (uint64, error) {
	if c.Pipeline.MaxInput == "" {
		return math.MaxUint64, nil
	}

	n, err := humanize.ParseBytes(c.Pipeline.MaxInput)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxInput, c.Pipeline.MaxInput)
	}

	return n, nil
}

// UsePacked reports whether grouping should run on packed 64-bit signatures.
func (c *Config) UsePacked() bool {
	switch c.Grouping.Mode {
	case ModePacked:
		return true
	case ModeRaw:
		return false
	default:
		return c.LSH.Stages > c.Grouping.RawBucketLimit
	}
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("shingle.kind", DefaultShingleKind)
	viperCfg.SetDefault("shingle.k", DefaultShingleK)
	viperCfg.SetDefault("shingle.normalize", DefaultShingleNormalize)

	viperCfg.SetDefault("lsh.stages", DefaultLSHStages)
	viperCfg.SetDefault("lsh.threshold", DefaultLSHThreshold)
	viperCfg.SetDefault("lsh.signature_size", DefaultLSHSignatureSize)
	viperCfg.SetDefault("lsh.seed", DefaultLSHSeed)
	viperCfg.SetDefault("lsh.dict_size", DefaultLSHDictSize)

	viperCfg.SetDefault("grouping.mode", DefaultGroupingMode)
	viperCfg.SetDefault("grouping.bucket_min_size", DefaultGroupingBucketMinSize)
	viperCfg.SetDefault("grouping.group_similarity", DefaultGroupingGroupSimilarity)
	viperCfg.SetDefault("grouping.min_appearance", DefaultGroupingMinAppearance)
	viperCfg.SetDefault("grouping.noise_reduction", DefaultGroupingNoiseReduction)
	viperCfg.SetDefault("grouping.reduced_stages", DefaultGroupingReducedStages)
	viperCfg.SetDefault("grouping.reduced_min_appearance", DefaultGroupingReducedMinAppearance)
	viperCfg.SetDefault("grouping.raw_bucket_limit", DefaultGroupingRawBucketLimit)

	viperCfg.SetDefault("pipeline.workers", DefaultPipelineWorkers)
	viperCfg.SetDefault("pipeline.max_input", DefaultPipelineMaxInput)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", DefaultLoggingJSON)

	viperCfg.SetDefault("observability.otlp_endpoint", DefaultObservabilityOTLPEndpoint)
	viperCfg.SetDefault("observability.metrics_addr", DefaultObservabilityMetricsAddr)
}

// Validate checks every section and returns the first violation.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateShingle,
		c.validateLSH,
		c.validateGrouping,
		c.validatePipeline,
		c.validateLogging,
	} {
		err := check()
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateShingle() error {
	if c.Shingle.Kind != ShingleWord && c.Shingle.Kind != ShingleChar {
		return fmt.Errorf("%w: %q", ErrInvalidShingleKind, c.Shingle.Kind)
	}

	if c.Shingle.K <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidShingleK, c.Shingle.K)
	}

	return nil
}

func (c *Config) validateLSH() error {
	if c.LSH.Stages <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidStages, c.LSH.Stages)
	}

	if c.LSH.Threshold <= 0 || c.LSH.Threshold > thresholdUpper || math.IsNaN(c.LSH.Threshold) {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, c.LSH.Threshold)
	}

	if c.LSH.SignatureSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSignatureSize, c.LSH.SignatureSize)
	}

	if c.LSH.DictSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDictSize, c.LSH.DictSize)
	}

	return nil
}

func (c *Config) validateGrouping() error {
	g := c.Grouping

	switch g.Mode {
	case ModeAuto, ModeRaw, ModePacked:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, g.Mode)
	}

	if g.BucketMinSize < minBucketSize {
		return fmt.Errorf("%w: %d", ErrInvalidBucketMinSize, g.BucketMinSize)
	}

	if g.GroupSimilarity <= 0 || g.GroupSimilarity > thresholdUpper || math.IsNaN(g.GroupSimilarity) {
		return fmt.Errorf("%w: %v", ErrInvalidSimilarity, g.GroupSimilarity)
	}

	if g.MinAppearance < 0 || g.ReducedMinAppearance < 0 {
		return fmt.Errorf("%w: %d/%d", ErrInvalidMinAppearance, g.MinAppearance, g.ReducedMinAppearance)
	}

	if g.ReducedStages < 0 || g.ReducedStages > c.LSH.Stages {
		return fmt.Errorf("%w: %d of %d", ErrInvalidReducedStages, g.ReducedStages, c.LSH.Stages)
	}

	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Pipeline.Workers)
	}

	_, err := c.MaxInputBytes()

	return err
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}
}
