package config

// Shingling defaults.
const (
	DefaultShingleKind      = ShingleWord
	DefaultShingleK         = 5
	DefaultShingleNormalize = true
)

// LSH defaults. A zero signature size is derived from the threshold.
const (
	DefaultLSHStages        = 10
	DefaultLSHThreshold     = 0.8
	DefaultLSHSignatureSize = 0
	DefaultLSHSeed          = int64(-8814109245394854757)
	DefaultLSHDictSize      = 1<<31 - 1
)

// Grouping defaults. A zero min appearance selects the variant's default.
const (
	DefaultGroupingMode                 = ModeAuto
	DefaultGroupingBucketMinSize        = 2
	DefaultGroupingGroupSimilarity      = 0.5
	DefaultGroupingMinAppearance        = 0
	DefaultGroupingNoiseReduction       = false
	DefaultGroupingReducedStages        = 0
	DefaultGroupingReducedMinAppearance = 0
	DefaultGroupingRawBucketLimit       = 32
)

// Pipeline defaults. Zero workers means GOMAXPROCS.
const (
	DefaultPipelineWorkers  = 0
	DefaultPipelineMaxInput = "256MB"
)

// Logging and observability defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false

	DefaultObservabilityOTLPEndpoint = ""
	DefaultObservabilityMetricsAddr  = ""
)
