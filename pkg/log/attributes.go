// Package log defines standard attribute keys for search runs.
//
// Keys follow a hierarchical naming convention ("model.name", "cv.fold") so
// that log output of concurrent workers can be filtered per run, candidate and
// fold.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the model family, e.g. "boosted_trees".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "evaluate", "finalize"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the search.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of predictor columns after preprocessing.
	FeaturesKey = "data.features"

	// TargetKey names the target column.
	TargetKey = "data.target"

	// TrainSizeKey and TestSizeKey describe the initial split.
	TrainSizeKey = "data.train_size"
	TestSizeKey  = "data.test_size"
)

// Search and Cross-Validation Context
const (
	// RunIDKey correlates every record of one search run.
	RunIDKey = "search.run_id"

	// CandidateKey identifies a hyperparameter candidate, e.g. "Model07".
	CandidateKey = "search.candidate"

	// CandidateCountKey is the number of generated candidates.
	CandidateCountKey = "search.candidates"

	// HyperParamsKey contains a candidate's configuration.
	HyperParamsKey = "model.hyperparams"

	// FoldKey is the zero-based fold being evaluated.
	FoldKey = "cv.fold"

	// FoldCountKey is the number of folds.
	FoldCountKey = "cv.folds"

	// MetricKey names the selection metric.
	MetricKey = "metrics.name"

	// MetricValueKey carries a metric value.
	MetricValueKey = "metrics.value"

	// DirectionKey is "minimize" or "maximize".
	DirectionKey = "metrics.direction"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// WorkersKey is the size of the worker pool.
	WorkersKey = "infra.workers"
)

// Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides a hint for resolving an issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationEvaluate  = "evaluate"
	OperationFinalize  = "finalize"

	PhaseSplit      = "split"
	PhaseResampling = "resampling"
	PhaseRanking    = "ranking"
	PhaseTesting    = "testing"

	ErrorInvalidConfig    = "INVALID_CONFIGURATION"
	ErrorUnknownColumn    = "UNKNOWN_COLUMN"
	ErrorEmptySpace       = "EMPTY_SPACE"
	ErrorTrainingFailed   = "TRAINING_FAILED"
	ErrorMetricUndefined  = "METRIC_UNDEFINED"
	ErrorNoViableConfig   = "NO_VIABLE_CONFIGURATION"
	ErrorCandidateDropped = "CANDIDATE_DROPPED"
)
