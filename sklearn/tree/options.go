package tree

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth sets the maximum depth (0 = unlimited).
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.params.MaxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.params.MinSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.params.MinSamplesLeaf = n
	}
}

// WithMaxFeatures sets the number of features considered per split.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.params.MaxFeatures = n
	}
}

// WithMinGain sets the loss reduction a split must exceed.
func WithMinGain(gain float64) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.params.MinGain = gain
	}
}

// WithRandomState sets the seed for feature sampling.
func WithRandomState(seed uint64) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.seed = seed
	}
}
