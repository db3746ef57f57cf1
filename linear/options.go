package linear

// Option configures a LinearRegression.
type Option func(*LinearRegression)

// WithAlpha sets the L2 penalty. Zero gives ordinary least squares, which
// fails on collinear features such as a full one-hot block.
func WithAlpha(alpha float64) Option {
	return func(lr *LinearRegression) {
		lr.Alpha = alpha
	}
}

// WithParallelThreshold sets the row count above which centering runs in
// parallel.
func WithParallelThreshold(n int) Option {
	return func(lr *LinearRegression) {
		lr.parallelThreshold = n
	}
}
