package selection

import "errors"

var (
	ErrInsufficientMembers = errors.New("too few members survive the performance cutoff")
	ErrDegenerateMetric    = errors.New("metric has no finite spread to normalize by")
	ErrShapeMismatch       = errors.New("metric shapes do not match the member list")
	ErrInvalidWeights      = errors.New("weights must satisfy alpha >= 0, beta >= 0, alpha+beta <= 1")
	ErrInvalidSubsetSize   = errors.New("subset size must be at least 1")
	ErrSubsetTooLarge      = errors.New("subset size exceeds the number of candidate members")
	ErrTooManyCombinations = errors.New("number of combinations overflows")
	ErrNoFiniteSubset      = errors.New("no subset has a finite cost")
)

// weightTolerance absorbs rounding in grid weights such as 0.7+0.3.
const weightTolerance = 1e-12
