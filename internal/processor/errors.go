package processor

import (
	"errors"
	"fmt"
)

// Error kinds reported by the pipeline. Use errors.Is to test for them.
var (
	ErrIO            = errors.New("io error")
	ErrParse         = errors.New("parse error")
	ErrConfiguration = errors.New("configuration error")
	ErrFeature       = errors.New("feature processing error")
)

// FeatureError describes a failure while processing a single feature.
type FeatureError struct {
	Err   error
	ID    string
	Index int
}

func (e *FeatureError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("feature %d (id %s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("feature %d: %v", e.Index, e.Err)
}

// Unwrap makes FeatureError match both ErrFeature and the underlying cause.
func (e *FeatureError) Unwrap() []error {
	return []error{ErrFeature, e.Err}
}
