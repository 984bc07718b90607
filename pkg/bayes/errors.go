package bayes

import (
	"fmt"
	"math"
)

// EmptyDatasetError is returned when there are no rows to estimate from
type EmptyDatasetError struct{}

func (e *EmptyDatasetError) Error() string {
	return "empty dataset: no rows to compute priors from"
}

// MissingFeatureError is returned when a sample omits a required feature
type MissingFeatureError struct {
	Feature string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("sample is missing feature %q", e.Feature)
}

// UnknownFeatureError is returned when a sample names a feature the model
// was not built with
type UnknownFeatureError struct {
	Feature string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("sample has unknown feature %q", e.Feature)
}

// InvalidFloorError is returned for a floor outside [0, 1]
type InvalidFloorError struct {
	Floor float64
}

func (e *InvalidFloorError) Error() string {
	return fmt.Sprintf("invalid floor probability %g: must be within [0, 1]", e.Floor)
}

func checkFloor(floor float64) error {
	if math.IsNaN(floor) || floor < 0 || floor > 1 {
		return &InvalidFloorError{Floor: floor}
	}
	return nil
}
