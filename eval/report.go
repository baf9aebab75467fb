// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package eval

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/born-ml/vision/dataset"
)

// ErrNoSamples reports a per-class accuracy request for a class that had no
// samples in the evaluation set.
var ErrNoSamples = errors.New("eval: class has no samples")

// ClassCount tallies correct and total predictions for one class.
type ClassCount struct {
	Correct int
	Total   int
}

// Wrong captures one misclassified sample for display.
type Wrong struct {
	Label     int       // True class label
	Predicted int       // Predicted class label
	Pixels    []float32 // First-channel pixels, row-major
	Height    int
	Width     int
}

// Report is the result of one evaluation pass.
type Report struct {
	Correct  int
	Samples  int
	Classes  dataset.Classes
	PerClass []ClassCount
	Wrongs   []Wrong
}

// Accuracy returns the overall accuracy as a percentage.
func (r *Report) Accuracy() float64 {
	if r.Samples == 0 {
		return 0
	}
	return 100.0 * float64(r.Correct) / float64(r.Samples)
}

// ClassAccuracy returns the accuracy percentage for one class.
//
// A class with zero evaluation samples is an explicit error rather than a
// division failure.
func (r *Report) ClassAccuracy(label int) (float64, error) {
	if label < 0 || label >= len(r.PerClass) {
		return 0, fmt.Errorf("eval: label %d out of range [0, %d)", label, len(r.PerClass))
	}
	count := r.PerClass[label]
	if count.Total == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoSamples, r.Classes.Name(label))
	}
	return 100.0 * float64(count.Correct) / float64(count.Total), nil
}

// ClassErrors returns the aggregated errors for all classes without
// evaluation samples, or nil when every class was represented.
func (r *Report) ClassErrors() error {
	var result *multierror.Error
	for label := range r.PerClass {
		if _, err := r.ClassAccuracy(label); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
