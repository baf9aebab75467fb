// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"fmt"
)

// Classes is an ordered list of class names; the index of a name is its
// label id. Treat it as immutable after construction.
type Classes []string

// Name returns the class name for a label id, or a formatted placeholder
// when the label is out of range.
func (c Classes) Name(label int) string {
	if label < 0 || label >= len(c) {
		return fmt.Sprintf("class(%d)", label)
	}
	return c[label]
}

// Digits returns the ten digit class names "0" through "9".
func Digits() Classes {
	return Classes{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
}

// Dataset holds labeled images in memory.
//
// Each image is a flattened row of channels*height*width float32 pixels
// normalized to [0, 1].
type Dataset struct {
	Images [][]float32 // [num_samples, channels*height*width]
	Labels []int32     // [num_samples]

	Height   int
	Width    int
	Channels int
}

// NumSamples returns the total number of samples in the dataset.
func (d *Dataset) NumSamples() int {
	return len(d.Images)
}

// PixelsPerImage returns the flattened pixel count of one image.
func (d *Dataset) PixelsPerImage() int {
	return d.Channels * d.Height * d.Width
}

// Validate checks that images and labels are consistent with the declared
// geometry and that every label falls inside the class list.
func (d *Dataset) Validate(classes Classes) error {
	if len(d.Images) != len(d.Labels) {
		return fmt.Errorf("dataset: image count (%d) != label count (%d)", len(d.Images), len(d.Labels))
	}
	pixels := d.PixelsPerImage()
	for i, img := range d.Images {
		if len(img) != pixels {
			return fmt.Errorf("dataset: sample %d has %d pixels, want %d", i, len(img), pixels)
		}
	}
	for i, label := range d.Labels {
		if int(label) < 0 || int(label) >= len(classes) {
			return fmt.Errorf("dataset: sample %d label %d out of range [0, %d)", i, label, len(classes))
		}
	}
	return nil
}

// Split splits the dataset into train and validation sets.
//
// validationRatio is the fraction of data placed in the validation set
// (e.g. 0.2 for 20%). The split is positional; shuffle beforehand if the
// source data is ordered by class.
func (d *Dataset) Split(validationRatio float32) (*Dataset, *Dataset) {
	numSamples := d.NumSamples()
	splitIdx := int(float32(numSamples) * (1.0 - validationRatio))

	train := &Dataset{
		Images:   d.Images[:splitIdx],
		Labels:   d.Labels[:splitIdx],
		Height:   d.Height,
		Width:    d.Width,
		Channels: d.Channels,
	}
	val := &Dataset{
		Images:   d.Images[splitIdx:],
		Labels:   d.Labels[splitIdx:],
		Height:   d.Height,
		Width:    d.Width,
		Channels: d.Channels,
	}
	return train, val
}

// Synthetic creates a small deterministic dataset for pipeline tests.
//
// It generates one simple bright-region pattern per class, repeated until
// numSamples is reached. The patterns are linearly separable, which makes
// the dataset useful for smoke-testing training convergence without real
// data files.
func Synthetic(numSamples, height, width, channels, numClasses int) *Dataset {
	pixels := channels * height * width
	images := make([][]float32, numSamples)
	labels := make([]int32, numSamples)

	for i := 0; i < numSamples; i++ {
		class := i % numClasses
		labels[i] = int32(class)
		images[i] = make([]float32, pixels)

		// One bright horizontal band per class.
		bandHeight := height / numClasses
		if bandHeight < 1 {
			bandHeight = 1
		}
		startRow := (class * bandHeight) % height
		for row := startRow; row < startRow+bandHeight && row < height; row++ {
			for col := 0; col < width; col++ {
				for ch := 0; ch < channels; ch++ {
					images[i][ch*height*width+row*width+col] = 0.8
				}
			}
		}
	}

	return &Dataset{
		Images:   images,
		Labels:   labels,
		Height:   height,
		Width:    width,
		Channels: channels,
	}
}
