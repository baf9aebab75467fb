// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/born/tensor"
)

// Batch is one mini-batch of images and labels on a backend.
type Batch[B tensor.Backend] struct {
	Images *tensor.Tensor[float32, B] // [batch, channels, height, width]
	Labels *tensor.Tensor[int32, B]   // [batch]
	Size   int
}

// Loader is a finite, restartable sequence of mini-batches.
//
// Training and evaluation loops call Reset at the start of each pass and
// then drain the loader with Next.
type Loader[B tensor.Backend] interface {
	// Next returns the next batch, or (nil, false) when the pass is done.
	Next() (*Batch[B], bool)

	// Reset rewinds the loader to the first batch.
	Reset()

	// Len returns the number of batches per pass.
	Len() int
}

// BatchLoader is an in-memory Loader over pre-built batch tensors.
type BatchLoader[B tensor.Backend] struct {
	batches []*Batch[B]
	pos     int
}

// NewLoader batches a dataset into tensors on the given backend.
//
// Images become [batch, channels, height, width] float32 tensors and labels
// [batch] int32 tensors. The last batch may be smaller if the sample count
// does not divide evenly. When shuffle is true, samples are shuffled
// (Fisher-Yates) before batching.
func NewLoader[B tensor.Backend](d *Dataset, batchSize int, shuffle bool, backend B) (*BatchLoader[B], error) {
	numSamples := d.NumSamples()
	if numSamples != len(d.Labels) {
		return nil, fmt.Errorf("dataset: images and labels length mismatch")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("dataset: invalid batch size %d", batchSize)
	}

	indices := make([]int, numSamples)
	for i := range indices {
		indices[i] = i
	}
	if shuffle {
		rand.Shuffle(numSamples, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	pixels := d.PixelsPerImage()
	numBatches := (numSamples + batchSize - 1) / batchSize
	batches := make([]*Batch[B], 0, numBatches)

	for i := 0; i < numSamples; i += batchSize {
		end := i + batchSize
		if end > numSamples {
			end = numSamples
		}
		currentBatchSize := end - i

		imagesRaw, err := tensor.NewRaw(
			tensor.Shape{currentBatchSize, d.Channels, d.Height, d.Width},
			tensor.Float32,
			backend.Device(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create images tensor: %w", err)
		}
		labelsRaw, err := tensor.NewRaw(
			tensor.Shape{currentBatchSize},
			tensor.Int32,
			backend.Device(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create labels tensor: %w", err)
		}

		imagesData := imagesRaw.AsFloat32()
		labelsData := labelsRaw.AsInt32()
		for j := i; j < end; j++ {
			idx := indices[j]
			if len(d.Images[idx]) != pixels {
				return nil, fmt.Errorf("dataset: sample %d has %d pixels, want %d", idx, len(d.Images[idx]), pixels)
			}
			copy(imagesData[(j-i)*pixels:(j-i+1)*pixels], d.Images[idx])
			labelsData[j-i] = d.Labels[idx]
		}

		batches = append(batches, &Batch[B]{
			Images: tensor.New[float32, B](imagesRaw, backend),
			Labels: tensor.New[int32, B](labelsRaw, backend),
			Size:   currentBatchSize,
		})
	}

	return &BatchLoader[B]{batches: batches}, nil
}

// Next returns the next batch, or (nil, false) when the pass is done.
func (l *BatchLoader[B]) Next() (*Batch[B], bool) {
	if l.pos >= len(l.batches) {
		return nil, false
	}
	batch := l.batches[l.pos]
	l.pos++
	return batch, true
}

// Reset rewinds the loader to the first batch.
func (l *BatchLoader[B]) Reset() {
	l.pos = 0
}

// Len returns the number of batches per pass.
func (l *BatchLoader[B]) Len() int {
	return len(l.batches)
}
