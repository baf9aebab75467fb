// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset loads labeled image data and batches it into Born tensors.
//
// A Dataset holds images as normalized float32 pixel rows plus int32 labels
// and knows its own geometry (height, width, channels). Data can come from
// IDX binary files (the MNIST distribution format), Kaggle-style CSV files,
// or a synthetic generator used for pipeline tests.
//
// NewLoader turns a Dataset into a restartable sequence of mini-batches:
// images as [batch, channels, height, width] float32 tensors and labels as
// [batch] int32 tensors, ready for training and evaluation loops.
package dataset
