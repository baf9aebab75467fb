// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package convnet

import (
	"errors"
	"fmt"
)

// PadSame requests automatic padding that preserves the spatial size of the
// input before the stride is applied. For a kernel of odd size k and stride 1
// this resolves to (k-1)/2 and leaves height and width unchanged.
const PadSame = -1

// Pooling selects the pooling operator used after each convolution stage.
type Pooling string

// Supported pooling kinds.
const (
	// MaxPooling takes the maximum value in each window.
	MaxPooling Pooling = "max"
)

// ErrUnsupportedPooling is returned when a Config names a pooling kind the
// builder cannot construct. It is always surfaced at build time, never as a
// broken layer that fails on first use.
var ErrUnsupportedPooling = errors.New("convnet: unsupported pooling kind")

// Default architecture constants.
const (
	conv1Channels = 16
	conv2Channels = 32
	convKernel    = 5
	pool1Size     = 3
	pool2Size     = 2
)

// defaultHidden holds the widths of the dense stack before the class layer.
var defaultHidden = [3]int{128, 64, 32}

// Config describes the input geometry and output classes of a ConvNet.
type Config struct {
	Height   int // Input image height in pixels
	Width    int // Input image width in pixels
	Channels int // Input channels (1 for grayscale, 3 for RGB)
	Classes  int // Number of output classes

	// Padding applied by both convolution stages. Use PadSame (the
	// DefaultConfig choice) to preserve spatial size, or an explicit
	// non-negative padding.
	Padding int

	// Pooling kind. Empty means MaxPooling.
	Pooling Pooling
}

// DefaultConfig returns a Config with "same" convolution padding and max
// pooling, matching the canonical architecture.
func DefaultConfig(height, width, channels, classes int) Config {
	return Config{
		Height:   height,
		Width:    width,
		Channels: channels,
		Classes:  classes,
		Padding:  PadSame,
		Pooling:  MaxPooling,
	}
}

// ConvSpec describes one convolution stage.
type ConvSpec struct {
	In      int // Input channels
	Out     int // Output channels
	Kernel  int // Square kernel size
	Stride  int
	Padding int // Explicit padding, or PadSame
}

// ResolvedPadding returns the concrete padding the stage applies.
//
// PadSame resolves to (kernel-1)/2, which preserves spatial size for
// odd kernels at stride 1.
func (s ConvSpec) ResolvedPadding() int {
	if s.Padding == PadSame {
		return (s.Kernel - 1) / 2
	}
	return s.Padding
}

// OutSize computes the output spatial size for one dimension using the
// standard convolution formula: floor((size + 2*padding - kernel)/stride) + 1.
func (s ConvSpec) OutSize(size int) int {
	return (size+2*s.ResolvedPadding()-s.Kernel)/s.Stride + 1
}

// PoolSpec describes one pooling stage. Kernel and stride are equal, so
// pooling floors each spatial dimension by the stride.
type PoolSpec struct {
	Kernel int
	Stride int
}

// OutSize computes the output spatial size for one dimension.
func (s PoolSpec) OutSize(size int) int {
	return size / s.Stride
}

// Plan is the fully resolved layer layout of a ConvNet. It is computed once
// by NewPlan and never mutated afterwards; every spatial dimension the model
// needs (most importantly the flattened feature count) is derived here.
type Plan struct {
	Height   int
	Width    int
	Channels int
	Classes  int

	Conv1 ConvSpec
	Pool1 PoolSpec
	Conv2 ConvSpec
	Pool2 PoolSpec

	// Hidden holds the dense stack widths between the flattened features
	// and the class layer.
	Hidden [3]int

	// FlatFeatures is the flattened feature count after the second pooling
	// stage: Conv2.Out * outHeight * outWidth.
	FlatFeatures int

	// OutHeight and OutWidth are the spatial dimensions after the second
	// pooling stage.
	OutHeight int
	OutWidth  int
}

// NewPlan derives the layer layout for the given configuration.
//
// It fails fast on invalid geometry, class counts below one, unsupported
// pooling kinds, and inputs too small to survive both pooling stages.
func NewPlan(cfg Config) (Plan, error) {
	if cfg.Height <= 0 || cfg.Width <= 0 {
		return Plan{}, fmt.Errorf("convnet: invalid input size %dx%d", cfg.Height, cfg.Width)
	}
	if cfg.Channels <= 0 {
		return Plan{}, fmt.Errorf("convnet: invalid channel count %d", cfg.Channels)
	}
	if cfg.Classes <= 0 {
		return Plan{}, fmt.Errorf("convnet: invalid class count %d", cfg.Classes)
	}
	if cfg.Padding < PadSame {
		return Plan{}, fmt.Errorf("convnet: invalid padding %d", cfg.Padding)
	}

	pooling := cfg.Pooling
	if pooling == "" {
		pooling = MaxPooling
	}
	if pooling != MaxPooling {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnsupportedPooling, pooling)
	}

	conv1 := ConvSpec{In: cfg.Channels, Out: conv1Channels, Kernel: convKernel, Stride: 1, Padding: cfg.Padding}
	pool1 := PoolSpec{Kernel: pool1Size, Stride: pool1Size}
	conv2 := ConvSpec{In: conv1Channels, Out: conv2Channels, Kernel: convKernel, Stride: 1, Padding: cfg.Padding}
	pool2 := PoolSpec{Kernel: pool2Size, Stride: pool2Size}

	h := pool1.OutSize(conv1.OutSize(cfg.Height))
	w := pool1.OutSize(conv1.OutSize(cfg.Width))
	h = pool2.OutSize(conv2.OutSize(h))
	w = pool2.OutSize(conv2.OutSize(w))
	if h <= 0 || w <= 0 {
		return Plan{}, fmt.Errorf("convnet: input %dx%d too small for the architecture", cfg.Height, cfg.Width)
	}

	return Plan{
		Height:       cfg.Height,
		Width:        cfg.Width,
		Channels:     cfg.Channels,
		Classes:      cfg.Classes,
		Conv1:        conv1,
		Pool1:        pool1,
		Conv2:        conv2,
		Pool2:        pool2,
		Hidden:       defaultHidden,
		FlatFeatures: conv2.Out * h * w,
		OutHeight:    h,
		OutWidth:     w,
	}, nil
}
