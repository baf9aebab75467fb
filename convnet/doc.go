// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package convnet builds a convolutional classification network on top of
// the Born ML framework.
//
// The architecture is fixed in shape but parameterized by input geometry and
// class count: two convolution/pooling blocks (16 then 32 output channels,
// 5x5 kernels) followed by a dense stack (128 -> 64 -> 32 -> classes) with
// ReLU activations between all layers except the last.
//
// Spatial dimensions are derived up front by NewPlan, which threads an
// immutable Plan through the builder instead of mutating running
// height/width state. The resulting ConvNet satisfies Born's nn.Module, so
// it composes directly with optim optimizers and .born serialization.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model, err := convnet.New(convnet.DefaultConfig(28, 28, 1, 10), backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logits := model.Forward(images) // [batch, 10]
package convnet
