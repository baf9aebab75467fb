// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train runs the gradient-descent training loop for classification
// models built on the Born ML framework.
//
// The loop itself owns no numerics: forward passes, loss computation,
// backpropagation, and parameter updates are all delegated to the model,
// the supplied criterion, the autodiff gradient tape, and the optimizer.
package train

import (
	"fmt"
	"io"
	"strconv"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/optim"
	"github.com/born-ml/born/tensor"
	"github.com/sirupsen/logrus"

	"github.com/born-ml/vision/dataset"
)

// Criterion maps a batch of logits and integer labels to a scalar loss.
//
// Born's nn.CrossEntropyLoss satisfies this interface; when running on an
// autodiff backend its forward pass is recorded on the gradient tape.
type Criterion[B tensor.Backend] interface {
	Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B]
}

// Config controls epoch count and progress reporting.
type Config struct {
	// Epochs is the number of full passes over the loader. Required.
	Epochs int

	// PrintEpochs logs progress on every n-th epoch (0 means every epoch).
	PrintEpochs int

	// PrintSteps is the number of progress lines per reported epoch
	// (0 means one per epoch).
	PrintSteps int

	// LossDecimals is the number of decimals in the reported loss
	// (0 means 4).
	LossDecimals int

	// Logger receives progress lines. Nil discards them.
	Logger *logrus.Entry

	// OnEpochEnd, when set, runs after every epoch with the 1-based epoch
	// number and that epoch's mean loss. Returning an error aborts training.
	// Gradient recording stays enabled while the hook runs; a hook that
	// evaluates must disable it itself.
	OnEpochEnd func(epoch int, meanLoss float64) error
}

func (c Config) withDefaults() Config {
	if c.PrintEpochs <= 0 {
		c.PrintEpochs = 1
	}
	if c.PrintSteps <= 0 {
		c.PrintSteps = 1
	}
	if c.LossDecimals <= 0 {
		c.LossDecimals = 4
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = logrus.NewEntry(l)
	}
	return c
}

// Run trains the model in place for cfg.Epochs passes over the loader.
//
// For every batch it performs a forward pass, computes the loss with the
// supplied criterion, backpropagates through the gradient tape, and applies
// one optimizer step. Gradient recording is enabled for the duration and
// restored to its prior state afterwards.
//
// Returns the mean loss of the final epoch.
func Run[B tensor.Backend](
	model nn.Module[*autodiff.Backend[B]],
	loader dataset.Loader[*autodiff.Backend[B]],
	criterion Criterion[*autodiff.Backend[B]],
	optimizer optim.Optimizer,
	backend *autodiff.Backend[B],
	cfg Config,
) (float64, error) {
	if cfg.Epochs <= 0 {
		return 0, fmt.Errorf("train: invalid epoch count %d", cfg.Epochs)
	}
	totalSteps := loader.Len()
	if totalSteps == 0 {
		return 0, fmt.Errorf("train: loader yields no batches")
	}
	cfg = cfg.withDefaults()

	printEvery := totalSteps / cfg.PrintSteps
	if printEvery < 1 {
		printEvery = 1
	}

	tape := backend.Tape()
	wasRecording := tape.IsRecording()
	if !wasRecording {
		tape.StartRecording()
	}
	defer func() {
		if !wasRecording {
			tape.StopRecording()
		}
	}()

	var epochLoss float64
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		epochLoss = 0
		windowLoss := 0.0
		windowSteps := 0
		step := 0

		loader.Reset()
		for {
			batch, ok := loader.Next()
			if !ok {
				break
			}

			optimizer.ZeroGrad()

			logits := model.Forward(batch.Images)
			loss := criterion.Forward(logits, batch.Labels)
			lossValue := float64(loss.Raw().AsFloat32()[0])
			epochLoss += lossValue
			windowLoss += lossValue
			windowSteps++
			step++

			// Scalar loss seeds the backward pass with a gradient of one.
			outputGrad, err := tensor.NewRaw(loss.Shape(), loss.DType(), backend.Device())
			if err != nil {
				return 0, fmt.Errorf("train: failed to allocate output gradient: %w", err)
			}
			outputGrad.AsFloat32()[0] = 1.0

			grads := tape.Backward(outputGrad, backend)
			optimizer.Step(grads)
			tape.Clear()

			if epoch%cfg.PrintEpochs == 0 && step%printEvery == 0 {
				cfg.Logger.WithFields(logrus.Fields{
					"epoch": fmt.Sprintf("%d/%d", epoch+1, cfg.Epochs),
					"step":  fmt.Sprintf("%d/%d", step, totalSteps),
					"loss":  strconv.FormatFloat(windowLoss/float64(windowSteps), 'f', cfg.LossDecimals, 64),
				}).Info("training progress")
				windowLoss = 0
				windowSteps = 0
			}
		}

		if cfg.OnEpochEnd != nil {
			if err := cfg.OnEpochEnd(epoch+1, epochLoss/float64(totalSteps)); err != nil {
				return 0, fmt.Errorf("train: epoch %d hook: %w", epoch+1, err)
			}
		}
	}

	cfg.Logger.Info("training finished")
	return epochLoss / float64(totalSteps), nil
}
