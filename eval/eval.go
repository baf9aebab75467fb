// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package eval measures classification accuracy of a trained model.
//
// The evaluation pass runs with gradient recording disabled, tallies
// overall and per-class accuracy, and can capture a handful of
// misclassified samples for inspection. A checkpoint can be restored
// beforehand; the compute device travels with the already-resolved backend,
// so there is no per-device branching here.
package eval

import (
	"fmt"
	"hash/fnv"
	"io"
	"math"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
	"github.com/sirupsen/logrus"

	"github.com/born-ml/vision/checkpoint"
	"github.com/born-ml/vision/dataset"
)

// Config controls the evaluation pass.
type Config struct {
	// Checkpoint optionally restores model parameters from this path
	// before evaluating.
	Checkpoint string

	// ClassResults reports per-class accuracy in addition to the overall
	// number.
	ClassResults bool

	// ShowWrongs renders misclassified samples to the logger.
	ShowWrongs bool

	// NWrongs caps the number of captured misclassified samples
	// (0 means 5).
	NWrongs int

	// Logger receives accuracy lines and rendered samples. Nil discards
	// them.
	Logger *logrus.Entry
}

func (c Config) withDefaults() Config {
	if c.NWrongs <= 0 {
		c.NWrongs = 5
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = logrus.NewEntry(l)
	}
	return c
}

// Run evaluates the model over one pass of the loader.
//
// Gradient recording is disabled for the duration and restored afterwards.
// The class list must match the model's output width; the mismatch the
// underlying framework would let pass silently is an explicit error here.
//
// When cfg.ClassResults is set and some class has no samples in the
// evaluation set, the report is still returned together with the
// aggregated ErrNoSamples errors.
func Run[B tensor.Backend](
	model nn.Module[*autodiff.Backend[B]],
	loader dataset.Loader[*autodiff.Backend[B]],
	classes dataset.Classes,
	backend *autodiff.Backend[B],
	cfg Config,
) (*Report, error) {
	cfg = cfg.withDefaults()

	if len(classes) == 0 {
		return nil, fmt.Errorf("eval: empty class list")
	}
	if counter, ok := model.(interface{ NumClasses() int }); ok {
		if counter.NumClasses() != len(classes) {
			return nil, fmt.Errorf("eval: model outputs %d classes but %d class names given",
				counter.NumClasses(), len(classes))
		}
	}

	if cfg.Checkpoint != "" {
		saved, err := checkpoint.Load(cfg.Checkpoint, backend, model)
		if err != nil {
			return nil, err
		}
		if saved != nil && len(saved) != len(classes) {
			return nil, fmt.Errorf("eval: checkpoint stores %d classes but %d class names given",
				len(saved), len(classes))
		}
	}

	tape := backend.Tape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if wasRecording {
			tape.StartRecording()
		}
	}()

	report := &Report{
		Classes:  classes,
		PerClass: make([]ClassCount, len(classes)),
	}
	seenWrongs := make(map[uint64]bool)

	loader.Reset()
	for {
		batch, ok := loader.Next()
		if !ok {
			break
		}

		logits := model.Forward(batch.Images)
		logitsShape := logits.Shape()
		if len(logitsShape) != 2 || logitsShape[1] != len(classes) {
			return nil, fmt.Errorf("eval: expected logits [batch, %d], got %v", len(classes), logitsShape)
		}

		logitsData := logits.Raw().AsFloat32()
		labelsData := batch.Labels.Raw().AsInt32()

		imagesShape := batch.Images.Shape()
		pixelsPerSample := imagesShape[1] * imagesShape[2] * imagesShape[3]
		imagesData := batch.Images.Raw().AsFloat32()

		for i := 0; i < batch.Size; i++ {
			predicted := argmax(logitsData[i*len(classes) : (i+1)*len(classes)])
			label := int(labelsData[i])
			if label < 0 || label >= len(classes) {
				return nil, fmt.Errorf("eval: label %d out of range [0, %d)", label, len(classes))
			}

			report.Samples++
			report.PerClass[label].Total++
			if predicted == label {
				report.Correct++
				report.PerClass[label].Correct++
				continue
			}

			if cfg.ShowWrongs && len(report.Wrongs) < cfg.NWrongs {
				sample := imagesData[i*pixelsPerSample : (i+1)*pixelsPerSample]
				key := hashPixels(sample)
				if seenWrongs[key] {
					continue
				}
				seenWrongs[key] = true

				height, width := imagesShape[2], imagesShape[3]
				firstChannel := make([]float32, height*width)
				copy(firstChannel, sample[:height*width])
				report.Wrongs = append(report.Wrongs, Wrong{
					Label:     label,
					Predicted: predicted,
					Pixels:    firstChannel,
					Height:    height,
					Width:     width,
				})

				cfg.Logger.WithFields(logrus.Fields{
					"class":     classes.Name(label),
					"predicted": classes.Name(predicted),
				}).Info("misclassified sample\n" + renderASCII(firstChannel, height, width))
			}
		}
	}

	if report.Samples == 0 {
		return nil, fmt.Errorf("eval: loader yields no samples")
	}

	cfg.Logger.WithField("accuracy", fmt.Sprintf("%.2f%%", report.Accuracy())).Info("model accuracy")

	if cfg.ClassResults {
		for label := range classes {
			accuracy, err := report.ClassAccuracy(label)
			if err != nil {
				cfg.Logger.WithField("class", classes.Name(label)).Warn("no evaluation samples")
				continue
			}
			cfg.Logger.WithFields(logrus.Fields{
				"class":    classes.Name(label),
				"accuracy": fmt.Sprintf("%.2f%%", accuracy),
			}).Info("class accuracy")
		}
		if err := report.ClassErrors(); err != nil {
			return report, err
		}
	}

	return report, nil
}

// argmax returns the index of the maximum value in the slice.
func argmax(z []float32) int {
	maxIdx := 0
	maxVal := float32(math.Inf(-1))
	for i, v := range z {
		if v > maxVal {
			maxVal = v
			maxIdx = i
		}
	}
	return maxIdx
}

// hashPixels computes an FNV-1a content key for deduplicating captured
// samples across batches.
func hashPixels(pixels []float32) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, p := range pixels {
		bits := math.Float32bits(p)
		buf[0] = byte(bits)
		buf[1] = byte(bits >> 8)
		buf[2] = byte(bits >> 16)
		buf[3] = byte(bits >> 24)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
