// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint persists model parameters in Born's .born format.
//
// On top of the framework's nn.Save/nn.Load it adds two guarantees:
// writes are atomic (a temp file renamed into place, so a crash mid-write
// never corrupts an existing checkpoint), and the class list is stored in
// the file header so a class/output-count mismatch is caught at load time
// instead of surfacing as a silent misprediction.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/vision/dataset"
)

// classesKey is the header metadata key under which the class names are
// stored, comma-separated in label order.
const classesKey = "vision.classes"

// modelType is the model type recorded in the .born header.
const modelType = "ConvNet"

// Save writes the model's parameter state dictionary to path.
//
// The data is written to a temp file in the same directory and renamed into
// place, so an existing checkpoint at path survives a crash mid-write.
// The class names travel in the file header and are verified by Load.
func Save[B tensor.Backend](path string, model nn.Module[B], classes dataset.Classes) error {
	var metadata map[string]string
	if len(classes) > 0 {
		metadata = map[string]string{classesKey: strings.Join(classes, ",")}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: failed to close temp file: %w", err)
	}

	if err := nn.Save(model, tmpPath, modelType, metadata); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: failed to rename into place: %w", err)
	}
	return nil
}

// Load restores model parameters from the checkpoint at path.
//
// The model must be pre-constructed with the same architecture. The backend
// carries the already-resolved target device; no device branching happens
// here. Returns the class list stored at save time (nil if the file
// predates class metadata).
//
// If the model reports its class count (NumClasses() int), a mismatch with
// the stored class list is an error.
func Load[B tensor.Backend](path string, backend B, model nn.Module[B]) (dataset.Classes, error) {
	header, err := nn.Load(path, backend, model)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: failed to load %s: %w", path, err)
	}

	var classes dataset.Classes
	if joined, ok := header.Metadata[classesKey]; ok && joined != "" {
		classes = dataset.Classes(strings.Split(joined, ","))
	}

	if counter, ok := model.(interface{ NumClasses() int }); ok && classes != nil {
		if counter.NumClasses() != len(classes) {
			return nil, fmt.Errorf("checkpoint: %s stores %d classes but model outputs %d",
				path, len(classes), counter.NumClasses())
		}
	}
	return classes, nil
}
