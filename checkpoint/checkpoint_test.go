// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vision/convnet"
	"github.com/born-ml/vision/dataset"
)

func newTestModel(t *testing.T, classes int) (*convnet.ConvNet[*autodiff.Backend[*cpu.Backend]], *autodiff.Backend[*cpu.Backend]) {
	t.Helper()
	backend := autodiff.New(cpu.New())
	model, err := convnet.New(convnet.DefaultConfig(12, 12, 1, classes), backend)
	require.NoError(t, err)
	return model, backend
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.born")
	classes := dataset.Classes{"a", "b", "c"}

	model, backend := newTestModel(t, 3)
	require.NoError(t, Save(path, model, classes))

	// A fresh model with different random weights converges to the saved
	// parameters after loading.
	restored, _ := newTestModel(t, 3)
	loaded, err := Load(path, backend, restored)
	require.NoError(t, err)
	assert.Equal(t, classes, loaded)

	input := tensor.Randn[float32](tensor.Shape{2, 1, 12, 12}, backend)
	want := model.Forward(input).Raw().AsFloat32()
	got := restored.Forward(input).Raw().AsFloat32()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6)
	}
}

func TestSave_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	model, _ := newTestModel(t, 2)
	require.NoError(t, Save(filepath.Join(dir, "model.born"), model, dataset.Digits()[:2]))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.born", entries[0].Name())
}

func TestSave_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.born")
	model, backend := newTestModel(t, 2)

	require.NoError(t, Save(path, model, dataset.Classes{"x", "y"}))
	require.NoError(t, Save(path, model, dataset.Classes{"x", "y"}))

	restored, _ := newTestModel(t, 2)
	_, err := Load(path, backend, restored)
	assert.NoError(t, err)
}

func TestLoad_ClassCountMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.born")

	// Saved with a class list that does not match the model's output width;
	// the mismatch must surface at load time.
	model, _ := newTestModel(t, 2)
	require.NoError(t, Save(path, model, dataset.Classes{"x", "y", "z"}))

	restored, backend := newTestModel(t, 2)
	_, err := Load(path, backend, restored)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classes")
}

func TestLoad_ArchitectureMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.born")

	model, _ := newTestModel(t, 2)
	require.NoError(t, Save(path, model, dataset.Classes{"x", "y"}))

	other, backend := newTestModel(t, 3)
	_, err := Load(path, backend, other)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	model, backend := newTestModel(t, 2)
	_, err := Load(filepath.Join(t.TempDir(), "nope.born"), backend, model)
	assert.Error(t, err)
}

func TestLoad_NoClassMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.born")

	model, backend := newTestModel(t, 2)
	require.NoError(t, Save(path, model, nil))

	restored, _ := newTestModel(t, 2)
	loaded, err := Load(path, backend, restored)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
