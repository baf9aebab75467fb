// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeIDXFiles writes a minimal IDX image/label pair into dir.
func writeIDXFiles(t *testing.T, dir string, train bool, images [][]byte, labels []byte, rows, cols int) {
	t.Helper()

	imageName, labelName := "t10k-images-idx3-ubyte", "t10k-labels-idx1-ubyte"
	if train {
		imageName, labelName = "train-images-idx3-ubyte", "train-labels-idx1-ubyte"
	}

	imgFile, err := os.Create(filepath.Join(dir, imageName))
	require.NoError(t, err)
	defer imgFile.Close()

	require.NoError(t, binary.Write(imgFile, binary.BigEndian, uint32(idxImagesMagic)))
	require.NoError(t, binary.Write(imgFile, binary.BigEndian, uint32(len(images))))
	require.NoError(t, binary.Write(imgFile, binary.BigEndian, uint32(rows)))
	require.NoError(t, binary.Write(imgFile, binary.BigEndian, uint32(cols)))
	for _, img := range images {
		_, err := imgFile.Write(img)
		require.NoError(t, err)
	}

	lblFile, err := os.Create(filepath.Join(dir, labelName))
	require.NoError(t, err)
	defer lblFile.Close()

	require.NoError(t, binary.Write(lblFile, binary.BigEndian, uint32(idxLabelsMagic)))
	require.NoError(t, binary.Write(lblFile, binary.BigEndian, uint32(len(labels))))
	_, err = lblFile.Write(labels)
	require.NoError(t, err)
}

func TestLoadIDX(t *testing.T) {
	dir := t.TempDir()
	images := [][]byte{
		{0, 128, 255, 64},
		{255, 255, 0, 0},
		{10, 20, 30, 40},
	}
	labels := []byte{7, 1, 4}
	writeIDXFiles(t, dir, false, images, labels, 2, 2)

	data, err := LoadIDX(dir, false, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, data.NumSamples())
	assert.Equal(t, 2, data.Height)
	assert.Equal(t, 2, data.Width)
	assert.Equal(t, 1, data.Channels)
	assert.Equal(t, []int32{7, 1, 4}, data.Labels)

	// Pixels are normalized to [0, 1].
	assert.InDelta(t, 0.0, data.Images[0][0], 1e-6)
	assert.InDelta(t, 128.0/255.0, data.Images[0][1], 1e-6)
	assert.InDelta(t, 1.0, data.Images[0][2], 1e-6)
}

func TestLoadIDX_MaxSamples(t *testing.T) {
	dir := t.TempDir()
	images := [][]byte{{1}, {2}, {3}, {4}}
	writeIDXFiles(t, dir, true, images, []byte{0, 1, 0, 1}, 1, 1)

	data, err := LoadIDX(dir, true, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, data.NumSamples())
	assert.Equal(t, []int32{0, 1}, data.Labels)
}

func TestLoadIDX_MissingFiles(t *testing.T) {
	_, err := LoadIDX(t.TempDir(), true, 0)
	assert.Error(t, err)
}

func TestReadIDXImages_BadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train-images-idx3-ubyte")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(file, binary.BigEndian, uint32(1234)))
	require.NoError(t, file.Close())

	_, _, _, err = readIDXImages(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid magic number")
}

func TestReadIDXImages_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgs")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(file, binary.BigEndian, uint32(idxImagesMagic)))
	require.NoError(t, binary.Write(file, binary.BigEndian, uint32(2))) // claims 2 images
	require.NoError(t, binary.Write(file, binary.BigEndian, uint32(2)))
	require.NoError(t, binary.Write(file, binary.BigEndian, uint32(2)))
	_, err = file.Write([]byte{1, 2, 3}) // not even one full image
	require.NoError(t, err)
	require.NoError(t, file.Close())

	_, _, _, err = readIDXImages(path)
	assert.Error(t, err)
}
