// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClasses_Name(t *testing.T) {
	classes := Classes{"cat", "dog"}

	assert.Equal(t, "cat", classes.Name(0))
	assert.Equal(t, "dog", classes.Name(1))
	assert.Equal(t, "class(7)", classes.Name(7))
	assert.Equal(t, "class(-1)", classes.Name(-1))
}

func TestDigits(t *testing.T) {
	digits := Digits()
	require.Len(t, digits, 10)
	assert.Equal(t, "0", digits.Name(0))
	assert.Equal(t, "9", digits.Name(9))
}

func TestSynthetic(t *testing.T) {
	data := Synthetic(20, 12, 12, 1, 4)

	require.Equal(t, 20, data.NumSamples())
	assert.Equal(t, 144, data.PixelsPerImage())
	require.NoError(t, data.Validate(Classes{"a", "b", "c", "d"}))

	// Labels cycle through the classes.
	assert.Equal(t, int32(0), data.Labels[0])
	assert.Equal(t, int32(3), data.Labels[3])
	assert.Equal(t, int32(0), data.Labels[4])

	// Same class yields the same pattern, different classes differ.
	assert.Equal(t, data.Images[0], data.Images[4])
	assert.NotEqual(t, data.Images[0], data.Images[1])
}

func TestDataset_Split(t *testing.T) {
	data := Synthetic(10, 8, 8, 1, 2)

	trainData, valData := data.Split(0.2)
	assert.Equal(t, 8, trainData.NumSamples())
	assert.Equal(t, 2, valData.NumSamples())
	assert.Equal(t, data.Height, valData.Height)
	assert.Equal(t, data.Channels, valData.Channels)
}

func TestDataset_Validate(t *testing.T) {
	data := Synthetic(4, 8, 8, 1, 2)
	classes := Classes{"a", "b"}

	require.NoError(t, data.Validate(classes))

	t.Run("label out of range", func(t *testing.T) {
		bad := Synthetic(4, 8, 8, 1, 2)
		bad.Labels[2] = 9
		assert.Error(t, bad.Validate(classes))
	})

	t.Run("pixel count mismatch", func(t *testing.T) {
		bad := Synthetic(4, 8, 8, 1, 2)
		bad.Images[1] = bad.Images[1][:10]
		assert.Error(t, bad.Validate(classes))
	})

	t.Run("length mismatch", func(t *testing.T) {
		bad := Synthetic(4, 8, 8, 1, 2)
		bad.Labels = bad.Labels[:3]
		assert.Error(t, bad.Validate(classes))
	})
}
