// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, "label,pixel0,pixel1,pixel2,pixel3\n"+
		"1,0,255,128,0\n"+
		"0,255,0,0,255\n")

	data, err := LoadCSV(path, 2, 2, 2, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, data.NumSamples())
	assert.Equal(t, []int32{1, 0}, data.Labels)
	assert.InDelta(t, 1.0, data.Images[0][1], 1e-6)
	assert.InDelta(t, 128.0/255.0, data.Images[0][2], 1e-6)
	assert.Equal(t, 1, data.Channels)
}

func TestLoadCSV_MaxSamples(t *testing.T) {
	path := writeCSV(t, "label,p0\n0,1\n1,2\n0,3\n")

	data, err := LoadCSV(path, 1, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, data.NumSamples())
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		height, width int
	}{
		{"empty file", "", 1, 1},
		{"header only", "label,p0\n", 1, 1},
		{"short row", "label,p0\n1,0\n", 2, 2},
		{"bad label", "label,p0\nx,0\n", 1, 1},
		{"label out of range", "label,p0\n5,0\n", 1, 1},
		{"bad pixel", "label,p0\n0,abc\n", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, tt.content)
			_, err := LoadCSV(path, tt.height, tt.width, 2, 0)
			assert.Error(t, err)
		})
	}
}
