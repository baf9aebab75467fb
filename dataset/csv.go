// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// LoadCSV loads a dataset from a Kaggle-style CSV file.
//
// CSV format, one sample per row after a header row:
//
//	label,pixel0,pixel1,...,pixelN
//	5,0,0,12,...,0
//
// Parameters:
//   - filename: path to the CSV file
//   - height, width: image geometry (channels is 1 for this format)
//   - numClasses: labels must fall in [0, numClasses)
//   - maxSamples: maximum number of samples to load (0 = all)
//
// Pixels are normalized from 0-255 to [0, 1].
func LoadCSV(filename string, height, width, numClasses, maxSamples int) (*Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing header")
	}

	// Skip header row.
	records = records[1:]

	numSamples := len(records)
	if maxSamples > 0 && numSamples > maxSamples {
		numSamples = maxSamples
		records = records[:numSamples]
	}

	pixels := height * width
	images := make([][]float32, numSamples)
	labels := make([]int32, numSamples)

	for i, record := range records {
		if len(record) != pixels+1 {
			return nil, fmt.Errorf("invalid record length at row %d: got %d, want %d", i+1, len(record), pixels+1)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("invalid label at row %d: %w", i+1, err)
		}
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("label out of range [0, %d) at row %d: %d", numClasses, i+1, label)
		}
		labels[i] = int32(label)

		images[i] = make([]float32, pixels)
		for j := 0; j < pixels; j++ {
			pixel, err := strconv.Atoi(record[j+1])
			if err != nil {
				return nil, fmt.Errorf("invalid pixel at row %d, column %d: %w", i+1, j+1, err)
			}
			images[i][j] = float32(pixel) / 255.0
		}
	}

	return &Dataset{
		Images:   images,
		Labels:   labels,
		Height:   height,
		Width:    width,
		Channels: 1,
	}, nil
}
