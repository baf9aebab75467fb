// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package eval

import "strings"

// asciiRamp maps pixel intensity to characters, darkest to brightest.
const asciiRamp = " .:-=+*#%@"

// renderASCII draws a single-channel image as ASCII art, one text row per
// pixel row. Pixels are expected in [0, 1]; values outside are clamped.
func renderASCII(pixels []float32, height, width int) string {
	var b strings.Builder
	b.Grow((width + 1) * height)

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			v := pixels[row*width+col]
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			idx := int(v * float32(len(asciiRamp)-1))
			b.WriteByte(asciiRamp[idx])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
