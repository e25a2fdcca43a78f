/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"comicpanel/internal/vector"
)

// MeasureText estimates the extent of a label using the fixed 7x13 face scaled to
// the style's point size. Real renderers may draw slightly tighter.
func MeasureText(text string, st TextStyle) vector.Size {
	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil()
	size := st.Size
	if size <= 0 {
		size = DefaultTextStyle.Size
	}
	k := size / float64(lineH)

	lines := strings.Split(text, "\n")
	maxW := 0
	for _, ln := range lines {
		if w := font.MeasureString(face, ln).Ceil(); w > maxW {
			maxW = w
		}
	}
	return vector.Size{W: float64(maxW) * k, H: float64(len(lines)*lineH) * k}
}
