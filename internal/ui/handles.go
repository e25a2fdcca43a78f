/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"math"

	"comicpanel/internal/vector"
)

// dragMode represents the current interaction kind.
type dragMode int

const (
	dragNone dragMode = iota
	dragPan
	dragMove
	dragResize
	dragRotate
)

// handle geometry in screen pixels
const (
	handleSize   = 10.0
	rotateOffset = 24.0
)

// handleAt decides what a press at p (screen pixels) starts, given the screen
// bounds of the selected node. hit reports whether p lies on the node itself.
func handleAt(sel vector.Rect, hasSel bool, p vector.Pt, hit bool) dragMode {
	if hasSel {
		br := sel.Max()
		if math.Abs(p.X-br.X) <= handleSize && math.Abs(p.Y-br.Y) <= handleSize {
			return dragResize
		}
		rh := rotateHandle(sel)
		if math.Hypot(p.X-rh.X, p.Y-rh.Y) <= handleSize {
			return dragRotate
		}
	}
	if hit {
		return dragMove
	}
	return dragPan
}

// rotateHandle sits centered above the top edge.
func rotateHandle(sel vector.Rect) vector.Pt {
	return vector.Pt{X: sel.X + sel.W/2, Y: sel.Y - rotateOffset}
}

// angleTo returns the node angle that points its top edge at p, in degrees.
func angleTo(center, p vector.Pt) float64 {
	deg := math.Atan2(p.Y-center.Y, p.X-center.X)*180/math.Pi + 90
	return vector.NormalizeAngle(math.Round(deg))
}

// zoomFactor maps one wheel notch onto a zoom multiplier.
func zoomFactor(step, scrolled float64) float64 {
	if step <= 1 {
		step = 1.1
	}
	if scrolled < 0 {
		return 1 / step
	}
	return step
}
