/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Snapping helpers for interactive moves. Deterministic and UI-agnostic.

import "math"

// SnapOptions controls which guide candidates are considered and the threshold.
type SnapOptions struct {
	// Threshold is the maximum distance, in the units of the rects, at which
	// snapping occurs. Zero selects 6.
	Threshold     float64
	SnapToEdges   bool
	SnapToCenters bool
}

// Anchor is a static reference rect such as the canvas or another node.
// Higher Weight wins ties; 0 counts as 1.
type Anchor struct {
	Rect   Rect
	Weight float64
}

type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// GuideLine is the visual feedback for one snapped axis. Position is the x of a
// vertical guide or the y of a horizontal one.
type GuideLine struct {
	Orientation Orientation
	Kind        string // "edge" or "center"
	Position    float64
	From, To    Pt
}

// Snap moves r onto the nearest anchor feature within the threshold, independently
// per axis, and returns the guides to draw.
func Snap(r Rect, anchors []Anchor, opts SnapOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	x := candidate{dist: math.Inf(1)}
	y := candidate{dist: math.Inf(1)}

	mL, mR, mT, mB := r.X, r.X+r.W, r.Y, r.Y+r.H
	mCX, mCY := r.X+r.W/2, r.Y+r.H/2
	for _, a := range anchors {
		aL, aR, aT, aB := a.Rect.X, a.Rect.X+a.Rect.W, a.Rect.Y, a.Rect.Y+a.Rect.H
		aCX, aCY := a.Rect.X+a.Rect.W/2, a.Rect.Y+a.Rect.H/2
		if opts.SnapToEdges {
			// same edges, then abutting edges
			x.consider(mL-aL, aL, a, opts.Threshold, "edge")
			x.consider(mR-aR, aR, a, opts.Threshold, "edge")
			x.consider(mL-aR, aR, a, opts.Threshold, "edge")
			x.consider(mR-aL, aL, a, opts.Threshold, "edge")
			y.consider(mT-aT, aT, a, opts.Threshold, "edge")
			y.consider(mB-aB, aB, a, opts.Threshold, "edge")
			y.consider(mT-aB, aB, a, opts.Threshold, "edge")
			y.consider(mB-aT, aT, a, opts.Threshold, "edge")
		}
		if opts.SnapToCenters {
			x.consider(mCX-aCX, aCX, a, opts.Threshold, "center")
			y.consider(mCY-aCY, aCY, a, opts.Threshold, "center")
		}
	}

	out := r
	var guides []GuideLine
	if x.found {
		out.X = FloatRound(r.X-x.delta, 3)
		pos := FloatRound(x.pos, 3)
		guides = append(guides, GuideLine{
			Orientation: Vertical, Kind: x.kind, Position: pos,
			From: Pt{pos, math.Min(out.Y, x.anchor.Y)},
			To:   Pt{pos, math.Max(out.Y+out.H, x.anchor.Y+x.anchor.H)},
		})
	}
	if y.found {
		out.Y = FloatRound(r.Y-y.delta, 3)
		pos := FloatRound(y.pos, 3)
		guides = append(guides, GuideLine{
			Orientation: Horizontal, Kind: y.kind, Position: pos,
			From: Pt{math.Min(out.X, y.anchor.X), pos},
			To:   Pt{math.Max(out.X+out.W, y.anchor.X+y.anchor.W), pos},
		})
	}
	return out, guides
}

type candidate struct {
	found  bool
	delta  float64
	dist   float64
	score  float64
	pos    float64
	kind   string
	anchor Rect
}

func (c *candidate) consider(delta, pos float64, a Anchor, threshold float64, kind string) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, a.Weight)
	if c.found && score >= c.score {
		return
	}
	*c = candidate{found: true, delta: delta, dist: dist, score: score, pos: pos, kind: kind, anchor: a.Rect}
}
