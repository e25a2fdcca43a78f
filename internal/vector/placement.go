/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Placement is the decomposed transform of a scene node: the origin is the node's
// top-left corner, rotation turns around that origin and scale applies in the
// node's local (unrotated) frame.
type Placement struct {
	Left, Top      float64
	ScaleX, ScaleY float64
	Angle          float64 // degrees, clockwise on screen (y grows downwards)
}

// At returns an unscaled, unrotated placement at (x, y).
func At(x, y float64) Placement { return Placement{Left: x, Top: y, ScaleX: 1, ScaleY: 1} }

// Matrix composes translate·rotate·scale.
func (p Placement) Matrix() Affine2D {
	return Translate(p.Left, p.Top).Mul(Rotate(Deg2Rad(p.Angle))).Mul(Scale(p.ScaleX, p.ScaleY))
}

// Bounds returns the axis-aligned bounds of a base-size box placed by p.
func (p Placement) Bounds(base Size) Rect {
	return p.Matrix().TransformRect(R(0, 0, base.W, base.H))
}

// Contains reports whether q (same space as Left/Top) falls inside the placed box.
func (p Placement) Contains(base Size, q Pt) bool {
	inv, ok := p.Matrix().Invert()
	if !ok {
		return false
	}
	return R(0, 0, base.W, base.H).Contains(inv.Apply(q))
}

// Center returns the center of a base-size box placed by p.
func (p Placement) Center(base Size) Pt {
	return p.Matrix().Apply(Pt{X: base.W / 2, Y: base.H / 2})
}

// RotatedAboutCenter returns p turned to deg with Left/Top moved so the box
// center stays where it is.
func (p Placement) RotatedAboutCenter(base Size, deg float64) Placement {
	c := p.Center(base)
	q := p
	q.Angle = deg
	q.Left, q.Top = 0, 0
	off := q.Matrix().Apply(Pt{X: base.W / 2, Y: base.H / 2})
	q.Left, q.Top = c.X-off.X, c.Y-off.Y
	return q
}

// Effective returns the displayed size of a base-size box.
func (p Placement) Effective(base Size) Size {
	return Size{W: base.W * p.ScaleX, H: base.H * p.ScaleY}
}

// Round rounds every component to n decimal places.
func (p Placement) Round(places int) Placement {
	return Placement{
		Left:   FloatRound(p.Left, places),
		Top:    FloatRound(p.Top, places),
		ScaleX: FloatRound(p.ScaleX, places),
		ScaleY: FloatRound(p.ScaleY, places),
		Angle:  FloatRound(p.Angle, places),
	}
}

// NormalizeAngle maps degrees into [0, 360).
func NormalizeAngle(deg float64) float64 {
	for deg < 0 {
		deg += 360
	}
	for deg >= 360 {
		deg -= 360
	}
	return deg
}

// Viewport maps the logical composition space onto the screen: screen = pan + zoom·logical.
type Viewport struct {
	Zoom float64
	Pan  Pt
}

// DefaultViewport is the identity mapping.
var DefaultViewport = Viewport{Zoom: 1}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// Matrix returns the logical-to-screen transform.
func (v Viewport) Matrix() Affine2D {
	return Translate(v.Pan.X, v.Pan.Y).Mul(Scale(v.zoom(), v.zoom()))
}

// ToScreen maps a logical point to the screen.
func (v Viewport) ToScreen(p Pt) Pt { return v.Matrix().Apply(p) }

// ToLogical maps a screen point back to logical space.
func (v Viewport) ToLogical(p Pt) Pt {
	z := v.zoom()
	return Pt{X: (p.X - v.Pan.X) / z, Y: (p.Y - v.Pan.Y) / z}
}

// DeltaToLogical converts a screen displacement into logical units.
func (v Viewport) DeltaToLogical(d Pt) Pt {
	z := v.zoom()
	return Pt{X: d.X / z, Y: d.Y / z}
}
