/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRectContainsAndUnion(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	u := R(0, 0, 10, 10).Union(R(5, -5, 5, 10))
	if u.X != 0 || u.Y != -5 || u.W != 10 || u.H != 15 {
		t.Fatalf("unexpected union: %+v", u)
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
	inv, ok := m.Invert()
	if !ok {
		t.Fatalf("expected invertible")
	}
	if q := inv.Apply(p); !near(q.X, 1) || !near(q.Y, 1) {
		t.Fatalf("inverse mismatch: %+v", q)
	}
	if _, ok := Scale(0, 1).Invert(); ok {
		t.Fatalf("singular matrix reported invertible")
	}
}

func TestRotate180(t *testing.T) {
	p := Rotate(math.Pi).Apply(Pt{1, 0})
	if !near(p.X, -1) || math.Abs(p.Y) > 1e-12 {
		t.Fatalf("unexpected rotate result: %+v", p)
	}
}

func TestPlacement_BoundsScaleAndContains(t *testing.T) {
	// 1000x750 source shown at 200x150
	p := Placement{Left: 10, Top: 20, ScaleX: 0.2, ScaleY: 0.2}
	base := Size{W: 1000, H: 750}
	b := p.Bounds(base)
	if !near(b.X, 10) || !near(b.Y, 20) || !near(b.W, 200) || !near(b.H, 150) {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	if eff := p.Effective(base); !near(eff.W, 200) || !near(eff.H, 150) {
		t.Fatalf("unexpected effective size: %+v", eff)
	}
	if !p.Contains(base, Pt{100, 100}) || p.Contains(base, Pt{300, 100}) {
		t.Fatalf("contains mismatch")
	}
}

func TestPlacement_RotationAroundOrigin(t *testing.T) {
	p := Placement{Left: 100, Top: 100, ScaleX: 1, ScaleY: 1, Angle: 90}
	b := p.Bounds(Size{W: 40, H: 20})
	// rotated 90° clockwise around (100,100): occupies x in [80,100], y in [100,140]
	if !near(b.X, 80) || !near(b.Y, 100) || !near(b.W, 20) || !near(b.H, 40) {
		t.Fatalf("unexpected rotated bounds: %+v", b)
	}
}

func TestViewport_RoundTrip(t *testing.T) {
	v := Viewport{Zoom: 2, Pan: Pt{30, -10}}
	s := v.ToScreen(Pt{50, 75})
	if s.X != 130 || s.Y != 140 {
		t.Fatalf("unexpected screen point: %+v", s)
	}
	if l := v.ToLogical(s); l.X != 50 || l.Y != 75 {
		t.Fatalf("unexpected logical point: %+v", l)
	}
	if d := v.DeltaToLogical(Pt{100, 150}); d.X != 50 || d.Y != 75 {
		t.Fatalf("unexpected delta: %+v", d)
	}
	if d := (Viewport{}).DeltaToLogical(Pt{3, 4}); d.X != 3 || d.Y != 4 {
		t.Fatalf("zero zoom should behave as 1: %+v", d)
	}
}

func TestFloatRoundAndNormalizeAngle(t *testing.T) {
	if FloatRound(1.23456, 2) != 1.23 {
		t.Fatalf("float round fail")
	}
	if FloatRound(1.23456, -1) != 1.23456 {
		t.Fatalf("negative places should be no-op")
	}
	if NormalizeAngle(-90) != 270 || NormalizeAngle(720) != 0 {
		t.Fatalf("normalize angle fail")
	}
}

func TestPlacement_RotatedAboutCenterKeepsCenter(t *testing.T) {
	base := Size{W: 40, H: 20}
	p := At(0, 0).RotatedAboutCenter(base, 90)
	if !near(p.Left, 30) || !near(p.Top, -10) || p.Angle != 90 {
		t.Fatalf("placement = %+v", p)
	}
	if c := p.Center(base); !near(c.X, 20) || !near(c.Y, 10) {
		t.Fatalf("center moved to %+v", c)
	}
}
