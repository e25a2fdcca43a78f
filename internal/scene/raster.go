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
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"comicpanel/internal/vector"
)

// placeholder stands in for image nodes that carry no pixels (headless loaders).
var placeholder = func() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	return img
}()

// Rasterize paints nodes bottom to top onto dst through the viewport.
func Rasterize(dst draw.Image, nodes []Node, background color.Color, vp vector.Viewport) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	for i := range nodes {
		n := &nodes[i]
		src := nodeImage(n)
		if src == nil {
			continue
		}
		sb := src.Bounds()
		if sb.Empty() || n.Base.W <= 0 || n.Base.H <= 0 {
			continue
		}
		// the source may be a preview or a glyph bitmap; stretch it onto the base size first
		fit := vector.Scale(n.Base.W/float64(sb.Dx()), n.Base.H/float64(sb.Dy())).Mul(vector.Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))
		m := vp.Matrix().Mul(n.Placement.Matrix()).Mul(fit)
		draw.BiLinear.Transform(dst, aff3(m), src, sb, draw.Over, nil)
	}
}

// Rasterize paints the mounted surface into a new w×h image.
func (a *Adapter) Rasterize(w, h int) (*image.RGBA, error) {
	spec, ok := a.SurfaceSpec()
	if !ok {
		return nil, ErrNotMounted
	}
	if w <= 0 || h <= 0 {
		w, h = spec.Width, spec.Height
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	Rasterize(dst, a.Nodes(), spec.Background, a.Viewport())
	return dst, nil
}

func aff3(m vector.Affine2D) f64.Aff3 {
	return f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
}

func nodeImage(n *Node) image.Image {
	switch {
	case n.IsText():
		return textImage(n.Text, n.Style.Color)
	case n.Image != nil:
		return n.Image
	default:
		return placeholder
	}
}

// textImage draws the label with the 7x13 face at its natural size; Rasterize
// scales it to the measured extent.
func textImage(text string, c color.NRGBA) image.Image {
	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil()
	lines := strings.Split(text, "\n")
	w := 0
	for _, ln := range lines {
		w = max(w, font.MeasureString(face, ln).Ceil())
	}
	if w == 0 {
		return nil
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, lineH*len(lines)))
	d := font.Drawer{Dst: img, Src: image.NewUniform(c), Face: face}
	for i, ln := range lines {
		d.Dot = fixed.P(0, i*lineH+face.Metrics().Ascent.Ceil())
		d.DrawString(ln)
	}
	return img
}
