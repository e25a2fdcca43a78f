//go:build fyne && cgo

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
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"comicpanel/internal/scene"
	"comicpanel/internal/vector"
)

// SceneCanvas shows the adapter's surface and turns pointer input into scene gestures.
type SceneCanvas struct {
	widget.BaseWidget
	adapter  *scene.Adapter
	zoomStep float64
	OnError  func(err error)

	mu     sync.Mutex
	px     float64 // pixels per fyne unit, learned from the raster
	mode   dragMode
	active scene.NodeID
	size   vector.Size // logical size during a resize gesture
}

func NewSceneCanvas(a *scene.Adapter, zoomStep float64) *SceneCanvas {
	sc := &SceneCanvas{adapter: a, zoomStep: zoomStep, px: 1}
	sc.ExtendBaseWidget(sc)
	return sc
}

func (c *SceneCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	raster := canvas.NewRaster(c.paint)

	bbox := canvas.NewRectangle(color.RGBA{})
	bbox.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	bbox.StrokeWidth = 1
	bbox.Hide()
	handle := canvas.NewRectangle(color.RGBA{R: 0, G: 170, B: 255, A: 255})
	handle.Hide()
	rot := canvas.NewCircle(color.RGBA{R: 255, G: 170, B: 0, A: 255})
	rot.Hide()

	r := &sceneCanvasRenderer{
		sc:      c,
		objects: []fyne.CanvasObject{bg, raster, bbox, handle, rot},
		bg:      bg, raster: raster, bbox: bbox, handle: handle, rot: rot,
	}
	// one guide per axis at most
	for i := range r.guides {
		g := canvas.NewLine(color.RGBA{R: 255, G: 0, B: 160, A: 255})
		g.StrokeWidth = 1
		g.Hide()
		r.guides[i] = g
		r.objects = append(r.objects, g)
	}
	return r
}

func (c *SceneCanvas) MinSize() fyne.Size { return fyne.NewSize(400, 300) }

// paint renders the surface at raster pixel size.
func (c *SceneCanvas) paint(w, h int) image.Image {
	if sz := c.Size(); sz.Width > 0 {
		c.mu.Lock()
		c.px = float64(w) / float64(sz.Width)
		c.mu.Unlock()
	}
	img, err := c.adapter.Rasterize(w, h)
	if err != nil {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	return img
}

func (c *SceneCanvas) scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.px
}

func (c *SceneCanvas) toScreen(pos fyne.Position) vector.Pt {
	k := c.scale()
	return vector.Pt{X: float64(pos.X) * k, Y: float64(pos.Y) * k}
}

// selectedScreenBounds returns the selected node's bounds in raster pixels.
func (c *SceneCanvas) selectedScreenBounds() (scene.Node, vector.Rect, bool) {
	tag, ok := c.adapter.Selected()
	if !ok {
		return scene.Node{}, vector.Rect{}, false
	}
	n, ok := c.adapter.NodeByTag(tag)
	if !ok {
		return scene.Node{}, vector.Rect{}, false
	}
	return n, c.adapter.Viewport().Matrix().TransformRect(n.Bounds()), true
}

func (c *SceneCanvas) Tapped(e *fyne.PointEvent) {
	c.adapter.SelectAt(c.toScreen(e.Position))
	c.Refresh()
}

func (c *SceneCanvas) Dragged(e *fyne.DragEvent) {
	k := c.scale()
	d := vector.Pt{X: float64(e.Dragged.DX) * k, Y: float64(e.Dragged.DY) * k}
	p := c.toScreen(e.Position)

	c.mu.Lock()
	mode := c.mode
	c.mu.Unlock()
	if mode == dragNone {
		mode = c.begin(vector.Pt{X: p.X - d.X, Y: p.Y - d.Y})
	}

	var err error
	c.mu.Lock()
	id := c.active
	switch mode {
	case dragMove:
		c.mu.Unlock()
		err = c.adapter.Drag(id, d.X, d.Y)
	case dragResize:
		ld := c.adapter.Viewport().DeltaToLogical(d)
		c.size.W = max(1, c.size.W+ld.X)
		c.size.H = max(1, c.size.H+ld.Y)
		w, h := c.size.W, c.size.H
		c.mu.Unlock()
		err = c.adapter.Resize(id, w, h)
	case dragRotate:
		c.mu.Unlock()
		if _, b, ok := c.selectedScreenBounds(); ok {
			err = c.adapter.RotateAroundCenter(id, angleTo(vector.Pt{X: b.X + b.W/2, Y: b.Y + b.H/2}, p))
		}
	default:
		c.mu.Unlock()
		vp := c.adapter.Viewport()
		vp.Pan = vector.Pt{X: vp.Pan.X + d.X, Y: vp.Pan.Y + d.Y}
		err = c.adapter.SetViewport(vp)
	}
	if err != nil {
		c.mu.Lock()
		c.mode = dragPan // the rest of a rejected gesture pans
		c.mu.Unlock()
		if c.OnError != nil {
			c.OnError(err)
		}
	}
	c.Refresh()
}

// begin classifies a new drag from its start point.
func (c *SceneCanvas) begin(start vector.Pt) dragMode {
	n, b, hasSel := c.selectedScreenBounds()
	hit := hasSel && n.Hit(c.adapter.Viewport().ToLogical(start))
	mode := handleAt(b, hasSel, start, hit)
	if mode == dragPan {
		// pressing another node selects and moves it
		if id, ok := c.adapter.SelectAt(start); ok {
			if tag, ok := c.adapter.TagOf(id); ok {
				n, _ = c.adapter.NodeByTag(tag)
				mode = dragMove
			}
		}
	}
	c.mu.Lock()
	c.mode = mode
	c.active = n.ID
	c.size = n.EffectiveSize()
	c.mu.Unlock()
	return mode
}

func (c *SceneCanvas) DragEnd() {
	c.mu.Lock()
	id, mode := c.active, c.mode
	c.mode = dragNone
	c.active = 0
	c.mu.Unlock()
	if mode != dragNone && mode != dragPan {
		if err := c.adapter.EndTransform(id); err != nil && c.OnError != nil {
			c.OnError(err)
		}
	}
	c.Refresh()
}

func (c *SceneCanvas) Scrolled(e *fyne.ScrollEvent) {
	if _, err := c.adapter.ZoomBy(zoomFactor(c.zoomStep, float64(e.Scrolled.DY))); err == nil {
		c.Refresh()
	}
}

type sceneCanvasRenderer struct {
	sc      *SceneCanvas
	objects []fyne.CanvasObject
	bg      *canvas.Rectangle
	raster  *canvas.Raster
	bbox    *canvas.Rectangle
	handle  *canvas.Rectangle
	rot     *canvas.Circle
	guides  [2]*canvas.Line
}

func (r *sceneCanvasRenderer) Destroy()                     {}
func (r *sceneCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *sceneCanvasRenderer) MinSize() fyne.Size           { return r.sc.MinSize() }
func (r *sceneCanvasRenderer) Refresh() {
	r.Layout(r.sc.Size())
	r.raster.Refresh()
	canvas.Refresh(r.sc)
}

func (r *sceneCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.raster.Resize(size)
	r.raster.Move(fyne.NewPos(0, 0))
	r.layoutGuides()

	_, b, ok := r.sc.selectedScreenBounds()
	if !ok {
		r.bbox.Hide()
		r.handle.Hide()
		r.rot.Hide()
		return
	}
	k := float32(r.sc.scale())
	if k <= 0 {
		k = 1
	}
	x, y := float32(b.X)/k, float32(b.Y)/k
	w, h := float32(b.W)/k, float32(b.H)/k
	r.bbox.Move(fyne.NewPos(x, y))
	r.bbox.Resize(fyne.NewSize(w, h))
	r.bbox.Show()

	hs := float32(handleSize) / k
	r.handle.Move(fyne.NewPos(x+w-hs/2, y+h-hs/2))
	r.handle.Resize(fyne.NewSize(hs, hs))
	r.handle.Show()

	rh := rotateHandle(b)
	r.rot.Move(fyne.NewPos(float32(rh.X)/k-hs/2, float32(rh.Y)/k-hs/2))
	r.rot.Resize(fyne.NewSize(hs, hs))
	r.rot.Show()
}

func (r *sceneCanvasRenderer) layoutGuides() {
	k := float32(r.sc.scale())
	if k <= 0 {
		k = 1
	}
	vp := r.sc.adapter.Viewport()
	gs := r.sc.adapter.Guides()
	for i, line := range r.guides {
		if i >= len(gs) {
			line.Hide()
			continue
		}
		from, to := vp.ToScreen(gs[i].From), vp.ToScreen(gs[i].To)
		line.Position1 = fyne.NewPos(float32(from.X)/k, float32(from.Y)/k)
		line.Position2 = fyne.NewPos(float32(to.X)/k, float32(to.Y)/k)
		line.Show()
	}
}
