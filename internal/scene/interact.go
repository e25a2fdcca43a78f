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
	"log/slog"

	"comicpanel/internal/vector"
)

// Pointer-level interaction. Screen coordinates go through the surface viewport so
// node placements always stay in logical units. Locked nodes may be selected for
// inspection; every geometry gesture on them fails with ErrLocked.

// Nodes returns copies of the current nodes, bottom to top.
func (a *Adapter) Nodes() []Node {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface == nil {
		return nil
	}
	out := make([]Node, len(a.surface.nodes))
	for i, n := range a.surface.nodes {
		out[i] = *n
	}
	return out
}

// NodeByTag returns a copy of the node rendering element id.
func (a *Adapter) NodeByTag(id string) (Node, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodeByTagLocked(id)
	if n == nil {
		return Node{}, false
	}
	return *n, true
}

// TagOf returns the element id a node renders.
func (a *Adapter) TagOf(id NodeID) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tag, ok := a.tags[id]
	return tag, ok
}

// Selected returns the element id of the current selection.
func (a *Adapter) Selected() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected, a.selected != ""
}

// Viewport returns the current logical-to-screen mapping.
func (a *Adapter) Viewport() vector.Viewport {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface == nil {
		return vector.DefaultViewport
	}
	return a.surface.viewport
}

// SurfaceSpec returns the spec of the mounted surface.
func (a *Adapter) SurfaceSpec() (SurfaceSpec, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface == nil {
		return SurfaceSpec{}, false
	}
	return a.surface.spec, true
}

// SetViewport changes zoom and pan. Node placements are unaffected.
func (a *Adapter) SetViewport(v vector.Viewport) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface == nil {
		return ErrNotMounted
	}
	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	a.surface.viewport = v
	return nil
}

// ZoomBy multiplies the zoom factor, clamped to [0.1, 8].
func (a *Adapter) ZoomBy(factor float64) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface == nil {
		return 0, ErrNotMounted
	}
	z := a.surface.viewport.Zoom * factor
	z = max(0.1, min(8, z))
	a.surface.viewport.Zoom = z
	return z, nil
}

// SelectAt selects the topmost node under a screen point. Hitting empty canvas
// clears the selection.
func (a *Adapter) SelectAt(screen vector.Pt) (NodeID, bool) {
	a.mu.Lock()
	if a.surface == nil {
		a.mu.Unlock()
		return 0, false
	}
	n := a.surface.topmostAt(a.surface.viewport.ToLogical(screen))
	if n == nil {
		had := a.selected != ""
		a.selected = ""
		lst := a.listener
		a.mu.Unlock()
		if had && lst != nil {
			lst.SelectionChanged(nil)
		}
		return 0, false
	}
	ev := a.selectLocked(n)
	lst := a.listener
	a.mu.Unlock()
	if lst != nil {
		lst.SelectionChanged(&ev)
	}
	return ev.Node, true
}

// Select selects a node by arena id.
func (a *Adapter) Select(id NodeID) error {
	a.mu.Lock()
	n, err := a.nodeLocked(id)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	ev := a.selectLocked(n)
	lst := a.listener
	a.mu.Unlock()
	if lst != nil {
		lst.SelectionChanged(&ev)
	}
	return nil
}

// ClearSelection drops the current selection, if any.
func (a *Adapter) ClearSelection() {
	a.mu.Lock()
	had := a.selected != ""
	a.selected = ""
	lst := a.listener
	a.mu.Unlock()
	if had && lst != nil {
		lst.SelectionChanged(nil)
	}
}

// Drag moves a node by a screen-space delta. With snapping enabled the node
// follows the pointer until one of its edges or its center comes close to the
// canvas or another node.
func (a *Adapter) Drag(id NodeID, dx, dy float64) error {
	return a.transform(id, false, func(n *Node, g *gesture, v vector.Viewport) {
		d := v.DeltaToLogical(vector.Pt{X: dx, Y: dy})
		g.raw.X += d.X
		g.raw.Y += d.Y
		n.Placement.Left, n.Placement.Top = g.raw.X, g.raw.Y
		a.guides = nil
		if a.snap == nil {
			return
		}
		b := n.Bounds()
		snapped, guides := vector.Snap(b, a.anchorsLocked(n.ID), *a.snap)
		n.Placement.Left += snapped.X - b.X
		n.Placement.Top += snapped.Y - b.Y
		a.guides = guides
	})
}

// Guides returns the snap guides of the drag in progress, in logical coordinates.
func (a *Adapter) Guides() []vector.GuideLine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]vector.GuideLine(nil), a.guides...)
}

func (a *Adapter) anchorsLocked(skip NodeID) []vector.Anchor {
	spec := a.surface.spec
	out := []vector.Anchor{{Rect: vector.R(0, 0, float64(spec.Width), float64(spec.Height)), Weight: 2}}
	for _, n := range a.surface.nodes {
		if n.ID != skip {
			out = append(out, vector.Anchor{Rect: n.Bounds(), Weight: 1})
		}
	}
	return out
}

// Resize sets the displayed size of an image node in logical units.
func (a *Adapter) Resize(id NodeID, w, h float64) error {
	return a.transform(id, true, func(n *Node, _ *gesture, _ vector.Viewport) {
		if n.Base.W > 0 {
			n.Placement.ScaleX = w / n.Base.W
		}
		if n.Base.H > 0 {
			n.Placement.ScaleY = h / n.Base.H
		}
	})
}

// Rotate sets the node angle in degrees.
func (a *Adapter) Rotate(id NodeID, deg float64) error {
	return a.transform(id, false, func(n *Node, _ *gesture, _ vector.Viewport) {
		n.Placement.Angle = vector.NormalizeAngle(deg)
	})
}

// RotateAroundCenter sets the node angle in degrees and moves its origin so the
// node turns about its center, the way a rotate handle feels.
func (a *Adapter) RotateAroundCenter(id NodeID, deg float64) error {
	return a.transform(id, false, func(n *Node, g *gesture, _ vector.Viewport) {
		n.Placement = n.Placement.RotatedAboutCenter(n.Base, vector.NormalizeAngle(deg))
		g.raw = vector.Pt{X: n.Placement.Left, Y: n.Placement.Top}
	})
}

// gesture tracks one node between its first change and EndTransform.
type gesture struct {
	start vector.Placement
	raw   vector.Pt // unsnapped position
}

func (a *Adapter) transform(id NodeID, scales bool, apply func(*Node, *gesture, vector.Viewport)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, err := a.nodeLocked(id)
	if err != nil {
		return err
	}
	if !n.Selectable {
		return ErrLocked
	}
	if scales && n.IsText() {
		return ErrNotScalable
	}
	g, started := a.gestures[id]
	if !started {
		g = &gesture{start: n.Placement, raw: vector.Pt{X: n.Placement.Left, Y: n.Placement.Top}}
		a.gestures[id] = g
	}
	apply(n, g, a.surface.viewport)
	return nil
}

// EndTransform finishes the gesture on a node and reports the final placement
// if anything changed.
func (a *Adapter) EndTransform(id NodeID) error {
	a.mu.Lock()
	n, err := a.nodeLocked(id)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	g, started := a.gestures[id]
	delete(a.gestures, id)
	a.guides = nil
	if !started || g.start == n.Placement || !n.Selectable {
		a.mu.Unlock()
		return nil
	}
	ev := a.eventLocked(n)
	lst := a.listener
	a.mu.Unlock()
	a.log.Debug("transform completed", slog.String("id", ev.Tag))
	if lst != nil {
		lst.TransformCompleted(ev)
	}
	return nil
}

func (a *Adapter) nodeLocked(id NodeID) (*Node, error) {
	if a.surface == nil {
		return nil, ErrNotMounted
	}
	if n := a.surface.find(id); n != nil {
		return n, nil
	}
	return nil, ErrNoNode
}

func (a *Adapter) nodeByTagLocked(tag string) *Node {
	if a.surface == nil {
		return nil
	}
	id, ok := a.byTag[tag]
	if !ok {
		return nil
	}
	return a.surface.find(id)
}

func (a *Adapter) selectLocked(n *Node) NodeEvent {
	ev := a.eventLocked(n)
	a.selected = ev.Tag
	return ev
}

func (a *Adapter) eventLocked(n *Node) NodeEvent {
	return NodeEvent{
		Node:       n.ID,
		Tag:        a.tags[n.ID],
		Kind:       n.Kind,
		Placement:  n.Placement,
		Base:       n.Base,
		Selectable: n.Selectable,
	}
}
