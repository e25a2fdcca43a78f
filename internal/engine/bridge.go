/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package engine

import (
	"log/slog"

	"comicpanel/internal/domain"
	"comicpanel/internal/scene"
	"comicpanel/internal/vector"
)

// decimals kept when writing node geometry back to elements
const writeBackPlaces = 6

// SelectionChanged maps a node selection onto the current list.
func (e *Engine) SelectionChanged(ev *scene.NodeEvent) {
	e.mu.Lock()
	var sel *domain.Element
	if ev != nil {
		if el, ok := domain.Find(e.list, ev.Tag); ok {
			sel = &el
		}
	}
	e.selected = ""
	if sel != nil {
		e.selected = sel.ID
	}
	e.mu.Unlock()
	if e.host != nil {
		e.host.SelectionChanged(sel)
	}
}

// TransformCompleted writes a finished move, resize or rotate back into a new list
// version and hands it to the host.
func (e *Engine) TransformCompleted(ev scene.NodeEvent) {
	e.mu.Lock()
	el, ok := domain.Find(e.list, ev.Tag)
	if !ok || el.Locked {
		e.mu.Unlock()
		e.log.Debug("transform ignored", slog.String("id", ev.Tag), slog.Bool("found", ok))
		return
	}
	g := GeometryFromNode(el, ev)
	next, changed := ApplyGeometry(e.list, el.ID, g)
	if !changed {
		e.mu.Unlock()
		return
	}
	e.list = next
	e.version++
	e.reflected = true
	v := e.version
	out := append([]domain.Element(nil), next...)
	e.mu.Unlock()

	e.log.Debug("geometry written back", slog.String("id", el.ID), slog.Uint64("version", v))
	switch h := e.host.(type) {
	case nil:
	case GeometryHost:
		h.GeometryChanged(el.ID, g, out)
	default:
		h.ElementsChanged(out)
	}
}

// GeometryFromNode reads element geometry off a node. Image size is the base size
// times the node scale; text labels keep their declared size.
func GeometryFromNode(el domain.Element, ev scene.NodeEvent) domain.Geometry {
	p := ev.Placement
	g := domain.Geometry{
		X:        vector.FloatRound(p.Left, writeBackPlaces),
		Y:        vector.FloatRound(p.Top, writeBackPlaces),
		Width:    el.Width,
		Height:   el.Height,
		Rotation: vector.FloatRound(p.Angle, writeBackPlaces),
	}
	if !el.IsText() {
		sz := p.Effective(ev.Base)
		g.Width = vector.FloatRound(sz.W, writeBackPlaces)
		g.Height = vector.FloatRound(sz.H, writeBackPlaces)
	}
	return g
}

// ApplyGeometry returns a new list in which element id carries g. Every other
// element is copied unchanged and in order. Missing or locked elements leave the
// list as is and report false.
func ApplyGeometry(list []domain.Element, id string, g domain.Geometry) ([]domain.Element, bool) {
	i := domain.Index(list, id)
	if i < 0 || list[i].Locked {
		return list, false
	}
	upd := list[i].WithGeometry(g)
	if upd == list[i] {
		return list, false
	}
	out := make([]domain.Element, len(list))
	copy(out, list)
	out[i] = upd
	return out, true
}
