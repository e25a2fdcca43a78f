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
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"comicpanel/internal/vector"
)

// SurfaceSpec describes the rendering surface to acquire on Mount.
type SurfaceSpec struct {
	Width, Height int
	Background    color.NRGBA
	Viewport      vector.Viewport
}

// DefaultSurfaceSpec is an 800x600 white canvas at 100% zoom.
var DefaultSurfaceSpec = SurfaceSpec{
	Width:      800,
	Height:     600,
	Background: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	Viewport:   vector.DefaultViewport,
}

// Surface is the retained node list plus its viewport. It is owned by one Adapter
// and only touched under the adapter's lock.
type Surface struct {
	spec     SurfaceSpec
	viewport vector.Viewport
	nodes    []*Node // bottom to top
	disposed bool
}

func newSurface(spec SurfaceSpec) *Surface {
	if spec.Viewport.Zoom <= 0 {
		spec.Viewport.Zoom = 1
	}
	return &Surface{spec: spec, viewport: spec.Viewport}
}

// insert places n by (zIndex, list order) so async completions land in the right layer.
func (s *Surface) insert(n *Node) {
	i := sort.Search(len(s.nodes), func(i int) bool {
		o := s.nodes[i]
		if o.ZIndex != n.ZIndex {
			return o.ZIndex > n.ZIndex
		}
		return o.order > n.order
	})
	s.nodes = append(s.nodes, nil)
	copy(s.nodes[i+1:], s.nodes[i:])
	s.nodes[i] = n
}

func (s *Surface) find(id NodeID) *Node {
	for _, n := range s.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// topmostAt returns the highest node under the logical point p.
func (s *Surface) topmostAt(p vector.Pt) *Node {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if s.nodes[i].Hit(p) {
			return s.nodes[i]
		}
	}
	return nil
}

func (s *Surface) clear() {
	for i := range s.nodes {
		s.nodes[i].Image = nil
		s.nodes[i] = nil
	}
	s.nodes = s.nodes[:0]
}

func (s *Surface) dispose() {
	s.clear()
	s.nodes = nil
	s.disposed = true
}

// ParseHexColor parses "#rgb", "#rrggbb" or "#rrggbbaa".
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
