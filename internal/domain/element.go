/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import "slices"

// This file defines the element model of a comic panel composition.
// An element is one serializable layer; the ordered list of elements is owned by the host
// and treated as immutable per version: every change produces a new slice.

// Kind discriminates what an element draws. It never changes after creation.
type Kind string

const (
	KindBackground    Kind = "background"
	KindCharacterBody Kind = "character-body"
	KindCharacterFace Kind = "character-face"
	KindProp          Kind = "prop"
	KindTextLabel     Kind = "text-label"
)

// Kinds lists every known kind in the order the asset library offers them.
var Kinds = []Kind{KindBackground, KindCharacterBody, KindCharacterFace, KindProp, KindTextLabel}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBackground, KindCharacterBody, KindCharacterFace, KindProp, KindTextLabel:
		return true
	}
	return false
}

// IsImage reports whether elements of this kind carry an image reference as content.
func (k Kind) IsImage() bool { return k.Valid() && k != KindTextLabel }

// Element is one layer of the composition. Geometry is expressed in the logical
// coordinate space of the composition, independent of on-screen zoom and pan.
type Element struct {
	ID       string  `json:"id"`
	Kind     Kind    `json:"kind"`
	Content  string  `json:"content"` // image ref (url, data uri, path) or literal text for text-label
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"` // degrees
	ZIndex   int     `json:"zIndex"`
	Locked   bool    `json:"locked"`

	Description string `json:"description,omitempty"`
	// LinkedElementID associates a face layer with a body layer. Carried only; nothing cascades on it.
	LinkedElementID string `json:"linkedElementId,omitempty"`
}

// Geometry is the mutable placement part of an element.
type Geometry struct {
	X, Y          float64
	Width, Height float64
	Rotation      float64
}

func (e Element) Geometry() Geometry {
	return Geometry{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height, Rotation: e.Rotation}
}

// WithGeometry returns a copy of e with the geometry fields replaced.
func (e Element) WithGeometry(g Geometry) Element {
	e.X, e.Y = g.X, g.Y
	e.Width, e.Height = g.Width, g.Height
	e.Rotation = g.Rotation
	return e
}

// IsText reports whether the element is a text label.
func (e Element) IsText() bool { return e.Kind == KindTextLabel }

// Index returns the position of the element with id in list, or -1.
func Index(list []Element, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the element with id.
func Find(list []Element, id string) (Element, bool) {
	if i := Index(list, id); i >= 0 {
		return list[i], true
	}
	return Element{}, false
}

// Equal reports whether two lists hold the same elements in the same order.
func Equal(a, b []Element) bool { return slices.Equal(a, b) }
