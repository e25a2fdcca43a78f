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

import "github.com/google/uuid"

// Placement of freshly added elements, in logical units.
const (
	DefaultX = 100
	DefaultY = 100
)

// DefaultSize returns the initial width and height for a new element of kind k.
func DefaultSize(k Kind) (w, h float64) {
	switch k {
	case KindBackground:
		return 800, 600
	case KindCharacterBody:
		return 200, 300
	case KindTextLabel:
		return 200, 50
	default:
		return 150, 150
	}
}

// DefaultZIndex keeps backgrounds below characters and props, and labels on top.
func DefaultZIndex(k Kind) int {
	switch k {
	case KindBackground:
		return 0
	case KindTextLabel:
		return 100
	default:
		return 10
	}
}

// NewID returns a fresh element id prefixed with the kind, e.g. "prop-9f1c...".
func NewID(k Kind) string { return string(k) + "-" + uuid.NewString() }

// NewElement builds an unlocked element with default placement for kind k.
func NewElement(k Kind, content string) Element {
	w, h := DefaultSize(k)
	return Element{
		ID:      NewID(k),
		Kind:    k,
		Content: content,
		X:       DefaultX,
		Y:       DefaultY,
		Width:   w,
		Height:  h,
		ZIndex:  DefaultZIndex(k),
	}
}
