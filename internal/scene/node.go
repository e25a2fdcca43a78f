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

	"comicpanel/internal/domain"
	"comicpanel/internal/vector"
)

// NodeID is the arena handle of a node. Handles are never reused within an adapter.
type NodeID uint64

// Node is the renderable counterpart of one element.
// Placement is in logical coordinates; the surface viewport maps it to the screen.
type Node struct {
	ID        NodeID
	Kind      domain.Kind
	Placement vector.Placement
	// Base is the unscaled size: natural pixel size for images, measured extent for text.
	Base       vector.Size
	Selectable bool
	ZIndex     int

	Text  string
	Style TextStyle
	Image image.Image

	order int // list position within the pass, breaks zIndex ties
}

// Bounds returns the axis-aligned logical bounds of the node.
func (n *Node) Bounds() vector.Rect { return n.Placement.Bounds(n.Base) }

// Hit reports whether the logical point p lies on the node.
func (n *Node) Hit(p vector.Pt) bool { return n.Placement.Contains(n.Base, p) }

// EffectiveSize is the displayed size in logical units.
func (n *Node) EffectiveSize() vector.Size { return n.Placement.Effective(n.Base) }

// IsText reports whether the node renders a text label.
func (n *Node) IsText() bool { return n.Kind == domain.KindTextLabel }

// TextStyle describes how text labels are drawn.
type TextStyle struct {
	Family string
	Size   float64
	Color  color.NRGBA
}

// DefaultTextStyle matches the classic comic lettering look.
var DefaultTextStyle = TextStyle{Family: "Comic Sans MS", Size: 16, Color: color.NRGBA{A: 255}}

// NodeEvent is the payload of interaction events. It is a snapshot: later
// changes to the node are not reflected.
type NodeEvent struct {
	Node       NodeID
	Tag        string // element id
	Kind       domain.Kind
	Placement  vector.Placement
	Base       vector.Size
	Selectable bool
}

// Listener receives user-driven scene events. Calls happen without adapter locks held,
// so implementations may call back into the adapter.
type Listener interface {
	// SelectionChanged reports the newly selected node, or nil when the selection is cleared.
	SelectionChanged(ev *NodeEvent)
	// TransformCompleted reports the final placement after a move, resize or rotate gesture.
	TransformCompleted(ev NodeEvent)
}
