/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package scene is the retained-mode side of the canvas: it owns the rendering
// surface, turns elements into nodes and reports user interaction.
//
// Every Render is a synchronization pass that clears the surface and rebuilds it
// from the given list. Image nodes appear when their asynchronous load finishes;
// a finished load only materializes if its pass is still the newest one, the
// surface it was started for is still mounted and its element is still listed.
package scene

import (
	"context"
	"log/slog"
	"sync"

	"comicpanel/internal/domain"
	applog "comicpanel/internal/log"
	"comicpanel/internal/vector"
)

// Options configures an Adapter.
type Options struct {
	Loader    Loader
	TextStyle TextStyle
	Logger    *slog.Logger
	// Changed, if set, is called with no locks held whenever an async load adds a node.
	Changed func()
	// Failed, if set, is called with no locks held when an image of the current
	// pass could not be loaded.
	Failed func(id string, err error)
	// Snap, if set, enables snapping while dragging.
	Snap *vector.SnapOptions
}

// Adapter owns one rendering surface at a time.
// All exported methods are safe for concurrent use.
type Adapter struct {
	loader  Loader
	style   TextStyle
	log     *slog.Logger
	changed func()
	failed  func(id string, err error)
	snap    *vector.SnapOptions

	mu       sync.Mutex
	listener Listener
	surface  *Surface
	ctx      context.Context // mount scope for loads
	cancel   context.CancelFunc
	pass     uint64
	listed   map[string]struct{} // element ids of the current pass
	refs     map[string]struct{} // image refs of the current pass
	resolved map[string]Bitmap // ref -> bitmap, valid for the current mount

	nextID NodeID
	tags   map[NodeID]string
	byTag  map[string]NodeID

	selected string // element id, "" for none
	gestures map[NodeID]*gesture
	guides   []vector.GuideLine

	pending int
	idle    chan struct{} // closed whenever pending drops to zero
}

// New creates an unmounted adapter.
func New(opts Options) *Adapter {
	st := opts.TextStyle
	if st.Size <= 0 {
		st = DefaultTextStyle
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("scene")
	}
	idle := make(chan struct{})
	close(idle)
	return &Adapter{
		loader:   opts.Loader,
		style:    st,
		log:      l,
		changed:  opts.Changed,
		failed:   opts.Failed,
		snap:     opts.Snap,
		listed:   map[string]struct{}{},
		refs:     map[string]struct{}{},
		resolved: map[string]Bitmap{},
		tags:     map[NodeID]string{},
		byTag:    map[string]NodeID{},
		gestures: map[NodeID]*gesture{},
		idle:     idle,
	}
}

// SetListener installs the receiver of interaction events.
func (a *Adapter) SetListener(l Listener) {
	a.mu.Lock()
	a.listener = l
	a.mu.Unlock()
}

// Mount acquires a fresh surface. An already mounted surface is disposed first,
// together with its pending loads.
func (a *Adapter) Mount(ctx context.Context, spec SurfaceSpec) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface != nil {
		a.disposeLocked()
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.surface = newSurface(spec)
	a.pass++
	a.log.Debug("surface mounted", slog.Int("w", spec.Width), slog.Int("h", spec.Height))
	return nil
}

// Unmount releases the surface. Loads still in flight can no longer touch it.
func (a *Adapter) Unmount() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface == nil {
		return
	}
	a.disposeLocked()
	a.log.Debug("surface unmounted")
}

func (a *Adapter) disposeLocked() {
	a.cancel()
	a.surface.dispose()
	a.surface = nil
	a.pass++
	a.listed = map[string]struct{}{}
	a.refs = map[string]struct{}{}
	a.resolved = map[string]Bitmap{}
	a.tags = map[NodeID]string{}
	a.byTag = map[string]NodeID{}
	a.gestures = map[NodeID]*gesture{}
	a.guides = nil
	a.selected = ""
}

// Mounted reports whether a surface is currently acquired.
func (a *Adapter) Mounted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.surface != nil
}

type loadJob struct {
	el    domain.Element
	order int
}

// Render replaces the surface content with nodes for list. A list that violates the
// element contract is rejected and leaves the surface untouched.
func (a *Adapter) Render(list []domain.Element) error {
	if err := domain.Validate(list); err != nil {
		return err
	}
	a.mu.Lock()
	s := a.surface
	if s == nil {
		a.mu.Unlock()
		return ErrNotMounted
	}
	a.pass++
	pass := a.pass
	s.clear()
	a.tags = map[NodeID]string{}
	a.byTag = map[string]NodeID{}
	a.gestures = map[NodeID]*gesture{}
	a.guides = nil
	a.listed = make(map[string]struct{}, len(list))
	a.refs = make(map[string]struct{}, len(list))
	for _, e := range list {
		a.listed[e.ID] = struct{}{}
		if e.Kind.IsImage() {
			a.refs[e.Content] = struct{}{}
		}
	}
	for ref := range a.resolved {
		if _, ok := a.refs[ref]; !ok {
			delete(a.resolved, ref)
		}
	}

	var jobs []loadJob
	for order, i := range domain.DrawOrder(list) {
		e := list[i]
		switch {
		case e.IsText():
			a.placeLocked(a.textNode(e, order), e.ID)
		case e.Content == "":
			a.log.Debug("image content not resolved yet", slog.String("id", e.ID))
		default:
			if bm, ok := a.resolved[e.Content]; ok {
				a.placeLocked(imageNode(e, bm, order), e.ID)
				continue
			}
			jobs = append(jobs, loadJob{el: e, order: order})
		}
	}

	var cleared bool
	if a.selected != "" {
		if _, ok := a.listed[a.selected]; !ok {
			a.selected = ""
			cleared = true
		}
	}
	lst := a.listener
	ctx := a.ctx
	a.addPendingLocked(len(jobs))
	a.mu.Unlock()

	a.log.Debug("render pass", slog.Uint64("pass", pass), slog.Int("elements", len(list)), slog.Int("loads", len(jobs)))
	for _, j := range jobs {
		go a.load(ctx, s, pass, j)
	}
	if cleared && lst != nil {
		lst.SelectionChanged(nil)
	}
	return nil
}

// load runs one image fetch. In-flight loads are not cancelled by newer passes,
// only by unmount; the asset loader shares them between passes asking for the same ref.
func (a *Adapter) load(ctx context.Context, s *Surface, pass uint64, j loadJob) {
	// callbacks run before the load counts as settled
	defer func() {
		a.mu.Lock()
		a.addPendingLocked(-1)
		a.mu.Unlock()
	}()
	var bm Bitmap
	var err error
	if a.loader == nil {
		err = ErrEmptyImage
	} else {
		bm, err = a.loader.Load(ctx, j.el.Content)
	}
	if err == nil && (bm.Width <= 0 || bm.Height <= 0) {
		err = ErrEmptyImage
	}
	placed, failed := a.attach(ctx, s, pass, j, bm, err)
	switch {
	case placed && a.changed != nil:
		a.changed()
	case failed && a.failed != nil:
		a.failed(j.el.ID, err)
	}
}

// attach applies a finished load. placed reports a new node; failed reports a
// load error that still concerns the current pass.
func (a *Adapter) attach(ctx context.Context, s *Surface, pass uint64, j loadJob, bm Bitmap, err error) (placed, failed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	l := a.log.With(slog.String("id", j.el.ID), slog.Uint64("pass", pass))
	if err != nil {
		if ctx.Err() != nil {
			l.Debug("load cancelled", slog.Any("err", err))
			return false, false
		}
		l.Warn("image load failed", slog.String("ref", j.el.Content), slog.Any("err", err))
		return false, a.surface == s && pass == a.pass
	}
	if a.surface != s || s.disposed {
		l.Debug("load discarded: surface gone")
		return false, false
	}
	if _, wanted := a.refs[j.el.Content]; wanted {
		a.resolved[j.el.Content] = bm
	}
	if pass != a.pass {
		l.Debug("load discarded: stale pass", slog.Uint64("current", a.pass))
		return false, false
	}
	if _, ok := a.listed[j.el.ID]; !ok {
		l.Debug("load discarded: element removed")
		return false, false
	}
	a.placeLocked(imageNode(j.el, bm, j.order), j.el.ID)
	return true, false
}

func (a *Adapter) addPendingLocked(delta int) {
	if delta == 0 {
		return
	}
	if a.pending == 0 && delta > 0 {
		a.idle = make(chan struct{})
	}
	a.pending += delta
	if a.pending == 0 {
		close(a.idle)
	}
}

// Settle blocks until every started load has finished or ctx is done.
func (a *Adapter) Settle(ctx context.Context) error {
	for {
		a.mu.Lock()
		if a.pending == 0 {
			a.mu.Unlock()
			return nil
		}
		idle := a.idle
		a.mu.Unlock()
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// placeLocked assigns an arena id, inserts n and records its element tag.
func (a *Adapter) placeLocked(n *Node, tag string) {
	a.nextID++
	n.ID = a.nextID
	a.surface.insert(n)
	a.tags[n.ID] = tag
	a.byTag[tag] = n.ID
}

func (a *Adapter) textNode(e domain.Element, order int) *Node {
	return &Node{
		Kind:       e.Kind,
		Placement:  vector.Placement{Left: e.X, Top: e.Y, ScaleX: 1, ScaleY: 1, Angle: e.Rotation},
		Base:       MeasureText(e.Content, a.style),
		Selectable: !e.Locked,
		ZIndex:     e.ZIndex,
		Text:       e.Content,
		Style:      a.style,
		order:      order,
	}
}

// imageNode scales the natural bitmap so the declared width and height are what shows.
func imageNode(e domain.Element, bm Bitmap, order int) *Node {
	return &Node{
		Kind: e.Kind,
		Placement: vector.Placement{
			Left:   e.X,
			Top:    e.Y,
			ScaleX: e.Width / float64(bm.Width),
			ScaleY: e.Height / float64(bm.Height),
			Angle:  e.Rotation,
		},
		Base:       vector.Size{W: float64(bm.Width), H: float64(bm.Height)},
		Selectable: !e.Locked,
		ZIndex:     e.ZIndex,
		Image:      bm.Image,
		order:      order,
	}
}
