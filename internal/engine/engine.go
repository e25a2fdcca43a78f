/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package engine keeps the authoritative element list and the scene in step.
// The host owns the list; the engine renders every new version and turns
// completed user edits into new versions that it hands back to the host.
package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"comicpanel/internal/domain"
	applog "comicpanel/internal/log"
	"comicpanel/internal/scene"
)

// Host receives engine output. Calls happen without engine locks held, so a host
// may call SetElements from inside ElementsChanged.
type Host interface {
	ElementsChanged(list []domain.Element)
	SelectionChanged(el *domain.Element)
}

// GeometryHost is a Host that merges write-backs by element. The engine calls
// GeometryChanged in place of ElementsChanged; list is the engine's new version.
type GeometryHost interface {
	Host
	GeometryChanged(id string, g domain.Geometry, list []domain.Element)
}

// Options configures an Engine.
type Options struct {
	Logger *slog.Logger
}

// Engine drives one scene adapter.
type Engine struct {
	adapter *scene.Adapter
	host    Host
	log     *slog.Logger

	pass sync.Mutex // serializes SetElements so versions render in order

	mu        sync.Mutex
	list      []domain.Element
	version   uint64
	reflected bool // the scene shows list
	selected  string
}

// New wires an engine to adapter and installs itself as the adapter's listener.
func New(adapter *scene.Adapter, host Host, opts Options) *Engine {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("engine")
	}
	e := &Engine{adapter: adapter, host: host, log: l}
	adapter.SetListener(e)
	return e
}

// Mount acquires a surface and renders the current list on it.
func (e *Engine) Mount(ctx context.Context, spec scene.SurfaceSpec) error {
	e.pass.Lock()
	defer e.pass.Unlock()
	if err := e.adapter.Mount(ctx, spec); err != nil {
		return err
	}
	e.mu.Lock()
	list, v := e.list, e.version
	e.reflected = false
	e.mu.Unlock()
	return e.renderLocked(list, v)
}

// Unmount releases the surface. The list is kept for a later Mount.
func (e *Engine) Unmount() {
	e.pass.Lock()
	defer e.pass.Unlock()
	e.adapter.Unmount()
	e.mu.Lock()
	e.reflected = false
	e.selected = ""
	e.mu.Unlock()
}

// SetElements adopts list as the new authoritative version. A list equal to the
// one the scene already shows causes no pass.
func (e *Engine) SetElements(list []domain.Element) error {
	if err := domain.Validate(list); err != nil {
		e.log.Error("element list rejected", slog.Any("err", err))
		return err
	}
	e.pass.Lock()
	defer e.pass.Unlock()
	e.mu.Lock()
	if e.reflected && domain.Equal(e.list, list) {
		e.mu.Unlock()
		return nil
	}
	cp := slices.Clone(list)
	e.list = cp
	e.version++
	e.reflected = false
	v := e.version
	e.mu.Unlock()
	e.log.Debug("elements adopted", slog.Uint64("version", v), slog.Int("count", len(cp)))
	if !e.adapter.Mounted() {
		return nil
	}
	return e.renderLocked(cp, v)
}

// renderLocked runs a pass for version v; e.pass must be held.
func (e *Engine) renderLocked(list []domain.Element, v uint64) error {
	if err := e.adapter.Render(list); err != nil {
		return err
	}
	e.mu.Lock()
	if e.version == v {
		e.reflected = true
	}
	e.mu.Unlock()
	return nil
}

// Elements returns a copy of the current list.
func (e *Engine) Elements() []domain.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.list)
}

// Version increases with every adopted list.
func (e *Engine) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Selected returns the selected element, if any.
func (e *Engine) Selected() (domain.Element, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == "" {
		return domain.Element{}, false
	}
	return domain.Find(e.list, e.selected)
}

// Settle waits for the loads of the current pass.
func (e *Engine) Settle(ctx context.Context) error { return e.adapter.Settle(ctx) }

// Adapter exposes the scene adapter for pointer input.
func (e *Engine) Adapter() *scene.Adapter { return e.adapter }
