/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package host is the page-level owner of the composition: it holds the element
// list, applies user commands to it and keeps the engine in step.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"comicpanel/internal/backend"
	"comicpanel/internal/domain"
	"comicpanel/internal/engine"
	applog "comicpanel/internal/log"
	"comicpanel/internal/telemetry"
)

var (
	ErrNoSelection      = errors.New("nothing selected")
	ErrNotFace          = errors.New("selected element is not a character face")
	ErrEmptyText        = errors.New("text is empty")
	ErrEmptyDescription = errors.New("description is empty")
	ErrNotGenerated     = errors.New("element kind is not generated")
	ErrNoGenerator      = errors.New("no generation backend configured")
)

// Generator produces image content. *backend.Client implements it.
type Generator interface {
	GenerateElement(ctx context.Context, req backend.ElementRequest) (backend.ElementResult, error)
	GenerateExpressions(ctx context.Context, req backend.ExpressionRequest) ([]backend.Expression, error)
}

// Options configures a Session.
type Options struct {
	ArtStyle         string
	CharacterDetails string
	Telemetry        *telemetry.Client
	Logger           *slog.Logger
	// OnChange, if set, is called after every new list version with no locks held.
	OnChange func(list []domain.Element, selected *domain.Element)
}

// Session implements engine.Host.
type Session struct {
	gen  Generator
	opts Options
	log  *slog.Logger

	// edit is held from reading the list until the engine has the next version,
	// so commands and write-backs never build on each other's stale copies.
	edit sync.Mutex

	mu       sync.Mutex
	eng      *engine.Engine
	list     []domain.Element
	selected string
}

var _ engine.GeometryHost = (*Session)(nil)

// NewSession creates a session with an empty composition.
func NewSession(gen Generator, opts Options) *Session {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("host")
	}
	return &Session{gen: gen, opts: opts, log: l}
}

// Attach connects the engine that renders this session and pushes the current list to it.
func (s *Session) Attach(eng *engine.Engine) error {
	s.edit.Lock()
	defer s.edit.Unlock()
	s.mu.Lock()
	s.eng = eng
	list := s.list
	s.mu.Unlock()
	return eng.SetElements(list)
}

// ElementsChanged adopts the geometry carried by list, element by element, into
// the session's own version and echoes the result. Which elements exist stays
// the session's decision: a list built before a concurrent add or delete cannot
// undo it.
func (s *Session) ElementsChanged(list []domain.Element) {
	s.writeBack(func(cur []domain.Element) {
		for _, el := range list {
			mergeGeometry(cur, el.ID, el.Geometry())
		}
	})
}

// GeometryChanged merges one write-back into the current list and echoes it.
func (s *Session) GeometryChanged(id string, g domain.Geometry, _ []domain.Element) {
	s.writeBack(func(cur []domain.Element) { mergeGeometry(cur, id, g) })
}

// mergeGeometry sets the geometry of element id unless it is gone or was locked meanwhile.
func mergeGeometry(list []domain.Element, id string, g domain.Geometry) {
	if i := domain.Index(list, id); i >= 0 && !list[i].Locked {
		list[i] = list[i].WithGeometry(g)
	}
}

func (s *Session) writeBack(merge func(cur []domain.Element)) {
	s.edit.Lock()
	s.mu.Lock()
	next := slices.Clone(s.list)
	merge(next)
	s.list = next
	eng := s.eng
	s.mu.Unlock()
	if eng != nil {
		if err := eng.SetElements(next); err != nil {
			s.log.Error("write-back rejected", slog.Any("err", err))
		}
	}
	s.edit.Unlock()
	s.notify()
}

// SelectionChanged records the current selection.
func (s *Session) SelectionChanged(el *domain.Element) {
	s.mu.Lock()
	s.selected = ""
	if el != nil {
		s.selected = el.ID
	}
	s.mu.Unlock()
	s.notify()
}

// Elements returns a copy of the current list.
func (s *Session) Elements() []domain.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.list)
}

// Selected returns the selected element.
func (s *Session) Selected() (domain.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Session) selectedLocked() (domain.Element, bool) {
	if s.selected == "" {
		return domain.Element{}, false
	}
	return domain.Find(s.list, s.selected)
}

// Replace swaps in a whole list, e.g. one read from a file.
func (s *Session) Replace(list []domain.Element) error {
	if err := domain.Validate(list); err != nil {
		return err
	}
	return s.commit(func([]domain.Element) ([]domain.Element, error) { return slices.Clone(list), nil })
}

// AddGenerated asks the backend for a new image layer and appends it.
func (s *Session) AddGenerated(ctx context.Context, kind domain.Kind, description string) (domain.Element, error) {
	if !kind.IsImage() {
		return domain.Element{}, fmt.Errorf("%w: %q", ErrNotGenerated, kind)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.Element{}, ErrEmptyDescription
	}
	if s.gen == nil {
		return domain.Element{}, ErrNoGenerator
	}
	req := backend.NewElementRequest(kind, description, s.opts.ArtStyle, s.opts.CharacterDetails)
	res, err := s.gen.GenerateElement(ctx, req)
	if err != nil {
		s.opts.Telemetry.Track(telemetry.GenerateFailed, map[string]any{"kind": string(kind)})
		return domain.Element{}, fmt.Errorf("generate %s: %w", kind, err)
	}
	el := domain.NewElement(kind, res.ImageURL)
	el.Description = description
	err = s.commit(func(list []domain.Element) ([]domain.Element, error) { return append(list, el), nil })
	if err != nil {
		return domain.Element{}, err
	}
	s.log.Info("element added", slog.String("id", el.ID), slog.String("kind", string(kind)))
	s.opts.Telemetry.Track(telemetry.ElementAdded, map[string]any{"kind": string(kind)})
	return el, nil
}

// AddText appends a text label.
func (s *Session) AddText(text string) (domain.Element, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Element{}, ErrEmptyText
	}
	el := domain.NewElement(domain.KindTextLabel, text)
	if err := s.commit(func(list []domain.Element) ([]domain.Element, error) { return append(list, el), nil }); err != nil {
		return domain.Element{}, err
	}
	s.opts.Telemetry.Track(telemetry.ElementAdded, map[string]any{"kind": string(domain.KindTextLabel)})
	return el, nil
}

// DeleteSelected removes the selected element.
func (s *Session) DeleteSelected() (domain.Element, error) {
	var removed domain.Element
	err := s.commitSelected(func(list []domain.Element, i int) ([]domain.Element, error) {
		removed = list[i]
		return slices.Delete(list, i, i+1), nil
	})
	if err != nil {
		return domain.Element{}, err
	}
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
	s.opts.Telemetry.Track(telemetry.ElementDeleted, map[string]any{"kind": string(removed.Kind)})
	return removed, nil
}

// ToggleLockSelected flips the lock flag of the selected element.
func (s *Session) ToggleLockSelected() (bool, error) {
	var locked bool
	err := s.commitSelected(func(list []domain.Element, i int) ([]domain.Element, error) {
		list[i].Locked = !list[i].Locked
		locked = list[i].Locked
		return list, nil
	})
	if err != nil {
		return false, err
	}
	s.opts.Telemetry.Track(telemetry.ElementLocked, map[string]any{"locked": locked})
	return locked, nil
}

// ChangeExpression swaps the image of the selected character face.
func (s *Session) ChangeExpression(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("%w: empty image reference", domain.ErrContract)
	}
	err := s.commitSelected(func(list []domain.Element, i int) ([]domain.Element, error) {
		if list[i].Kind != domain.KindCharacterFace {
			return nil, ErrNotFace
		}
		list[i].Content = ref
		return list, nil
	})
	if err == nil {
		s.opts.Telemetry.Track(telemetry.ExpressionChanged, nil)
	}
	return err
}

// GenerateExpressions requests expression variants for the selected face.
func (s *Session) GenerateExpressions(ctx context.Context) ([]backend.Expression, error) {
	el, ok := s.Selected()
	if !ok {
		return nil, ErrNoSelection
	}
	if el.Kind != domain.KindCharacterFace {
		return nil, ErrNotFace
	}
	if s.gen == nil {
		return nil, ErrNoGenerator
	}
	out, err := s.gen.GenerateExpressions(ctx, backend.ExpressionRequest{
		CharacterDetails: s.opts.CharacterDetails,
		ArtStyle:         s.opts.ArtStyle,
		BaseDescription:  el.Description,
	})
	if err != nil {
		s.opts.Telemetry.Track(telemetry.GenerateFailed, map[string]any{"kind": "expressions"})
		return nil, err
	}
	s.log.Info("expressions generated", slog.Int("count", len(out)))
	return out, nil
}

func (s *Session) commitSelected(edit func(list []domain.Element, i int) ([]domain.Element, error)) error {
	return s.commit(func(list []domain.Element) ([]domain.Element, error) {
		s.mu.Lock()
		id := s.selected
		s.mu.Unlock()
		i := domain.Index(list, id)
		if id == "" || i < 0 {
			return nil, ErrNoSelection
		}
		return edit(list, i)
	})
}

// commit builds the next version from a copy of the current list and hands it
// to the engine.
func (s *Session) commit(next func(list []domain.Element) ([]domain.Element, error)) error {
	s.edit.Lock()
	s.mu.Lock()
	cur := slices.Clone(s.list)
	s.mu.Unlock()
	list, err := next(cur)
	if err == nil {
		err = domain.Validate(list)
	}
	if err != nil {
		s.edit.Unlock()
		return err
	}
	s.mu.Lock()
	s.list = list
	eng := s.eng
	s.mu.Unlock()
	if eng != nil {
		err = eng.SetElements(list)
	}
	s.edit.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Session) notify() {
	if s.opts.OnChange == nil {
		return
	}
	s.mu.Lock()
	list := slices.Clone(s.list)
	var sel *domain.Element
	if el, ok := s.selectedLocked(); ok {
		sel = &el
	}
	s.mu.Unlock()
	s.opts.OnChange(list, sel)
}
