/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"comicpanel/internal/backend"
	"comicpanel/internal/domain"
	"comicpanel/internal/engine"
	applog "comicpanel/internal/log"
	"comicpanel/internal/scene"
)

type fakeGen struct {
	fail  error
	reqs  []backend.ElementRequest
	exprs []backend.ExpressionRequest
}

func (f *fakeGen) GenerateElement(_ context.Context, req backend.ElementRequest) (backend.ElementResult, error) {
	f.reqs = append(f.reqs, req)
	if f.fail != nil {
		return backend.ElementResult{}, f.fail
	}
	return backend.ElementResult{ImageURL: "https://img.test/" + req.ElementType + ".png", ElementType: req.ElementType}, nil
}

func (f *fakeGen) GenerateExpressions(_ context.Context, req backend.ExpressionRequest) ([]backend.Expression, error) {
	f.exprs = append(f.exprs, req)
	return []backend.Expression{{Expression: "happy", ImageURL: "https://img.test/happy.png"}}, nil
}

func newSession(t *testing.T, gen Generator) (*Session, *engine.Engine) {
	t.Helper()
	ld := scene.LoaderFunc(func(context.Context, string) (scene.Bitmap, error) {
		return scene.Bitmap{Width: 100, Height: 100}, nil
	})
	a := scene.New(scene.Options{Loader: ld, Logger: applog.Nop()})
	s := NewSession(gen, Options{ArtStyle: "noir", Logger: applog.Nop()})
	eng := engine.New(a, s, engine.Options{Logger: applog.Nop()})
	if err := eng.Mount(context.Background(), scene.DefaultSurfaceSpec); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	t.Cleanup(eng.Unmount)
	if err := s.Attach(eng); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return s, eng
}

func settle(t *testing.T, eng *engine.Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := eng.Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
}

func selectTag(t *testing.T, eng *engine.Engine, tag string) {
	t.Helper()
	settle(t, eng)
	n, ok := eng.Adapter().NodeByTag(tag)
	if !ok {
		t.Fatalf("no node for %s", tag)
	}
	if err := eng.Adapter().Select(n.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
}

func TestAddGenerated_AppendsWithDefaults(t *testing.T) {
	gen := &fakeGen{}
	s, eng := newSession(t, gen)
	el, err := s.AddGenerated(context.Background(), domain.KindCharacterBody, "  a tall knight ")
	if err != nil {
		t.Fatalf("AddGenerated: %v", err)
	}
	if !strings.HasPrefix(el.ID, "character-body-") || el.Width != 200 || el.Height != 300 || el.ZIndex != 10 {
		t.Fatalf("element = %+v", el)
	}
	if el.Description != "a tall knight" || el.Content != "https://img.test/character_body.png" {
		t.Fatalf("element = %+v", el)
	}
	if gen.reqs[0].ArtStyle != "noir" || !gen.reqs[0].Transparent {
		t.Fatalf("request = %+v", gen.reqs[0])
	}
	if got := eng.Elements(); len(got) != 1 || got[0] != el {
		t.Fatalf("engine list = %+v", got)
	}
	settle(t, eng)
	if _, ok := eng.Adapter().NodeByTag(el.ID); !ok {
		t.Fatalf("new element not rendered")
	}
}

func TestAddGenerated_Errors(t *testing.T) {
	gen := &fakeGen{fail: backend.ErrRateLimited}
	s, _ := newSession(t, gen)
	if _, err := s.AddGenerated(context.Background(), domain.KindProp, "hat"); !errors.Is(err, backend.ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if _, err := s.AddGenerated(context.Background(), domain.KindProp, " "); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("expected empty description error, got %v", err)
	}
	if _, err := s.AddGenerated(context.Background(), domain.KindTextLabel, "x"); !errors.Is(err, ErrNotGenerated) {
		t.Fatalf("expected not generated, got %v", err)
	}
	if len(s.Elements()) != 0 {
		t.Fatalf("failed generation changed the list")
	}
	noGen := NewSession(nil, Options{Logger: applog.Nop()})
	if _, err := noGen.AddGenerated(context.Background(), domain.KindProp, "hat"); !errors.Is(err, ErrNoGenerator) {
		t.Fatalf("expected ErrNoGenerator, got %v", err)
	}
}

func TestAddText(t *testing.T) {
	s, _ := newSession(t, nil)
	if _, err := s.AddText("  "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	el, err := s.AddText("BAM!")
	if err != nil || el.Kind != domain.KindTextLabel || el.ZIndex != 100 || el.Content != "BAM!" {
		t.Fatalf("AddText = %+v %v", el, err)
	}
}

func TestDeleteAndLockSelected(t *testing.T) {
	s, eng := newSession(t, &fakeGen{})
	bg, _ := s.AddGenerated(context.Background(), domain.KindBackground, "city")
	txt, _ := s.AddText("Hi")

	if _, err := s.DeleteSelected(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	selectTag(t, eng, bg.ID)
	if sel, ok := s.Selected(); !ok || sel.ID != bg.ID {
		t.Fatalf("selection not tracked: %+v", sel)
	}
	locked, err := s.ToggleLockSelected()
	if err != nil || !locked {
		t.Fatalf("ToggleLockSelected = %v %v", locked, err)
	}
	n, _ := eng.Adapter().NodeByTag(bg.ID)
	if n.Selectable {
		t.Fatalf("locked background still selectable")
	}

	selectTag(t, eng, txt.ID)
	removed, err := s.DeleteSelected()
	if err != nil || removed.ID != txt.ID {
		t.Fatalf("DeleteSelected = %+v %v", removed, err)
	}
	if got := s.Elements(); len(got) != 1 || got[0].ID != bg.ID {
		t.Fatalf("list after delete = %+v", got)
	}
	if _, ok := s.Selected(); ok {
		t.Fatalf("selection survived delete")
	}
	if _, ok := eng.Adapter().NodeByTag(txt.ID); ok {
		t.Fatalf("deleted element still rendered")
	}
}

func TestExpressions(t *testing.T) {
	gen := &fakeGen{}
	s, eng := newSession(t, gen)
	prop, _ := s.AddGenerated(context.Background(), domain.KindProp, "hat")
	face, _ := s.AddGenerated(context.Background(), domain.KindCharacterFace, "grumpy wizard")

	selectTag(t, eng, prop.ID)
	if err := s.ChangeExpression("https://img.test/x.png"); !errors.Is(err, ErrNotFace) {
		t.Fatalf("expected ErrNotFace, got %v", err)
	}
	if _, err := s.GenerateExpressions(context.Background()); !errors.Is(err, ErrNotFace) {
		t.Fatalf("expected ErrNotFace, got %v", err)
	}

	selectTag(t, eng, face.ID)
	exprs, err := s.GenerateExpressions(context.Background())
	if err != nil || len(exprs) != 1 {
		t.Fatalf("GenerateExpressions = %+v %v", exprs, err)
	}
	if gen.exprs[0].BaseDescription != "grumpy wizard" {
		t.Fatalf("request = %+v", gen.exprs[0])
	}
	if err := s.ChangeExpression(exprs[0].ImageURL); err != nil {
		t.Fatalf("ChangeExpression: %v", err)
	}
	got, _ := domain.Find(eng.Elements(), face.ID)
	if got.Content != "https://img.test/happy.png" || got.X != face.X {
		t.Fatalf("face after change = %+v", got)
	}
}

func TestWriteBackReachesSession(t *testing.T) {
	var changes int
	s, eng := newSession(t, &fakeGen{})
	s.opts.OnChange = func([]domain.Element, *domain.Element) { changes++ }
	bg, _ := s.AddGenerated(context.Background(), domain.KindBackground, "street")
	settle(t, eng)
	a := eng.Adapter()
	n, _ := a.NodeByTag(bg.ID)
	_ = a.Drag(n.ID, -50, 25)
	_ = a.EndTransform(n.ID)

	got, _ := domain.Find(s.Elements(), bg.ID)
	if got.X != 50 || got.Y != 125 {
		t.Fatalf("session did not adopt write-back: %+v", got)
	}
	if eng.Version() != 2 {
		t.Fatalf("echo caused an extra version: %d", eng.Version())
	}
	if changes < 2 {
		t.Fatalf("OnChange not called: %d", changes)
	}
}

func TestReplace_RejectsInvalid(t *testing.T) {
	s, eng := newSession(t, nil)
	err := s.Replace([]domain.Element{{ID: "a", Kind: domain.KindProp}, {ID: "a", Kind: domain.KindProp}})
	if !errors.Is(err, domain.ErrContract) {
		t.Fatalf("expected contract error, got %v", err)
	}
	if err := s.Replace([]domain.Element{{ID: "a", Kind: domain.KindProp, Content: "u", Width: 10, Height: 10}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if len(eng.Elements()) != 1 {
		t.Fatalf("engine not updated")
	}
}


// trySelect selects the node of tag, retrying while concurrent passes rebuild the scene.
func trySelect(a *scene.Adapter, tag string) error {
	for i := 0; i < 1000; i++ {
		n, ok := a.NodeByTag(tag)
		if ok && a.Select(n.ID) == nil {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return fmt.Errorf("could not select %s", tag)
}

func TestConcurrentEditsAndWriteBacks_NoLostUpdates(t *testing.T) {
	s, eng := newSession(t, &fakeGen{})
	bg, err := s.AddGenerated(context.Background(), domain.KindBackground, "city")
	if err != nil {
		t.Fatalf("AddGenerated: %v", err)
	}
	settle(t, eng)
	a := eng.Adapter()
	const rounds = 300

	var wg sync.WaitGroup
	var lastX float64
	var moved int
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= rounds; i++ {
			n, ok := a.NodeByTag(bg.ID)
			if !ok {
				continue
			}
			target := float64(1000 + i)
			if a.Drag(n.ID, target-n.Placement.Left, 0) != nil {
				continue
			}
			if a.EndTransform(n.ID) == nil {
				lastX = target
				moved++
			}
		}
	}()

	want := map[string]bool{bg.ID: false} // id -> locked
	var editErr error
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			el, err := s.AddText(fmt.Sprintf("t%d", i))
			if err != nil {
				editErr = err
				return
			}
			want[el.ID] = false
			switch i % 4 {
			case 1:
				if err := trySelect(a, el.ID); err != nil {
					editErr = err
					return
				}
				locked, err := s.ToggleLockSelected()
				if err != nil || !locked {
					editErr = fmt.Errorf("lock %s: %v %v", el.ID, locked, err)
					return
				}
				want[el.ID] = true
			case 3:
				if err := trySelect(a, el.ID); err != nil {
					editErr = err
					return
				}
				if _, err := s.DeleteSelected(); err != nil {
					editErr = fmt.Errorf("delete %s: %v", el.ID, err)
					return
				}
				delete(want, el.ID)
			}
		}
	}()
	wg.Wait()
	if editErr != nil {
		t.Fatalf("edit failed: %v", editErr)
	}
	settle(t, eng)

	got := s.Elements()
	if len(got) != len(want) {
		t.Fatalf("lost updates: session has %d elements, want %d", len(got), len(want))
	}
	for _, el := range got {
		locked, ok := want[el.ID]
		if !ok {
			t.Fatalf("unexpected element %s", el.ID)
		}
		if el.Locked != locked {
			t.Fatalf("element %s locked=%v, want %v", el.ID, el.Locked, locked)
		}
	}
	if moved == 0 {
		t.Fatalf("no drag completed")
	}
	if b, _ := domain.Find(got, bg.ID); b.X != lastX {
		t.Fatalf("background x = %v, want last write-back %v", b.X, lastX)
	}
	if !domain.Equal(eng.Elements(), got) {
		t.Fatalf("engine and session diverged")
	}
}

func TestElementsChanged_MergesGeometryOnly(t *testing.T) {
	s, eng := newSession(t, nil)
	a, _ := s.AddText("A")
	b, _ := s.AddText("B")

	// a write-back built before B existed still moves A and keeps B
	stale := []domain.Element{a}
	stale[0].X, stale[0].Y = 7, 9
	s.ElementsChanged(stale)

	got := s.Elements()
	if len(got) != 2 || got[1].ID != b.ID {
		t.Fatalf("list = %+v", got)
	}
	if got[0].X != 7 || got[0].Y != 9 || got[0].Content != "A" {
		t.Fatalf("A = %+v", got[0])
	}
	if !domain.Equal(eng.Elements(), got) {
		t.Fatalf("echo not pushed to the engine")
	}
}
