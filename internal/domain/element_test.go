package domain

import (
	"errors"
	"strings"
	"testing"
)

func sample() []Element {
	return []Element{
		{ID: "bg-1", Kind: KindBackground, Content: "url1", Width: 800, Height: 600},
		{ID: "body-1", Kind: KindCharacterBody, Content: "url2", X: 10, Y: 20, Width: 200, Height: 300, ZIndex: 10},
		{ID: "txt-1", Kind: KindTextLabel, Content: "Hello!", X: 5, Y: 5, Width: 200, Height: 50, ZIndex: 100},
	}
}

func TestValidate_AcceptsWellFormedList(t *testing.T) {
	if err := Validate(sample()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := Validate(nil); err != nil {
		t.Fatalf("empty list should be valid: %v", err)
	}
}

func TestValidate_RejectsContractViolations(t *testing.T) {
	cases := map[string]func([]Element) []Element{
		"duplicate id": func(l []Element) []Element { l[1].ID = "bg-1"; return l },
		"empty id":     func(l []Element) []Element { l[0].ID = ""; return l },
		"unknown kind": func(l []Element) []Element { l[2].Kind = "balloon"; return l },
	}
	for name, mutate := range cases {
		err := Validate(mutate(sample()))
		if !errors.Is(err, ErrContract) {
			t.Fatalf("%s: expected ErrContract, got %v", name, err)
		}
	}
}

func TestDrawOrder_StableByZIndex(t *testing.T) {
	l := []Element{
		{ID: "a", ZIndex: 10},
		{ID: "b", ZIndex: 0},
		{ID: "c", ZIndex: 10},
		{ID: "d", ZIndex: -1},
	}
	got := DrawOrder(l)
	want := []int{3, 1, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DrawOrder = %v, want %v", got, want)
		}
	}
}

func TestWithGeometry_CopiesAndKeepsIdentity(t *testing.T) {
	e := sample()[1]
	g := e.Geometry()
	g.X, g.Rotation = 99, 45
	moved := e.WithGeometry(g)
	if e.X != 10 {
		t.Fatalf("original mutated")
	}
	if moved.ID != e.ID || moved.Kind != e.Kind || moved.X != 99 || moved.Rotation != 45 {
		t.Fatalf("unexpected copy: %+v", moved)
	}
}

func TestNewElement_Defaults(t *testing.T) {
	bg := NewElement(KindBackground, "u")
	if bg.Width != 800 || bg.Height != 600 || bg.ZIndex != 0 {
		t.Fatalf("background defaults: %+v", bg)
	}
	txt := NewElement(KindTextLabel, "Hi")
	if txt.ZIndex != 100 || txt.X != DefaultX || txt.Y != DefaultY {
		t.Fatalf("text defaults: %+v", txt)
	}
	if !strings.HasPrefix(txt.ID, "text-label-") {
		t.Fatalf("id prefix: %q", txt.ID)
	}
	if NewElement(KindProp, "u").ID == NewElement(KindProp, "u").ID {
		t.Fatalf("ids must not repeat")
	}
}

func TestFindAndEqual(t *testing.T) {
	l := sample()
	if _, ok := Find(l, "missing"); ok {
		t.Fatalf("unexpected hit")
	}
	if e, ok := Find(l, "txt-1"); !ok || e.Content != "Hello!" {
		t.Fatalf("Find txt-1: %+v %v", e, ok)
	}
	c := append([]Element(nil), l...)
	if !Equal(l, c) {
		t.Fatalf("copies should be equal")
	}
	c[0].Locked = true
	if Equal(l, c) {
		t.Fatalf("lock change should differ")
	}
}
