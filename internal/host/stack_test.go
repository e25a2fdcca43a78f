/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package host

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"comicpanel/internal/config"
	"comicpanel/internal/domain"
	"comicpanel/internal/telemetry"
)

func tinyPNG(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestNewStack_RendersFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backend.BaseURL = ""
	cfg.Canvas.Width, cfg.Canvas.Height = 400, 300
	cfg.Canvas.Background = "#000000"
	cfg.Assets.CachePath = filepath.Join(t.TempDir(), "blobs.db")

	var mu sync.Mutex
	var failed []string
	st, err := NewStack(context.Background(), cfg, "", Hooks{
		OnLoadFailed: func(id string, err error) { mu.Lock(); failed = append(failed, id); mu.Unlock() },
	})
	if err != nil {
		t.Fatalf("NewStack: %v", err)
	}
	defer st.Close()

	list := []domain.Element{
		{ID: "bg", Kind: domain.KindBackground, Content: tinyPNG(t, 40, 30), Width: 400, Height: 300},
		{ID: "broken", Kind: domain.KindProp, Content: "data:,nope", Width: 10, Height: 10, ZIndex: 10},
	}
	if err := st.Session.Replace(list); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := st.Engine.Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	n, ok := st.Adapter.NodeByTag("bg")
	if !ok || n.Placement.ScaleX != 10 {
		t.Fatalf("bg node = %+v %v", n, ok)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 1 || failed[0] != "broken" {
		t.Fatalf("failures = %v", failed)
	}
	spec, _ := st.Adapter.SurfaceSpec()
	if spec.Width != 400 || spec.Background.R != 0 || spec.Background.A != 255 {
		t.Fatalf("spec = %+v", spec)
	}
	if _, err := st.Session.AddGenerated(context.Background(), domain.KindProp, "hat"); err == nil {
		t.Fatalf("expected error without backend")
	}
}

func TestSurfaceSpec_BadColor(t *testing.T) {
	c := config.Defaults().Canvas
	c.Background = "blue-ish"
	if _, err := SurfaceSpec(c); err == nil {
		t.Fatalf("expected color error")
	}
}

func TestNewStack_TelemetryAndGenerationFromConfig(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	t.Cleanup(func() { telemetry.SetDefault(nil) })

	cfg := config.Defaults()
	cfg.Backend.BaseURL = ""
	cfg.Assets.CachePath = ""
	cfg.General.TelemetryOptIn = true
	cfg.General.TelemetryURL = srv.URL
	cfg.General.CharacterDetails = "Mira: red scarf"
	st, err := NewStack(context.Background(), cfg, "", Hooks{})
	if err != nil {
		t.Fatalf("NewStack: %v", err)
	}
	defer st.Close()

	if st.Session.opts.CharacterDetails != "Mira: red scarf" {
		t.Fatalf("character details not passed: %q", st.Session.opts.CharacterDetails)
	}
	if _, err := st.Session.AddText("POW"); err != nil {
		t.Fatalf("AddText: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st.Telemetry.Flush(ctx)
	if posts.Load() == 0 {
		t.Fatalf("opted in through config, but no event was sent")
	}
}
