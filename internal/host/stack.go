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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"comicpanel/internal/assets"
	"comicpanel/internal/backend"
	"comicpanel/internal/config"
	"comicpanel/internal/domain"
	"comicpanel/internal/engine"
	applog "comicpanel/internal/log"
	"comicpanel/internal/scene"
	"comicpanel/internal/telemetry"
	"comicpanel/internal/vector"
)

// Hooks lets a front end observe the stack. Every hook is called with no locks held
// and may run on a load goroutine.
type Hooks struct {
	OnChange     func(list []domain.Element, selected *domain.Element)
	OnNodeAdded  func()
	OnLoadFailed func(id string, err error)
}

// Stack is a fully wired editor: asset loader, scene adapter, engine and session.
type Stack struct {
	Session *Session
	Engine  *engine.Engine
	Adapter *scene.Adapter
	Loader    *assets.Loader
	Telemetry *telemetry.Client
	cache     *assets.Cache
}

// NewStack wires every component from cfg and mounts a surface sized by the canvas section.
func NewStack(ctx context.Context, cfg config.AppConfig, token string, hooks Hooks) (*Stack, error) {
	l := applog.WithComponent("host")
	var cache *assets.Cache
	if p := strings.TrimSpace(cfg.Assets.CachePath); p != "" {
		c, err := assets.OpenCache(ctx, p, cfg.Assets.CacheMaxBytes)
		if err != nil {
			l.Warn("asset cache disabled", slog.Any("err", err))
		} else {
			cache = c
		}
	}
	loader := assets.NewLoader(assets.Options{
		Cache:          cache,
		FetchTimeout:   cfg.Assets.FetchTimeout(),
		MaxFetchBytes:  cfg.Assets.MaxFetchBytes,
		MaxPreviewEdge: cfg.Assets.MaxPreviewEdge,
	})

	tel := newTelemetry(cfg.General)
	failed := func(id string, err error) {
		tel.Track(telemetry.LoadFailed, nil)
		if hooks.OnLoadFailed != nil {
			hooks.OnLoadFailed(id, err)
		}
	}
	style := scene.DefaultTextStyle
	if f := strings.TrimSpace(cfg.Canvas.FontFamily); f != "" {
		style.Family = f
	}
	if cfg.Canvas.FontSize > 0 {
		style.Size = cfg.Canvas.FontSize
	}
	var snap *vector.SnapOptions
	if cfg.Canvas.SnapThreshold > 0 {
		snap = &vector.SnapOptions{Threshold: cfg.Canvas.SnapThreshold, SnapToEdges: true, SnapToCenters: true}
	}
	adapter := scene.New(scene.Options{Loader: loader, TextStyle: style, Changed: hooks.OnNodeAdded, Failed: failed, Snap: snap})

	var gen Generator
	if strings.TrimSpace(cfg.Backend.BaseURL) != "" {
		gen = backend.NewClient(cfg.Backend.BaseURL, token, cfg.Backend.Timeout())
	}
	sess := NewSession(gen, Options{
		ArtStyle:         cfg.General.ArtStyle,
		CharacterDetails: cfg.General.CharacterDetails,
		Telemetry:        tel,
		OnChange:         hooks.OnChange,
	})
	eng := engine.New(adapter, sess, engine.Options{})

	spec, err := SurfaceSpec(cfg.Canvas)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}
	if err := eng.Mount(ctx, spec); err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}
	if err := sess.Attach(eng); err != nil {
		eng.Unmount()
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}
	return &Stack{Session: sess, Engine: eng, Adapter: adapter, Loader: loader, Telemetry: tel, cache: cache}, nil
}

// newTelemetry builds the event client from the general section and installs it
// as the process default, so crash uploads follow the same opt-in. Crash URL and
// timeout still come from the environment.
func newTelemetry(g config.GeneralConfig) *telemetry.Client {
	tc := telemetry.FromEnv()
	tc.OptIn = g.TelemetryOptIn
	if u := strings.TrimSpace(g.TelemetryURL); u != "" {
		tc.EventsURL = u
	}
	tel := telemetry.New(tc)
	telemetry.SetDefault(tel)
	return tel
}

// SurfaceSpec converts the canvas section of the configuration.
func SurfaceSpec(c config.CanvasConfig) (scene.SurfaceSpec, error) {
	spec := scene.DefaultSurfaceSpec
	if c.Width > 0 && c.Height > 0 {
		spec.Width, spec.Height = c.Width, c.Height
	}
	if strings.TrimSpace(c.Background) != "" {
		bg, err := scene.ParseHexColor(c.Background)
		if err != nil {
			return spec, fmt.Errorf("canvas background: %w", err)
		}
		spec.Background = bg
	}
	return spec, nil
}

// Close unmounts the surface, flushes queued events and releases the asset cache.
func (s *Stack) Close() error {
	s.Engine.Unmount()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	s.Telemetry.Flush(ctx)
	cancel()
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}
