/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package assets

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	applog "comicpanel/internal/log"
	"comicpanel/internal/scene"
)

// Options configures a Loader. Zero values fall back to package defaults.
type Options struct {
	Cache          *Cache
	FetchTimeout   time.Duration
	MaxFetchBytes  int64
	MaxPreviewEdge int
	Logger         *slog.Logger
}

// Loader implements scene.Loader. Decoded bitmaps are kept in memory for the
// lifetime of the loader; concurrent requests for one reference share a single fetch.
type Loader struct {
	fetch   *Fetcher
	cache   *Cache
	maxEdge int
	log     *slog.Logger
	group   singleflight.Group

	mu  sync.RWMutex
	mem map[string]scene.Bitmap
}

var _ scene.Loader = (*Loader)(nil)

// NewLoader builds a loader from opts.
func NewLoader(opts Options) *Loader {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("assets")
	}
	edge := opts.MaxPreviewEdge
	if edge <= 0 {
		edge = DefaultMaxPreviewEdge
	}
	return &Loader{
		fetch:   NewFetcher(opts.FetchTimeout, opts.MaxFetchBytes),
		cache:   opts.Cache,
		maxEdge: edge,
		log:     l,
		mem:     map[string]scene.Bitmap{},
	}
}

// Load resolves ref. Waiting callers give up when ctx is done; the shared fetch
// keeps running for the others.
func (l *Loader) Load(ctx context.Context, ref string) (scene.Bitmap, error) {
	l.mu.RLock()
	bm, ok := l.mem[ref]
	l.mu.RUnlock()
	if ok {
		return bm, nil
	}
	ch := l.group.DoChan(ref, func() (any, error) {
		return l.resolve(context.WithoutCancel(ctx), ref)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return scene.Bitmap{}, res.Err
		}
		return res.Val.(scene.Bitmap), nil
	case <-ctx.Done():
		return scene.Bitmap{}, ctx.Err()
	}
}

func (l *Loader) resolve(ctx context.Context, ref string) (scene.Bitmap, error) {
	lg := applog.WithOperation(l.log, "resolve").With(slog.String("ref", short(ref)))
	start := time.Now()
	data, err := l.bytes(ctx, ref, lg)
	if err != nil {
		return scene.Bitmap{}, err
	}
	img, format, err := Decode(data)
	if err != nil {
		return scene.Bitmap{}, err
	}
	b := img.Bounds()
	if b.Empty() {
		return scene.Bitmap{}, fmt.Errorf("%s: %w", short(ref), scene.ErrEmptyImage)
	}
	bm := scene.Bitmap{Width: b.Dx(), Height: b.Dy(), Image: Preview(img, l.maxEdge)}
	l.mu.Lock()
	l.mem[ref] = bm
	l.mu.Unlock()
	lg.Debug("image resolved", slog.String("format", format), slog.Int("w", bm.Width), slog.Int("h", bm.Height),
		slog.Duration("took", time.Since(start)))
	return bm, nil
}

func (l *Loader) bytes(ctx context.Context, ref string, lg *slog.Logger) ([]byte, error) {
	if l.cache == nil || !Remote(ref) {
		return l.fetch.Fetch(ctx, ref)
	}
	if data, ok, err := l.cache.Get(ctx, ref); err != nil {
		lg.Warn("cache read failed", slog.Any("err", err))
	} else if ok {
		return data, nil
	}
	data, err := l.fetch.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Put(ctx, ref, data); err != nil {
		lg.Warn("cache write failed", slog.Any("err", err))
	}
	return data, nil
}

// Forget drops ref from the in-memory set.
func (l *Loader) Forget(ref string) {
	l.mu.Lock()
	delete(l.mem, ref)
	l.mu.Unlock()
}

// short keeps data URIs out of log lines.
func short(ref string) string {
	if len(ref) > 64 {
		return ref[:61] + "..."
	}
	return ref
}
