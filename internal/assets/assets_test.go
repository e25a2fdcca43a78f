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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	applog "comicpanel/internal/log"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func dataURI(b []byte) string { return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b) }

func TestLoad_DataURI(t *testing.T) {
	l := NewLoader(Options{Logger: applog.Nop()})
	bm, err := l.Load(context.Background(), dataURI(pngBytes(t, 30, 20)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bm.Width != 30 || bm.Height != 20 || bm.Image == nil {
		t.Fatalf("bitmap = %dx%d image=%v", bm.Width, bm.Height, bm.Image != nil)
	}
}

func TestFetch_PlainDataURIAndErrors(t *testing.T) {
	f := NewFetcher(0, 4)
	b, err := f.Fetch(context.Background(), "data:text/plain,hi%20there")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected size limit, got %q %v", b, err)
	}
	f = NewFetcher(0, 0)
	b, err = f.Fetch(context.Background(), "data:,hi%20there")
	if err != nil || string(b) != "hi there" {
		t.Fatalf("got %q %v", b, err)
	}
	if _, err := f.Fetch(context.Background(), "data:nope"); !errors.Is(err, ErrUnsupportedRef) {
		t.Fatalf("malformed uri: %v", err)
	}
	if _, err := f.Fetch(context.Background(), "ftp://example.com/x.png"); !errors.Is(err, ErrUnsupportedRef) {
		t.Fatalf("ftp: %v", err)
	}
}

func TestLoad_FilePathAndFileURL(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "face.png")
	if err := os.WriteFile(p, pngBytes(t, 12, 9), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(Options{Logger: applog.Nop()})
	for _, ref := range []string{p, "file://" + filepath.ToSlash(p)} {
		bm, err := l.Load(context.Background(), ref)
		if err != nil || bm.Width != 12 || bm.Height != 9 {
			t.Fatalf("%s: %+v %v", ref, bm, err)
		}
	}
	if _, err := l.Load(context.Background(), filepath.Join(dir, "missing.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoad_HTTPUsesMemoryAndCache(t *testing.T) {
	body := pngBytes(t, 40, 30)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	ctx := context.Background()
	cache, err := OpenCache(ctx, filepath.Join(t.TempDir(), "cache", "blobs.db"), 0)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	l := NewLoader(Options{Cache: cache, Logger: applog.Nop()})
	ref := srv.URL + "/bg.png"
	for i := 0; i < 3; i++ {
		if _, err := l.Load(ctx, ref); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", hits.Load())
	}

	// a fresh loader finds the bytes on disk
	l2 := NewLoader(Options{Cache: cache, Logger: applog.Nop()})
	bm, err := l2.Load(ctx, ref)
	if err != nil || bm.Width != 40 {
		t.Fatalf("cached load: %+v %v", bm, err)
	}
	if hits.Load() != 1 {
		t.Fatalf("cache miss: %d requests", hits.Load())
	}

	l2.Forget(ref)
	if _, err := l2.Load(ctx, ref); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if _, err := l.Load(ctx, srv.URL+"/missing.png"); err == nil {
		t.Fatalf("expected http error")
	}
}

func TestLoad_CancelledCaller(t *testing.T) {
	body := pngBytes(t, 2, 2)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write(body)
	}))
	defer srv.Close()
	defer close(release)

	l := NewLoader(Options{Logger: applog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Load(ctx, srv.URL+"/slow.png"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoad_UndecodableContent(t *testing.T) {
	l := NewLoader(Options{Logger: applog.Nop()})
	if _, err := l.Load(context.Background(), "data:,not-an-image"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPreview_Downscales(t *testing.T) {
	img, _, err := Decode(pngBytes(t, 200, 100))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := Preview(img, 50)
	if b := p.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
		t.Fatalf("preview = %v", b)
	}
	if Preview(img, 500) != img {
		t.Fatalf("small images must pass through")
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, err := OpenCache(ctx, filepath.Join(t.TempDir(), "c.db"), 25)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer c.Close()
	blob := bytes.Repeat([]byte{1}, 10)
	_ = c.Put(ctx, "a", blob)
	_ = c.Put(ctx, "b", blob)
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatalf("a missing")
	}
	if err := c.Put(ctx, "c", blob); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok, _ := c.Get(ctx, k); !ok {
			t.Fatalf("%s evicted", k)
		}
	}
	total, _ := c.TotalBytes(ctx)
	if total != 20 {
		t.Fatalf("total = %d", total)
	}
}

// withDimensions rewrites the IHDR size of a PNG and fixes its checksum.
func withDimensions(b []byte, w, h uint32) []byte {
	out := append([]byte(nil), b...)
	binary.BigEndian.PutUint32(out[16:], w)
	binary.BigEndian.PutUint32(out[20:], h)
	binary.BigEndian.PutUint32(out[29:], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecode_RejectsHugeDeclaredDimensions(t *testing.T) {
	huge := withDimensions(pngBytes(t, 2, 2), 200000, 200000)
	if _, _, err := Decode(huge); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	l := NewLoader(Options{Logger: applog.Nop()})
	if _, err := l.Load(context.Background(), dataURI(huge)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("loader: expected ErrTooLarge, got %v", err)
	}
}
