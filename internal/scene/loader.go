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
	"context"
	"errors"
	"image"
)

// Bitmap is a resolved image. Width and Height are the natural pixel size of the
// source; Image may be a downscaled preview and may be nil for headless use.
type Bitmap struct {
	Width, Height int
	Image         image.Image
}

// Loader fetches and decodes image content. Load may block; the adapter calls it
// from its own goroutines.
type Loader interface {
	Load(ctx context.Context, ref string) (Bitmap, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, ref string) (Bitmap, error)

func (f LoaderFunc) Load(ctx context.Context, ref string) (Bitmap, error) { return f(ctx, ref) }

var (
	ErrNotMounted  = errors.New("scene: surface not mounted")
	ErrNoNode      = errors.New("scene: no such node")
	ErrLocked      = errors.New("scene: node is locked")
	ErrNotScalable = errors.New("scene: text nodes cannot be resized")
	ErrEmptyImage  = errors.New("scene: image has no pixels")
)
