/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package cli

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"comicpanel/internal/host"
	"comicpanel/internal/vector"
)

type renderOptions struct {
	zoom    float64
	png     string
	timeout time.Duration
}

func newRenderCommand(root *RootOptions) *cobra.Command {
	ro := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render <elements.json>",
		Short: "Run a headless synchronization pass and print the resulting scene",
		Long: `Loads every image of the list through the asset pipeline, renders it onto
an offscreen surface and prints one line per node in draw order. With --png the
surface is also rasterized to a file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, root, ro, args[0])
		},
	}
	cmd.Flags().Float64Var(&ro.zoom, "zoom", 1, "viewport zoom")
	cmd.Flags().StringVar(&ro.png, "png", "", "write the rasterized surface to this file")
	cmd.Flags().DurationVar(&ro.timeout, "timeout", time.Minute, "how long to wait for image loads")
	return cmd
}

func runRender(cmd *cobra.Command, root *RootOptions, ro *renderOptions, path string) error {
	list, err := readElements(path)
	if err != nil {
		return err
	}
	cfg, token, err := root.loadConfig()
	if err != nil {
		return err
	}

	var mu sync.Mutex
	failed := map[string]error{}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stack, err := host.NewStack(ctx, cfg, token, host.Hooks{
		OnLoadFailed: func(id string, err error) {
			mu.Lock()
			failed[id] = err
			mu.Unlock()
		},
	})
	if err != nil {
		return err
	}
	defer stack.Close()

	if ro.zoom > 0 && ro.zoom != 1 {
		if err := stack.Adapter.SetViewport(vector.Viewport{Zoom: ro.zoom}); err != nil {
			return err
		}
	}
	if err := stack.Session.Replace(list); err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, ro.timeout)
	defer cancel()
	if err := stack.Engine.Settle(wctx); err != nil {
		return fmt.Errorf("waiting for image loads: %w", err)
	}

	out := cmd.OutOrStdout()
	nodes := stack.Adapter.Nodes()
	fmt.Fprintf(out, "%d elements, %d nodes\n", len(list), len(nodes))
	for _, n := range nodes {
		tag, _ := stack.Adapter.TagOf(n.ID)
		sz := n.EffectiveSize()
		fmt.Fprintf(out, "  %-15s %-40s at (%g,%g) size %gx%g rot %g\n",
			n.Kind, tag, n.Placement.Left, n.Placement.Top,
			vector.FloatRound(sz.W, 2), vector.FloatRound(sz.H, 2), n.Placement.Angle)
	}

	mu.Lock()
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	mu.Unlock()
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "  failed %s: %v\n", id, failed[id])
	}

	if ro.png != "" {
		img, err := stack.Adapter.Rasterize(0, 0)
		if err != nil {
			return err
		}
		f, err := os.Create(ro.png)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintln(out, "wrote", ro.png)
	}
	if len(ids) > 0 {
		return fmt.Errorf("%d image(s) failed to load", len(ids))
	}
	return nil
}
