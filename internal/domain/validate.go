/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrContract marks element lists a correct host can never produce.
// Callers should surface it to developers instead of recovering.
var ErrContract = errors.New("element contract violation")

// Validate checks the invariants of an element list: non-empty unique ids,
// known kinds and finite geometry.
func Validate(list []Element) error {
	seen := make(map[string]int, len(list))
	for i, e := range list {
		if e.ID == "" {
			return fmt.Errorf("%w: element %d has empty id", ErrContract, i)
		}
		if j, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q at %d and %d", ErrContract, e.ID, j, i)
		}
		seen[e.ID] = i
		if !e.Kind.Valid() {
			return fmt.Errorf("%w: element %q has unknown kind %q", ErrContract, e.ID, e.Kind)
		}
		for _, v := range []float64{e.X, e.Y, e.Width, e.Height, e.Rotation} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: element %q has non-finite geometry", ErrContract, e.ID)
			}
		}
	}
	return nil
}

// DrawOrder returns list indices sorted bottom-to-top by zIndex; equal zIndex keeps list order.
func DrawOrder(list []Element) []int {
	idx := make([]int, len(list))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return list[idx[a]].ZIndex < list[idx[b]].ZIndex })
	return idx
}
