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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"comicpanel/internal/domain"
)

func newValidateCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <elements.json>",
		Short: "Check an element list against the schema and the list contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := readElements(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d elements, valid\n", args[0], len(list))
			for _, i := range domain.DrawOrder(list) {
				e := list[i]
				lock := ""
				if e.Locked {
					lock = " locked"
				}
				fmt.Fprintf(out, "  z=%-3d %-15s %s%s\n", e.ZIndex, e.Kind, e.ID, lock)
			}
			return nil
		},
	}
}

// readElements decodes a list file; DecodeElements enforces schema and contract.
func readElements(path string) ([]domain.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	list, err := domain.DecodeElements(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}
