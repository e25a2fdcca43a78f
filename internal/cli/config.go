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

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"comicpanel/internal/config"
)

func newConfigCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, token, err := root.loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if p, err := config.ConfigPath(); err == nil {
				fmt.Fprintf(out, "# %s\n", p)
			}
			for _, k := range config.Keys() {
				if env, ok := config.EnvOverrideFor(k); ok {
					fmt.Fprintf(out, "# %s overridden by %s\n", k, env)
				}
			}
			if token != "" {
				fmt.Fprintln(out, "# backend token: set")
			} else {
				fmt.Fprintln(out, "# backend token: not set")
			}
			_, err = out.Write(data)
			return err
		},
	}
	return cmd
}
