/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package cli builds the comicpanel command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"comicpanel/internal/config"
	"comicpanel/internal/crash"
	applog "comicpanel/internal/log"
	"comicpanel/internal/version"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool

	// loadConfig is swapped in tests.
	loadConfig func() (config.AppConfig, string, error)
}

// NewRootCommand creates the comicpanel command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{loadConfig: config.Load})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "comicpanel",
		Short:         "Comic Panel: compose comic panels from generated art",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			lo := applog.FromEnv()
			if opts.Verbose {
				lo.Level = "debug"
			}
			lo.Writer = cmd.ErrOrStderr()
			applog.Init(lo)
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(newVersionCommand())
	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newRenderCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newUICommand())
	return cmd
}

// Execute runs the command tree and reports a failure on stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	defer crash.Recover(nil)
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		applog.WithComponent("cli").Debug("command failed", slog.Any("err", err))
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Comic Panel", version.String())
			return err
		},
	}
}
