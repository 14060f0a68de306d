// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/safecopy/cmd/safecopy/commands"
	"github.com/walteh/safecopy/cmd/safecopy/opts"
	"github.com/walteh/safecopy/pkg/fsx"
	"github.com/walteh/safecopy/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// newRootCmd builds the command tree over a filesystem
func newRootCmd(fs *fsx.FS) *cobra.Command {
	rootOpts := &opts.RootOpts{FS: fs}

	rootCmd := &cobra.Command{
		Use:   "safecopy",
		Short: "Copy and move files without clobbering what is already there",
		Long: `safecopy copies and moves files and directories. When the destination is
taken it fails, overwrites, backs the occupant up, or picks the next free
indexed name, as the conflict mode says. It also identifies file types from
their leading bytes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd, rootOpts.Debug)
		},
	}

	addRootFlags(rootCmd, rootOpts)

	rootCmd.AddCommand(
		commands.NewCopyCmd(rootOpts),
		commands.NewMoveCmd(rootOpts),
		commands.NewClassifyCmd(rootOpts),
		commands.NewRunCmd(rootOpts),
		newVersionCmd(),
	)

	return rootCmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
}

// setupLogging puts a zerolog logger and a console logger into the command context
func setupLogging(cmd *cobra.Command, debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	// console lines already cover transfers; zerolog only adds detail under --debug
	mirror := zerolog.Nop()
	if debug {
		mirror = logger
	}
	ctx = log.NewContext(ctx, log.NewWithZerolog(cmd.OutOrStdout(), mirror))

	cmd.SetContext(ctx)
}

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := FormatVersion(asJSON)
			if err != nil {
				return errors.Errorf("formatting version: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
