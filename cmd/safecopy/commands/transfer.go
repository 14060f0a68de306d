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

package commands

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/safecopy/cmd/safecopy/opts"
	"github.com/walteh/safecopy/pkg/conflict"
	"github.com/walteh/safecopy/pkg/log"
	"github.com/walteh/safecopy/pkg/transfer"
	"gitlab.com/tozd/go/errors"
)

// policyFlags are the conflict policy flags shared by copy and move
type policyFlags struct {
	mode            string
	separator       string
	suffix          string
	limit           int
	errorOnNoSource bool
	errorOnExist    bool
	dryRun          bool
}

func (f *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", conflict.FailIfExists.String(), "conflict mode: fail, overwrite, backup or index")
	cmd.Flags().StringVar(&f.separator, "sep", conflict.DefaultSeparator, "separator before the index in index mode")
	cmd.Flags().StringVar(&f.suffix, "suffix", conflict.DefaultSuffix, "suffix appended to the occupant in backup mode")
	cmd.Flags().IntVar(&f.limit, "limit", conflict.DefaultLimit, "highest index tried in index mode")
	cmd.Flags().BoolVar(&f.errorOnNoSource, "error-on-no-source", true, "fail when the source does not exist")
	cmd.Flags().BoolVar(&f.errorOnExist, "error-on-exist", true, "fail, rather than skip, when the destination cannot be freed")
	cmd.Flags().BoolVarP(&f.dryRun, "dry-run", "n", false, "resolve the destination without writing anything")
}

func (f *policyFlags) policy() (conflict.Policy, error) {
	mode, err := conflict.ParseMode(f.mode)
	if err != nil {
		return conflict.Policy{}, err
	}
	p := conflict.Policy{
		Mode:            mode,
		Separator:       f.separator,
		Suffix:          f.suffix,
		Limit:           f.limit,
		ErrorOnNoSource: f.errorOnNoSource,
		ErrorOnExist:    f.errorOnExist,
	}
	if err := p.Validate(); err != nil {
		return conflict.Policy{}, err
	}
	return p, nil
}

// NewCopyCmd creates a new copy command
func NewCopyCmd(opts *opts.RootOpts) *cobra.Command {
	return newTransferCmd(opts, transfer.Copy)
}

// NewMoveCmd creates a new move command
func NewMoveCmd(opts *opts.RootOpts) *cobra.Command {
	return newTransferCmd(opts, transfer.Move)
}

func newTransferCmd(opts *opts.RootOpts, mode transfer.Mode) *cobra.Command {
	flags := &policyFlags{}

	verb := "Copy"
	if mode == transfer.Move {
		verb = "Move"
	}

	cmd := &cobra.Command{
		Use:   mode.String() + " SRC DST",
		Short: verb + " a file or directory, resolving conflicts at the destination",
		Long: verb + ` SRC to DST. A DST ending in "/" names a directory and SRC keeps its
base name inside it. Missing parent directories are created.

Conflict modes:
  fail       leave the occupant alone (error, or skip with --error-on-exist=false)
  overwrite  replace the occupant
  backup     rename the occupant to DST+suffix first
  index      write to the first free DST-01, DST-02, ... up to --limit`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			policy, err := flags.policy()
			if err != nil {
				return errors.Errorf("invalid flags: %w", err)
			}

			src, dst := args[0], args[1]
			if strings.HasSuffix(dst, "/") {
				dst = filepath.Join(dst, filepath.Base(src))
			}

			engine := transfer.New(opts.FS, transfer.WithDryRun(flags.dryRun))
			res, err := engine.Execute(ctx, transfer.Request{
				Source:      src,
				Destination: dst,
				Mode:        mode,
				Policy:      policy,
			})

			log.FromContext(ctx).LogTransfer(ctx, log.RecordFromResult(res, err))
			if err != nil {
				return errors.Errorf("%s %s: %w", mode, src, err)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
