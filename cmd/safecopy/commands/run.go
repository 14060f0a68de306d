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
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/safecopy/cmd/safecopy/opts"
	"github.com/walteh/safecopy/pkg/batch"
	"github.com/walteh/safecopy/pkg/config"
	"github.com/walteh/safecopy/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// NewRunCmd creates a new run command
func NewRunCmd(opts *opts.RootOpts) *cobra.Command {
	var dryRun bool
	var envFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a plan file of transfers",
		Long: `Run loads a plan (YAML, HCL or JSON) and executes its transfers.
It will:
1. Expand each source glob relative to the plan file
2. Drop sources matching ignore_patterns
3. Resolve every destination with the transfer's conflict policy
4. Copy or move, running distinct destinations concurrently`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			console := log.FromContext(ctx)

			path := opts.ConfigFile
			if path == "" {
				found, err := config.Find(opts.FS.Afero(), ".")
				if err != nil {
					return err
				}
				path = found
			}

			var loadOpts []config.LoadOption
			if envFile != "" {
				env, err := config.LoadEnvFile(opts.FS.Afero(), envFile)
				if err != nil {
					return err
				}
				loadOpts = append(loadOpts, config.WithEnv(env))
			}

			plan, err := config.Load(ctx, opts.FS.Afero(), path, loadOpts...)
			if err != nil {
				return errors.Errorf("loading plan: %w", err)
			}

			console.StartPlan(ctx, log.PlanOperation{
				Name:   path,
				Jobs:   len(plan.Transfers),
				DryRun: dryRun || plan.DryRun,
			})

			runner := batch.NewRunner(opts.FS, batch.WithConsole(console), batch.WithDryRun(dryRun))
			rep, err := runner.Run(ctx, plan)
			console.EndPlan(ctx)
			console.LogNewline()

			if err != nil {
				console.Errorf("%d transferred, %d skipped, %d failed", rep.Transferred, rep.Skipped, rep.Failed)
				return errors.Errorf("running %s: %w", path, err)
			}

			if rep.Planned > 0 {
				console.Successf("%d planned, %d skipped (dry run)", rep.Planned, rep.Skipped)
			} else {
				console.Successf("%d transferred, %d skipped", rep.Transferred, rep.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "plan file (default: first of "+strings.Join(config.DefaultFileNames, ", ")+")")
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file whose variables HCL plans can read as env.NAME")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "resolve every transfer without writing anything")
	return cmd
}
