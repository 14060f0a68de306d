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
	"fmt"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/safecopy/cmd/safecopy/opts"
	"github.com/walteh/safecopy/pkg/filetype"
	"github.com/walteh/safecopy/pkg/fsx"
	"gitlab.com/tozd/go/errors"
)

// NewClassifyCmd creates a new classify command
func NewClassifyCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify FILE...",
		Short: "Identify file types from their leading bytes",
		Long: fmt.Sprintf(`Classify reads the first %d bytes of each file and reports the detected
type, its category, and whether the file's extension agrees.`, filetype.PrefixLen),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.Ctx(cmd.Context())

			data := pterm.TableData{{"FILE", "TYPE", "CATEGORY", "EXTENSION"}}
			failed := 0
			for _, path := range args {
				row, err := classifyRow(opts.FS, path)
				if err != nil {
					logger.Debug().Err(err).Str("path", path).Msg("classify failed")
					failed++
				}
				data = append(data, row)
			}

			err := pterm.DefaultTable.
				WithHasHeader().
				WithData(data).
				WithWriter(cmd.OutOrStdout()).
				Render()
			if err != nil {
				return errors.Errorf("rendering table: %w", err)
			}

			if failed > 0 {
				return errors.Errorf("%d of %d files could not be read", failed, len(args))
			}
			return nil
		},
	}

	return cmd
}

func classifyRow(fs *fsx.FS, path string) ([]string, error) {
	res, err := filetype.SniffFile(fs.Afero(), path)
	if err != nil {
		var short *filetype.LengthError
		if errors.As(err, &short) {
			return []string{path, "unknown", "-", fmt.Sprintf("too short (%d bytes)", short.Got)}, nil
		}
		return []string{path, "error", "-", err.Error()}, err
	}

	if !res.Known() {
		return []string{path, "unknown", "-", "-"}, nil
	}

	agreement := "mismatch"
	if filetype.MatchesExtension(res, path) {
		agreement = "ok"
	}
	return []string{path, string(res.Type), string(res.Category), agreement}, nil
}
