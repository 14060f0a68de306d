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

package conflict

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/safecopy/pkg/fsx"
	"gitlab.com/tozd/go/errors"
)

// 🚫 ExistsError reports a destination the active policy could not free
type ExistsError struct {
	Path string
	Mode Mode
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("destination exists: %s (conflict mode %s)", e.Path, e.Mode)
}

// Is lets callers test with errors.Is(err, fs.ErrExist).
func (e *ExistsError) Is(target error) bool {
	return target == fs.ErrExist
}

// 🎬 Action is the outcome of a resolution
type Action struct {
	// Proceed is true when the transfer should go ahead to Destination.
	Proceed bool
	// Destination is the path the transfer must land on.
	Destination string
	// Skipped is true when the policy declined the transfer without error.
	Skipped bool
	// Occupied is true when the requested destination already existed.
	Occupied bool
	// BackupPath is where the previous occupant was moved (BackupSuffix).
	BackupPath string
}

// 🔌 Backend is what resolution needs from the filesystem
type Backend interface {
	fsx.Oracle
	Move(ctx context.Context, src, dst string, opts fsx.Options) error
}

// 🧭 Resolver decides where a transfer may land
type Resolver struct {
	backend Backend
	// DryRun computes the action without renaming a backup into place.
	DryRun bool
}

// 🏭 NewResolver creates a resolver over a backend
func NewResolver(backend Backend) *Resolver {
	return &Resolver{backend: backend}
}

// Resolve fetches destination metadata and resolves against it.
func (r *Resolver) Resolve(ctx context.Context, dst string, p Policy) (Action, error) {
	md, err := r.backend.Stat(ctx, dst)
	if err != nil {
		return Action{}, errors.Errorf("checking destination: %w", err)
	}
	return r.ResolveWith(ctx, md, p)
}

// ResolveWith resolves against a metadata snapshot the caller already took.
// The snapshot is not refreshed; IndexRename stats each candidate once.
func (r *Resolver) ResolveWith(ctx context.Context, dst fsx.PathMetadata, p Policy) (Action, error) {
	logger := zerolog.Ctx(ctx).With().Str("destination", dst.Path).Str("mode", p.Mode.String()).Logger()

	if !dst.Exists {
		return Action{Proceed: true, Destination: dst.Path}, nil
	}

	switch p.Mode {
	case Overwrite:
		logger.Debug().Msg("destination exists, overwriting")
		return Action{Proceed: true, Destination: dst.Path, Occupied: true}, nil

	case BackupSuffix:
		backup := p.BackupPath(dst.Path)
		if !r.DryRun {
			if err := r.backend.Move(ctx, dst.Path, backup, fsx.Options{Overwrite: true}); err != nil {
				return Action{}, &fsx.IOError{Op: "backup", Source: dst.Path, Destination: backup, Err: err}
			}
		}
		logger.Debug().Str("backup", backup).Bool("dry_run", r.DryRun).Msg("moved existing destination aside")
		return Action{Proceed: true, Destination: dst.Path, Occupied: true, BackupPath: backup}, nil

	case IndexRename:
		for idx, candidate := range Candidates(dst.Path, p.Separator, p.Limit) {
			md, err := r.backend.Stat(ctx, candidate)
			if err != nil {
				return Action{}, errors.Errorf("checking candidate %s: %w", candidate, err)
			}
			if !md.Exists {
				logger.Debug().Str("candidate", candidate).Int("index", idx).Msg("found free indexed name")
				return Action{Proceed: true, Destination: candidate, Occupied: true}, nil
			}
		}
		logger.Debug().Int("limit", p.Limit).Msg("no free indexed name")
		return r.refuse(dst.Path, p)

	case FailIfExists:
		return r.refuse(dst.Path, p)

	default:
		return Action{}, errors.Errorf("unknown conflict mode %d", int(p.Mode))
	}
}

func (r *Resolver) refuse(path string, p Policy) (Action, error) {
	if p.ErrorOnExist {
		return Action{}, &ExistsError{Path: path, Mode: p.Mode}
	}
	return Action{Skipped: true, Destination: path, Occupied: true}, nil
}

// 🔢 Candidates yields (index, path) for index 1..limit, rendering the index
// as at least two digits: out.docx -> out-01.docx, out-02.docx, ...
// Ranging over it again starts over from 1.
func Candidates(path, sep string, limit int) iter.Seq2[int, string] {
	if sep == "" {
		sep = DefaultSeparator
	}
	dir, stem, ext := splitName(path)
	return func(yield func(int, string) bool) {
		for i := 1; i <= limit; i++ {
			name := fmt.Sprintf("%s%s%02d%s", stem, sep, i, ext)
			if !yield(i, filepath.Join(dir, name)) {
				return
			}
		}
	}
}

// splitName splits off the last extension. Dotfiles such as .bashrc have
// no extension.
func splitName(path string) (dir, stem, ext string) {
	dir, base := filepath.Split(path)
	ext = filepath.Ext(base)
	if ext == base || (strings.HasPrefix(base, ".") && strings.Count(base, ".") == 1) {
		ext = ""
	}
	return dir, strings.TrimSuffix(base, ext), ext
}
