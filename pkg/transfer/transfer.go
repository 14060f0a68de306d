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

package transfer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/safecopy/pkg/conflict"
	"github.com/walteh/safecopy/pkg/fsx"
	"gitlab.com/tozd/go/errors"
)

// 🔀 Mode is copy or move
type Mode int

const (
	Copy Mode = iota
	Move
)

func (m Mode) String() string {
	if m == Move {
		return "move"
	}
	return "copy"
}

// IOError is the error returned when the OS primitive fails.
type IOError = fsx.IOError

// 🕳️ NotFoundError reports a missing transfer source
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source does not exist: %s", e.Path)
}

// Is lets callers test with errors.Is(err, fs.ErrNotExist).
func (e *NotFoundError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// 📦 Request describes one transfer
type Request struct {
	Source      string
	Destination string
	Mode        Mode
	Policy      conflict.Policy
}

// 📋 Result describes what a transfer did (or, in dry-run mode, would do)
type Result struct {
	Request     Request
	Transferred bool
	// Destination is the resolved path; it differs from the requested one
	// after an index rename.
	Destination string
	Action      conflict.Action
	// SourceMissing is set when the source was absent and the policy allowed it.
	SourceMissing bool
	DryRun        bool
}

// 🔌 Backend is everything the engine needs from the filesystem
type Backend interface {
	fsx.Oracle
	fsx.Primitive
}

// 🚚 Engine runs single transfers: check source, resolve the destination,
// then hand the bytes to the OS primitive.
type Engine struct {
	backend  Backend
	resolver *conflict.Resolver
	dryRun   bool
}

// 🔧 Option configures an Engine
type Option func(*Engine)

// WithDryRun resolves destinations without touching the filesystem.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) {
		e.dryRun = dryRun
	}
}

// 🏭 New creates an engine over a backend
func New(backend Backend, opts ...Option) *Engine {
	e := &Engine{backend: backend}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = conflict.NewResolver(backend)
	e.resolver.DryRun = e.dryRun
	return e
}

// Transfer copies or moves src to dst and reports whether bytes moved.
func (e *Engine) Transfer(ctx context.Context, src, dst string, mode Mode, policy conflict.Policy) (bool, error) {
	res, err := e.Execute(ctx, Request{Source: src, Destination: dst, Mode: mode, Policy: policy})
	if err != nil {
		return false, err
	}
	return res.Transferred, nil
}

// Execute runs one request. Resolution and execution are not atomic: a file
// appearing at the resolved path in between is overwritten.
func (e *Engine) Execute(ctx context.Context, req Request) (Result, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("src", req.Source).
		Str("dst", req.Destination).
		Str("mode", req.Mode.String()).
		Logger()

	res := Result{Request: req, DryRun: e.dryRun}

	src, err := e.backend.Stat(ctx, req.Source)
	if err != nil {
		return res, errors.Errorf("checking source: %w", err)
	}
	if !src.Exists {
		if req.Policy.ErrorOnNoSource {
			return res, &NotFoundError{Path: req.Source}
		}
		logger.Debug().Msg("source missing, nothing to do")
		res.SourceMissing = true
		return res, nil
	}

	// Only an indexed name leaves a destination that holds the source in place.
	if req.Policy.Mode != conflict.IndexRename {
		if filepath.Clean(req.Source) == filepath.Clean(req.Destination) {
			return res, errors.Errorf("source and destination are the same path: %s", req.Source)
		}
		if fsx.Within(req.Source, req.Destination) {
			return res, errors.Errorf("source %s lies inside destination %s", req.Source, req.Destination)
		}
	}

	dst, err := e.backend.Stat(ctx, req.Destination)
	if err != nil {
		return res, errors.Errorf("checking destination: %w", err)
	}

	// The backup rename would replace the source before it is read.
	if dst.Exists && req.Policy.Mode == conflict.BackupSuffix {
		if backup := req.Policy.BackupPath(req.Destination); fsx.Within(req.Source, backup) {
			return res, errors.Errorf("source %s would be replaced by the backup of %s", req.Source, req.Destination)
		}
	}

	action, err := e.resolver.ResolveWith(ctx, dst, req.Policy)
	if err != nil {
		return res, err
	}
	res.Action = action
	res.Destination = action.Destination

	if !action.Proceed {
		logger.Debug().Bool("skipped", action.Skipped).Msg("transfer declined by conflict policy")
		return res, nil
	}

	if e.dryRun {
		logger.Debug().Str("resolved", action.Destination).Msg("dry run, not transferring")
		return res, nil
	}

	opts := fsx.Options{Overwrite: true}
	switch req.Mode {
	case Move:
		err = e.backend.Move(ctx, req.Source, action.Destination, opts)
	default:
		err = e.backend.Copy(ctx, req.Source, action.Destination, opts)
	}
	if err != nil {
		return res, &IOError{Op: req.Mode.String(), Source: req.Source, Destination: action.Destination, Err: err}
	}

	logger.Debug().Str("resolved", action.Destination).Msg("transfer complete")
	res.Transferred = true
	return res, nil
}
