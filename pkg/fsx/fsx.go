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

// Package fsx is the filesystem boundary of safecopy: a metadata oracle and
// a copy/move primitive, both backed by an afero.Fs.
package fsx

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// 📄 PathMetadata is a snapshot of one path, taken by a single Stat call
type PathMetadata struct {
	Path        string
	Exists      bool
	IsFile      bool
	IsDirectory bool
	Size        int64
	Mode        os.FileMode
	// CreatedAt falls back to the modification time; afero does not expose
	// birth time.
	CreatedAt time.Time
}

// 🔍 Oracle answers existence and metadata questions about paths
type Oracle interface {
	// Stat returns Exists=false with a nil error for missing paths.
	Stat(ctx context.Context, path string) (PathMetadata, error)
}

// ⚙️ Options tune a single copy or move
type Options struct {
	// Overwrite replaces whatever occupies the destination.
	Overwrite bool
}

// 🚚 Primitive moves bytes between paths. Directory sources are handled
// recursively.
type Primitive interface {
	Copy(ctx context.Context, src, dst string, opts Options) error
	Move(ctx context.Context, src, dst string, opts Options) error
}

// 💾 FS implements Oracle and Primitive on top of an afero.Fs
type FS struct {
	fs afero.Fs
}

var (
	_ Oracle    = (*FS)(nil)
	_ Primitive = (*FS)(nil)
)

// 🏭 New wraps an afero filesystem
func New(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// 🏭 NewOS returns an FS over the host filesystem
func NewOS() *FS {
	return New(afero.NewOsFs())
}

// Afero exposes the underlying filesystem.
func (f *FS) Afero() afero.Fs {
	return f.fs
}

// Stat follows symlinks. Any entry, including devices and sockets, counts as
// existing.
func (f *FS) Stat(ctx context.Context, path string) (PathMetadata, error) {
	md := PathMetadata{Path: path}

	info, err := f.fs.Stat(path)
	if err != nil {
		if isNotExist(err) {
			zerolog.Ctx(ctx).Trace().Str("path", path).Msg("path does not exist")
			return md, nil
		}
		return md, errors.Errorf("stat %s: %w", path, err)
	}

	md.Exists = true
	md.IsDirectory = info.IsDir()
	md.IsFile = info.Mode().IsRegular()
	md.Size = info.Size()
	md.Mode = info.Mode()
	md.CreatedAt = info.ModTime()
	return md, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// Copy copies src to dst, creating dst's parent directories. Directory
// sources are merged into an existing directory destination when
// Overwrite is set.
func (f *FS) Copy(ctx context.Context, src, dst string, opts Options) error {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return errors.Errorf("source and destination are the same path: %s", src)
	}

	info, err := f.fs.Stat(src)
	if err != nil {
		return errors.Errorf("stat source %s: %w", src, err)
	}

	if err := f.checkDestination(dst, opts); err != nil {
		return err
	}

	if info.IsDir() {
		if Within(dst, src) {
			return errors.Errorf("cannot copy %s into itself (%s)", src, dst)
		}
		return f.copyDir(ctx, src, dst, opts)
	}

	if err := f.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}
	return f.copyFile(ctx, src, dst, info.Mode())
}

// Move renames src to dst, replacing dst when Overwrite is set. Moves across
// devices fall back to copy and remove.
func (f *FS) Move(ctx context.Context, src, dst string, opts Options) error {
	logger := zerolog.Ctx(ctx)

	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}
	if _, err := f.fs.Stat(src); err != nil {
		return errors.Errorf("stat source %s: %w", src, err)
	}
	if Within(dst, src) {
		return errors.Errorf("cannot move %s into itself (%s)", src, dst)
	}
	if Within(src, dst) {
		return errors.Errorf("cannot replace %s with its own descendant %s", dst, src)
	}

	if err := f.checkDestination(dst, opts); err != nil {
		return err
	}
	if opts.Overwrite {
		if err := f.fs.RemoveAll(dst); err != nil {
			return errors.Errorf("removing %s: %w", dst, err)
		}
	}

	if err := f.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	err := f.fs.Rename(src, dst)
	if err == nil {
		logger.Trace().Str("src", src).Str("dst", dst).Msg("renamed")
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return errors.Errorf("renaming %s to %s: %w", src, dst, err)
	}

	logger.Debug().Str("src", src).Str("dst", dst).Msg("cross-device move, copying instead")
	if err := f.Copy(ctx, src, dst, Options{Overwrite: true}); err != nil {
		return errors.Errorf("copying across devices: %w", err)
	}
	if err := f.fs.RemoveAll(src); err != nil {
		return errors.Errorf("removing moved source %s: %w", src, err)
	}
	return nil
}

func (f *FS) checkDestination(dst string, opts Options) error {
	if opts.Overwrite {
		return nil
	}
	if _, err := f.fs.Stat(dst); err == nil {
		return &fs.PathError{Op: "copy", Path: dst, Err: fs.ErrExist}
	} else if !isNotExist(err) {
		return errors.Errorf("stat destination %s: %w", dst, err)
	}
	return nil
}

func (f *FS) copyDir(ctx context.Context, src, dst string, opts Options) error {
	return afero.Walk(f.fs, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return errors.Errorf("relativizing %s: %w", path, err)
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			if err := f.fs.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
				return errors.Errorf("creating directory %s: %w", target, err)
			}
			return nil
		}

		if !opts.Overwrite {
			if _, err := f.fs.Stat(target); err == nil {
				return &fs.PathError{Op: "copy", Path: target, Err: fs.ErrExist}
			}
		}
		return f.copyFile(ctx, path, target, info.Mode())
	})
}

func (f *FS) copyFile(ctx context.Context, src, dst string, mode os.FileMode) error {
	if info, err := f.fs.Stat(dst); err == nil && info.IsDir() {
		return errors.Errorf("cannot overwrite directory %s with file %s", dst, src)
	}

	in, err := f.fs.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer in.Close()

	out, err := f.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return errors.Errorf("creating destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Errorf("copying file content: %w", err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing destination file: %w", err)
	}

	// OpenFile applies the umask; restore the source permissions.
	if err := f.fs.Chmod(dst, mode.Perm()); err != nil {
		return errors.Errorf("setting permissions on %s: %w", dst, err)
	}

	zerolog.Ctx(ctx).Trace().Str("src", src).Str("dst", dst).Msg("copied file")
	return nil
}

// Within reports whether path is root or lies beneath it.
func Within(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
