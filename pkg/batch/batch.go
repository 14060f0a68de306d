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

package batch

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/safecopy/pkg/config"
	"github.com/walteh/safecopy/pkg/conflict"
	"github.com/walteh/safecopy/pkg/filetype"
	"github.com/walteh/safecopy/pkg/fsx"
	"github.com/walteh/safecopy/pkg/log"
	"github.com/walteh/safecopy/pkg/transfer"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 📦 Job is one expanded source/destination pair
type Job struct {
	Index       int
	Source      string
	Destination string
	Mode        transfer.Mode
	Policy      conflict.Policy
	VerifyType  bool
}

// 📋 Outcome is what happened to one job
type Outcome struct {
	Job    Job
	Ran    bool
	Result transfer.Result
	// Type is set when the job asked for type verification.
	Type filetype.Result
	// Mismatch means the content type disagreed with the destination
	// extension and the job was skipped.
	Mismatch bool
	Err      error
}

// 📊 Report summarizes a run. Outcomes are in job order.
type Report struct {
	Outcomes    []Outcome
	Transferred int
	Planned     int
	Skipped     int
	Failed      int
}

// 🏃 Runner executes plans over a filesystem
type Runner struct {
	fs      *fsx.FS
	types   *filetype.Cache
	console *log.Logger
	dryRun  bool
}

// 🔧 Option configures a Runner
type Option func(*Runner)

// WithConsole prints one line per finished job.
func WithConsole(l *log.Logger) Option {
	return func(r *Runner) {
		r.console = l
	}
}

// WithDryRun forces a dry run regardless of the plan.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// 🏗️ NewRunner creates a new runner
func NewRunner(fs *fsx.FS, opts ...Option) *Runner {
	types, err := filetype.NewCache(fs.Afero(), filetype.DefaultCacheSize)
	if err != nil {
		// only a non-positive size fails
		panic(err)
	}

	r := &Runner{fs: fs, types: types}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// 🔍 Expand turns plan transfers into jobs
func (r *Runner) Expand(ctx context.Context, plan *config.Plan) ([]Job, error) {
	logger := zerolog.Ctx(ctx)
	root := plan.Root()

	var jobs []Job
	for i, t := range plan.Transfers {
		policy, err := plan.PolicyFor(t)
		if err != nil {
			return nil, errors.Errorf("transfers[%d]: %w", i, err)
		}

		mode := transfer.Copy
		if t.Move {
			mode = transfer.Move
		}

		var sources []string
		if config.IsGlob(t.Source) {
			sources, err = r.glob(ctx, resolve(root, t.Source))
			if err != nil {
				return nil, errors.Errorf("transfers[%d]: expanding %s: %w", i, t.Source, err)
			}
			if len(sources) == 0 {
				if policy.ErrorOnNoSource {
					return nil, errors.Errorf("transfers[%d]: no sources match %s: %w", i, t.Source, &transfer.NotFoundError{Path: t.Source})
				}
				logger.Debug().Str("pattern", t.Source).Msg("pattern matched nothing")
			}
		} else {
			sources = []string{resolve(root, t.Source)}
		}

		sources = r.filter(ctx, root, plan.IgnorePatterns, sources)
		sort.Strings(sources)

		dst := resolve(root, t.Destination)
		for _, src := range sources {
			d := dst
			if t.IsDirectory() {
				d = filepath.Join(dst, filepath.Base(src))
			}
			jobs = append(jobs, Job{
				Index:       len(jobs),
				Source:      src,
				Destination: d,
				Mode:        mode,
				Policy:      policy,
				VerifyType:  t.VerifyType,
			})
		}
	}

	return jobs, nil
}

// 🏃 Run expands and executes a plan. Jobs sharing a requested destination
// run one after another in job order; distinct destinations run concurrently
// up to plan.Concurrency. The first failure cancels jobs not yet started.
func (r *Runner) Run(ctx context.Context, plan *config.Plan) (Report, error) {
	logger := zerolog.Ctx(ctx)

	jobs, err := r.Expand(ctx, plan)
	if err != nil {
		return Report{}, err
	}

	dryRun := r.dryRun || plan.DryRun

	outcomes := make([]Outcome, len(jobs))
	for i, job := range jobs {
		outcomes[i].Job = job
	}

	limit := plan.Concurrency
	if limit < 1 {
		limit = 1
	}

	logger.Debug().Int("jobs", len(jobs)).Int("concurrency", limit).Bool("dry_run", dryRun).Msg("running plan")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, group := range groupByDestination(jobs) {
		g.Go(func() error {
			var backend transfer.Backend = r.fs
			var claims *claimedFS
			if dryRun {
				claims = &claimedFS{Backend: r.fs, claimed: map[string]bool{}}
				backend = claims
			}
			engine := transfer.New(backend, transfer.WithDryRun(dryRun))

			for _, idx := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				out := r.runJob(gctx, engine, jobs[idx])
				outcomes[idx] = out
				r.report(gctx, out)
				if out.Err != nil {
					return out.Err
				}
				if claims != nil && out.Result.Action.Proceed {
					claims.claim(out.Result.Destination, out.Result.Action.BackupPath)
				}
			}
			return nil
		})
	}
	runErr := g.Wait()

	rep := summarize(outcomes)
	if runErr != nil {
		return rep, errors.Errorf("running plan: %w", runErr)
	}
	return rep, nil
}

// claimedFS stands in for the writes a dry run skips: paths an earlier job
// in the group would have written report as occupied files.
type claimedFS struct {
	transfer.Backend
	claimed map[string]bool
}

func (c *claimedFS) Stat(ctx context.Context, path string) (fsx.PathMetadata, error) {
	md, err := c.Backend.Stat(ctx, path)
	if err != nil || md.Exists || !c.claimed[filepath.Clean(path)] {
		return md, err
	}
	md.Exists = true
	md.IsFile = true
	return md, nil
}

func (c *claimedFS) claim(paths ...string) {
	for _, p := range paths {
		if p != "" {
			c.claimed[filepath.Clean(p)] = true
		}
	}
}

func (r *Runner) runJob(ctx context.Context, engine *transfer.Engine, job Job) Outcome {
	out := Outcome{Job: job, Ran: true}

	if job.VerifyType {
		ok, res, err := r.verify(ctx, job)
		out.Type = res
		if err != nil {
			out.Err = err
			return out
		}
		if !ok {
			out.Mismatch = true
			out.Result = transfer.Result{Request: r.request(job), Destination: job.Destination}
			return out
		}
	}

	out.Result, out.Err = engine.Execute(ctx, r.request(job))
	return out
}

func (r *Runner) request(job Job) transfer.Request {
	return transfer.Request{
		Source:      job.Source,
		Destination: job.Destination,
		Mode:        job.Mode,
		Policy:      job.Policy,
	}
}

// verify classifies a regular-file source and checks it against the
// destination extension. Other sources pass unchecked.
func (r *Runner) verify(ctx context.Context, job Job) (bool, filetype.Result, error) {
	md, err := r.fs.Stat(ctx, job.Source)
	if err != nil {
		return false, filetype.Result{}, errors.Errorf("checking source: %w", err)
	}
	if !md.Exists || !md.IsFile {
		return true, filetype.Result{}, nil
	}

	res, err := r.types.SniffFile(job.Source)
	if err != nil {
		var short *filetype.LengthError
		if !errors.As(err, &short) {
			return false, res, errors.Errorf("classifying %s: %w", job.Source, err)
		}
	}

	ok := filetype.MatchesExtension(res, job.Destination)
	zerolog.Ctx(ctx).Debug().
		Str("src", job.Source).
		Str("type", string(res.Type)).
		Bool("match", ok).
		Msg("verified type")
	return ok, res, nil
}

func (r *Runner) report(ctx context.Context, out Outcome) {
	if r.console == nil {
		return
	}
	rec := log.RecordFromResult(out.Result, out.Err)
	rec.Type = string(out.Type.Type)
	if out.Mismatch {
		rec.Status = log.StatusSkipped
		r.console.Warningf("%s is %s, not a match for %s", out.Job.Source, out.Type, filepath.Base(out.Job.Destination))
	}
	r.console.LogTransfer(ctx, rec)
}

// glob expands an absolute or root-relative doublestar pattern.
func (r *Runner) glob(ctx context.Context, pattern string) ([]string, error) {
	base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
	base = filepath.FromSlash(base)

	md, err := r.fs.Stat(ctx, base)
	if err != nil {
		return nil, err
	}
	if !md.IsDirectory {
		return nil, nil
	}

	iofs := afero.NewIOFS(afero.NewBasePathFs(r.fs.Afero(), base))
	matches, err := doublestar.Glob(iofs, rest, doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(base, filepath.FromSlash(m)))
	}
	return out, nil
}

// filter drops sources whose root-relative path matches an ignore pattern.
func (r *Runner) filter(ctx context.Context, root string, patterns []string, sources []string) []string {
	if len(patterns) == 0 {
		return sources
	}
	logger := zerolog.Ctx(ctx)

	kept := make([]string, 0, len(sources))
	for _, src := range sources {
		rel, err := filepath.Rel(root, src)
		if err != nil {
			rel = src
		}
		rel = filepath.ToSlash(rel)

		ignored := false
		for _, pattern := range patterns {
			matched, err := doublestar.Match(pattern, rel)
			if err != nil {
				logger.Debug().Str("pattern", pattern).Str("path", rel).Err(err).Msg("error matching pattern")
				continue
			}
			if matched {
				logger.Debug().Str("file", rel).Str("pattern", pattern).Msg("file ignored by pattern")
				ignored = true
				break
			}
		}
		if !ignored {
			kept = append(kept, src)
		}
	}
	return kept
}

// groupByDestination buckets job indexes by requested destination, keeping
// job order inside each bucket and ordering buckets by first appearance.
func groupByDestination(jobs []Job) [][]int {
	var groups [][]int
	seen := map[string]int{}
	for i, job := range jobs {
		key := filepath.Clean(job.Destination)
		g, ok := seen[key]
		if !ok {
			g = len(groups)
			seen[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func summarize(outcomes []Outcome) Report {
	rep := Report{Outcomes: outcomes}
	for _, out := range outcomes {
		switch {
		case !out.Ran:
		case out.Err != nil:
			rep.Failed++
		case out.Result.Transferred:
			rep.Transferred++
		case out.Mismatch, out.Result.SourceMissing, out.Result.Action.Skipped:
			rep.Skipped++
		case out.Result.DryRun:
			rep.Planned++
		}
	}
	return rep
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}
