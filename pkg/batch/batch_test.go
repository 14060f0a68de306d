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
	"bytes"
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/safecopy/pkg/config"
	"github.com/walteh/safecopy/pkg/conflict"
	"github.com/walteh/safecopy/pkg/filetype"
	"github.com/walteh/safecopy/pkg/fsx"
	"github.com/walteh/safecopy/pkg/log"
	"github.com/walteh/safecopy/pkg/transfer"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func boolPtr(b bool) *bool { return &b }

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR\x00\x00\x00\x10\x00\x00\x00\x10\x08\x06")

func writeFiles(t *testing.T, mem afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, mem.MkdirAll(filepath.Dir(path), 0o755), "creating parent of %s should succeed", path)
		require.NoError(t, afero.WriteFile(mem, path, []byte(content), 0o644), "writing %s should succeed", path)
	}
}

func readFile(t *testing.T, mem afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(mem, path)
	require.NoError(t, err, "reading %s should succeed", path)
	return string(data)
}

func newPlan(t *testing.T, plan *config.Plan) *config.Plan {
	t.Helper()
	plan.SetLocation("/work/plan.yaml")
	require.NoError(t, plan.Validate(), "plan should be valid")
	return plan
}

func TestExpand(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"/work/inbox/b.pdf":        "b",
		"/work/inbox/a.pdf":        "a",
		"/work/inbox/skip.pdf":     "s",
		"/work/inbox/deep/c.pdf":   "c",
		"/work/inbox/notes.txt":    "n",
		"/work/inbox/cache/x.tmp":  "x",
		"/work/inbox/cache/y.tmp":  "y",
		"/work/notes.txt":          "notes",
		"/elsewhere/absolute.json": "{}",
	})

	plan := newPlan(t, &config.Plan{
		Policy:         &config.PolicyArgs{Mode: "index"},
		IgnorePatterns: []string{"inbox/skip.pdf", "**/*.tmp"},
		Transfers: []config.Transfer{
			{Source: "inbox/*.pdf", Destination: "archive"},
			{Source: "notes.txt", Destination: "backup/notes.txt", Move: true, Policy: &config.PolicyArgs{Mode: "backup"}},
			{Source: "inbox/**/*.tmp", Destination: "tmp/", Policy: &config.PolicyArgs{ErrorOnNoSource: boolPtr(false)}},
			{Source: "/elsewhere/absolute.json", Destination: "dir/"},
		},
	})

	jobs, err := NewRunner(fsx.New(mem)).Expand(testContext(t), plan)
	require.NoError(t, err, "expand should succeed")

	type pair struct{ src, dst string }
	var got []pair
	for i, job := range jobs {
		assert.Equal(t, i, job.Index, "index should follow job order")
		got = append(got, pair{job.Source, job.Destination})
	}
	assert.Equal(t, []pair{
		{"/work/inbox/a.pdf", "/work/archive/a.pdf"},
		{"/work/inbox/b.pdf", "/work/archive/b.pdf"},
		{"/work/notes.txt", "/work/backup/notes.txt"},
		{"/elsewhere/absolute.json", "/work/dir/absolute.json"},
	}, got, "jobs should match")

	assert.Equal(t, conflict.IndexRename, jobs[0].Policy.Mode, "plan policy should apply")
	assert.Equal(t, transfer.Copy, jobs[0].Mode, "copy should be the default")
	assert.Equal(t, conflict.BackupSuffix, jobs[2].Policy.Mode, "transfer policy should override")
	assert.Equal(t, transfer.Move, jobs[2].Mode, "move should be set")
}

func TestExpandNoMatches(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{"/work/a.txt": "a"})

	t.Run("required", func(t *testing.T) {
		plan := newPlan(t, &config.Plan{Transfers: []config.Transfer{{Source: "missing/*.pdf", Destination: "out/"}}})
		_, err := NewRunner(fsx.New(mem)).Expand(testContext(t), plan)
		require.Error(t, err, "expand should fail")
		assert.True(t, errors.Is(err, fs.ErrNotExist), "error should match fs.ErrNotExist")
	})

	t.Run("optional", func(t *testing.T) {
		plan := newPlan(t, &config.Plan{
			Policy:    &config.PolicyArgs{ErrorOnNoSource: boolPtr(false)},
			Transfers: []config.Transfer{{Source: "*.pdf", Destination: "out/"}},
		})
		rep, err := NewRunner(fsx.New(mem)).Run(testContext(t), plan)
		require.NoError(t, err, "run should succeed")
		assert.Empty(t, rep.Outcomes, "nothing should run")
	})
}

func TestRunSharedDestinationIsSequential(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"/work/a/report.txt": "from a",
		"/work/b/report.txt": "from b",
		"/work/c/report.txt": "from c",
		"/work/other.txt":    "other",
	})

	plan := newPlan(t, &config.Plan{
		Concurrency: 4,
		Policy:      &config.PolicyArgs{Mode: "index", Limit: 5},
		Transfers: []config.Transfer{
			{Source: "*/report.txt", Destination: "out/"},
			{Source: "other.txt", Destination: "out/other.txt"},
		},
	})

	rep, err := NewRunner(fsx.New(mem)).Run(testContext(t), plan)
	require.NoError(t, err, "run should succeed")
	assert.Equal(t, 4, rep.Transferred, "all jobs should transfer")

	assert.Equal(t, "from a", readFile(t, mem, "/work/out/report.txt"), "first job should take the name")
	assert.Equal(t, "from b", readFile(t, mem, "/work/out/report-01.txt"), "second job should take the first index")
	assert.Equal(t, "from c", readFile(t, mem, "/work/out/report-02.txt"), "third job should take the next index")
	assert.Equal(t, "other", readFile(t, mem, "/work/out/other.txt"), "unrelated job should land")

	assert.Equal(t, "/work/out/report-02.txt", rep.Outcomes[2].Result.Destination, "outcomes should be in job order")
}

func TestRunVerifyType(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"/work/in/photo.png": string(pngHeader),
		"/work/in/fake.png":  "this is plain text pretending to be an image",
		"/work/in/tiny.png":  "x",
	})

	plan := newPlan(t, &config.Plan{
		Transfers: []config.Transfer{{Source: "in/*.png", Destination: "out/", VerifyType: true}},
	})

	buf := &bytes.Buffer{}
	console := log.NewWithZerolog(buf, zerolog.Nop())

	rep, err := NewRunner(fsx.New(mem), WithConsole(console)).Run(testContext(t), plan)
	require.NoError(t, err, "run should succeed")
	assert.Equal(t, 1, rep.Transferred, "only the real image should transfer")
	assert.Equal(t, 2, rep.Skipped, "mismatches should be skipped")

	byName := map[string]Outcome{}
	for _, out := range rep.Outcomes {
		byName[out.Job.Source] = out
	}
	assert.Equal(t, filetype.TypePNG, byName["/work/in/photo.png"].Type.Type, "image should classify")
	assert.True(t, byName["/work/in/fake.png"].Mismatch, "text file should mismatch")
	assert.True(t, byName["/work/in/tiny.png"].Mismatch, "short file should mismatch")

	exists, err := afero.Exists(mem, "/work/out/fake.png")
	require.NoError(t, err, "exists should succeed")
	assert.False(t, exists, "mismatched file should not be copied")
	assert.Equal(t, string(pngHeader), readFile(t, mem, "/work/out/photo.png"), "image should be copied")

	assert.Contains(t, buf.String(), "fake.png is unknown, not a match for fake.png", "console should warn")
	assert.Contains(t, buf.String(), "png        copied", "console should show the copy")
}

func TestRunStopsOnFailure(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"/work/a.txt":     "a",
		"/work/out/a.txt": "taken",
	})

	plan := newPlan(t, &config.Plan{
		Transfers: []config.Transfer{{Source: "a.txt", Destination: "out/a.txt"}},
	})

	rep, err := NewRunner(fsx.New(mem)).Run(testContext(t), plan)
	require.Error(t, err, "run should fail")

	var exists *conflict.ExistsError
	require.True(t, errors.As(err, &exists), "error should be an ExistsError")
	assert.Equal(t, 1, rep.Failed, "failure should be counted")
	assert.Equal(t, "taken", readFile(t, mem, "/work/out/a.txt"), "occupant should be untouched")
}

func TestRunDryRun(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"/work/a.txt":     "a",
		"/work/out/a.txt": "taken",
		"/work/b.txt":     "b",
	})

	plan := newPlan(t, &config.Plan{
		Policy: &config.PolicyArgs{Mode: "backup"},
		Transfers: []config.Transfer{
			{Source: "a.txt", Destination: "out/a.txt", Move: true},
			{Source: "b.txt", Destination: "out/"},
		},
	})

	rep, err := NewRunner(fsx.New(mem), WithDryRun(true)).Run(testContext(t), plan)
	require.NoError(t, err, "run should succeed")
	assert.Equal(t, 2, rep.Planned, "both jobs should be planned")
	assert.Zero(t, rep.Transferred, "nothing should transfer")
	assert.Equal(t, "/work/out/a.txt~", rep.Outcomes[0].Result.Action.BackupPath, "backup path should be reported")

	assert.Equal(t, "taken", readFile(t, mem, "/work/out/a.txt"), "occupant should stay")
	assert.Equal(t, "a", readFile(t, mem, "/work/a.txt"), "source should stay")
	exists, err := afero.Exists(mem, "/work/out/b.txt")
	require.NoError(t, err, "exists should succeed")
	assert.False(t, exists, "nothing should be written")
}

func TestRunDryRunMatchesLiveIndexing(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  []string
	}{
		{
			name: "occupied_destination",
			files: map[string]string{
				"/work/src/a/report.docx": "a",
				"/work/src/b/report.docx": "b",
				"/work/out/report.docx":   "taken",
			},
			want: []string{"/work/out/report-01.docx", "/work/out/report-02.docx"},
		},
		{
			name: "free_destination",
			files: map[string]string{
				"/work/src/a/report.docx": "a",
				"/work/src/b/report.docx": "b",
			},
			want: []string{"/work/out/report.docx", "/work/out/report-01.docx"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, dryRun := range []bool{true, false} {
				mem := afero.NewMemMapFs()
				writeFiles(t, mem, tt.files)

				plan := newPlan(t, &config.Plan{
					Policy:      &config.PolicyArgs{Mode: "index"},
					Transfers:   []config.Transfer{{Source: "src/*/report.docx", Destination: "out/"}},
					Concurrency: 4,
				})

				rep, err := NewRunner(fsx.New(mem), WithDryRun(dryRun)).Run(testContext(t), plan)
				require.NoError(t, err, "run should succeed (dry run %v)", dryRun)

				var got []string
				for _, out := range rep.Outcomes {
					got = append(got, out.Result.Destination)
				}
				assert.Equal(t, tt.want, got, "resolved destinations should match (dry run %v)", dryRun)
			}
		})
	}
}

func TestGroupByDestination(t *testing.T) {
	jobs := []Job{
		{Destination: "/o/a"},
		{Destination: "/o/b"},
		{Destination: "/o/./a"},
		{Destination: "/o/c"},
		{Destination: "/o/b/"},
	}
	assert.Equal(t, [][]int{{0, 2}, {1, 4}, {3}}, groupByDestination(jobs), "groups should follow first appearance")
}

func TestRunOnDisk(t *testing.T) {
	dir := t.TempDir()
	osfs := afero.NewOsFs()
	writeFiles(t, osfs, map[string]string{
		dir + "/src/photos/one.jpg": "1",
		dir + "/src/photos/two.jpg": "2",
		dir + "/backup/photos/x":    "existing",
	})

	plan := &config.Plan{
		Policy:    &config.PolicyArgs{Mode: "index"},
		Transfers: []config.Transfer{{Source: "src/photos", Destination: "backup/"}},
	}
	plan.SetLocation(dir + "/plan.yaml")
	require.NoError(t, plan.Validate(), "plan should be valid")

	rep, err := NewRunner(fsx.NewOS()).Run(testContext(t), plan)
	require.NoError(t, err, "run should succeed")
	require.Len(t, rep.Outcomes, 1, "one job should run")
	assert.True(t, strings.HasSuffix(rep.Outcomes[0].Result.Destination, "backup/photos-01"), "directory should be index renamed")
	assert.Equal(t, "2", readFile(t, osfs, dir+"/backup/photos-01/two.jpg"), "directory should be copied recursively")
}

func TestRunVerifyTypeCachesClassification(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{"/work/logo.png": string(pngHeader)})

	plan := newPlan(t, &config.Plan{
		Transfers: []config.Transfer{
			{Source: "logo.png", Destination: "a/", VerifyType: true},
			{Source: "logo.png", Destination: "b/logo.png", VerifyType: true},
		},
	})

	runner := NewRunner(fsx.New(mem))
	rep, err := runner.Run(testContext(t), plan)
	require.NoError(t, err, "run should succeed")
	assert.Equal(t, 2, rep.Transferred, "both copies should land")
	assert.Equal(t, 1, runner.types.Len(), "one source should be classified once")
}
