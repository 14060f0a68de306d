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

package log

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/safecopy/pkg/conflict"
	"github.com/walteh/safecopy/pkg/transfer"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "log_transfer",
			op: func(t *testing.T, logger *Logger) {
				logger.LogTransfer(context.Background(), TransferRecord{
					Source:      "in/report.pdf",
					Destination: "out/report.pdf",
					Type:        "pdf",
					Status:      StatusCopied,
				})
			},
			wantLogs: []string{
				"✓ in/report.pdf                       pdf        copied       → out/report.pdf",
			},
		},
		{
			name: "log_failed_transfer",
			op: func(t *testing.T, logger *Logger) {
				logger.LogTransfer(context.Background(), TransferRecord{
					Source:      "a.txt",
					Destination: "b.txt",
					Status:      StatusFailed,
					Err:         fs.ErrPermission,
				})
			},
			wantLogs: []string{
				"✗ a.txt                               -          failed       → b.txt",
				"permission denied",
			},
		},
		{
			name: "log_plan_operation",
			op: func(t *testing.T, logger *Logger) {
				logger.StartPlan(context.Background(), PlanOperation{
					Name:   "plan.yaml",
					Jobs:   3,
					DryRun: true,
				})
				logger.EndPlan(context.Background())
			},
			wantLogs: []string{
				"[running plan.yaml]",
				"◆ 3 transfers • dry run",
			},
		},
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("info %s", "test")
				logger.Warningf("warning %s", "test")
				logger.Errorf("error %s", "test")
				logger.Successf("success %s", "test")
			},
			wantLogs: []string{
				"ℹ️  info test",
				"⚠️  warning test",
				"❌ error test",
				"✅ success test",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("running transfers")
			},
			wantLogs: []string{
				"safecopy • running transfers",
			},
		},
		{
			name: "log_newline",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("first")
				logger.LogNewline()
				logger.Info("second")
			},
			wantLogs: []string{
				"ℹ️  first",
				"",
				"ℹ️  second",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewWithZerolog(buf, zerolog.New(zerolog.NewTestWriter(t)))

			tt.op(t, logger)

			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := New(io.Discard, zerolog.InfoLevel)

	ctx := NewContext(context.Background(), logger)

	got := FromContext(ctx)
	assert.Same(t, logger, got, "logger from context should be the same instance")

	assert.Panics(t, func() {
		FromContext(context.Background())
	}, "FromContext should panic when logger is missing")
}

func TestTransferFormatting(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name string
		rec  TransferRecord
		want string
	}{
		{
			name: "renamed_copy",
			rec:  TransferRecord{Source: "a.txt", Destination: "a-01.txt", Status: StatusCopied, Renamed: true},
			want: "    ⟳ a.txt                               -          copied       → a-01.txt",
		},
		{
			name: "backed_up_move",
			rec:  TransferRecord{Source: "a.txt", Destination: "b.txt", Status: StatusMoved, BackupPath: "b.txt~"},
			want: "    ⟳ a.txt                               -          moved        → b.txt (backup b.txt~)",
		},
		{
			name: "skipped",
			rec:  TransferRecord{Source: "a.txt", Destination: "b.txt", Status: StatusSkipped},
			want: "    - a.txt                               -          skipped      → b.txt",
		},
		{
			name: "planned",
			rec:  TransferRecord{Source: "a.txt", Destination: "b.txt", Type: "txt", Status: StatusPlanned},
			want: "    • a.txt                               txt        planned      → b.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewWithZerolog(io.Discard, zerolog.Nop())
			assert.Equal(t, tt.want, logger.formatTransfer(tt.rec), "formatted output should match")
		})
	}
}

func TestRecordFromResult(t *testing.T) {
	req := transfer.Request{Source: "a.txt", Destination: "b.txt"}

	tests := []struct {
		name       string
		res        transfer.Result
		err        error
		wantStatus string
		wantDst    string
		renamed    bool
	}{
		{
			name:       "copied",
			res:        transfer.Result{Request: req, Transferred: true, Destination: "b.txt"},
			wantStatus: StatusCopied,
			wantDst:    "b.txt",
		},
		{
			name: "moved_renamed",
			res: transfer.Result{
				Request:     transfer.Request{Source: "a.txt", Destination: "b.txt", Mode: transfer.Move},
				Transferred: true,
				Destination: "b-01.txt",
			},
			wantStatus: StatusMoved,
			wantDst:    "b-01.txt",
			renamed:    true,
		},
		{
			name:       "skipped",
			res:        transfer.Result{Request: req, Destination: "b.txt", Action: conflict.Action{Skipped: true, Destination: "b.txt"}},
			wantStatus: StatusSkipped,
			wantDst:    "b.txt",
		},
		{
			name:       "missing_source",
			res:        transfer.Result{Request: req, SourceMissing: true},
			wantStatus: StatusMissing,
			wantDst:    "b.txt",
		},
		{
			name:       "dry_run",
			res:        transfer.Result{Request: req, DryRun: true, Destination: "b.txt"},
			wantStatus: StatusPlanned,
			wantDst:    "b.txt",
		},
		{
			name:       "failed",
			res:        transfer.Result{Request: req},
			err:        fs.ErrPermission,
			wantStatus: StatusFailed,
			wantDst:    "b.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := RecordFromResult(tt.res, tt.err)
			assert.Equal(t, tt.wantStatus, rec.Status, "status should match")
			assert.Equal(t, tt.wantDst, rec.Destination, "destination should match")
			assert.Equal(t, tt.renamed, rec.Renamed, "renamed should match")
			assert.Equal(t, "a.txt", rec.Source, "source should match")
		})
	}
}
