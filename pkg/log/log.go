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
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/safecopy/pkg/transfer"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent transfer entries
	nameWidth   = 35 // Base width for source path
	typeWidth   = 10 // Width for file type
	statusWidth = 12 // Width for status text
)

// 🏷️ Status values shown for a transfer
const (
	StatusCopied  = "copied"
	StatusMoved   = "moved"
	StatusSkipped = "skipped"
	StatusMissing = "missing"
	StatusPlanned = "planned"
	StatusFailed  = "failed"
)

// 🎯 TransferRecord is one transfer as shown to the user
type TransferRecord struct {
	Source      string // Source path
	Destination string // Resolved destination path
	Type        string // Detected file type, if any
	Status      string // One of the Status* values
	Renamed     bool   // Landed on an indexed name
	BackupPath  string // Where the previous occupant went
	Err         error  // Failure, if any
}

// 📦 PlanOperation is a batch of transfers
type PlanOperation struct {
	Name   string // Plan file
	Jobs   int    // Number of transfers
	DryRun bool   // Nothing will be written
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	mu        sync.Mutex
	currentOp *PlanOperation
	records   []TransferRecord
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return NewWithZerolog(console, zlog)
}

// 🏭 NewWithZerolog creates a logger that mirrors into an existing zerolog logger
func NewWithZerolog(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 🔄 RecordFromResult builds the console record for an engine result
func RecordFromResult(res transfer.Result, err error) TransferRecord {
	rec := TransferRecord{
		Source:      res.Request.Source,
		Destination: res.Destination,
		BackupPath:  res.Action.BackupPath,
		Err:         err,
	}
	if rec.Destination == "" {
		rec.Destination = res.Request.Destination
	}
	rec.Renamed = res.Destination != "" && res.Destination != res.Request.Destination

	switch {
	case err != nil:
		rec.Status = StatusFailed
	case res.SourceMissing:
		rec.Status = StatusMissing
	case res.Action.Skipped:
		rec.Status = StatusSkipped
	case res.DryRun:
		rec.Status = StatusPlanned
	case res.Request.Mode == transfer.Move:
		rec.Status = StatusMoved
	default:
		rec.Status = StatusCopied
	}
	return rec
}

// 📝 formatTransfer formats a transfer for display
func (l *Logger) formatTransfer(rec TransferRecord) string {
	var symbol rune
	var symbolColor color.Attribute
	switch rec.Status {
	case StatusFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	case StatusSkipped, StatusMissing:
		symbol = '-'
		symbolColor = color.FgYellow
	case StatusPlanned:
		symbol = '•'
		symbolColor = color.FgCyan
	default:
		if rec.Renamed || rec.BackupPath != "" {
			symbol = '⟳'
			symbolColor = color.FgBlue
		} else {
			symbol = '✓'
			symbolColor = color.FgGreen
		}
	}

	fileType := rec.Type
	if fileType == "" {
		fileType = "-"
	}

	line := fmt.Sprintf("%s%s %s %s %s → %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, rec.Source),
		color.New(color.FgCyan).Sprint(fmt.Sprintf("%-*s", typeWidth, fileType)),
		fmt.Sprintf("%-*s", statusWidth, rec.Status),
		rec.Destination)
	if rec.BackupPath != "" {
		line += color.New(color.Faint).Sprintf(" (backup %s)", rec.BackupPath)
	}
	return line
}

// 📝 LogTransfer logs a transfer
func (l *Logger) LogTransfer(ctx context.Context, rec TransferRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)

	fmt.Fprintln(l.console, l.formatTransfer(rec))
	if rec.Err != nil {
		fmt.Fprintf(l.console, "%*s%s\n", fileIndent+2, "", color.New(color.FgRed).Sprint(rec.Err.Error()))
	}

	ev := l.zlog.Info()
	if rec.Err != nil {
		ev = l.zlog.Error().Err(rec.Err)
	}
	ev.Str("source", rec.Source).
		Str("destination", rec.Destination).
		Str("type", rec.Type).
		Str("status", rec.Status).
		Bool("renamed", rec.Renamed).
		Str("backup", rec.BackupPath).
		Msg("transfer")
}

// 📝 StartPlan starts a new plan operation
func (l *Logger) StartPlan(ctx context.Context, op PlanOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentOp = &op
	l.records = nil

	fmt.Fprintf(l.console, "[running %s]\n", color.New(color.FgCyan).Sprint(op.Name))

	mode := "live"
	if op.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprintf("%d transfers", op.Jobs),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(mode))

	l.zlog.Info().
		Str("plan", op.Name).
		Int("jobs", op.Jobs).
		Bool("dry_run", op.DryRun).
		Msg("starting plan")
}

// 📝 EndPlan ends the current plan operation
func (l *Logger) EndPlan(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentOp == nil {
		return
	}

	counts := map[string]int{}
	for _, r := range l.records {
		counts[r.Status]++
	}

	l.zlog.Info().
		Str("plan", l.currentOp.Name).
		Int("records", len(l.records)).
		Int("failed", counts[StatusFailed]).
		Int("skipped", counts[StatusSkipped]).
		Msg("plan complete")

	l.currentOp = nil
	l.records = nil
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("safecopy")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
