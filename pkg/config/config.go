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

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/safecopy/pkg/conflict"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for plan parsers
type Parser interface {
	// 📝 Parse decodes a plan from bytes
	Parse(ctx context.Context, data []byte) (*Plan, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// DefaultFileNames are searched, in order, when no plan path is given.
var DefaultFileNames = []string{
	".safecopy.yaml",
	".safecopy.yml",
	".safecopy.hcl",
	".safecopy.json",
}

// 🛡️ PolicyArgs is the conflict policy as written in a plan file
type PolicyArgs struct {
	Mode            string `json:"mode,omitempty" yaml:"mode,omitempty" hcl:"mode,optional"`
	Separator       string `json:"separator,omitempty" yaml:"separator,omitempty" hcl:"separator,optional"`
	Suffix          string `json:"suffix,omitempty" yaml:"suffix,omitempty" hcl:"suffix,optional"`
	Limit           int    `json:"limit,omitempty" yaml:"limit,omitempty" hcl:"limit,optional"`
	ErrorOnNoSource *bool  `json:"error_on_no_source,omitempty" yaml:"error_on_no_source,omitempty" hcl:"error_on_no_source,optional"`
	ErrorOnExist    *bool  `json:"error_on_exist,omitempty" yaml:"error_on_exist,omitempty" hcl:"error_on_exist,optional"`
}

// 📦 Transfer is one entry of a plan
type Transfer struct {
	Source      string      `json:"source" yaml:"source" hcl:"source"`
	Destination string      `json:"destination" yaml:"destination" hcl:"destination"`
	Move        bool        `json:"move,omitempty" yaml:"move,omitempty" hcl:"move,optional"`
	VerifyType  bool        `json:"verify_type,omitempty" yaml:"verify_type,omitempty" hcl:"verify_type,optional"`
	Policy      *PolicyArgs `json:"policy,omitempty" yaml:"policy,omitempty" hcl:"policy,block"`
}

// 📚 Plan is a batch of transfers sharing a default conflict policy
type Plan struct {
	Policy         *PolicyArgs `json:"policy,omitempty" yaml:"policy,omitempty" hcl:"policy,block"`
	Transfers      []Transfer  `json:"transfers" yaml:"transfers" hcl:"transfer,block"`
	IgnorePatterns []string    `json:"ignore_patterns,omitempty" yaml:"ignore_patterns,omitempty" hcl:"ignore_patterns,optional"`
	Concurrency    int         `json:"concurrency,omitempty" yaml:"concurrency,omitempty" hcl:"concurrency,optional"`
	DryRun         bool        `json:"dry_run,omitempty" yaml:"dry_run,omitempty" hcl:"dry_run,optional"`

	location string
}

// IsDirectory reports whether the destination names a directory to place
// sources into rather than a file path.
func (t Transfer) IsDirectory() bool {
	return strings.HasSuffix(t.Destination, "/") || IsGlob(t.Source)
}

// IsGlob reports whether a source contains doublestar meta characters.
func IsGlob(source string) bool {
	return strings.ContainsAny(source, "*?[{")
}

// EnvParser is implemented by parsers whose expressions can read variables.
type EnvParser interface {
	ParseWithEnv(ctx context.Context, data []byte, env map[string]string) (*Plan, error)
}

type loadOptions struct {
	env map[string]string
}

// 🔧 LoadOption configures Load
type LoadOption func(*loadOptions)

// WithEnv adds variables visible to plan expressions, on top of the process
// environment. Formats without expressions ignore them.
func WithEnv(env map[string]string) LoadOption {
	return func(o *loadOptions) {
		o.env = env
	}
}

// 📄 LoadEnvFile reads KEY=value pairs in dotenv format
func LoadEnvFile(fsys afero.Fs, path string) (map[string]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening env file: %w", err)
	}
	defer f.Close()

	env, err := godotenv.Parse(f)
	if err != nil {
		return nil, errors.Errorf("parsing env file %s: %w", path, err)
	}
	return env, nil
}

// 🎯 Load reads, parses and validates a plan file
func Load(ctx context.Context, fsys afero.Fs, path string, opts ...LoadOption) (*Plan, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading plan")

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Errorf("reading plan file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	var plan *Plan
	if ep, ok := p.(EnvParser); ok && len(o.env) > 0 {
		plan, err = ep.ParseWithEnv(ctx, data, o.env)
	} else {
		plan, err = p.Parse(ctx, data)
	}
	if err != nil {
		return nil, errors.Errorf("parsing plan: %w", err)
	}

	plan.location = path
	if err := plan.Validate(); err != nil {
		return nil, errors.Errorf("validating plan: %w", err)
	}

	logger.Debug().Int("transfers", len(plan.Transfers)).Msg("plan loaded")
	return plan, nil
}

// 🔍 Find returns the first default plan file present in dir
func Find(fsys afero.Fs, dir string) (string, error) {
	for _, name := range DefaultFileNames {
		path := filepath.Join(dir, name)
		ok, err := afero.Exists(fsys, path)
		if err != nil {
			return "", errors.Errorf("checking %s: %w", path, err)
		}
		if ok {
			return path, nil
		}
	}
	return "", errors.Errorf("no plan file found in %s (tried %s)", dir, strings.Join(DefaultFileNames, ", "))
}

// Root is the directory relative sources and destinations resolve against.
func (plan *Plan) Root() string {
	if plan.location == "" {
		return "."
	}
	return filepath.Dir(plan.location)
}

// SetLocation records the file a plan was read from.
func (plan *Plan) SetLocation(path string) {
	plan.location = path
}

// 🔍 Validate fills defaults, cleans paths and rejects bad values
func (plan *Plan) Validate() error {
	if len(plan.Transfers) == 0 {
		return errors.Errorf("at least one transfer is required")
	}
	if plan.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative: %d", plan.Concurrency)
	}
	if plan.Concurrency == 0 {
		plan.Concurrency = 1
	}

	for _, pattern := range plan.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	if _, err := plan.Policy.Apply(conflict.DefaultPolicy()); err != nil {
		return errors.Errorf("policy: %w", err)
	}

	for i := range plan.Transfers {
		t := &plan.Transfers[i]
		if t.Source == "" {
			return errors.Errorf("transfers[%d].source is required", i)
		}
		if t.Destination == "" {
			return errors.Errorf("transfers[%d].destination is required", i)
		}
		if IsGlob(t.Source) && !doublestar.ValidatePattern(filepath.ToSlash(t.Source)) {
			return errors.Errorf("transfers[%d].source: invalid pattern %q", i, t.Source)
		}

		dir := t.IsDirectory()
		t.Source = filepath.Clean(t.Source)
		t.Destination = filepath.Clean(t.Destination)
		if dir && !strings.HasSuffix(t.Destination, "/") {
			t.Destination += "/"
		}

		if _, err := plan.PolicyFor(*t); err != nil {
			return errors.Errorf("transfers[%d].policy: %w", i, err)
		}
	}

	return nil
}

// PolicyFor returns the effective conflict policy of one transfer.
func (plan *Plan) PolicyFor(t Transfer) (conflict.Policy, error) {
	base, err := plan.Policy.Apply(conflict.DefaultPolicy())
	if err != nil {
		return conflict.Policy{}, err
	}
	return t.Policy.Apply(base)
}

// 🔄 Apply overlays the fields set in args onto base
func (args *PolicyArgs) Apply(base conflict.Policy) (conflict.Policy, error) {
	p := base
	if args != nil {
		if args.Mode != "" {
			m, err := conflict.ParseMode(args.Mode)
			if err != nil {
				return conflict.Policy{}, err
			}
			p.Mode = m
		}
		if args.Separator != "" {
			p.Separator = args.Separator
		}
		if args.Suffix != "" {
			p.Suffix = args.Suffix
		}
		if args.Limit < 0 {
			return conflict.Policy{}, errors.Errorf("limit must not be negative: %d", args.Limit)
		}
		if args.Limit != 0 {
			p.Limit = args.Limit
		}
		if args.ErrorOnNoSource != nil {
			p.ErrorOnNoSource = *args.ErrorOnNoSource
		}
		if args.ErrorOnExist != nil {
			p.ErrorOnExist = *args.ErrorOnExist
		}
	}

	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return conflict.Policy{}, err
	}
	return p, nil
}

// 📝 String returns a string representation of the plan
func (plan *Plan) String() string {
	mode := "live"
	if plan.DryRun {
		mode = "dry run"
	}
	return fmt.Sprintf("%d transfers from %s (concurrency %d, %s)", len(plan.Transfers), plan.Root(), plan.Concurrency, mode)
}
