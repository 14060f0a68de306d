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
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🎛️ Mode selects what happens when a destination is occupied
type Mode int

const (
	// FailIfExists refuses the transfer.
	FailIfExists Mode = iota
	// Overwrite replaces the occupant.
	Overwrite
	// BackupSuffix renames the occupant to path+Suffix first.
	BackupSuffix
	// IndexRename picks the first free name+Separator+NN+ext.
	IndexRename
)

const (
	DefaultSeparator = "-"
	DefaultSuffix    = "~"
	DefaultLimit     = 32
)

var modeNames = map[Mode]string{
	FailIfExists: "fail",
	Overwrite:    "overwrite",
	BackupSuffix: "backup",
	IndexRename:  "index",
}

// String returns the name used in config files and flags.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the names produced by String.
func ParseMode(s string) (Mode, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == want {
			return m, nil
		}
	}
	return FailIfExists, errors.Errorf("unknown conflict mode %q (want fail, overwrite, backup or index)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, errors.Errorf("unknown conflict mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// 📜 Policy governs one resolution. Exactly one Mode is active.
type Policy struct {
	Mode      Mode
	Separator string
	Suffix    string
	// Limit is the highest index IndexRename tries.
	Limit int
	// ErrorOnNoSource makes a missing transfer source an error rather than
	// a no-op.
	ErrorOnNoSource bool
	// ErrorOnExist makes an unresolvable conflict an error rather than a
	// skip.
	ErrorOnExist bool
}

// DefaultPolicy fails on any conflict.
func DefaultPolicy() Policy {
	return Policy{
		Mode:            FailIfExists,
		Separator:       DefaultSeparator,
		Suffix:          DefaultSuffix,
		Limit:           DefaultLimit,
		ErrorOnNoSource: true,
		ErrorOnExist:    true,
	}
}

// WithDefaults fills empty fields.
func (p Policy) WithDefaults() Policy {
	if p.Separator == "" {
		p.Separator = DefaultSeparator
	}
	if p.Suffix == "" {
		p.Suffix = DefaultSuffix
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	return p
}

// BackupPath is where BackupSuffix moves the occupant of dst.
func (p Policy) BackupPath(dst string) string {
	suffix := p.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return dst + suffix
}

// Validate rejects policies no resolution could honor.
func (p Policy) Validate() error {
	if _, ok := modeNames[p.Mode]; !ok {
		return errors.Errorf("unknown conflict mode %d", int(p.Mode))
	}
	if p.Mode == IndexRename && p.Limit < 1 {
		return errors.Errorf("index rename needs a limit of at least 1, got %d", p.Limit)
	}
	if p.Mode == BackupSuffix && p.Suffix == "" {
		return errors.Errorf("backup mode needs a suffix")
	}
	return nil
}
