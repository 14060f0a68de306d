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

package filetype

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestCache(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/a.pdf", pad([]byte("%PDF-1.7")), 0o644), "writing should succeed")
	require.NoError(t, afero.WriteFile(mem, "/short", []byte("ab"), 0o644), "writing should succeed")

	c, err := NewCache(mem, 0)
	require.NoError(t, err, "cache should build")

	res, err := c.SniffFile("/a.pdf")
	require.NoError(t, err, "sniff should succeed")
	assert.Equal(t, TypePDF, res.Type, "type should be pdf")
	assert.Equal(t, 1, c.Len(), "result should be cached")

	again, err := c.SniffFile("/a.pdf")
	require.NoError(t, err, "sniff should succeed")
	assert.Equal(t, res, again, "cached result should match")
	assert.Equal(t, 1, c.Len(), "no new entry for an unchanged file")

	// same size, new content and mtime: a fresh entry
	require.NoError(t, afero.WriteFile(mem, "/a.pdf", pad([]byte("\x89PNG\r\n\x1a\n")), 0o644), "rewriting should succeed")
	require.NoError(t, mem.Chtimes("/a.pdf", time.Now(), time.Now().Add(time.Hour)), "touch should succeed")
	res, err = c.SniffFile("/a.pdf")
	require.NoError(t, err, "sniff should succeed")
	assert.Equal(t, TypePNG, res.Type, "changed file should be reclassified")
	assert.Equal(t, 2, c.Len(), "changed file should get its own entry")

	_, err = c.SniffFile("/short")
	var lerr *LengthError
	require.True(t, errors.As(err, &lerr), "short file should report LengthError")
	assert.Equal(t, 2, lerr.Got, "length should be reported")

	_, err = c.SniffFile("/missing")
	assert.Error(t, err, "missing file should fail")
}
